package models

type Category struct {
	Label       string `json:"label" yaml:"label"`
	SpaceType   string `json:"spaceType" yaml:"space_type"`
	Description string `json:"description" yaml:"description"`
}

// Categories is the fixed listing taxonomy shown in the category strip.
var Categories = []Category{
	{Label: "Private Office", SpaceType: SpaceTypeWorkspace, Description: "Dedicated private office space"},
	{Label: "Open Workspace", SpaceType: SpaceTypeWorkspace, Description: "Flexible open workspace"},
	{Label: "Meeting Room", SpaceType: SpaceTypeWorkspace, Description: "Rooms for team meetings"},
	{Label: "Conference Room", SpaceType: SpaceTypeWorkspace, Description: "Larger rooms for presentations"},
	{Label: "Coworking Desk", SpaceType: SpaceTypeWorkspace, Description: "Hot desks in shared spaces"},
	{Label: "Executive Suite", SpaceType: SpaceTypeWorkspace, Description: "Premium executive offices"},
	{Label: "Wedding Venue", SpaceType: SpaceTypeEventVenue, Description: "Venues for weddings and receptions"},
	{Label: "Conference Hall", SpaceType: SpaceTypeEventVenue, Description: "Halls for conferences and summits"},
	{Label: "Banquet Hall", SpaceType: SpaceTypeEventVenue, Description: "Halls for dinners and banquets"},
	{Label: "Party Space", SpaceType: SpaceTypeEventVenue, Description: "Spaces for parties and celebrations"},
	{Label: "Workshop Room", SpaceType: SpaceTypeWorkspace, Description: "Rooms for workshops and training"},
	{Label: "Exhibition Space", SpaceType: SpaceTypeEventVenue, Description: "Galleries and exhibition floors"},
}

// SpaceTypeForCategory maps a category label to its space type.
// Unknown categories are treated as workspaces.
func SpaceTypeForCategory(label string) string {
	for _, c := range Categories {
		if c.Label == label {
			return c.SpaceType
		}
	}
	return SpaceTypeWorkspace
}
