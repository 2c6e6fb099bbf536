package service

import (
	"context"
	"strings"
	"time"

	"spacehub/internal/domain"
	"spacehub/internal/events"
	"spacehub/internal/models"
	"spacehub/internal/pricing"
	"spacehub/internal/sanitize"
	"spacehub/internal/schedule"

	"github.com/rs/zerolog"
)

// LocationInput is the country picker value sent by the listing form.
type LocationInput struct {
	Value  string    `json:"value"`
	Label  string    `json:"label"`
	LatLng []float64 `json:"latlng"`
}

// SpaceInput is the body of a create or partial update. Nil fields are left unchanged on update.
type SpaceInput struct {
	Title              *string               `json:"title"`
	Description        *string               `json:"description"`
	ImageSrc           *string               `json:"imageSrc"`
	Images             []string              `json:"images"`
	SpaceType          *string               `json:"spaceType"`
	Category           *string               `json:"category"`
	Capacity           *int                  `json:"capacity"`
	MinCapacity        *int                  `json:"minCapacity"`
	Location           *LocationInput        `json:"location"`
	Address            *string               `json:"address"`
	City               *string               `json:"city"`
	State              *string               `json:"state"`
	PostalCode         *string               `json:"postalCode"`
	Country            *string               `json:"country"`
	SquareFootage      *int                  `json:"squareFootage"`
	CeilingHeight      *float64              `json:"ceilingHeight"`
	Amenities          []string              `json:"amenities"`
	Equipment          []string              `json:"equipment"`
	InstantBooking     *bool                 `json:"instantBooking"`
	RequiresApproval   *bool                 `json:"requiresApproval"`
	MinBookingHours    *int                  `json:"minBookingHours"`
	MaxBookingHours    *int                  `json:"maxBookingHours"`
	CancellationPolicy *string               `json:"cancellationPolicy"`
	Rules              []string              `json:"rules"`
	IsActive           *bool                 `json:"isActive"`
	Pricing            []models.PricingTier  `json:"pricing"`
	BusinessHours      []models.BusinessHour `json:"businessHours"`
}

// SpaceDetail is a listing with its host, reviews and rating.
type SpaceDetail struct {
	*models.Space
	Owner   *models.User         `json:"user"`
	Reviews []*models.Review     `json:"reviews"`
	Rating  models.RatingSummary `json:"rating"`
}

type SpaceService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	taxRate  float64
	now      func() time.Time
	logger   *zerolog.Logger
}

func NewSpaceService(repo domain.Repository, eventBus domain.EventPublisher, taxRate float64, logger *zerolog.Logger) *SpaceService {
	return &SpaceService{
		repo:     repo,
		eventBus: eventBus,
		taxRate:  taxRate,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *SpaceService) Create(ctx context.Context, ownerID string, in SpaceInput) (*models.Space, error) {
	if err := requireSpaceFields(in); err != nil {
		return nil, err
	}

	space := &models.Space{
		UserID:             ownerID,
		MinCapacity:        1,
		MinBookingHours:    models.DefaultMinBookingHours,
		CancellationPolicy: models.PolicyModerate,
		IsActive:           true,
		Verified:           false,
	}
	if err := applySpaceInput(space, in); err != nil {
		return nil, err
	}
	space.IsActive = true
	if space.SpaceType == "" {
		space.SpaceType = models.SpaceTypeForCategory(space.Category)
	}
	if err := validateSpace(space); err != nil {
		return nil, err
	}

	if err := s.repo.CreateSpace(ctx, space); err != nil {
		return nil, err
	}

	s.publish(events.EventSpaceCreated, space)
	s.logger.Info().Str("space_id", space.ID).Str("owner_id", ownerID).Msg("space created")
	return space, nil
}

func (s *SpaceService) Get(ctx context.Context, id string) (*models.Space, error) {
	space, err := s.repo.GetSpace(ctx, id)
	if err != nil {
		return nil, notFound(err, "Space")
	}
	return space, nil
}

// Detail loads everything the listing page shows. Inactive spaces are hidden.
func (s *SpaceService) Detail(ctx context.Context, id string) (*SpaceDetail, error) {
	space, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !space.IsActive {
		return nil, &NotFoundError{Resource: "Space"}
	}

	owner, err := s.repo.GetUserByID(ctx, space.UserID)
	if err != nil {
		return nil, err
	}
	reviews, err := s.repo.ListReviewsForSpace(ctx, id)
	if err != nil {
		return nil, err
	}
	rating, err := s.repo.RatingSummary(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SpaceDetail{Space: space, Owner: owner, Reviews: reviews, Rating: rating}, nil
}

func (s *SpaceService) Search(ctx context.Context, f models.SpaceFilter) ([]*models.SpaceSummary, error) {
	if f.StartDateTime != nil && f.EndDateTime != nil && !f.EndDateTime.After(*f.StartDateTime) {
		return nil, invalid("endDateTime must be after startDateTime")
	}
	return s.repo.SearchSpaces(ctx, f)
}

func (s *SpaceService) ListByOwner(ctx context.Context, ownerID string) ([]*models.SpaceSummary, error) {
	return s.repo.ListSpacesByOwner(ctx, ownerID)
}

func (s *SpaceService) Update(ctx context.Context, callerID, id string, patch SpaceInput) (*models.Space, error) {
	space, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !space.IsOwnedBy(callerID) {
		return nil, forbidden("You are not authorized to update this space")
	}

	if err := applySpaceInput(space, patch); err != nil {
		return nil, err
	}
	if patch.Category != nil && patch.SpaceType == nil {
		space.SpaceType = models.SpaceTypeForCategory(space.Category)
	}
	if err := validateSpace(space); err != nil {
		return nil, err
	}

	replacePricing := patch.Pricing != nil
	replaceHours := patch.BusinessHours != nil
	if err := s.repo.UpdateSpace(ctx, space, replacePricing, replaceHours); err != nil {
		return nil, notFound(err, "Space")
	}

	s.publish(events.EventSpaceUpdated, space)
	return s.Get(ctx, id)
}

func (s *SpaceService) Delete(ctx context.Context, callerID, id string) error {
	space, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !space.IsOwnedBy(callerID) {
		return forbidden("You are not authorized to delete this space")
	}

	active, err := s.repo.HasActiveBookings(ctx, id, s.now())
	if err != nil {
		return err
	}
	if active {
		return invalid("Cannot delete space with active bookings")
	}

	if err := s.repo.SoftDeleteSpace(ctx, id); err != nil {
		return notFound(err, "Space")
	}
	s.publish(events.EventSpaceDeleted, space)
	return nil
}

// Slots returns the hourly availability of the space on date's day.
func (s *SpaceService) Slots(ctx context.Context, spaceID string, date time.Time) ([]models.TimeSlot, error) {
	space, err := s.Get(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	bookings, err := s.repo.ListBookingsForSpace(ctx, spaceID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	return schedule.Slots(dayStart, space.BusinessHours, bookings, s.now()), nil
}

// Quote prices [start, end) against the space's tier of pricingType.
func (s *SpaceService) Quote(ctx context.Context, spaceID string, start, end time.Time, pricingType string) (pricing.Quote, error) {
	if pricingType == "" {
		pricingType = models.PricingHourly
	}
	if !models.IsValidPricingType(pricingType) {
		return pricing.Quote{}, invalid("Invalid pricing type")
	}
	space, err := s.Get(ctx, spaceID)
	if err != nil {
		return pricing.Quote{}, err
	}
	tier, err := pricing.FindTier(space.Pricing, pricingType)
	if err != nil {
		return pricing.Quote{}, invalid("No pricing available for this space")
	}
	quote, err := pricing.Calculate(*tier, end.Sub(start).Hours(), s.taxRate)
	if err != nil {
		return pricing.Quote{}, invalid("Invalid booking duration")
	}
	return quote, nil
}

func (s *SpaceService) publish(eventType string, space *models.Space) {
	if s.eventBus == nil {
		return
	}
	payload := events.SpaceEventPayload{SpaceID: space.ID, OwnerID: space.UserID, Title: space.Title}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("space_id", space.ID).Msg("publish event error")
	}
}

// requireSpaceFields reports the first missing field of a new listing.
func requireSpaceFields(in SpaceInput) error {
	emptyStr := func(p *string) bool { return p == nil || strings.TrimSpace(*p) == "" }
	country := in.Country
	if emptyStr(country) && in.Location != nil && in.Location.Label != "" {
		country = &in.Location.Label
	}

	checks := []struct {
		field   string
		missing bool
	}{
		{"title", emptyStr(in.Title)},
		{"description", emptyStr(in.Description)},
		{"imageSrc", emptyStr(in.ImageSrc)},
		{"spaceType", emptyStr(in.SpaceType) && emptyStr(in.Category)},
		{"category", emptyStr(in.Category)},
		{"capacity", in.Capacity == nil || *in.Capacity == 0},
		{"location", in.Location == nil || in.Location.Value == ""},
		{"address", emptyStr(in.Address)},
		{"city", emptyStr(in.City)},
		{"country", emptyStr(country)},
		{"pricing", len(in.Pricing) == 0},
		{"businessHours", len(in.BusinessHours) == 0},
	}
	for _, c := range checks {
		if c.missing {
			return invalid("Missing required field: %s", c.field)
		}
	}
	return nil
}

func applySpaceInput(space *models.Space, in SpaceInput) error {
	setText := func(dst *string, src *string) {
		if src != nil {
			*dst = sanitize.Text(*src)
		}
	}

	setText(&space.Title, in.Title)
	if in.Description != nil {
		space.Description = sanitize.RichText(*in.Description)
	}
	setText(&space.ImageSrc, in.ImageSrc)
	if in.Images != nil {
		space.Images = sanitize.Lines(in.Images)
	}
	if in.SpaceType != nil {
		space.SpaceType = strings.ToUpper(strings.TrimSpace(*in.SpaceType))
	}
	setText(&space.Category, in.Category)
	if in.Capacity != nil {
		space.Capacity = *in.Capacity
	}
	if in.MinCapacity != nil {
		space.MinCapacity = *in.MinCapacity
	}
	if in.Location != nil {
		space.LocationValue = sanitize.Text(in.Location.Value)
		if in.Location.Label != "" {
			space.Country = sanitize.Text(in.Location.Label)
		}
		if len(in.Location.LatLng) == 2 {
			lat, lng := in.Location.LatLng[0], in.Location.LatLng[1]
			space.Latitude, space.Longitude = &lat, &lng
		}
	}
	setText(&space.Address, in.Address)
	setText(&space.City, in.City)
	setText(&space.State, in.State)
	setText(&space.PostalCode, in.PostalCode)
	setText(&space.Country, in.Country)
	if in.SquareFootage != nil {
		space.SquareFootage = in.SquareFootage
	}
	if in.CeilingHeight != nil {
		space.CeilingHeight = in.CeilingHeight
	}
	if in.Amenities != nil {
		space.Amenities = sanitize.Lines(in.Amenities)
	}
	if in.Equipment != nil {
		space.Equipment = sanitize.Lines(in.Equipment)
	}
	if in.InstantBooking != nil {
		space.InstantBooking = *in.InstantBooking
	}
	if in.RequiresApproval != nil {
		space.RequiresApproval = *in.RequiresApproval
	}
	if in.MinBookingHours != nil {
		space.MinBookingHours = *in.MinBookingHours
	}
	if in.MaxBookingHours != nil {
		space.MaxBookingHours = *in.MaxBookingHours
	}
	if in.CancellationPolicy != nil {
		space.CancellationPolicy = strings.ToUpper(strings.TrimSpace(*in.CancellationPolicy))
	}
	if in.Rules != nil {
		space.Rules = sanitize.Lines(in.Rules)
	}
	if in.IsActive != nil {
		space.IsActive = *in.IsActive
	}
	if in.Pricing != nil {
		space.Pricing = in.Pricing
	}
	if in.BusinessHours != nil {
		space.BusinessHours = in.BusinessHours
	}
	return nil
}

func validateSpace(space *models.Space) error {
	if space.SpaceType != models.SpaceTypeWorkspace && space.SpaceType != models.SpaceTypeEventVenue {
		return invalid("Invalid space type")
	}
	if space.MinCapacity < 1 {
		return invalid("Minimum capacity must be at least 1")
	}
	if space.Capacity < space.MinCapacity {
		return invalid("Capacity must be at least the minimum capacity")
	}
	if space.MinBookingHours < 1 {
		return invalid("Minimum booking hours must be at least 1")
	}
	if space.MaxBookingHours < 0 || (space.MaxBookingHours > 0 && space.MaxBookingHours < space.MinBookingHours) {
		return invalid("Maximum booking hours must not be below the minimum")
	}
	if !models.IsValidCancellationPolicy(space.CancellationPolicy) {
		return invalid("Invalid cancellation policy")
	}

	for i := range space.Pricing {
		tier := &space.Pricing[i]
		tier.PricingType = strings.ToUpper(tier.PricingType)
		if !models.IsValidPricingType(tier.PricingType) {
			return invalid("Invalid pricing type: %s", tier.PricingType)
		}
		if tier.Price <= 0 {
			return invalid("Price must be greater than 0")
		}
		if tier.CleaningFee < 0 || tier.ServiceFee < 0 || tier.OvertimeFee < 0 {
			return invalid("Fees must not be negative")
		}
	}

	seen := map[string]bool{}
	for i := range space.BusinessHours {
		bh := &space.BusinessHours[i]
		bh.DayOfWeek = strings.ToUpper(bh.DayOfWeek)
		if !schedule.IsValidDay(bh.DayOfWeek) {
			return invalid("Invalid day of week: %s", bh.DayOfWeek)
		}
		if seen[bh.DayOfWeek] {
			return invalid("Duplicate business hours for %s", bh.DayOfWeek)
		}
		seen[bh.DayOfWeek] = true
		if bh.IsClosed {
			continue
		}
		open, err := schedule.ParseClock(bh.OpenTime)
		if err != nil {
			return invalid("Invalid open time for %s", bh.DayOfWeek)
		}
		closeAt, err := schedule.ParseClock(bh.CloseTime)
		if err != nil {
			return invalid("Invalid close time for %s", bh.DayOfWeek)
		}
		if closeAt <= open {
			return invalid("Closing time must be after opening time for %s", bh.DayOfWeek)
		}
	}
	return nil
}
