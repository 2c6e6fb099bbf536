package models

import "time"

type Space struct {
	ID                 string         `json:"id"`
	UserID             string         `json:"userId"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	ImageSrc           string         `json:"imageSrc"`
	Images             []string       `json:"images"`
	SpaceType          string         `json:"spaceType"`
	Category           string         `json:"category"`
	Capacity           int            `json:"capacity"`
	MinCapacity        int            `json:"minCapacity"`
	LocationValue      string         `json:"locationValue"`
	Address            string         `json:"address"`
	City               string         `json:"city"`
	State              string         `json:"state,omitempty"`
	PostalCode         string         `json:"postalCode,omitempty"`
	Country            string         `json:"country"`
	Latitude           *float64       `json:"latitude,omitempty"`
	Longitude          *float64       `json:"longitude,omitempty"`
	SquareFootage      *int           `json:"squareFootage,omitempty"`
	CeilingHeight      *float64       `json:"ceilingHeight,omitempty"`
	Amenities          []string       `json:"amenities"`
	Equipment          []string       `json:"equipment"`
	InstantBooking     bool           `json:"instantBooking"`
	RequiresApproval   bool           `json:"requiresApproval"`
	MinBookingHours    int            `json:"minBookingHours"`
	MaxBookingHours    int            `json:"maxBookingHours,omitempty"`
	CancellationPolicy string         `json:"cancellationPolicy"`
	Rules              []string       `json:"rules"`
	IsActive           bool           `json:"isActive"`
	Verified           bool           `json:"verified"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	Pricing            []PricingTier  `json:"pricing,omitempty"`
	BusinessHours      []BusinessHour `json:"businessHours,omitempty"`
}

// IsOwnedBy reports whether userID is the listing's host.
func (s *Space) IsOwnedBy(userID string) bool {
	return s != nil && userID != "" && s.UserID == userID
}

// HourlyTier returns the regular hourly tier, if the space has one.
func (s *Space) HourlyTier() *PricingTier {
	for i := range s.Pricing {
		if s.Pricing[i].PricingType == PricingHourly && !s.Pricing[i].IsPeakPrice {
			return &s.Pricing[i]
		}
	}
	return nil
}

type PricingTier struct {
	ID          string   `json:"id"`
	SpaceID     string   `json:"spaceId"`
	PricingType string   `json:"pricingType"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
	IsPeakPrice bool     `json:"isPeakPrice"`
	PeakDays    []string `json:"peakDays"`
	PeakHours   string   `json:"peakHours,omitempty"`
	CleaningFee float64  `json:"cleaningFee"`
	ServiceFee  float64  `json:"serviceFee"`
	OvertimeFee float64  `json:"overtimeFee"`
}

type BusinessHour struct {
	ID        string `json:"id"`
	SpaceID   string `json:"spaceId"`
	DayOfWeek string `json:"dayOfWeek"`
	OpenTime  string `json:"openTime"`
	CloseTime string `json:"closeTime"`
	IsClosed  bool   `json:"isClosed"`
}

// SpaceSummary is a search result row: the listing plus aggregate counters.
type SpaceSummary struct {
	Space
	AverageRating *float64 `json:"averageRating"`
	ReviewCount   int      `json:"reviewCount"`
	BookingCount  int      `json:"bookingCount"`
	BasePrice     *float64 `json:"basePrice"`
}

// SpaceFilter holds the listing search parameters. Zero values mean "no filter".
type SpaceFilter struct {
	UserID         string
	SpaceType      string
	Category       string
	LocationValue  string
	City           string
	MinCapacity    int
	MaxCapacity    int
	InstantBooking *bool
	Amenities      []string
	StartDateTime  *time.Time
	EndDateTime    *time.Time
	MinPrice       *float64
	MaxPrice       *float64
}

// TimeSlot is one bookable hour in a space's day view.
type TimeSlot struct {
	Start     string    `json:"start"`
	End       string    `json:"end"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Available bool      `json:"available"`
}
