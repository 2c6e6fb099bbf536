package models

import "time"

type Review struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	SpaceID           string    `json:"spaceId"`
	BookingID         string    `json:"bookingId"`
	Rating            int       `json:"rating"`
	CleanlinessRating *int      `json:"cleanlinessRating,omitempty"`
	AmenitiesRating   *int      `json:"amenitiesRating,omitempty"`
	LocationRating    *int      `json:"locationRating,omitempty"`
	ValueRating       *int      `json:"valueRating,omitempty"`
	Comment           string    `json:"comment,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`

	User *User `json:"user,omitempty"`
}

// RatingSummary is the average over a space's reviews.
type RatingSummary struct {
	Average *float64 `json:"averageRating"`
	Count   int      `json:"reviewCount"`
}
