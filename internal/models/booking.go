package models

import "time"

type Booking struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	SpaceID         string    `json:"spaceId"`
	StartDateTime   time.Time `json:"startDateTime"`
	EndDateTime     time.Time `json:"endDateTime"`
	TotalHours      float64   `json:"totalHours"`
	AttendeeCount   int       `json:"attendeeCount"`
	EventType       string    `json:"eventType,omitempty"`
	CompanyName     string    `json:"companyName,omitempty"`
	SpecialRequests string    `json:"specialRequests,omitempty"`
	HourlyRate      float64   `json:"hourlyRate"`
	TotalPrice      float64   `json:"totalPrice"`
	PricingType     string    `json:"pricingType"`
	Addons          []string  `json:"addons"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"paymentStatus"`
	RejectionReason string    `json:"rejectionReason,omitempty"`
	Version         int64     `json:"version"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	Space   *Space   `json:"space,omitempty"`
	User    *User    `json:"user,omitempty"`
	Invoice *Invoice `json:"invoice,omitempty"`
}

// transitions lists the status changes a host may make.
var transitions = map[string][]string{
	StatusPending:   {StatusApproved, StatusRejected},
	StatusApproved:  {StatusCancelled, StatusCompleted},
	StatusRejected:  {},
	StatusCancelled: {},
	StatusCompleted: {},
}

// CanTransition reports whether from -> to is allowed by the status table.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsActive reports whether the booking still holds its time window.
func (b *Booking) IsActive() bool {
	return b.Status == StatusPending || b.Status == StatusApproved
}

// Started reports whether the booking window has begun at now.
func (b *Booking) Started(now time.Time) bool {
	return !b.StartDateTime.After(now)
}

// Cancellable reports whether either party may still cancel at now.
func (b *Booking) Cancellable(now time.Time) bool {
	return b.IsActive() && !b.Started(now)
}

// BlockingStatuses are the statuses that keep a time window occupied.
var BlockingStatuses = []string{StatusPending, StatusApproved}
