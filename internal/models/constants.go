package models

// Booking statuses.
const (
	StatusPending   = "PENDING"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
	StatusCompleted = "COMPLETED"
)

// Payment statuses.
const (
	PaymentPending = "PENDING"
	PaymentPaid    = "PAID"
)

// Invoice statuses.
const (
	InvoiceDraft     = "DRAFT"
	InvoiceSent      = "SENT"
	InvoicePaid      = "PAID"
	InvoiceOverdue   = "OVERDUE"
	InvoiceCancelled = "CANCELLED"
)

// Pricing tier types.
const (
	PricingHourly  = "HOURLY"
	PricingDaily   = "DAILY"
	PricingWeekly  = "WEEKLY"
	PricingMonthly = "MONTHLY"
)

const (
	SpaceTypeWorkspace  = "WORKSPACE"
	SpaceTypeEventVenue = "EVENT_VENUE"
)

const (
	PolicyFlexible = "FLEXIBLE"
	PolicyModerate = "MODERATE"
	PolicyStrict   = "STRICT"
)

const (
	UserTypeGuest = "GUEST"
	UserTypeHost  = "HOST"
	UserTypeBoth  = "BOTH"
)

const (
	DefaultCurrency        = "USD"
	DefaultMinBookingHours = 1

	// HoursPerDay and friends convert booked hours into billable tier units.
	HoursPerDay   = 8
	HoursPerWeek  = 40
	HoursPerMonth = 160

	ParseModeMarkdown = "Markdown"
)

var validPricingTypes = map[string]bool{
	PricingHourly:  true,
	PricingDaily:   true,
	PricingWeekly:  true,
	PricingMonthly: true,
}

// IsValidPricingType reports whether t is one of the four tier types.
func IsValidPricingType(t string) bool {
	return validPricingTypes[t]
}

var validInvoiceStatuses = map[string]bool{
	InvoiceDraft:     true,
	InvoiceSent:      true,
	InvoicePaid:      true,
	InvoiceOverdue:   true,
	InvoiceCancelled: true,
}

func IsValidInvoiceStatus(s string) bool {
	return validInvoiceStatuses[s]
}

func IsValidBookingStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusCompleted:
		return true
	default:
		return false
	}
}

func IsValidCancellationPolicy(p string) bool {
	switch p {
	case PolicyFlexible, PolicyModerate, PolicyStrict:
		return true
	default:
		return false
	}
}
