package pricing

import (
	"errors"
	"math"

	"spacehub/internal/models"
)

var (
	ErrNoPricing       = errors.New("no pricing available for this space")
	ErrInvalidDuration = errors.New("invalid booking duration")
)

// Quote is the price breakdown for one booking window.
type Quote struct {
	PricingType string  `json:"pricingType"`
	BasePrice   float64 `json:"basePrice"`
	Hours       float64 `json:"hours"`
	Units       float64 `json:"units"`
	Subtotal    float64 `json:"subtotal"`
	CleaningFee float64 `json:"cleaningFee"`
	ServiceFee  float64 `json:"serviceFee"`
	Taxes       float64 `json:"taxes"`
	Total       float64 `json:"total"`
	Currency    string  `json:"currency"`
}

// Units converts booked hours into billable units of the tier.
// Daily, weekly and monthly tiers bill every started period.
func Units(pricingType string, hours float64) float64 {
	switch pricingType {
	case models.PricingDaily:
		return math.Ceil(hours / models.HoursPerDay)
	case models.PricingWeekly:
		return math.Ceil(hours / models.HoursPerWeek)
	case models.PricingMonthly:
		return math.Ceil(hours / models.HoursPerMonth)
	default:
		return hours
	}
}

// FindTier returns the regular (non-peak) tier of the given type, or the first
// peak tier of that type when no regular one exists.
func FindTier(tiers []models.PricingTier, pricingType string) (*models.PricingTier, error) {
	for i := range tiers {
		if tiers[i].PricingType == pricingType && !tiers[i].IsPeakPrice {
			return &tiers[i], nil
		}
	}
	for i := range tiers {
		if tiers[i].PricingType == pricingType {
			return &tiers[i], nil
		}
	}
	return nil, ErrNoPricing
}

// Calculate prices hours against a tier. Fees are added once per booking.
// Taxes are the share of the total attributed to tax on the invoice.
func Calculate(tier models.PricingTier, hours, taxRate float64) (Quote, error) {
	if hours <= 0 {
		return Quote{}, ErrInvalidDuration
	}

	units := Units(tier.PricingType, hours)
	subtotal := Round(tier.Price * units)
	total := Round(subtotal + tier.CleaningFee + tier.ServiceFee)
	_, taxes := InvoiceSplit(total, taxRate)

	currency := tier.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}

	return Quote{
		PricingType: tier.PricingType,
		BasePrice:   tier.Price,
		Hours:       hours,
		Units:       units,
		Subtotal:    subtotal,
		CleaningFee: tier.CleaningFee,
		ServiceFee:  tier.ServiceFee,
		Taxes:       taxes,
		Total:       total,
		Currency:    currency,
	}, nil
}

// InvoiceSplit divides a gross total into its net and tax parts.
func InvoiceSplit(total, taxRate float64) (subtotal, taxes float64) {
	taxes = Round(total * taxRate)
	subtotal = Round(total - taxes)
	return subtotal, taxes
}

// Round rounds to cents.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}
