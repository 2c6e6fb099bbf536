package models

import "time"

type Invoice struct {
	ID            string     `json:"id"`
	InvoiceNumber string     `json:"invoiceNumber"`
	BookingID     string     `json:"bookingId"`
	BillingName   string     `json:"billingName"`
	BillingEmail  string     `json:"billingEmail"`
	Subtotal      float64    `json:"subtotal"`
	Taxes         float64    `json:"taxes"`
	Total         float64    `json:"total"`
	IssuedAt      time.Time  `json:"issuedAt"`
	DueDate       time.Time  `json:"dueDate"`
	PaidAt        *time.Time `json:"paidAt"`
	Status        string     `json:"status"`
	TaxID         string     `json:"taxId,omitempty"`

	Booking    *Booking `json:"booking,omitempty"`
	IsIncoming bool     `json:"isIncoming"`
	IsOutgoing bool     `json:"isOutgoing"`
}

// InvoiceSummary aggregates an invoice list for the invoices page.
type InvoiceSummary struct {
	Paid             int     `json:"paid"`
	Pending          int     `json:"pending"`
	Overdue          int     `json:"overdue"`
	TotalPaid        float64 `json:"totalPaid"`
	TotalOutstanding float64 `json:"totalOutstanding"`
}

// Summarize counts invoices by status and sums paid and outstanding totals.
func Summarize(invoices []*Invoice) InvoiceSummary {
	var sum InvoiceSummary
	for _, inv := range invoices {
		switch inv.Status {
		case InvoicePaid:
			sum.Paid++
			sum.TotalPaid += inv.Total
			continue
		case InvoiceSent:
			sum.Pending++
		case InvoiceOverdue:
			sum.Overdue++
		}
		if inv.Status != InvoiceCancelled {
			sum.TotalOutstanding += inv.Total
		}
	}
	return sum
}
