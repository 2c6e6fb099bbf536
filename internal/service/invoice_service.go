package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"spacehub/internal/database"
	"spacehub/internal/domain"
	"spacehub/internal/events"
	"spacehub/internal/metrics"
	"spacehub/internal/models"
	"spacehub/internal/pricing"

	"github.com/rs/zerolog"
)

// InvoiceList is an invoice page: the rows plus their totals.
type InvoiceList struct {
	Invoices []*models.Invoice    `json:"invoices"`
	Summary  models.InvoiceSummary `json:"summary"`
}

type InvoiceService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	dueDays  int
	taxRate  float64
	now      func() time.Time
	logger   *zerolog.Logger
}

func NewInvoiceService(repo domain.Repository, eventBus domain.EventPublisher, dueDays int, taxRate float64, logger *zerolog.Logger) *InvoiceService {
	if dueDays <= 0 {
		dueDays = 7
	}
	return &InvoiceService{
		repo:     repo,
		eventBus: eventBus,
		dueDays:  dueDays,
		taxRate:  taxRate,
		now:      time.Now,
		logger:   logger,
	}
}

// Issue creates the invoice of an approved booking. Issuing twice returns the first invoice.
func (s *InvoiceService) Issue(ctx context.Context, booking *models.Booking, space *models.Space, booker *models.User) (*models.Invoice, error) {
	existing, err := s.repo.GetInvoiceByBooking(ctx, booking.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	now := s.now().UTC()
	subtotal, taxes := pricing.InvoiceSplit(booking.TotalPrice, s.taxRate)
	inv := &models.Invoice{
		InvoiceNumber: invoiceNumber(now, booking.ID),
		BookingID:     booking.ID,
		BillingName:   billingName(booking, booker),
		Subtotal:      subtotal,
		Taxes:         taxes,
		Total:         booking.TotalPrice,
		IssuedAt:      now,
		DueDate:       now.AddDate(0, 0, s.dueDays),
		Status:        models.InvoiceSent,
	}
	if booker != nil {
		inv.BillingEmail = booker.Email
	}

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		if errors.Is(err, database.ErrInvoiceExists) {
			return s.repo.GetInvoiceByBooking(ctx, booking.ID)
		}
		return nil, fmt.Errorf("issue invoice: %w", err)
	}

	metrics.IncInvoiceIssued()
	s.publish(events.EventInvoiceIssued, inv, booking.UserID, hostID(space))
	s.logger.Info().Str("invoice", inv.InvoiceNumber).Str("booking_id", booking.ID).Msg("invoice issued")
	return inv, nil
}

// Get returns the invoice with its booking. Only the booker and the host may see it.
func (s *InvoiceService) Get(ctx context.Context, callerID, id string) (*models.Invoice, error) {
	inv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	guest, host := invoiceParties(inv)
	if callerID != guest && callerID != host {
		return nil, ErrForbidden
	}
	inv.IsOutgoing = callerID == guest
	inv.IsIncoming = callerID == host
	return inv, nil
}

func (s *InvoiceService) List(ctx context.Context, userID, status string) (*InvoiceList, error) {
	status = strings.ToUpper(status)
	if status != "" && !models.IsValidInvoiceStatus(status) {
		return nil, invalid("Invalid invoice status")
	}
	invoices, err := s.repo.ListInvoicesForUser(ctx, userID, status)
	if err != nil {
		return nil, err
	}
	if invoices == nil {
		invoices = []*models.Invoice{}
	}
	return &InvoiceList{Invoices: invoices, Summary: models.Summarize(invoices)}, nil
}

// Update changes the invoice status. Only the host of the booked space may do it.
func (s *InvoiceService) Update(ctx context.Context, callerID, id, status string, paidAt *time.Time) (*models.Invoice, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if !models.IsValidInvoiceStatus(status) {
		return nil, invalid("Invalid invoice status")
	}

	inv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	guest, host := invoiceParties(inv)
	if callerID != host {
		if status == models.InvoicePaid {
			return nil, forbidden("Only space owners can mark invoices as paid")
		}
		return nil, forbidden("Only space owners can update invoices")
	}

	if status == models.InvoicePaid {
		if paidAt == nil {
			t := s.now().UTC()
			paidAt = &t
		}
	} else {
		paidAt = nil
	}

	if err := s.repo.UpdateInvoiceStatus(ctx, id, status, paidAt); err != nil {
		return nil, notFound(err, "Invoice")
	}
	inv.Status = status
	inv.PaidAt = paidAt

	if status == models.InvoicePaid {
		if err := s.repo.SetPaymentStatus(ctx, inv.BookingID, models.PaymentPaid); err != nil {
			return nil, err
		}
		if inv.Booking != nil {
			inv.Booking.PaymentStatus = models.PaymentPaid
		}
		s.publish(events.EventInvoicePaid, inv, guest, host)
	}
	inv.IsIncoming = true
	return inv, nil
}

// MarkOverdue flips SENT invoices past due and announces each one.
func (s *InvoiceService) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	changed, err := s.repo.MarkOverdueInvoices(ctx, now)
	if err != nil {
		return 0, err
	}
	for _, inv := range changed {
		if err := s.repo.LoadInvoiceBooking(ctx, inv); err != nil {
			s.logger.Warn().Err(err).Str("invoice_id", inv.ID).Msg("failed to load booking of overdue invoice")
		}
		guest, host := invoiceParties(inv)
		s.publish(events.EventInvoiceOverdue, inv, guest, host)
	}
	if len(changed) > 0 {
		s.logger.Info().Int("count", len(changed)).Msg("invoices marked overdue")
	}
	return len(changed), nil
}

func (s *InvoiceService) load(ctx context.Context, id string) (*models.Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, notFound(err, "Invoice")
	}
	if err := s.repo.LoadInvoiceBooking(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *InvoiceService) publish(eventType string, inv *models.Invoice, guestID, hostID string) {
	if s.eventBus == nil {
		return
	}
	payload := events.InvoiceEventPayload{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		BookingID:     inv.BookingID,
		GuestID:       guestID,
		HostID:        hostID,
		Status:        inv.Status,
		Total:         inv.Total,
		DueDate:       inv.DueDate,
		PaidAt:        inv.PaidAt,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("invoice_id", inv.ID).Msg("publish event error")
	}
}

// invoiceParties returns the booker and host ids of a loaded invoice.
func invoiceParties(inv *models.Invoice) (guestID, hostID string) {
	if inv.Booking == nil {
		return "", ""
	}
	guestID = inv.Booking.UserID
	if inv.Booking.Space != nil {
		hostID = inv.Booking.Space.UserID
	}
	return guestID, hostID
}

func invoiceNumber(now time.Time, bookingID string) string {
	short := bookingID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("INV-%d-%s", now.UnixMilli(), strings.ToUpper(short))
}

func billingName(booking *models.Booking, booker *models.User) string {
	if booking.CompanyName != "" {
		return booking.CompanyName
	}
	if booker != nil && booker.Name != "" {
		return booker.Name
	}
	return "Customer"
}

func hostID(space *models.Space) string {
	if space == nil {
		return ""
	}
	return space.UserID
}
