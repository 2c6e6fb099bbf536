package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"spacehub/internal/domain"
	"spacehub/internal/events"
	"spacehub/internal/models"

	"github.com/rs/zerolog"
)

const deliveryTimeout = 10 * time.Second

// UserLookup resolves event participants.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Subscriber turns booking and invoice events into messages for hosts and guests.
// Delivery happens off the publishing goroutine.
type Subscriber struct {
	users    UserLookup
	notifier domain.Notifier
	logger   *zerolog.Logger
	wg       sync.WaitGroup
}

func NewSubscriber(users UserLookup, notifier domain.Notifier, logger *zerolog.Logger) *Subscriber {
	return &Subscriber{users: users, notifier: notifier, logger: logger}
}

// Attach registers the subscriber's handlers on bus.
func (s *Subscriber) Attach(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, s.onBooking)
	bus.Subscribe(events.EventBookingApproved, s.onBooking)
	bus.Subscribe(events.EventBookingRejected, s.onBooking)
	bus.Subscribe(events.EventBookingCancelled, s.onBooking)
	bus.Subscribe(events.EventInvoicePaid, s.onInvoicePaid)
}

// Wait blocks until in-flight deliveries finish.
func (s *Subscriber) Wait() {
	s.wg.Wait()
}

func (s *Subscriber) onBooking(event *events.Event) error {
	var p events.BookingEventPayload
	if err := event.Decode(&p); err != nil {
		s.logger.Error().Err(err).Str("event_type", event.Type).Msg("decode booking event")
		return err
	}

	recipient, text := bookingMessage(event.Type, p)
	if recipient == "" {
		return nil
	}
	s.deliver(event.Type, recipient, text)
	return nil
}

func (s *Subscriber) onInvoicePaid(event *events.Event) error {
	var p events.InvoiceEventPayload
	if err := event.Decode(&p); err != nil {
		s.logger.Error().Err(err).Str("event_type", event.Type).Msg("decode invoice event")
		return err
	}
	if p.GuestID == "" {
		return nil
	}
	s.deliver(event.Type, p.GuestID, fmt.Sprintf("Invoice %s for %.2f has been marked as paid. Thank you!", p.InvoiceNumber, p.Total))
	return nil
}

func (s *Subscriber) deliver(eventType, userID, text string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()

		user, err := s.users.GetUserByID(ctx, userID)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Str("event_type", eventType).Msg("notification recipient lookup failed")
			return
		}
		if err := s.notifier.Notify(ctx, user, text); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Str("event_type", eventType).Msg("notification not delivered")
		}
	}()
}

// bookingMessage returns who should hear about the event and what to tell them.
func bookingMessage(eventType string, p events.BookingEventPayload) (string, string) {
	when := fmt.Sprintf("%s - %s", p.Start.Format("Mon 02 Jan 2006 15:04"), p.End.Format("15:04"))

	switch eventType {
	case events.EventBookingCreated:
		if p.Status == models.StatusPending {
			return p.HostID, fmt.Sprintf("New booking request for %s: %s, total %.2f. Approve or reject it with /pending.", p.SpaceTitle, when, p.TotalPrice)
		}
		return p.HostID, fmt.Sprintf("New instant booking for %s: %s, total %.2f.", p.SpaceTitle, when, p.TotalPrice)
	case events.EventBookingApproved:
		return p.GuestID, fmt.Sprintf("Your booking at %s on %s was approved.", p.SpaceTitle, when)
	case events.EventBookingRejected:
		text := fmt.Sprintf("Your booking request at %s on %s was declined.", p.SpaceTitle, when)
		if p.Reason != "" {
			text += " Reason: " + p.Reason
		}
		return p.GuestID, text
	case events.EventBookingCancelled:
		// tell whoever did not cancel
		if p.ChangedByID != "" && p.ChangedByID == p.GuestID {
			return p.HostID, fmt.Sprintf("The booking at %s on %s was cancelled by the guest.", p.SpaceTitle, when)
		}
		return p.GuestID, fmt.Sprintf("Your booking at %s on %s was cancelled by the host.", p.SpaceTitle, when)
	}
	return "", ""
}
