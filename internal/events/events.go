package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingCreated   = "booking.created"
	EventBookingApproved  = "booking.approved"
	EventBookingRejected  = "booking.rejected"
	EventBookingCancelled = "booking.cancelled"
	EventBookingCompleted = "booking.completed"
	EventBookingUpdated   = "booking.updated"
	EventBookingDeleted   = "booking.deleted"
	EventInvoiceIssued    = "invoice.issued"
	EventInvoicePaid      = "invoice.paid"
	EventInvoiceOverdue   = "invoice.overdue"
	EventSpaceCreated     = "space.created"
	EventSpaceUpdated     = "space.updated"
	EventSpaceDeleted     = "space.deleted"
)

// AllEventTypes lists every event the services publish.
var AllEventTypes = []string{
	EventBookingCreated, EventBookingApproved, EventBookingRejected, EventBookingCancelled,
	EventBookingCompleted, EventBookingUpdated, EventBookingDeleted,
	EventInvoiceIssued, EventInvoicePaid, EventInvoiceOverdue,
	EventSpaceCreated, EventSpaceUpdated, EventSpaceDeleted,
}

// BookingEventPayload is the booking snapshot sent to subscribers.
type BookingEventPayload struct {
	BookingID   string    `json:"bookingId"`
	SpaceID     string    `json:"spaceId"`
	SpaceTitle  string    `json:"spaceTitle"`
	GuestID     string    `json:"guestId"`
	HostID      string    `json:"hostId"`
	Status      string    `json:"status"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	TotalPrice  float64   `json:"totalPrice"`
	Reason      string    `json:"reason,omitempty"`
	ChangedByID string    `json:"changedById,omitempty"`
}

type InvoiceEventPayload struct {
	InvoiceID     string     `json:"invoiceId"`
	InvoiceNumber string     `json:"invoiceNumber"`
	BookingID     string     `json:"bookingId"`
	GuestID       string     `json:"guestId,omitempty"`
	HostID        string     `json:"hostId,omitempty"`
	Status        string     `json:"status"`
	Total         float64    `json:"total"`
	DueDate       time.Time  `json:"dueDate"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
}

type SpaceEventPayload struct {
	SpaceID string `json:"spaceId"`
	OwnerID string `json:"ownerId"`
	Title   string `json:"title"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
	Processed bool
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers handler for every type in AllEventTypes.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	for _, t := range AllEventTypes {
		b.Subscribe(t, handler)
	}
}

// Publish runs the subscribers of the event type synchronously. Handler
// errors are dropped; handlers log their own failures.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event. A nil bus is a no-op.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}
