package events

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	bus.Subscribe(EventBookingCreated, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	payload := BookingEventPayload{BookingID: "b1", SpaceTitle: "Loft", Status: "PENDING"}
	if err := bus.PublishJSON(EventBookingCreated, payload); err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if received.Type != EventBookingCreated {
		t.Errorf("expected type %s, got %s", EventBookingCreated, received.Type)
	}

	var decoded BookingEventPayload
	if err := received.Decode(&decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded.BookingID != "b1" || decoded.SpaceTitle != "Loft" {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int

	bus.Subscribe(EventInvoicePaid, func(_ *Event) error { count1++; return nil })
	bus.Subscribe(EventInvoicePaid, func(_ *Event) error { count2++; return errors.New("ignored") })

	bus.Publish(&Event{Type: EventInvoicePaid})

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both handlers to be called once, got %d and %d", count1, count2)
	}
}

func TestEventBusSubscribeAll(t *testing.T) {
	bus := NewEventBus()
	seen := map[string]int{}
	bus.SubscribeAll(func(e *Event) error { seen[e.Type]++; return nil })

	for _, typ := range AllEventTypes {
		bus.Publish(&Event{Type: typ})
	}
	bus.Publish(&Event{Type: "unknown"})

	if len(seen) != len(AllEventTypes) {
		t.Errorf("expected %d types, got %d", len(AllEventTypes), len(seen))
	}
}

func TestNilBusPublish(t *testing.T) {
	var bus *EventBus
	if err := bus.PublishJSON(EventSpaceCreated, SpaceEventPayload{SpaceID: "s"}); err != nil {
		t.Errorf("nil bus should be a no-op, got %v", err)
	}
}

func TestPublishJSONMarshalError(t *testing.T) {
	bus := NewEventBus()
	if err := bus.PublishJSON(EventSpaceCreated, make(chan int)); err == nil {
		t.Error("expected marshal error")
	}
}

type fakeChannel struct {
	mu         sync.Mutex
	declareErr error
	publishErr error
	declared   []string
	published  []fakePublish
	closed     bool
}

type fakePublish struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declared = append(f.declared, name+":"+kind)
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, fakePublish{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPBridge(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ch := &fakeChannel{}

	bridge, err := newAMQPBridge(ch, "spacehub.events", &logger)
	if err != nil {
		t.Fatalf("newAMQPBridge: %v", err)
	}
	if len(ch.declared) != 1 || ch.declared[0] != "spacehub.events:topic" {
		t.Errorf("unexpected declarations %v", ch.declared)
	}

	bus := NewEventBus()
	bridge.Attach(bus)

	if err := bus.PublishJSON(EventBookingApproved, BookingEventPayload{BookingID: "b1"}); err != nil {
		t.Fatalf("PublishJSON: %v", err)
	}

	if len(ch.published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(ch.published))
	}
	got := ch.published[0]
	if got.exchange != "spacehub.events" || got.key != EventBookingApproved {
		t.Errorf("unexpected routing %s/%s", got.exchange, got.key)
	}
	if got.msg.ContentType != "application/json" {
		t.Errorf("unexpected content type %s", got.msg.ContentType)
	}

	if err := bridge.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !ch.closed {
		t.Error("channel should be closed")
	}
}

func TestAMQPBridgePublishFailureIsSwallowed(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ch := &fakeChannel{publishErr: errors.New("connection reset")}
	bridge, err := newAMQPBridge(ch, "x", &logger)
	if err != nil {
		t.Fatalf("newAMQPBridge: %v", err)
	}

	if err := bridge.Handle(&Event{Type: EventInvoiceOverdue, CreatedAt: time.Now()}); err != nil {
		t.Errorf("Handle should not fail, got %v", err)
	}
}

func TestAMQPBridgeDeclareFailure(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	if _, err := newAMQPBridge(ch, "x", &logger); err == nil {
		t.Fatal("expected declare error")
	}
	if !ch.closed {
		t.Error("channel should be closed after declare failure")
	}
}
