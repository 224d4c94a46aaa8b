package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	EventBookingSubmitted  = "booking_submitted"
	EventAttendeeResponded = "attendee_responded"
	EventReminderFailed    = "reminder_failed"
)

// BookingSubmittedPayload is published after the scheduling store accepted a booking.
type BookingSubmittedPayload struct {
	BookingID int64    `json:"booking_id"`
	Variant   string   `json:"variant"`
	Timestamp string   `json:"timestamp"`
	Employees []string `json:"employee_ids"`
	Clients   []string `json:"client_ids,omitempty"`
	ServiceID string   `json:"service_id,omitempty"`
	CreatedBy string   `json:"created_by"`
}

// AttendeeRespondedPayload is published after an attendee moved out of pending.
type AttendeeRespondedPayload struct {
	BookingID int64     `json:"booking_id"`
	PartyID   string    `json:"party_id"`
	PartyKind string    `json:"party_kind"`
	Status    string    `json:"status"`
	At        time.Time `json:"at"`
}

// ReminderFailedPayload records a reminder that could not be handed off or delivered.
type ReminderFailedPayload struct {
	BookingID int64  `json:"booking_id"`
	Error     string `json:"error"`
	Attempts  int    `json:"attempts,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events. Handlers run synchronously
// on the publishing goroutine; a failing handler does not stop the others.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      zerolog.Logger
}

func NewEventBus(logger *zerolog.Logger) *EventBus {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "events").Logger()
	}
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: l}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type and returns how many handlers failed.
func (b *EventBus) Publish(event *Event) int {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	failed := 0
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			failed++
			b.logger.Warn().Err(err).Str("event", event.Type).Msg("event handler failed")
		}
	}
	return failed
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
