package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventConsultationCreated       = "consultation_created"
	EventConsultationCancelled     = "consultation_cancelled"
	EventConsultationStatusChanged = "consultation_status_changed"
	EventConsultationPaid          = "consultation_paid"
	EventSlotBooked                = "slot_booked"
)

// ConsultationEventPayload is the snapshot handed to event consumers.
type ConsultationEventPayload struct {
	ConsultationID   string `json:"consultation_id"`
	UserID           string `json:"user_id"`
	FullName         string `json:"fullname"`
	Email            string `json:"email,omitempty"`
	Contact          string `json:"contact,omitempty"`
	ConsultationType string `json:"consultation_type"`
	Date             string `json:"date"`
	Time             string `json:"time"`
	Status           string `json:"status"`
	PreviousStatus   string `json:"previous_status,omitempty"`
	HasPaid          bool   `json:"has_paid"`
	SlotID           string `json:"slot_id,omitempty"`
	ChangedBy        string `json:"changed_by,omitempty"`
}

// Event is a published domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// ErrorHook receives handler failures. Handlers never fail the publisher.
type ErrorHook func(event *Event, err error)

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	onError     ErrorHook
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// OnError installs a hook invoked when a handler returns an error.
func (b *EventBus) OnError(hook ErrorHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = hook
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type synchronously.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	hook := b.onError
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil && hook != nil {
			hook(event, err)
		}
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
