package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	EventCustomerRegistered       = "customer_registered"
	EventCustomerCodeIssued       = "customer_code_issued"
	EventCustomerVerified         = "customer_verified"
	EventCustomerReminded         = "customer_reminded"
	EventBookingSubmitted         = "booking_submitted"
	EventBookingSalesApproved     = "booking_sales_approved"
	EventBookingSalesDiscarded    = "booking_sales_discarded"
	EventBookingAccountsApproved  = "booking_accounts_approved"
	EventBookingAccountsDiscarded = "booking_accounts_discarded"
	EventBookingResubmitted       = "booking_resubmitted"
	EventTransactionCreated       = "transaction_created"
	EventBrokerAdded              = "broker_added"
	EventBrokerDeleted            = "broker_deleted"
	EventDemoReset                = "demo_reset"
)

// BookingEventPayload is the booking snapshot published on every transition.
type BookingEventPayload struct {
	BookingID    string    `json:"booking_id"`
	CustomerID   string    `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	PropertyUnit string    `json:"property_unit"`
	BSP          int64     `json:"bsp"`
	Status       string    `json:"status"`
	ForwardedTo  string    `json:"forwarded_to"`
	FromQueue    string    `json:"from_queue,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	ChangedBy    string    `json:"changed_by,omitempty"`
	ChangedAt    time.Time `json:"changed_at"`
}

type CustomerEventPayload struct {
	CustomerID string    `json:"customer_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	BrokerID   string    `json:"broker_id"`
	Message    string    `json:"message,omitempty"`
	ChangedAt  time.Time `json:"changed_at"`
}

type TransactionEventPayload struct {
	ID            string    `json:"id"`
	BookingID     string    `json:"booking_id"`
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
}

type BrokerEventPayload struct {
	BrokerID string `json:"broker_id"`
	Name     string `json:"name,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        string
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

// ErrorHook receives handler failures.
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

// OnError sets the hook invoked when a handler returns an error.
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

// Publish runs every subscriber of the event type synchronously, in
// subscription order. Handler errors go to the error hook and do not stop
// the remaining handlers.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	hook := b.onError
	b.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil && hook != nil {
			hook(event, err)
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}

	b.Publish(&event)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{ID: uuid.NewString(), Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
