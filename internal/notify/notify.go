package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"propdesk/internal/events"
	"propdesk/internal/metrics"
	"propdesk/internal/models"

	"github.com/rs/zerolog"
)

const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
	ChannelCRM   = "crm"
	ChannelQueue = "queue"
)

type Notification struct {
	Channel   string
	Recipient string
	Subject   string
	Body      string
	Reference string
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log instead of delivering them.
type LogNotifier struct {
	Logger *zerolog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.Logger.Info().
		Str("channel", n.Channel).
		Str("recipient", n.Recipient).
		Str("subject", n.Subject).
		Str("reference", n.Reference).
		Msg(n.Body)
	return nil
}

type CustomerLookup interface {
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
}

// Dispatcher turns workflow events into notifications.
type Dispatcher struct {
	notifier  Notifier
	customers CustomerLookup
	policy    RetryPolicy
	sleep     func(time.Duration)
	logger    *zerolog.Logger
}

func NewDispatcher(notifier Notifier, customers CustomerLookup, policy RetryPolicy, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		notifier:  notifier,
		customers: customers,
		policy:    policy,
		sleep:     time.Sleep,
		logger:    logger,
	}
}

// Subscribe attaches the dispatcher's handlers to bus.
func (d *Dispatcher) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventCustomerReminded, d.onReminder)
	bus.Subscribe(events.EventBookingAccountsApproved, d.onAccountsApproved)
	bus.Subscribe(events.EventBookingSalesDiscarded, d.onDiscarded)
	bus.Subscribe(events.EventBookingAccountsDiscarded, d.onDiscarded)
}

func (d *Dispatcher) onReminder(ev *events.Event) error {
	var p events.CustomerEventPayload
	if err := ev.Decode(&p); err != nil {
		return fmt.Errorf("decode %s: %w", ev.Type, err)
	}

	channel, recipient := ChannelSMS, p.Phone
	if recipient == "" {
		channel, recipient = ChannelEmail, p.Email
	}
	if recipient == "" {
		d.logger.Warn().Str("customer_id", p.CustomerID).Msg("reminder skipped, customer has no contact")
		return nil
	}

	return d.deliver(context.Background(), Notification{
		Channel:   channel,
		Recipient: recipient,
		Subject:   "Reminder",
		Body:      p.Message,
		Reference: p.CustomerID,
	})
}

func (d *Dispatcher) onAccountsApproved(ev *events.Event) error {
	var p events.BookingEventPayload
	if err := ev.Decode(&p); err != nil {
		return fmt.Errorf("decode %s: %w", ev.Type, err)
	}
	ctx := context.Background()

	crm := Notification{
		Channel:   ChannelCRM,
		Recipient: "crm",
		Subject:   "Booking completed",
		Body:      fmt.Sprintf("%s %s unit=%s bsp=%d", p.BookingID, p.CustomerName, p.PropertyUnit, p.BSP),
		Reference: p.BookingID,
	}
	if err := d.deliver(ctx, crm); err != nil {
		return err
	}

	customer, err := d.customers.GetCustomer(ctx, p.CustomerID)
	if err != nil {
		return fmt.Errorf("thank you mail: %w", err)
	}
	if customer.Email == "" {
		return nil
	}

	return d.deliver(ctx, Notification{
		Channel:   ChannelEmail,
		Recipient: customer.Email,
		Subject:   "Thank you for your booking",
		Body:      fmt.Sprintf("Dear %s, your booking %s for %s is confirmed.", customer.Name, p.BookingID, p.PropertyUnit),
		Reference: p.BookingID,
	})
}

func (d *Dispatcher) onDiscarded(ev *events.Event) error {
	var p events.BookingEventPayload
	if err := ev.Decode(&p); err != nil {
		return fmt.Errorf("decode %s: %w", ev.Type, err)
	}

	return d.deliver(context.Background(), Notification{
		Channel:   ChannelQueue,
		Recipient: p.ForwardedTo,
		Subject:   p.Status,
		Body:      strings.TrimSpace(fmt.Sprintf("Booking %s returned: %s", p.BookingID, p.Reason)),
		Reference: p.BookingID,
	})
}

// deliver retries the notifier per policy and returns the last error.
func (d *Dispatcher) deliver(ctx context.Context, n Notification) error {
	var err error
	for attempt := 1; attempt <= d.policy.MaxRetries+1; attempt++ {
		if err = d.notifier.Notify(ctx, n); err == nil {
			metrics.IncNotification(n.Channel, "ok")
			return nil
		}
		d.logger.Warn().Err(err).Str("channel", n.Channel).Int("attempt", attempt).Msg("notification failed")
		if attempt <= d.policy.MaxRetries {
			d.sleep(d.policy.NextDelay(attempt))
		}
	}
	metrics.IncNotification(n.Channel, "failed")
	return fmt.Errorf("notify %s %s: %w", n.Channel, n.Reference, err)
}
