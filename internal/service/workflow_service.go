package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"propdesk/internal/config"
	"propdesk/internal/domain"
	"propdesk/internal/events"
	"propdesk/internal/metrics"
	"propdesk/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// WorkflowService drives customers and bookings through the broker,
// sales head and accounts queues. Every mutating call holds mu, so one
// action completes before the next starts. Events are published once mu
// is released, so subscribers may call back into the service.
type WorkflowService struct {
	mu        sync.Mutex
	store     domain.Store
	issuer    domain.CodeIssuer
	eventBus  domain.EventPublisher
	cfg       config.WorkflowConfig
	validate  *validator.Validate
	now       func() time.Time
	reference func() string
	logger    *zerolog.Logger
}

func NewWorkflowService(store domain.Store, issuer domain.CodeIssuer, eventBus domain.EventPublisher, cfg config.WorkflowConfig, logger *zerolog.Logger) *WorkflowService {
	if cfg.PaymentPlan == "" {
		cfg.PaymentPlan = models.DefaultPaymentPlan
	}
	if cfg.PaymentMethod == "" {
		cfg.PaymentMethod = models.DefaultPaymentMethod
	}
	if cfg.SLAHours <= 0 {
		cfg.SLAHours = models.DefaultSLAHours
	}
	return &WorkflowService{
		store:     store,
		issuer:    issuer,
		eventBus:  eventBus,
		cfg:       cfg,
		validate:  validator.New(),
		now:       time.Now,
		reference: transactionReference,
		logger:    logger,
	}
}

// SLAWindow is the advisory window shown next to a pending customer.
func (s *WorkflowService) SLAWindow() time.Duration {
	return time.Duration(s.cfg.SLAHours) * time.Hour
}

func (s *WorkflowService) RegisterCustomer(ctx context.Context, brokerID string, input models.CustomerInput) (*models.Customer, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	input.PropertyUnit = strings.TrimSpace(input.PropertyUnit)
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	var customer *models.Customer
	err := s.commit(func(out *outbox) error {
		if _, err := s.store.GetBroker(ctx, brokerID); err != nil {
			return err
		}
		if input.PropertyUnit != "" {
			if _, err := s.store.GetProperty(ctx, input.PropertyUnit); err != nil {
				return err
			}
		}

		now := s.now()
		customer = &models.Customer{
			Name:           input.Name,
			Email:          input.Email,
			Phone:          input.Phone,
			BrokerID:       brokerID,
			PropertyUnit:   input.PropertyUnit,
			Status:         models.CustomerPending,
			TimerStartedAt: &now,
		}
		if err := s.store.CreateCustomer(ctx, customer); err != nil {
			return err
		}
		out.add(events.EventCustomerRegistered, customerPayload(customer, "", now))
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The customer stays registered when the code cannot be sent;
	// IssueCode sends a fresh one.
	if _, err := s.issuer.Issue(ctx, customer.ID); err != nil {
		return customer, fmt.Errorf("issue code for %s: %w", customer.ID, err)
	}

	s.logger.Info().Str("customer_id", customer.ID).Str("broker_id", brokerID).Msg("customer registered")
	return customer, nil
}

// IssueCode sends a new code to a pending customer and restarts the
// customer's SLA timer. Any earlier code stops working.
func (s *WorkflowService) IssueCode(ctx context.Context, customerID string) (*models.Customer, error) {
	var customer *models.Customer
	err := s.commit(func(out *outbox) error {
		c, err := s.store.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if c.Verified {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyVerified, customerID)
		}
		if _, err := s.issuer.Issue(ctx, c.ID); err != nil {
			return fmt.Errorf("issue code for %s: %w", c.ID, err)
		}

		now := s.now()
		c.TimerStartedAt = &now
		if err := s.store.SaveCustomer(ctx, c); err != nil {
			return err
		}
		out.add(events.EventCustomerCodeIssued, customerPayload(c, "", now))
		customer = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("customer_id", customer.ID).Msg("code issued")
	return customer, nil
}

// VerifyCustomerOTP checks code for a pending customer and, on success,
// opens the customer's booking in the Sales Head queue.
func (s *WorkflowService) VerifyCustomerOTP(ctx context.Context, customerID, code string) (*models.Booking, error) {
	var booking *models.Booking
	err := s.commit(func(out *outbox) error {
		customer, err := s.store.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if customer.Verified {
			metrics.IncOTP("already_verified")
			return fmt.Errorf("%w: %s", domain.ErrAlreadyVerified, customerID)
		}

		property, err := s.bookingProperty(ctx, customer)
		if err != nil {
			return err
		}

		ok, err := s.issuer.Verify(ctx, customerID, code)
		if err != nil {
			metrics.IncOTP("error")
			return fmt.Errorf("verify code for %s: %w", customerID, err)
		}
		if !ok {
			metrics.IncOTP("invalid")
			return domain.ErrInvalidCode
		}
		metrics.IncOTP("ok")

		now := s.now()
		pending := *customer
		customer.Verified = true
		customer.Status = models.CustomerComplete
		customer.LastContact = &now
		if err := s.store.SaveCustomer(ctx, customer); err != nil {
			return err
		}

		booking = &models.Booking{
			CustomerID:    customer.ID,
			CustomerName:  customer.Name,
			PropertyUnit:  property.Code,
			PaymentPlan:   s.cfg.PaymentPlan,
			PaymentMethod: s.cfg.PaymentMethod,
			BSP:           property.BSP,
			Status:        models.StatusSubmitted,
			ForwardedTo:   models.QueueSalesHead,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.store.CreateBooking(ctx, booking); err != nil {
			s.restoreCustomer(ctx, &pending)
			return err
		}

		out.add(events.EventCustomerVerified, customerPayload(customer, "", now))
		out.add(events.EventBookingSubmitted, bookingPayload(booking, "", string(models.RoleBroker), now))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("customer_id", customerID).Str("booking_id", booking.ID).Msg("customer verified, booking submitted")
	return booking, nil
}

// bookingProperty is the customer's unit, or the first listed property
// when the customer did not pick one.
func (s *WorkflowService) bookingProperty(ctx context.Context, customer *models.Customer) (*models.Property, error) {
	if customer.PropertyUnit != "" {
		return s.store.GetProperty(ctx, customer.PropertyUnit)
	}
	properties, err := s.store.ListProperties(ctx)
	if err != nil {
		return nil, err
	}
	if len(properties) == 0 {
		return nil, fmt.Errorf("%w: no properties available", domain.ErrPropertyNotFound)
	}
	return properties[0], nil
}

func (s *WorkflowService) SendReminder(ctx context.Context, customerID, message string) (*models.Customer, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, domain.ErrMessageRequired
	}

	var customer *models.Customer
	err := s.commit(func(out *outbox) error {
		c, err := s.store.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}

		now := s.now()
		c.LastContact = &now
		if err := s.store.SaveCustomer(ctx, c); err != nil {
			return err
		}
		out.add(events.EventCustomerReminded, customerPayload(c, message, now))
		customer = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *WorkflowService) SalesApprove(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.transition(ctx, actionSalesApprove, bookingID, "")
}

func (s *WorkflowService) SalesDiscard(ctx context.Context, bookingID, reason string) (*models.Booking, error) {
	return s.transition(ctx, actionSalesDiscard, bookingID, reason)
}

func (s *WorkflowService) AccountsDiscard(ctx context.Context, bookingID, reason string) (*models.Booking, error) {
	return s.transition(ctx, actionAccountsDiscard, bookingID, reason)
}

func (s *WorkflowService) ResubmitBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.transition(ctx, actionResubmit, bookingID, "")
}

// AccountsApprove completes the booking and records its payment. It is
// the only place a Transaction is created. When the transaction cannot
// be stored the booking is put back in the Accounts queue.
func (s *WorkflowService) AccountsApprove(ctx context.Context, bookingID string) (*models.Booking, *models.Transaction, error) {
	var (
		booking *models.Booking
		tx      *models.Transaction
	)
	err := s.commit(func(out *outbox) error {
		var (
			original *models.Booking
			err      error
		)
		booking, original, err = s.applyTransition(ctx, out, actionAccountsApprove, bookingID, "")
		if err != nil {
			return err
		}

		tx = &models.Transaction{
			BookingID:     booking.ID,
			CustomerName:  booking.CustomerName,
			PaymentMethod: booking.PaymentMethod,
			TransactionID: s.reference(),
			Amount:        booking.BSP,
			Status:        models.TransactionApproved,
			Date:          booking.UpdatedAt,
		}
		if err := s.store.CreateTransaction(ctx, tx); err != nil {
			s.restoreBooking(ctx, original)
			return fmt.Errorf("record transaction for %s: %w", booking.ID, err)
		}

		out.add(events.EventTransactionCreated, events.TransactionEventPayload{
			ID:            tx.ID,
			BookingID:     tx.BookingID,
			TransactionID: tx.TransactionID,
			Amount:        tx.Amount,
			CreatedAt:     tx.Date,
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().Str("booking_id", booking.ID).Str("transaction_id", tx.ID).Int64("amount", tx.Amount).Msg("booking completed")
	return booking, tx, nil
}

func (s *WorkflowService) transition(ctx context.Context, action, bookingID, reason string) (*models.Booking, error) {
	var booking *models.Booking
	err := s.commit(func(out *outbox) error {
		var err error
		booking, _, err = s.applyTransition(ctx, out, action, bookingID, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// applyTransition must be called with mu held. It returns the updated
// booking together with its state before the move.
func (s *WorkflowService) applyTransition(ctx context.Context, out *outbox, action, bookingID, reason string) (*models.Booking, *models.Booking, error) {
	rule, ok := bookingTransitions[action]
	if !ok {
		return nil, nil, fmt.Errorf("unknown action %q", action)
	}

	reason = strings.TrimSpace(reason)
	if rule.needsReason && reason == "" {
		metrics.IncTransition(action, "rejected")
		return nil, nil, domain.ErrReasonRequired
	}

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		metrics.IncTransition(action, "error")
		return nil, nil, err
	}
	if booking.ForwardedTo != rule.from {
		metrics.IncTransition(action, "rejected")
		s.logger.Warn().
			Str("booking_id", bookingID).
			Str("action", action).
			Str("queue", string(booking.ForwardedTo)).
			Msg("transition rejected")
		return nil, nil, fmt.Errorf("%w: %s is in %s queue", domain.ErrInvalidTransition, bookingID, booking.ForwardedTo)
	}

	original := *booking
	now := s.now()
	booking.Status = rule.status
	booking.ForwardedTo = rule.to
	booking.Reason = reason
	booking.UpdatedAt = now
	if err := s.store.SaveBooking(ctx, booking); err != nil {
		metrics.IncTransition(action, "error")
		return nil, nil, err
	}

	metrics.IncTransition(action, "ok")
	out.add(rule.event, bookingPayload(booking, original.ForwardedTo, string(rule.role), now))
	return booking, &original, nil
}

// restoreBooking puts back a booking whose follow-up write failed.
func (s *WorkflowService) restoreBooking(ctx context.Context, original *models.Booking) {
	if err := s.store.SaveBooking(ctx, original); err != nil {
		s.logger.Error().Err(err).Str("booking_id", original.ID).Msg("failed to restore booking")
	}
}

func (s *WorkflowService) restoreCustomer(ctx context.Context, original *models.Customer) {
	if err := s.store.SaveCustomer(ctx, original); err != nil {
		s.logger.Error().Err(err).Str("customer_id", original.ID).Msg("failed to restore customer")
	}
}

func (s *WorkflowService) AddBroker(ctx context.Context, input models.BrokerInput) (*models.Broker, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	broker := &models.Broker{
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		Address:   strings.TrimSpace(input.Address),
		City:      strings.TrimSpace(input.City),
		State:     strings.TrimSpace(input.State),
		Zip:       strings.TrimSpace(input.Zip),
		CreatedAt: s.now(),
	}
	err := s.commit(func(out *outbox) error {
		if err := s.store.CreateBroker(ctx, broker); err != nil {
			return err
		}
		out.add(events.EventBrokerAdded, events.BrokerEventPayload{BrokerID: broker.ID, Name: broker.Name})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return broker, nil
}

func (s *WorkflowService) DeleteBroker(ctx context.Context, id string) error {
	return s.commit(func(out *outbox) error {
		if err := s.store.DeleteBroker(ctx, id); err != nil {
			return err
		}
		out.add(events.EventBrokerDeleted, events.BrokerEventPayload{BrokerID: id})
		return nil
	})
}

func (s *WorkflowService) ListBrokers(ctx context.Context) ([]*models.Broker, error) {
	return s.store.ListBrokers(ctx)
}

func (s *WorkflowService) ListProperties(ctx context.Context) ([]*models.Property, error) {
	return s.store.ListProperties(ctx)
}

func (s *WorkflowService) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	return s.store.GetCustomer(ctx, id)
}

func (s *WorkflowService) ListCustomers(ctx context.Context, brokerID string) ([]*models.Customer, error) {
	return s.store.ListCustomers(ctx, brokerID)
}

// ListCustomerBookings returns the customer's bookings in creation order.
// An unknown customer is an error; a customer with no booking yet gets an
// empty list.
func (s *WorkflowService) ListCustomerBookings(ctx context.Context, customerID string) ([]*models.Booking, error) {
	if _, err := s.store.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	bookings, err := s.store.GetCustomerBookings(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	return bookings, nil
}

func (s *WorkflowService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

// ListBookings returns every booking when queue is empty.
func (s *WorkflowService) ListBookings(ctx context.Context, queue models.Queue) ([]*models.Booking, error) {
	if queue != "" && !queue.Valid() {
		return nil, fmt.Errorf("%w: unknown queue %q", domain.ErrValidation, queue)
	}
	return s.store.ListBookings(ctx, queue)
}

func (s *WorkflowService) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	return s.store.ListTransactions(ctx)
}

func (s *WorkflowService) Stats(ctx context.Context) (models.Stats, error) {
	return s.store.Stats(ctx)
}

// Reset restores the seed data and drops all bookings and transactions.
func (s *WorkflowService) Reset(ctx context.Context) error {
	err := s.commit(func(out *outbox) error {
		if err := s.store.Reset(ctx); err != nil {
			return err
		}
		out.add(events.EventDemoReset, map[string]time.Time{"reset_at": s.now()})
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info().Msg("demo data reset")
	return nil
}

func (s *WorkflowService) validateInput(v interface{}) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, "; "))
}

type pendingEvent struct {
	eventType string
	payload   interface{}
}

// outbox collects events raised while mu is held.
type outbox struct {
	events []pendingEvent
}

func (o *outbox) add(eventType string, payload interface{}) {
	o.events = append(o.events, pendingEvent{eventType: eventType, payload: payload})
}

// commit runs fn with mu held. Events fn queued are published after mu
// is released, and only when fn succeeds.
func (s *WorkflowService) commit(fn func(out *outbox) error) error {
	var out outbox
	err := func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn(&out)
	}()
	if err != nil {
		return err
	}
	for _, e := range out.events {
		s.publish(e.eventType, e.payload)
	}
	return nil
}

func (s *WorkflowService) publish(eventType string, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

func bookingPayload(b *models.Booking, from models.Queue, changedBy string, at time.Time) events.BookingEventPayload {
	return events.BookingEventPayload{
		BookingID:    b.ID,
		CustomerID:   b.CustomerID,
		CustomerName: b.CustomerName,
		PropertyUnit: b.PropertyUnit,
		BSP:          b.BSP,
		Status:       b.Status,
		ForwardedTo:  string(b.ForwardedTo),
		FromQueue:    string(from),
		Reason:       b.Reason,
		ChangedBy:    changedBy,
		ChangedAt:    at,
	}
}

func customerPayload(c *models.Customer, message string, at time.Time) events.CustomerEventPayload {
	return events.CustomerEventPayload{
		CustomerID: c.ID,
		Name:       c.Name,
		Email:      c.Email,
		Phone:      c.Phone,
		BrokerID:   c.BrokerID,
		Message:    message,
		ChangedAt:  at,
	}
}

// transactionReference returns a TRX-<5 digits> payment reference.
func transactionReference() string {
	return fmt.Sprintf("TRX-%d", 10000+rand.IntN(90000))
}

var _ domain.WorkflowService = (*WorkflowService)(nil)
