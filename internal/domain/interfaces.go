package domain

import (
	"context"
	"time"

	"propdesk/internal/models"
)

// Store is the in-memory repository behind the workflow engine.
// Getters return copies; callers mutate through the Save/Create methods.
type Store interface {
	GetBroker(ctx context.Context, id string) (*models.Broker, error)
	ListBrokers(ctx context.Context) ([]*models.Broker, error)
	CreateBroker(ctx context.Context, broker *models.Broker) error
	DeleteBroker(ctx context.Context, id string) error

	GetProperty(ctx context.Context, code string) (*models.Property, error)
	ListProperties(ctx context.Context) ([]*models.Property, error)

	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
	ListCustomers(ctx context.Context, brokerID string) ([]*models.Customer, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	SaveCustomer(ctx context.Context, customer *models.Customer) error

	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookings(ctx context.Context, queue models.Queue) ([]*models.Booking, error)
	GetCustomerBookings(ctx context.Context, customerID string) ([]*models.Booking, error)
	CreateBooking(ctx context.Context, booking *models.Booking) error
	SaveBooking(ctx context.Context, booking *models.Booking) error

	ListTransactions(ctx context.Context) ([]*models.Transaction, error)
	CreateTransaction(ctx context.Context, tx *models.Transaction) error

	Stats(ctx context.Context) (models.Stats, error)
	Reset(ctx context.Context) error
}

// CodeIssuer issues and checks one-time codes for a target identity.
type CodeIssuer interface {
	Issue(ctx context.Context, target string) (string, error)
	Verify(ctx context.Context, target, code string) (bool, error)
}

// CodeStore keeps hashed one-time codes per target until they expire.
// GetCode returns nil, nil when nothing is stored.
type CodeStore interface {
	SaveCode(ctx context.Context, target string, hash []byte, ttl time.Duration) error
	GetCode(ctx context.Context, target string) ([]byte, error)
	DeleteCode(ctx context.Context, target string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type WorkflowService interface {
	RegisterCustomer(ctx context.Context, brokerID string, input models.CustomerInput) (*models.Customer, error)
	IssueCode(ctx context.Context, customerID string) (*models.Customer, error)
	VerifyCustomerOTP(ctx context.Context, customerID, code string) (*models.Booking, error)
	SendReminder(ctx context.Context, customerID, message string) (*models.Customer, error)

	SalesApprove(ctx context.Context, bookingID string) (*models.Booking, error)
	SalesDiscard(ctx context.Context, bookingID, reason string) (*models.Booking, error)
	AccountsApprove(ctx context.Context, bookingID string) (*models.Booking, *models.Transaction, error)
	AccountsDiscard(ctx context.Context, bookingID, reason string) (*models.Booking, error)
	ResubmitBooking(ctx context.Context, bookingID string) (*models.Booking, error)

	AddBroker(ctx context.Context, input models.BrokerInput) (*models.Broker, error)
	DeleteBroker(ctx context.Context, id string) error

	ListBrokers(ctx context.Context) ([]*models.Broker, error)
	ListProperties(ctx context.Context) ([]*models.Property, error)
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
	ListCustomers(ctx context.Context, brokerID string) ([]*models.Customer, error)
	ListCustomerBookings(ctx context.Context, customerID string) ([]*models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookings(ctx context.Context, queue models.Queue) ([]*models.Booking, error)
	ListTransactions(ctx context.Context) ([]*models.Transaction, error)
	Stats(ctx context.Context) (models.Stats, error)
	Reset(ctx context.Context) error
}
