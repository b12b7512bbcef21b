package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"propdesk/internal/domain"
	"propdesk/internal/models"
)

// MemoryStore holds every workflow record in process memory. Nothing
// survives a restart; Reset restores the seed it was built with.
type MemoryStore struct {
	mu   sync.RWMutex
	seed models.Seed

	brokers      map[string]*models.Broker
	brokerOrder  []string
	customers    map[string]*models.Customer
	custOrder    []string
	properties   map[string]*models.Property
	propOrder    []string
	bookings     map[string]*models.Booking
	bookingOrder []string
	transactions []*models.Transaction

	brokerSeq, customerSeq, bookingSeq, txSeq int
}

func NewMemoryStore(seed models.Seed) *MemoryStore {
	s := &MemoryStore{seed: seed}
	s.load()
	return s
}

// DefaultSeed is the demo data used when no seed file is configured.
func DefaultSeed() models.Seed {
	return models.Seed{
		Brokers: []models.Broker{{
			ID:      "BRK-1001",
			Name:    "Aayush Realty",
			Email:   "aayush@realty.com",
			Phone:   "9000011111",
			Address: "MG Road",
			City:    "Noida",
			State:   "Uttar Pradesh",
			Zip:     "201301",
		}},
		Customers: []models.Customer{{
			ID:       "CUS-5001",
			Name:     "Riya Verma",
			Email:    "riya@example.com",
			Phone:    "9890012345",
			BrokerID: "BRK-1001",
			Status:   models.CustomerPending,
		}},
		Properties: []models.Property{{
			Code: "AK-TWR-1203",
			Name: "Akasa Tower - 1203",
			Type: "3BHK",
			BSP:  12500000,
		}},
	}
}

// load must be called with mu held for writing (or before the store is shared).
func (s *MemoryStore) load() {
	s.brokers = make(map[string]*models.Broker, len(s.seed.Brokers))
	s.brokerOrder = nil
	for i := range s.seed.Brokers {
		b := s.seed.Brokers[i]
		s.brokers[b.ID] = &b
		s.brokerOrder = append(s.brokerOrder, b.ID)
	}

	s.customers = make(map[string]*models.Customer, len(s.seed.Customers))
	s.custOrder = nil
	for i := range s.seed.Customers {
		c := cloneCustomer(&s.seed.Customers[i])
		if c.Status == "" {
			c.Status = models.CustomerPending
		}
		s.customers[c.ID] = c
		s.custOrder = append(s.custOrder, c.ID)
	}

	s.properties = make(map[string]*models.Property, len(s.seed.Properties))
	s.propOrder = nil
	for i := range s.seed.Properties {
		p := s.seed.Properties[i]
		s.properties[p.Code] = &p
		s.propOrder = append(s.propOrder, p.Code)
	}

	s.bookings = make(map[string]*models.Booking)
	s.bookingOrder = nil
	s.transactions = nil

	s.brokerSeq = models.BrokerIDBase + len(s.brokers)
	s.customerSeq = models.CustomerIDBase + len(s.customers)
	s.bookingSeq = models.BookingIDBase
	s.txSeq = models.TransactionIDBase
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	return nil
}

func (s *MemoryStore) Stats(ctx context.Context) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Stats{
		Brokers:      len(s.brokers),
		Customers:    len(s.customers),
		Properties:   len(s.properties),
		Bookings:     len(s.bookings),
		Transactions: len(s.transactions),
	}, nil
}

// nextID advances seq until the formatted ID is not taken.
func nextID(prefix string, seq *int, taken func(string) bool) string {
	for {
		*seq++
		id := fmt.Sprintf("%s-%d", prefix, *seq)
		if !taken(id) {
			return id
		}
	}
}

func (s *MemoryStore) GetBroker(ctx context.Context, id string) (*models.Broker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.brokers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrBrokerNotFound, id)
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) ListBrokers(ctx context.Context) ([]*models.Broker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Broker, 0, len(s.brokerOrder))
	for _, id := range s.brokerOrder {
		cp := *s.brokers[id]
		out = append(out, &cp)
	}
	return out, nil
}

// CreateBroker stores the broker, assigning an ID when it has none.
func (s *MemoryStore) CreateBroker(ctx context.Context, broker *models.Broker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if broker.ID == "" {
		broker.ID = nextID("BRK", &s.brokerSeq, func(id string) bool { _, ok := s.brokers[id]; return ok })
	} else if _, exists := s.brokers[broker.ID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, broker.ID)
	}
	if broker.CreatedAt.IsZero() {
		broker.CreatedAt = time.Now()
	}

	cp := *broker
	s.brokers[cp.ID] = &cp
	s.brokerOrder = append(s.brokerOrder, cp.ID)
	return nil
}

func (s *MemoryStore) DeleteBroker(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.brokers[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrBrokerNotFound, id)
	}
	delete(s.brokers, id)
	s.brokerOrder = removeID(s.brokerOrder, id)
	return nil
}

func (s *MemoryStore) GetProperty(ctx context.Context, code string) (*models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.properties[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrPropertyNotFound, code)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListProperties(ctx context.Context) ([]*models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Property, 0, len(s.propOrder))
	for _, code := range s.propOrder {
		cp := *s.properties[code]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, id)
	}
	return cloneCustomer(c), nil
}

// ListCustomers returns all customers, or only those of brokerID when set.
func (s *MemoryStore) ListCustomers(ctx context.Context, brokerID string) ([]*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Customer, 0, len(s.custOrder))
	for _, id := range s.custOrder {
		c := s.customers[id]
		if brokerID != "" && c.BrokerID != brokerID {
			continue
		}
		out = append(out, cloneCustomer(c))
	}
	return out, nil
}

func (s *MemoryStore) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" {
		customer.ID = nextID("CUS", &s.customerSeq, func(id string) bool { _, ok := s.customers[id]; return ok })
	} else if _, exists := s.customers[customer.ID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, customer.ID)
	}

	s.customers[customer.ID] = cloneCustomer(customer)
	s.custOrder = append(s.custOrder, customer.ID)
	return nil
}

func (s *MemoryStore) SaveCustomer(ctx context.Context, customer *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[customer.ID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, customer.ID)
	}
	s.customers[customer.ID] = cloneCustomer(customer)
	return nil
}

func (s *MemoryStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrBookingNotFound, id)
	}
	cp := *b
	return &cp, nil
}

// ListBookings returns bookings in creation order; an empty queue means all.
func (s *MemoryStore) ListBookings(ctx context.Context, queue models.Queue) ([]*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Booking, 0, len(s.bookingOrder))
	for _, id := range s.bookingOrder {
		b := s.bookings[id]
		if queue != "" && b.ForwardedTo != queue {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) GetCustomerBookings(ctx context.Context, customerID string) ([]*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Booking
	for _, id := range s.bookingOrder {
		b := s.bookings[id]
		if b.CustomerID == customerID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if !booking.ForwardedTo.Valid() {
		return fmt.Errorf("invalid queue %q", booking.ForwardedTo)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if booking.ID == "" {
		booking.ID = nextID("BKG", &s.bookingSeq, func(id string) bool { _, ok := s.bookings[id]; return ok })
	} else if _, exists := s.bookings[booking.ID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, booking.ID)
	}

	cp := *booking
	s.bookings[cp.ID] = &cp
	s.bookingOrder = append(s.bookingOrder, cp.ID)
	return nil
}

func (s *MemoryStore) SaveBooking(ctx context.Context, booking *models.Booking) error {
	if !booking.ForwardedTo.Valid() {
		return fmt.Errorf("invalid queue %q", booking.ForwardedTo)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[booking.ID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrBookingNotFound, booking.ID)
	}
	cp := *booking
	s.bookings[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		cp := *tx
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = nextID("TX", &s.txSeq, s.hasTransaction)
	} else if s.hasTransaction(tx.ID) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, tx.ID)
	}

	cp := *tx
	s.transactions = append(s.transactions, &cp)
	return nil
}

func (s *MemoryStore) hasTransaction(id string) bool {
	for _, tx := range s.transactions {
		if tx.ID == id {
			return true
		}
	}
	return false
}

func cloneCustomer(c *models.Customer) *models.Customer {
	cp := *c
	if c.TimerStartedAt != nil {
		t := *c.TimerStartedAt
		cp.TimerStartedAt = &t
	}
	if c.LastContact != nil {
		t := *c.LastContact
		cp.LastContact = &t
	}
	return &cp
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

var _ domain.Store = (*MemoryStore)(nil)
