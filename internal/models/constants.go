package models

// Queue is the role currently responsible for acting on a booking.
type Queue string

const (
	QueueSalesHead Queue = "Sales Head"
	QueueAccounts  Queue = "Accounts"
	QueueBroker    Queue = "Broker"
	QueueCompleted Queue = "Completed"
)

// Valid reports whether q is one of the four workflow queues.
func (q Queue) Valid() bool {
	switch q {
	case QueueSalesHead, QueueAccounts, QueueBroker, QueueCompleted:
		return true
	}
	return false
}

// Booking status labels.
const (
	StatusSubmitted         = "Submitted"
	StatusSalesApproved     = "Approved by Sales Head"
	StatusSalesDiscarded    = "Discarded by Sales Head"
	StatusAccountsApproved  = "Accounts Approved"
	StatusAccountsDiscarded = "Discarded by Accounts"
	StatusResubmitted       = "Resubmitted by Broker"

	TransactionApproved = "Approved"
)

// Customer status labels.
const (
	CustomerPending  = "Pending"
	CustomerComplete = "Complete"
)

// Role is the acting role selected per request.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleBroker     Role = "broker"
	RoleSalesHead  Role = "sales_head"
	RoleAccounts   Role = "accounts"
	RoleCustomer   Role = "customer"
)

// ParseRole maps a header value to a Role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleSuperAdmin, RoleBroker, RoleSalesHead, RoleAccounts, RoleCustomer:
		return r, true
	}
	return "", false
}

const (
	// DemoOTPCode is accepted by the demo code issuer for every target.
	DemoOTPCode = "123456"

	// DefaultSLAHours is the advisory window started when a code is issued.
	DefaultSLAHours = 48

	DefaultPaymentPlan   = "Flexi"
	DefaultPaymentMethod = "Online Transfer"

	// ID counters start here; the first allocated ID is base+1.
	BrokerIDBase      = 1000
	CustomerIDBase    = 5000
	BookingIDBase     = 100
	TransactionIDBase = 1000
)
