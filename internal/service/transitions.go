package service

import (
	"propdesk/internal/events"
	"propdesk/internal/models"
)

const (
	actionSalesApprove    = "sales_approve"
	actionSalesDiscard    = "sales_discard"
	actionAccountsApprove = "accounts_approve"
	actionAccountsDiscard = "accounts_discard"
	actionResubmit        = "resubmit"
)

type transitionRule struct {
	from        models.Queue
	to          models.Queue
	status      string
	needsReason bool
	role        models.Role
	event       string
}

// bookingTransitions lists, per action, the only queue it may start from.
var bookingTransitions = map[string]transitionRule{
	actionSalesApprove: {
		from:   models.QueueSalesHead,
		to:     models.QueueAccounts,
		status: models.StatusSalesApproved,
		role:   models.RoleSalesHead,
		event:  events.EventBookingSalesApproved,
	},
	actionSalesDiscard: {
		from:        models.QueueSalesHead,
		to:          models.QueueBroker,
		status:      models.StatusSalesDiscarded,
		needsReason: true,
		role:        models.RoleSalesHead,
		event:       events.EventBookingSalesDiscarded,
	},
	actionAccountsApprove: {
		from:   models.QueueAccounts,
		to:     models.QueueCompleted,
		status: models.StatusAccountsApproved,
		role:   models.RoleAccounts,
		event:  events.EventBookingAccountsApproved,
	},
	actionAccountsDiscard: {
		from:        models.QueueAccounts,
		to:          models.QueueSalesHead,
		status:      models.StatusAccountsDiscarded,
		needsReason: true,
		role:        models.RoleAccounts,
		event:       events.EventBookingAccountsDiscarded,
	},
	actionResubmit: {
		from:   models.QueueBroker,
		to:     models.QueueSalesHead,
		status: models.StatusResubmitted,
		role:   models.RoleBroker,
		event:  events.EventBookingResubmitted,
	},
}

// ValidTransition reports whether action may run on a booking in queue.
func ValidTransition(action string, queue models.Queue) bool {
	rule, ok := bookingTransitions[action]
	return ok && rule.from == queue
}
