package models

import "time"

type Customer struct {
	ID             string     `json:"id" yaml:"id"`
	Name           string     `json:"name" yaml:"name"`
	Email          string     `json:"email" yaml:"email"`
	Phone          string     `json:"phone" yaml:"phone"`
	BrokerID       string     `json:"broker_id" yaml:"broker_id"`
	PropertyUnit   string     `json:"property_unit,omitempty" yaml:"property_unit"`
	Status         string     `json:"status" yaml:"status"` // Pending, Complete
	Verified       bool       `json:"verified" yaml:"verified"`
	TimerStartedAt *time.Time `json:"timer_started_at,omitempty" yaml:"-"`
	LastContact    *time.Time `json:"last_contact,omitempty" yaml:"-"`
}

// SLADeadline returns the end of the advisory window, if one was started.
func (c *Customer) SLADeadline(window time.Duration) *time.Time {
	if c.TimerStartedAt == nil {
		return nil
	}
	deadline := c.TimerStartedAt.Add(window)
	return &deadline
}

// CustomerInput is the Broker form for registering a customer.
type CustomerInput struct {
	Name         string `json:"name" validate:"required,max=120"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"omitempty,numeric,min=7,max=15"`
	PropertyUnit string `json:"property_unit" validate:"max=40"`
}
