package models

import "time"

type Booking struct {
	ID            string    `json:"id"`
	CustomerID    string    `json:"customer_id"`
	CustomerName  string    `json:"customer_name"`
	PropertyUnit  string    `json:"property_unit"`
	PaymentPlan   string    `json:"payment_plan"`
	PaymentMethod string    `json:"payment_method"`
	BSP           int64     `json:"bsp"`
	Status        string    `json:"status"`
	ForwardedTo   Queue     `json:"forwarded_to"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
