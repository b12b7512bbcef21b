package models

import "time"

// Transaction is created once by Accounts approval and never changed.
type Transaction struct {
	ID            string    `json:"id"`
	BookingID     string    `json:"booking_id"`
	CustomerName  string    `json:"customer_name"`
	PaymentMethod string    `json:"payment_method"`
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	Date          time.Time `json:"date"`
}
