package models

import "time"

type Broker struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Email     string    `json:"email" yaml:"email"`
	Phone     string    `json:"phone" yaml:"phone"`
	Address   string    `json:"address" yaml:"address"`
	City      string    `json:"city" yaml:"city"`
	State     string    `json:"state" yaml:"state"`
	Zip       string    `json:"zip" yaml:"zip"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

// BrokerInput is the Super Admin form for a new broker.
type BrokerInput struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"omitempty,numeric,min=7,max=15"`
	Address string `json:"address" validate:"max=255"`
	City    string `json:"city" validate:"max=80"`
	State   string `json:"state" validate:"max=80"`
	Zip     string `json:"zip" validate:"omitempty,alphanum,max=10"`
}
