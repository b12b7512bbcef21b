package models

// Seed is the data restored on startup and on reset.
type Seed struct {
	Brokers    []Broker   `yaml:"brokers"`
	Customers  []Customer `yaml:"customers"`
	Properties []Property `yaml:"properties"`
}

// Stats counts the records held by the store.
type Stats struct {
	Brokers      int `json:"brokers"`
	Customers    int `json:"customers"`
	Properties   int `json:"properties"`
	Bookings     int `json:"bookings"`
	Transactions int `json:"transactions"`
}
