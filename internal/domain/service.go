package domain

import "time"

// Address is a physical address. Unresolvable parts carry the "Unknown"
// sentinel instead of being dropped.
type Address struct {
	Street1    string `json:"street1"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
}

// PhoneNumber is a phone entry with optional descriptive fields.
type PhoneNumber struct {
	Number      string `json:"number"`
	Type        string `json:"type,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Extension   string `json:"extension,omitempty"`
}

// Service is the user-facing projection of a ServiceDocument's metadata.
// PhoneNumbers always holds at least one entry; unknown numbers are
// represented by the "Unknown" sentinel.
type Service struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Latitude     float64        `json:"latitude"`
	Longitude    float64        `json:"longitude"`
	Address      Address        `json:"address"`
	PhoneNumbers []PhoneNumber  `json:"phone_numbers"`
	Email        string         `json:"email"`
	Metadata     map[string]any `json:"metadata"`
	LastUpdated  *time.Time     `json:"last_updated,omitempty"`
}
