package models

import "time"

// Bus is a fleet vehicle, keyed by its license plate.
type Bus struct {
	PlateNumber   string     `json:"plate_number"`
	AmbCode       string     `json:"amb_code,omitempty"`
	Capacity      int        `json:"capacity"`
	PhotoURL      string     `json:"photo_url,omitempty"`
	OwnerName     string     `json:"owner_name,omitempty"`
	OwnerDocument string     `json:"owner_document,omitempty"`
	SoatExpiry    *time.Time `json:"soat_expiry,omitempty"`
	TechnoExpiry  *time.Time `json:"techno_expiry,omitempty"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
