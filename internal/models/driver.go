package models

import "time"

// Driver holds the operator detail behind a driver user account.
type Driver struct {
	ID              int64      `json:"id"`
	UserID          *int64     `json:"user_id,omitempty"`
	FullName        string     `json:"full_name"`
	DocumentID      string     `json:"document_id"`
	Phone           string     `json:"phone,omitempty"`
	LicenseNumber   string     `json:"license_number"`
	LicenseCategory string     `json:"license_category"`
	LicenseExpiry   *time.Time `json:"license_expiry,omitempty"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
