package models

import "time"

// Trip statuses.
const (
	TripAssigned  = "assigned"
	TripRunning   = "running"
	TripCompleted = "completed"
	TripCancelled = "cancelled"
)

// Trip is one scheduled run of a bus along a route.
type Trip struct {
	ID          int64      `json:"id"`
	RouteID     int64      `json:"route_id"`
	PlateNumber *string    `json:"plate_number,omitempty"`
	DriverID    *int64     `json:"driver_id,omitempty"`
	TripDate    time.Time  `json:"trip_date"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
