package models

import "time"

// LocationRecord is the live position of one bus, keyed by plate. It exists
// only in memory: created on the first location event for a plate, overwritten
// in place on every later event, and deleted on end-of-shift or when the
// owning connection goes away.
//
// Seq is an arrival-ordered logical stamp assigned by the registry; it is
// authoritative for conflict resolution because client clocks may skew.
// LastUpdate is wall-clock time kept for display only.
type LocationRecord struct {
	PlateNumber string    `json:"plateNumber"`
	Latitude    float64   `json:"lat"`
	Longitude   float64   `json:"lng"`
	Speed       float64   `json:"speed"`
	Heading     *float64  `json:"heading,omitempty"`
	RouteID     *int64    `json:"routeId,omitempty"`
	RouteName   string    `json:"routeName,omitempty"`
	RouteColor  string    `json:"routeColor,omitempty"`
	DriverID    *int64    `json:"driverId,omitempty"`
	LastUpdate  time.Time `json:"lastUpdate"`

	// Seq and OwnerConnID are hub bookkeeping, never sent to clients.
	Seq         uint64 `json:"-"`
	OwnerConnID string `json:"-"`
}
