// internal/domain/observation/model.go

package observation

import (
	"time"
)

// PointType identifies what an observation point records
type PointType string

const (
	PointStart    PointType = "start"
	PointEnd      PointType = "end"
	PointSighting PointType = "sighting"
	PointDanger   PointType = "danger"
)

// PointTypes lists every known point type in display order
var PointTypes = []PointType{PointStart, PointEnd, PointSighting, PointDanger}

// Valid reports whether t is one of the known point types
func (t PointType) Valid() bool {
	switch t {
	case PointStart, PointEnd, PointSighting, PointDanger:
		return true
	}
	return false
}

// User is a user profile as stored remotely
type User struct {
	ID          string  `json:"id"`
	DisplayName *string `json:"display_name,omitempty"`
}

// Trip groups the points recorded during one outing by one user
type Trip struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	StartedAt *time.Time `json:"start_time,omitempty"`
}

// Point is a single geotagged observation
type Point struct {
	ID        string     `json:"id"`
	TripID    *string    `json:"trip_id,omitempty"`
	Type      PointType  `json:"type"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	CreatedAt *time.Time `json:"created_at,omitempty"`

	// Sighting fields
	Adults *int `json:"adults,omitempty"`
	Calves *int `json:"calves,omitempty"`

	// Danger fields
	DangerType   *string `json:"danger_type,omitempty"`
	HealthStatus *string `json:"health_status,omitempty"`

	PhotoURL *string `json:"photo_url,omitempty"`
}

// Located reports whether both coordinates are present
func (p Point) Located() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// InTrip reports whether the point references the given trip
func (p Point) InTrip(tripID string) bool {
	return p.TripID != nil && *p.TripID == tripID
}
