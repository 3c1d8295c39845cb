// internal/domain/observation/events.go

package observation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Kind names one of the remote entity collections
type Kind string

const (
	KindUsers  Kind = "profiles"
	KindTrips  Kind = "trips"
	KindPoints Kind = "trip_points"
)

// Kinds lists the collections a session loads and subscribes to
var Kinds = []Kind{KindUsers, KindTrips, KindPoints}

// ErrUnknownKind is returned when a payload names no known collection
var ErrUnknownKind = errors.New("unknown entity kind")

// Event is an append-only state transition produced by the push channel.
// Exactly one of User, Trip or Point is set, matching Kind.
type Event struct {
	Kind  Kind
	User  *User
	Trip  *Trip
	Point *Point
}

// EntityID returns the identifier of the entity carried by the event
func (e Event) EntityID() string {
	switch {
	case e.User != nil:
		return e.User.ID
	case e.Trip != nil:
		return e.Trip.ID
	case e.Point != nil:
		return e.Point.ID
	}
	return ""
}

// Timestamp layouts seen from the data store, most specific first
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses a data store timestamp. Values without a zone are
// taken as UTC. The second result is false when s cannot be parsed.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseTimestampPtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, ok := ParseTimestamp(*s)
	if !ok {
		return nil
	}
	return &t
}

// envelope covers transports that wrap the inserted row
type envelope struct {
	Record json.RawMessage `json:"record"`
	New    json.RawMessage `json:"new"`
}

type tripRecord struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	StartTime *string `json:"start_time"`
}

type pointRecord struct {
	ID           string   `json:"id"`
	TripID       *string  `json:"trip_id"`
	Type         string   `json:"type"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	CreatedAt    *string  `json:"created_at"`
	Adults       *int     `json:"adults"`
	Calves       *int     `json:"calves"`
	DangerType   *string  `json:"danger_type"`
	HealthStatus *string  `json:"health_status"`
	PhotoURL     *string  `json:"photo_url"`
}

// DecodeEvent turns an insert notification for kind into an Event.
// Timestamps that fail to parse are dropped rather than rejected.
func DecodeEvent(kind Kind, payload []byte) (Event, error) {
	body := unwrap(payload)

	switch kind {
	case KindUsers:
		var u User
		if err := json.Unmarshal(body, &u); err != nil {
			return Event{}, fmt.Errorf("error decoding user: %w", err)
		}
		if u.ID == "" {
			return Event{}, fmt.Errorf("user record without id")
		}
		return Event{Kind: kind, User: &u}, nil

	case KindTrips:
		var rec tripRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			return Event{}, fmt.Errorf("error decoding trip: %w", err)
		}
		if rec.ID == "" {
			return Event{}, fmt.Errorf("trip record without id")
		}
		return Event{Kind: kind, Trip: &Trip{
			ID:        rec.ID,
			UserID:    rec.UserID,
			StartedAt: parseTimestampPtr(rec.StartTime),
		}}, nil

	case KindPoints:
		var rec pointRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			return Event{}, fmt.Errorf("error decoding point: %w", err)
		}
		if rec.ID == "" {
			return Event{}, fmt.Errorf("point record without id")
		}
		return Event{Kind: kind, Point: &Point{
			ID:           rec.ID,
			TripID:       rec.TripID,
			Type:         PointType(rec.Type),
			Latitude:     rec.Latitude,
			Longitude:    rec.Longitude,
			CreatedAt:    parseTimestampPtr(rec.CreatedAt),
			Adults:       rec.Adults,
			Calves:       rec.Calves,
			DangerType:   rec.DangerType,
			HealthStatus: rec.HealthStatus,
			PhotoURL:     rec.PhotoURL,
		}}, nil
	}

	return Event{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func unwrap(payload []byte) []byte {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return payload
	}
	if len(env.Record) > 0 && string(env.Record) != "null" {
		return env.Record
	}
	if len(env.New) > 0 && string(env.New) != "null" {
		return env.New
	}
	return payload
}

// ParseKind maps a collection name to its Kind
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}
