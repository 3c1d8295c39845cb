// internal/domain/dashboard/filter.go

package dashboard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sightmap/internal/domain/observation"
)

// ErrInvalidSelection is returned when selection parameters cannot be parsed
var ErrInvalidSelection = errors.New("invalid selection")

// DateLayout is the calendar date format accepted for range bounds
const DateLayout = "2006-01-02"

// Date is a calendar day without a time of day
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q: %v", ErrInvalidSelection, s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// String formats the date as YYYY-MM-DD
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// StartOfDay returns the first instant of the day in loc
func (d Date) StartOfDay(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// EndOfDay returns the last instant of the day in loc
func (d Date) EndOfDay(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 23, 59, 59, int(time.Second-time.Nanosecond), loc)
}

// TypeSet is the set of point types enabled for display.
// A nil set enables every type.
type TypeSet map[observation.PointType]bool

// AllTypes returns a set with every known type enabled
func AllTypes() TypeSet {
	set := make(TypeSet, len(observation.PointTypes))
	for _, t := range observation.PointTypes {
		set[t] = true
	}
	return set
}

// Enabled reports whether points of type t are visible
func (s TypeSet) Enabled(t observation.PointType) bool {
	if !t.Valid() {
		return false
	}
	if s == nil {
		return true
	}
	return s[t]
}

// ParseTypes parses a comma separated list of point types.
// A list naming no type yields a nil set, i.e. every type enabled.
func ParseTypes(s string) (TypeSet, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	set := TypeSet{}
	for _, part := range strings.Split(s, ",") {
		t := observation.PointType(strings.TrimSpace(part))
		if t == "" {
			continue
		}
		if !t.Valid() {
			return nil, fmt.Errorf("%w: point type %q", ErrInvalidSelection, t)
		}
		set[t] = true
	}
	if len(set) == 0 {
		return nil, nil
	}
	return set, nil
}

// Selection holds the active filter controls. The zero value selects
// every point.
type Selection struct {
	// UserID restricts points to trips owned by this user; empty means any
	UserID string

	// From and To bound the creation date, each independently optional
	From *Date
	To   *Date

	// TripID restricts points to one trip; empty means any
	TripID string

	VisibleTypes TypeSet

	// Location is the time zone days are evaluated in; nil means UTC
	Location *time.Location
}

func (s Selection) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// FilterPoints returns the points visible under sel, in their original
// order. Inputs are not modified.
func FilterPoints(sel Selection, trips []observation.Trip, points []observation.Point) []observation.Point {
	result := make([]observation.Point, 0, len(points))
	result = append(result, points...)

	// User
	if sel.UserID != "" {
		owned := make(map[string]struct{})
		for _, t := range trips {
			if t.UserID == sel.UserID {
				owned[t.ID] = struct{}{}
			}
		}
		result = keep(result, func(p observation.Point) bool {
			if p.TripID == nil {
				return false
			}
			_, ok := owned[*p.TripID]
			return ok
		})
	}

	// Date range
	if sel.From != nil || sel.To != nil {
		loc := sel.location()
		var from, to time.Time
		if sel.From != nil {
			from = sel.From.StartOfDay(loc)
		}
		if sel.To != nil {
			to = sel.To.EndOfDay(loc)
		}
		result = keep(result, func(p observation.Point) bool {
			if p.CreatedAt == nil {
				return false
			}
			if sel.From != nil && p.CreatedAt.Before(from) {
				return false
			}
			if sel.To != nil && p.CreatedAt.After(to) {
				return false
			}
			return true
		})
	}

	// Trip
	if sel.TripID != "" {
		result = keep(result, func(p observation.Point) bool {
			return p.InTrip(sel.TripID)
		})
	}

	// Layer types
	return keep(result, func(p observation.Point) bool {
		return sel.VisibleTypes.Enabled(p.Type)
	})
}

// FilterTrips returns the trips selectable for userID, in their original
// order. An empty userID selects every trip.
func FilterTrips(userID string, trips []observation.Trip) []observation.Trip {
	result := make([]observation.Trip, 0, len(trips))
	for _, t := range trips {
		if userID == "" || t.UserID == userID {
			result = append(result, t)
		}
	}
	return result
}

// keep filters points in place
func keep(points []observation.Point, pred func(observation.Point) bool) []observation.Point {
	n := 0
	for _, p := range points {
		if pred(p) {
			points[n] = p
			n++
		}
	}
	return points[:n]
}
