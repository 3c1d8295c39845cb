// internal/service/session/collections.go

package session

import (
	"sightmap/internal/domain/observation"
)

// Outcome reports what Apply did with an event
type Outcome int

const (
	Applied Outcome = iota
	Duplicate
	Ignored
)

// Collections is the session-scoped copy of the three remote collections.
// Entities are only ever appended or replaced wholesale, never edited in
// place.
type Collections struct {
	Users  []observation.User
	Trips  []observation.Trip
	Points []observation.Point

	seen map[observation.Kind]map[string]struct{}
}

// NewCollections builds collections from a bulk load
func NewCollections(users []observation.User, trips []observation.Trip, points []observation.Point) *Collections {
	c := &Collections{
		Users:  nonNil(users),
		Trips:  nonNil(trips),
		Points: nonNil(points),
	}
	c.reindex()
	return c
}

func (c *Collections) reindex() {
	c.seen = map[observation.Kind]map[string]struct{}{
		observation.KindUsers:  make(map[string]struct{}, len(c.Users)),
		observation.KindTrips:  make(map[string]struct{}, len(c.Trips)),
		observation.KindPoints: make(map[string]struct{}, len(c.Points)),
	}
	for _, u := range c.Users {
		c.seen[observation.KindUsers][u.ID] = struct{}{}
	}
	for _, t := range c.Trips {
		c.seen[observation.KindTrips][t.ID] = struct{}{}
	}
	for _, p := range c.Points {
		c.seen[observation.KindPoints][p.ID] = struct{}{}
	}
}

// Has reports whether an entity of kind with id is present
func (c *Collections) Has(kind observation.Kind, id string) bool {
	_, ok := c.seen[kind][id]
	return ok
}

// Apply appends the entity carried by ev. With dedupe set, entities
// already present are dropped.
func (c *Collections) Apply(ev observation.Event, dedupe bool) Outcome {
	if c.seen == nil {
		c.reindex()
	}

	id := ev.EntityID()
	if id == "" {
		return Ignored
	}
	if dedupe && c.Has(ev.Kind, id) {
		return Duplicate
	}

	switch {
	case ev.Kind == observation.KindUsers && ev.User != nil:
		c.Users = append(c.Users, *ev.User)
	case ev.Kind == observation.KindTrips && ev.Trip != nil:
		c.Trips = append(c.Trips, *ev.Trip)
	case ev.Kind == observation.KindPoints && ev.Point != nil:
		c.Points = append(c.Points, *ev.Point)
	default:
		return Ignored
	}

	c.seen[ev.Kind][id] = struct{}{}
	return Applied
}

// Len returns the entity count for kind
func (c *Collections) Len(kind observation.Kind) int {
	switch kind {
	case observation.KindUsers:
		return len(c.Users)
	case observation.KindTrips:
		return len(c.Trips)
	case observation.KindPoints:
		return len(c.Points)
	}
	return 0
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
