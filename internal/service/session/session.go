// internal/service/session/session.go

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sightmap/internal/domain/dashboard"
	"sightmap/internal/domain/observation"
	"sightmap/internal/logging"
	"sightmap/internal/metrics"
)

// Config contains configuration for a session
type Config struct {
	// Dedupe drops push events for entities already loaded
	Dedupe bool

	// FetchTimeout bounds each bulk fetch
	FetchTimeout time.Duration

	// Buffer is the capacity of the event queue
	Buffer int

	// Location is the default time zone for date-range selections
	Location *time.Location
}

// Session holds the dashboard state for one process: the three
// collections, the push subscriptions feeding them and the listeners
// told about each applied event.
//
// Serve is the only consumer of the event queue, so push events are
// applied one at a time in arrival order.
type Session struct {
	store      observation.Store
	subscriber observation.Subscriber
	config     Config

	mu          sync.RWMutex
	collections *Collections

	events    chan observation.Event
	listeners []func(observation.Event)
	lmu       sync.RWMutex

	log zerolog.Logger
}

// New creates a session over a store and a push subscriber
func New(store observation.Store, subscriber observation.Subscriber, config Config) *Session {
	if config.Buffer <= 0 {
		config.Buffer = 256
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = 30 * time.Second
	}
	if config.Location == nil {
		config.Location = time.UTC
	}

	return &Session{
		store:       store,
		subscriber:  subscriber,
		config:      config,
		collections: NewCollections(nil, nil, nil),
		events:      make(chan observation.Event, config.Buffer),
		log:         logging.With("session"),
	}
}

// OnEvent registers a callback invoked after each applied push event
func (s *Session) OnEvent(fn func(observation.Event)) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Load fetches every collection and replaces the current state. A failed
// fetch is logged and leaves that collection empty.
func (s *Session) Load(ctx context.Context) {
	users := fetch(ctx, s, observation.KindUsers, s.store.FetchUsers)
	trips := fetch(ctx, s, observation.KindTrips, s.store.FetchTrips)
	points := fetch(ctx, s, observation.KindPoints, s.store.FetchPoints)

	loaded := NewCollections(users, trips, points)

	s.mu.Lock()
	s.collections = loaded
	s.mu.Unlock()

	for _, kind := range observation.Kinds {
		metrics.CollectionSize.WithLabelValues(string(kind)).Set(float64(loaded.Len(kind)))
	}

	s.log.Info().
		Int("users", len(users)).
		Int("trips", len(trips)).
		Int("points", len(points)).
		Msg("collections loaded")
}

func fetch[T any](
	ctx context.Context,
	s *Session,
	kind observation.Kind,
	fn func(context.Context) ([]T, error),
) []T {
	ctx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	items, err := fn(ctx)
	if err != nil {
		metrics.FetchFailures.WithLabelValues(string(kind)).Inc()
		s.log.Error().Err(err).Str("kind", string(kind)).Msg("fetch failed, collection left empty")
		return nil
	}
	return items
}

// Enqueue queues a push event for Serve. It blocks while the queue is full
// and gives up when ctx is done.
func (s *Session) Enqueue(ctx context.Context, ev observation.Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Dispatch applies one event to the collections and notifies listeners
func (s *Session) Dispatch(ev observation.Event) Outcome {
	s.mu.Lock()
	outcome := s.collections.Apply(ev, s.config.Dedupe)
	size := s.collections.Len(ev.Kind)
	s.mu.Unlock()

	switch outcome {
	case Applied:
		metrics.EventsApplied.WithLabelValues(string(ev.Kind)).Inc()
		metrics.CollectionSize.WithLabelValues(string(ev.Kind)).Set(float64(size))
		s.notify(ev)
	case Duplicate:
		metrics.EventsDuplicate.WithLabelValues(string(ev.Kind)).Inc()
		s.log.Debug().Str("kind", string(ev.Kind)).Str("id", ev.EntityID()).Msg("duplicate insert dropped")
	case Ignored:
		s.log.Warn().Str("kind", string(ev.Kind)).Msg("event without entity ignored")
	}

	return outcome
}

func (s *Session) notify(ev observation.Event) {
	s.lmu.RLock()
	listeners := s.listeners
	s.lmu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// Serve subscribes to every collection, loads the initial state and
// applies push events until ctx is done. A lost subscription ends Serve
// with ErrSubscriptionLost so the supervisor restarts it. Subscriptions
// are released exactly once on return.
func (s *Session) Serve(ctx context.Context) error {
	var subs []observation.Subscription
	defer func() {
		for _, sub := range subs {
			if err := sub.Unsubscribe(); err != nil {
				s.log.Warn().Err(err).Msg("unsubscribe failed")
			}
		}
	}()

	watchCtx, stopWatching := context.WithCancel(ctx)
	defer stopWatching()
	lost := make(chan observation.Kind, len(observation.Kinds))

	for _, kind := range observation.Kinds {
		sub, err := s.subscriber.Subscribe(ctx, kind, func(ev observation.Event) {
			s.Enqueue(ctx, ev)
		})
		if err != nil {
			return fmt.Errorf("error subscribing to %s: %w", kind, err)
		}
		subs = append(subs, sub)
		go watch(watchCtx, kind, sub, lost)
	}

	s.Load(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("session stopped")
			return ctx.Err()
		case kind := <-lost:
			s.log.Error().Str("kind", string(kind)).Msg("push subscription lost, restarting session")
			return fmt.Errorf("%s: %w", kind, observation.ErrSubscriptionLost)
		case ev := <-s.events:
			s.Dispatch(ev)
		}
	}
}

// watch reports kind on lost if sub stops delivering before ctx is done
func watch(ctx context.Context, kind observation.Kind, sub observation.Subscription, lost chan<- observation.Kind) {
	select {
	case <-sub.Done():
		if ctx.Err() == nil {
			lost <- kind
		}
	case <-ctx.Done():
	}
}

// String names the session for supervisor logs
func (s *Session) String() string {
	return "session"
}

// snapshot returns the current collections. The slices are capped at
// their length so later appends never show through.
func (s *Session) snapshot() ([]observation.User, []observation.Trip, []observation.Point) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.collections
	return c.Users[:len(c.Users):len(c.Users)],
		c.Trips[:len(c.Trips):len(c.Trips)],
		c.Points[:len(c.Points):len(c.Points)]
}

// Users returns every loaded user
func (s *Session) Users() []observation.User {
	users, _, _ := s.snapshot()
	return append([]observation.User{}, users...)
}

// Trips returns the trips selectable for userID
func (s *Session) Trips(userID string) []observation.Trip {
	_, trips, _ := s.snapshot()
	return dashboard.FilterTrips(userID, trips)
}

// View filters and aggregates the current collections for sel
func (s *Session) View(sel dashboard.Selection) dashboard.View {
	start := time.Now()
	defer func() {
		metrics.ViewDuration.Observe(time.Since(start).Seconds())
	}()

	if sel.Location == nil {
		sel.Location = s.config.Location
	}

	_, trips, points := s.snapshot()
	return dashboard.BuildView(sel, trips, points)
}
