// internal/adapter/stream/nats_subscriber.go

package stream

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"sightmap/internal/domain/observation"
	"sightmap/internal/logging"
	"sightmap/internal/metrics"
)

// NATSSubscriber delivers inserts published on <prefix>.<kind>.insert
type NATSSubscriber struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSSubscriber creates a subscriber on an established NATS connection
func NewNATSSubscriber(conn *nats.Conn, subjectPrefix string) *NATSSubscriber {
	return &NATSSubscriber{
		conn:   conn,
		prefix: subjectPrefix,
	}
}

// Subject returns the insert subject for kind
func (s *NATSSubscriber) Subject(kind observation.Kind) string {
	return InsertSubject(s.prefix, kind)
}

// InsertSubject builds the NATS subject inserts of kind are published on
func InsertSubject(prefix string, kind observation.Kind) string {
	return fmt.Sprintf("%s.%s.insert", prefix, kind)
}

// Subscribe subscribes to inserts of kind
func (s *NATSSubscriber) Subscribe(
	ctx context.Context,
	kind observation.Kind,
	onInsert func(observation.Event),
) (observation.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	subject := s.Subject(kind)
	log := logging.With("nats-subscriber")

	sub, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		ev, err := observation.DecodeEvent(kind, msg.Data)
		if err != nil {
			metrics.EventsMalformed.WithLabelValues(string(kind)).Inc()
			log.Warn().Err(err).Str("subject", subject).Msg("dropping malformed insert")
			return
		}
		onInsert(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	log.Info().Str("subject", subject).Msg("subscribed")

	return &natsSubscription{sub: sub, done: make(chan struct{})}, nil
}

type natsSubscription struct {
	sub  *nats.Subscription
	done chan struct{}
	once sync.Once
	err  error
}

// Done is closed on Unsubscribe. The connection reconnects on its own, so
// a live subscription is never reported lost.
func (s *natsSubscription) Done() <-chan struct{} {
	return s.done
}

// Unsubscribe releases the NATS subscription once
func (s *natsSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.err = s.sub.Unsubscribe()
		close(s.done)
	})
	return s.err
}
