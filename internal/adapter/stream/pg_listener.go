// internal/adapter/stream/pg_listener.go

package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"sightmap/internal/domain/observation"
	"sightmap/internal/logging"
	"sightmap/internal/metrics"
)

// PGListener delivers inserts announced with NOTIFY on <prefix>_<kind>.
// The data store is expected to pg_notify the inserted row as JSON from an
// AFTER INSERT trigger.
type PGListener struct {
	pool   *pgxpool.Pool
	prefix string
}

// NewPGListener creates a listener that holds one pooled connection per
// subscription
func NewPGListener(pool *pgxpool.Pool, channelPrefix string) *PGListener {
	return &PGListener{
		pool:   pool,
		prefix: channelPrefix,
	}
}

// Channel returns the NOTIFY channel for kind
func (l *PGListener) Channel(kind observation.Kind) string {
	return fmt.Sprintf("%s_%s", l.prefix, kind)
}

// Subscribe issues LISTEN on a dedicated connection and forwards
// notifications until the subscription is released
func (l *PGListener) Subscribe(
	ctx context.Context,
	kind observation.Kind,
	onInsert func(observation.Event),
) (observation.Subscription, error) {
	channel := l.Channel(kind)

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listen connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	sub := &pgSubscription{
		conn:    conn,
		channel: channel,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go sub.loop(listenCtx, kind, onInsert)

	log := logging.With("pg-listener")
	log.Info().Str("channel", channel).Msg("listening")

	return sub, nil
}

type pgSubscription struct {
	conn    *pgxpool.Conn
	channel string
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	err     error
}

func (s *pgSubscription) loop(ctx context.Context, kind observation.Kind, onInsert func(observation.Event)) {
	defer close(s.done)
	log := logging.With("pg-listener")

	for {
		n, err := s.conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Str("channel", s.channel).Msg("listen connection lost, closing subscription")
			}
			return
		}

		ev, err := observation.DecodeEvent(kind, []byte(n.Payload))
		if err != nil {
			metrics.EventsMalformed.WithLabelValues(string(kind)).Inc()
			log.Warn().Err(err).Str("channel", s.channel).Msg("dropping malformed notification")
			continue
		}
		onInsert(ev)
	}
}

// Done is closed when the listen loop exits
func (s *pgSubscription) Done() <-chan struct{} {
	return s.done
}

// Unsubscribe stops the listen loop, issues UNLISTEN and returns the
// connection to the pool. Only the first call has any effect.
func (s *pgSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done

		// Cancelling a wait closes the connection, which drops the LISTEN
		if s.conn.Conn().IsClosed() {
			s.conn.Release()
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := s.conn.Exec(ctx, "UNLISTEN "+pgx.Identifier{s.channel}.Sanitize()); err != nil {
			s.err = fmt.Errorf("failed to unlisten %s: %w", s.channel, err)
			// The connection state is unknown; do not hand it back
			s.conn.Conn().Close(ctx)
		}
		s.conn.Release()
	})
	return s.err
}
