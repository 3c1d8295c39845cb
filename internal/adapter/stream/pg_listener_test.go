package stream

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sightmap/internal/domain/observation"
)

func openListenPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("SIGHTMAP_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SIGHTMAP_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func TestPGListener_Channel(t *testing.T) {
	l := NewPGListener(nil, "insert")
	assert.Equal(t, "insert_trip_points", l.Channel(observation.KindPoints))
	assert.Equal(t, "insert_profiles", l.Channel(observation.KindUsers))
}

func TestPGListener_DeliversNotifications(t *testing.T) {
	pool := openListenPool(t)
	prefix := "t" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	l := NewPGListener(pool, prefix)

	got := make(chan observation.Event, 4)
	sub, err := l.Subscribe(context.Background(), observation.KindPoints, func(ev observation.Event) {
		got <- ev
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	channel := l.Channel(observation.KindPoints)
	_, err = pool.Exec(ctx, "SELECT pg_notify($1, $2)", channel, `{"id":"bad"`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, "SELECT pg_notify($1, $2)", channel,
		`{"id":"p1","trip_id":"t1","type":"danger","danger_type":"net","created_at":"2024-05-01 10:00:00+00"}`)
	require.NoError(t, err)

	select {
	case ev := <-got:
		require.NotNil(t, ev.Point)
		assert.Equal(t, "p1", ev.Point.ID)
		assert.Equal(t, observation.PointDanger, ev.Point.Type)
		require.NotNil(t, ev.Point.CreatedAt)
	case <-time.After(5 * time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestPGListener_DoneWhenConnectionLost(t *testing.T) {
	pool := openListenPool(t)
	l := NewPGListener(pool, "t"+strings.ReplaceAll(uuid.New().String(), "-", "")[:12])

	handle, err := l.Subscribe(context.Background(), observation.KindUsers, func(observation.Event) {})
	require.NoError(t, err)
	defer handle.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Kill the backend holding the LISTEN
	sub := handle.(*pgSubscription)
	pid := sub.conn.Conn().PgConn().PID()
	_, err = pool.Exec(ctx, "SELECT pg_terminate_backend($1)", pid)
	require.NoError(t, err)

	select {
	case <-handle.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("lost connection not reported")
	}
}

func TestPGListener_UnsubscribeReleasesConnection(t *testing.T) {
	pool := openListenPool(t)
	l := NewPGListener(pool, "t"+strings.ReplaceAll(uuid.New().String(), "-", "")[:12])

	sub, err := l.Subscribe(context.Background(), observation.KindTrips, func(observation.Event) {})
	require.NoError(t, err)
	assert.Equal(t, int32(1), pool.Stat().AcquiredConns())

	assert.NoError(t, sub.Unsubscribe())
	assert.NoError(t, sub.Unsubscribe())
	<-sub.Done()
	assert.Equal(t, int32(0), pool.Stat().AcquiredConns())
}
