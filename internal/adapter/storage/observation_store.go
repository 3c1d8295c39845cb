// internal/adapter/storage/observation_store.go

package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"

	"sightmap/internal/domain/observation"
)

// Querier is the subset of *pgxpool.Pool the store uses
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// ObservationStore reads users, trips and points from the remote store
type ObservationStore struct {
	db Querier
}

// NewObservationStore creates a new observation store
func NewObservationStore(db Querier) *ObservationStore {
	return &ObservationStore{
		db: db,
	}
}

// FetchUsers returns every user profile
func (s *ObservationStore) FetchUsers(ctx context.Context) ([]observation.User, error) {
	query := `
		SELECT id::text, display_name
		FROM profiles
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	users := []observation.User{}
	for rows.Next() {
		var u observation.User
		if err := rows.Scan(&u.ID, &u.DisplayName); err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// FetchTrips returns every trip
func (s *ObservationStore) FetchTrips(ctx context.Context) ([]observation.Trip, error) {
	query := `
		SELECT id::text, user_id::text, start_time
		FROM trips
		ORDER BY start_time NULLS LAST, id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	trips := []observation.Trip{}
	for rows.Next() {
		var t observation.Trip
		if err := rows.Scan(&t.ID, &t.UserID, &t.StartedAt); err != nil {
			return nil, fmt.Errorf("error scanning trip: %w", err)
		}
		trips = append(trips, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trips: %w", err)
	}

	return trips, nil
}

// FetchPoints returns every observation point
func (s *ObservationStore) FetchPoints(ctx context.Context) ([]observation.Point, error) {
	query := `
		SELECT
			id::text, trip_id::text, type,
			latitude, longitude, created_at,
			adults, calves, danger_type, health_status, photo_url
		FROM trip_points
		ORDER BY created_at NULLS LAST, id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	points := []observation.Point{}
	for rows.Next() {
		var p observation.Point
		var pointType *string
		var adults, calves *int32

		err := rows.Scan(
			&p.ID,
			&p.TripID,
			&pointType,
			&p.Latitude,
			&p.Longitude,
			&p.CreatedAt,
			&adults,
			&calves,
			&p.DangerType,
			&p.HealthStatus,
			&p.PhotoURL,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning point: %w", err)
		}

		// Set enum type
		if pointType != nil {
			p.Type = observation.PointType(*pointType)
		}
		p.Adults = widen(adults)
		p.Calves = widen(calves)

		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating points: %w", err)
	}

	return points, nil
}

func widen(v *int32) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}
