package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sightmap/internal/domain/dashboard"
	"sightmap/internal/domain/observation"
	"sightmap/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "disabled"})
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

type fakeDashboard struct {
	users  []observation.User
	trips  []observation.Trip
	points []observation.Point

	loads int
}

func (f *fakeDashboard) Users() []observation.User { return f.users }

func (f *fakeDashboard) Trips(userID string) []observation.Trip {
	return dashboard.FilterTrips(userID, f.trips)
}

func (f *fakeDashboard) View(sel dashboard.Selection) dashboard.View {
	return dashboard.BuildView(sel, f.trips, f.points)
}

func (f *fakeDashboard) Load(context.Context) { f.loads++ }

func newFakeDashboard() *fakeDashboard {
	return &fakeDashboard{
		users: []observation.User{{ID: "u1", DisplayName: strPtr("Ana")}, {ID: "u2"}},
		trips: []observation.Trip{{ID: "t1", UserID: "u1"}, {ID: "t2", UserID: "u2"}},
		points: []observation.Point{
			{ID: "p1", TripID: strPtr("t1"), Type: observation.PointSighting, Adults: intPtr(2), Calves: intPtr(1)},
			{ID: "p2", TripID: strPtr("t1"), Type: observation.PointDanger, DangerType: strPtr("net"), HealthStatus: strPtr("injured")},
			{ID: "p3", TripID: strPtr("t2"), Type: observation.PointSighting, Adults: intPtr(4)},
		},
	}
}

func get(t *testing.T, h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestDashboardHandler_ListUsers(t *testing.T) {
	h := NewDashboardHandler(newFakeDashboard())
	rec := get(t, h.ListUsers, "/api/v1/users")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var users []observation.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 2)
}

func TestDashboardHandler_ListTrips(t *testing.T) {
	h := NewDashboardHandler(newFakeDashboard())

	var trips []observation.Trip
	rec := get(t, h.ListTrips, "/api/v1/trips?user=u2")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trips))
	require.Len(t, trips, 1)
	assert.Equal(t, "t2", trips[0].ID)

	rec = get(t, h.ListTrips, "/api/v1/trips")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trips))
	assert.Len(t, trips, 2)
}

func TestDashboardHandler_ListPoints(t *testing.T) {
	h := NewDashboardHandler(newFakeDashboard())

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"no filters", "", []string{"p1", "p2", "p3"}},
		{"by user", "?user=u1", []string{"p1", "p2"}},
		{"by type", "?types=danger", []string{"p2"}},
		{"by user and trip", "?user=u1&trip=t1&types=sighting,danger", []string{"p1", "p2"}},
		{"trip of another user", "?user=u2&trip=t1", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h.ListPoints, "/api/v1/points"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)

			var points []observation.Point
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))

			got := make([]string, 0, len(points))
			for _, p := range points {
				got = append(got, p.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDashboardHandler_BadSelection(t *testing.T) {
	h := NewDashboardHandler(newFakeDashboard())

	for _, query := range []string{"?from=2024-13-01", "?to=yesterday", "?types=whale"} {
		t.Run(query, func(t *testing.T) {
			rec := get(t, h.GetView, "/api/v1/view"+query)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestDashboardHandler_GetSummary(t *testing.T) {
	h := NewDashboardHandler(newFakeDashboard())

	rec := get(t, h.GetSummary, "/api/v1/summary?user=u1&histogram=health_status")
	require.Equal(t, http.StatusOK, rec.Code)

	var got summaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Adults)
	assert.Equal(t, 1, got.Calves)
	assert.Equal(t, 1, got.DangerCount)
	assert.Equal(t, dashboard.HistogramHealthStatus, got.HistogramKind)
	assert.Equal(t, dashboard.Histogram{"injured": 1}, got.Histogram)

	rec = get(t, h.GetSummary, "/api/v1/summary?histogram=weather")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardHandler_Refresh(t *testing.T) {
	svc := newFakeDashboard()
	h := NewDashboardHandler(svc)

	rec := httptest.NewRecorder()
	h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, svc.loads)
}

func TestParseSelection(t *testing.T) {
	sel, err := ParseSelection(url.Values{
		"user":  {"u1"},
		"trip":  {"t1"},
		"from":  {"2024-03-01"},
		"to":    {"2024-03-31"},
		"types": {"start,end"},
	})
	require.NoError(t, err)

	assert.Equal(t, "u1", sel.UserID)
	assert.Equal(t, "t1", sel.TripID)
	require.NotNil(t, sel.From)
	require.NotNil(t, sel.To)
	assert.Equal(t, "2024-03-01", sel.From.String())
	assert.Equal(t, "2024-03-31", sel.To.String())
	assert.True(t, sel.VisibleTypes.Enabled(observation.PointStart))
	assert.False(t, sel.VisibleTypes.Enabled(observation.PointSighting))

	sel, err = ParseSelection(url.Values{})
	require.NoError(t, err)
	assert.Nil(t, sel.From)
	assert.Nil(t, sel.To)
	assert.True(t, sel.VisibleTypes.Enabled(observation.PointDanger))
}
