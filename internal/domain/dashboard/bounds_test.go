package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sightmap/internal/domain/observation"
)

func floatPtr(f float64) *float64 { return &f }

func located(id string, lat, lng float64) observation.Point {
	return observation.Point{ID: id, Type: observation.PointSighting, Latitude: floatPtr(lat), Longitude: floatPtr(lng)}
}

func TestPointBounds(t *testing.T) {
	points := []observation.Point{
		located("a", 36.5, 14.2),
		located("b", 35.9, 14.6),
		{ID: "c", Type: observation.PointDanger, Latitude: floatPtr(80)},
		located("d", 36.1, 14.4),
	}

	b := PointBounds(points)
	require.NotNil(t, b)

	assert.InDelta(t, 35.9, b.LatMin, 1e-9)
	assert.InDelta(t, 36.5, b.LatMax, 1e-9)
	assert.InDelta(t, 14.2, b.LonMin, 1e-9)
	assert.InDelta(t, 14.6, b.LonMax, 1e-9)
	assert.InDelta(t, 36.2, b.CenterLat, 1e-9)
	assert.InDelta(t, 14.4, b.CenterLon, 1e-9)
}

func TestPointBounds_SinglePoint(t *testing.T) {
	b := PointBounds([]observation.Point{located("a", -33.9, 18.4)})
	require.NotNil(t, b)

	assert.InDelta(t, b.LatMin, b.LatMax, 1e-9)
	assert.InDelta(t, -33.9, b.CenterLat, 1e-9)
}

func TestPointBounds_NoCoordinates(t *testing.T) {
	assert.Nil(t, PointBounds(nil))
	assert.Nil(t, PointBounds([]observation.Point{{ID: "x", Type: observation.PointStart}}))
	assert.Nil(t, PointBounds([]observation.Point{located("bad", 120, 10)}))
}

func TestBuildView(t *testing.T) {
	trips := fixtureTrips()
	points := fixturePoints()
	points[1].Latitude = floatPtr(10)
	points[1].Longitude = floatPtr(20)

	v := BuildView(Selection{UserID: "alice"}, trips, points)

	assert.Equal(t, []string{"p1", "p2", "p4"}, ids(v.Points))
	assert.Len(t, v.Trips, 2)
	assert.Equal(t, 3, v.Summary.Adults)
	require.NotNil(t, v.Bounds)
	assert.InDelta(t, 10, v.Bounds.CenterLat, 1e-9)
}
