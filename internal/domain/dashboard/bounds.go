// internal/domain/dashboard/bounds.go

package dashboard

import (
	"github.com/golang/geo/s2"

	"sightmap/internal/domain/observation"
)

// Bounds is the lat/lng rectangle the map fits its viewport to
type Bounds struct {
	LatMin    float64 `json:"lat_min"`
	LonMin    float64 `json:"lon_min"`
	LatMax    float64 `json:"lat_max"`
	LonMax    float64 `json:"lon_max"`
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
}

// PointBounds returns the smallest rectangle covering every located point,
// or nil when no point has coordinates.
func PointBounds(points []observation.Point) *Bounds {
	rect := s2.EmptyRect()
	for _, p := range points {
		if !p.Located() {
			continue
		}
		ll := s2.LatLngFromDegrees(*p.Latitude, *p.Longitude)
		if !ll.IsValid() {
			continue
		}
		rect = rect.AddPoint(ll)
	}
	if rect.IsEmpty() {
		return nil
	}

	lo, hi, center := rect.Lo(), rect.Hi(), rect.Center()
	return &Bounds{
		LatMin:    lo.Lat.Degrees(),
		LonMin:    lo.Lng.Degrees(),
		LatMax:    hi.Lat.Degrees(),
		LonMax:    hi.Lng.Degrees(),
		CenterLat: center.Lat.Degrees(),
		CenterLon: center.Lng.Degrees(),
	}
}
