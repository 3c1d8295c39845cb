// internal/domain/dashboard/view.go

package dashboard

import (
	"sightmap/internal/domain/observation"
)

// View is everything the map and chart render for one selection
type View struct {
	Points  []observation.Point `json:"points"`
	Trips   []observation.Trip  `json:"trips"`
	Summary Summary             `json:"summary"`
	Bounds  *Bounds             `json:"bounds,omitempty"`
}

// BuildView recomputes the full view for sel from the given collections
func BuildView(sel Selection, trips []observation.Trip, points []observation.Point) View {
	visible := FilterPoints(sel, trips, points)
	return View{
		Points:  visible,
		Trips:   FilterTrips(sel.UserID, trips),
		Summary: Aggregate(visible),
		Bounds:  PointBounds(visible),
	}
}
