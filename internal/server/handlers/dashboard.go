// internal/server/handlers/dashboard.go

package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"

	"sightmap/internal/domain/dashboard"
	"sightmap/internal/domain/observation"
	"sightmap/internal/logging"
)

// DashboardService is what the dashboard handlers read from
type DashboardService interface {
	// Users returns every loaded user
	Users() []observation.User

	// Trips returns the trips selectable for a user; empty means all
	Trips(userID string) []observation.Trip

	// View filters and aggregates the current collections
	View(sel dashboard.Selection) dashboard.View

	// Load re-runs the bulk fetch and replaces the collections
	Load(ctx context.Context)
}

// DashboardHandler handles dashboard-related HTTP requests
type DashboardHandler struct {
	service DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardService) *DashboardHandler {
	return &DashboardHandler{
		service: service,
	}
}

// summaryResponse is the counter block plus the chart's selected histogram
type summaryResponse struct {
	Adults        int                     `json:"adults"`
	Calves        int                     `json:"calves"`
	DangerCount   int                     `json:"danger_count"`
	HistogramKind dashboard.HistogramKind `json:"histogram_kind"`
	Histogram     dashboard.Histogram     `json:"histogram"`
}

// ListUsers returns every user
func (h *DashboardHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.service.Users())
}

// ListTrips returns the trips selectable for the user query parameter
func (h *DashboardHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.service.Trips(r.URL.Query().Get("user")))
}

// ListPoints returns the points visible under the query's selection
func (h *DashboardHandler) ListPoints(w http.ResponseWriter, r *http.Request) {
	sel, err := ParseSelection(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), err)
		return
	}

	respondWithJSON(w, http.StatusOK, h.service.View(sel).Points)
}

// GetSummary returns the aggregate counters and one histogram
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	sel, err := ParseSelection(query)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), err)
		return
	}

	kind, err := dashboard.ParseHistogramKind(query.Get("histogram"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), err)
		return
	}

	s := h.service.View(sel).Summary
	respondWithJSON(w, http.StatusOK, summaryResponse{
		Adults:        s.Adults,
		Calves:        s.Calves,
		DangerCount:   s.DangerCount,
		HistogramKind: kind,
		Histogram:     s.Histogram(kind),
	})
}

// GetView returns points, trips, summary and bounds in one response
func (h *DashboardHandler) GetView(w http.ResponseWriter, r *http.Request) {
	sel, err := ParseSelection(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), err)
		return
	}

	respondWithJSON(w, http.StatusOK, h.service.View(sel))
}

// Refresh reloads every collection from the data store
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.service.Load(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// ParseSelection reads filter controls from query parameters:
// user, from, to (YYYY-MM-DD), trip and types (comma separated)
func ParseSelection(query url.Values) (dashboard.Selection, error) {
	sel := dashboard.Selection{
		UserID: query.Get("user"),
		TripID: query.Get("trip"),
	}

	if v := query.Get("from"); v != "" {
		d, err := dashboard.ParseDate(v)
		if err != nil {
			return dashboard.Selection{}, err
		}
		sel.From = &d
	}

	if v := query.Get("to"); v != "" {
		d, err := dashboard.ParseDate(v)
		if err != nil {
			return dashboard.Selection{}, err
		}
		sel.To = &d
	}

	types, err := dashboard.ParseTypes(query.Get("types"))
	if err != nil {
		return dashboard.Selection{}, err
	}
	sel.VisibleTypes = types

	return sel, nil
}

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	response := map[string]string{"error": message}

	if err != nil && code >= 500 {
		logging.Error().Err(err).Int("code", code).Str("message", message).Msg("HTTP error")
	}

	jsonResponse, _ := json.Marshal(response)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(jsonResponse)
}
