// internal/domain/dashboard/aggregate.go

package dashboard

import (
	"fmt"
	"strings"

	"sightmap/internal/domain/observation"
)

// UnknownCategory labels danger points with no category or health status
const UnknownCategory = "Unknown"

// HistogramKind selects which histogram the chart displays
type HistogramKind string

const (
	HistogramDangerType   HistogramKind = "danger_type"
	HistogramHealthStatus HistogramKind = "health_status"
)

// ParseHistogramKind parses a histogram selector; empty selects danger type
func ParseHistogramKind(s string) (HistogramKind, error) {
	switch HistogramKind(strings.TrimSpace(s)) {
	case "", HistogramDangerType:
		return HistogramDangerType, nil
	case HistogramHealthStatus:
		return HistogramHealthStatus, nil
	}
	return "", fmt.Errorf("%w: histogram %q", ErrInvalidSelection, s)
}

// Histogram maps a category label to its occurrence count
type Histogram map[string]int

// Summary holds the counters and histograms shown next to the map
type Summary struct {
	Adults         int       `json:"adults"`
	Calves         int       `json:"calves"`
	DangerCount    int       `json:"danger_count"`
	DangerTypes    Histogram `json:"danger_types"`
	HealthStatuses Histogram `json:"health_statuses"`
}

// NewSummary returns an empty summary
func NewSummary() Summary {
	return Summary{
		DangerTypes:    Histogram{},
		HealthStatuses: Histogram{},
	}
}

// Aggregate folds points into a summary. Start and end markers contribute
// nothing.
func Aggregate(points []observation.Point) Summary {
	s := NewSummary()
	for _, p := range points {
		s.Add(p)
	}
	return s
}

// Add folds one point into the summary
func (s *Summary) Add(p observation.Point) {
	switch p.Type {
	case observation.PointSighting:
		s.Adults += intOrZero(p.Adults)
		s.Calves += intOrZero(p.Calves)

	case observation.PointDanger:
		s.DangerCount++
		if s.DangerTypes == nil {
			s.DangerTypes = Histogram{}
		}
		if s.HealthStatuses == nil {
			s.HealthStatuses = Histogram{}
		}
		s.DangerTypes[labelOrUnknown(p.DangerType)]++
		s.HealthStatuses[labelOrUnknown(p.HealthStatus)]++
	}
}

// Merge returns the summary of the union of the point sets behind s and o
func (s Summary) Merge(o Summary) Summary {
	out := Summary{
		Adults:         s.Adults + o.Adults,
		Calves:         s.Calves + o.Calves,
		DangerCount:    s.DangerCount + o.DangerCount,
		DangerTypes:    Histogram{},
		HealthStatuses: Histogram{},
	}
	for _, h := range []Histogram{s.DangerTypes, o.DangerTypes} {
		for k, v := range h {
			out.DangerTypes[k] += v
		}
	}
	for _, h := range []Histogram{s.HealthStatuses, o.HealthStatuses} {
		for k, v := range h {
			out.HealthStatuses[k] += v
		}
	}
	return out
}

// Histogram returns the histogram selected by kind
func (s Summary) Histogram(kind HistogramKind) Histogram {
	if kind == HistogramHealthStatus {
		return s.HealthStatuses
	}
	return s.DangerTypes
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func labelOrUnknown(v *string) string {
	if v == nil || *v == "" {
		return UnknownCategory
	}
	return *v
}
