// Package travel resolves distance and duration between request locations. It
// tries the routing table service once per request and degrades to scaled
// great-circle estimates, per pair or wholesale, when the service cannot
// answer.
package travel

import (
	"context"

	"fleetopt/internal/geo"
	"fleetopt/internal/osrm"
	"fleetopt/internal/trace"
)

const (
	// RoadFactor inflates great-circle distance to approximate road distance.
	RoadFactor = 1.3
	// DefaultSpeedMPS is the assumed travel speed for geodesic durations
	// (~30 km/h urban driving).
	DefaultSpeedMPS = 8.33
)

// TableAPI is the routing-table collaborator.
type TableAPI interface {
	Table(ctx context.Context, points []geo.Point) (*osrm.Table, error)
}

// PathAPI is the routing-path collaborator.
type PathAPI interface {
	Route(ctx context.Context, points []geo.Point) (string, error)
}

// Leg is a resolved edge between two locations.
type Leg struct {
	DistanceM float64
	DurationS float64 // traffic-adjusted
}

// SpeedMultiplier maps a 0-100 traffic factor onto a speed scale:
// 0 -> 1.5x (free flow), 50 -> 1.0x, 100 -> 0.5x, floored at 0.1.
func SpeedMultiplier(trafficFactor int) float64 {
	m := 1.5 - float64(trafficFactor)/100
	if m < 0.1 {
		m = 0.1
	}
	return m
}

// DurationMultiplier is the scalar applied to every leg duration.
func DurationMultiplier(trafficFactor int) float64 {
	return 1 / SpeedMultiplier(trafficFactor)
}

// Oracle answers leg queries over a fixed location list. It is built once per
// request and read concurrently afterwards; it must not be mutated.
type Oracle struct {
	points   []geo.Point
	table    *osrm.Table
	fallback bool
	durMult  float64
}

// NewOracle resolves the all-pairs matrix for points with a single table
// attempt. Failure is not an error: the oracle flips to geodesic fallback for
// every pair.
func NewOracle(ctx context.Context, api TableAPI, points []geo.Point, trafficFactor int, tr trace.Tracer) *Oracle {
	o := &Oracle{points: points, durMult: DurationMultiplier(trafficFactor)}
	if api == nil {
		o.fallback = true
		tr.Event("matrix.resolved", map[string]any{"source": "geodesic", "points": len(points)})
		return o
	}
	table, err := api.Table(ctx, points)
	if err != nil {
		o.fallback = true
		tr.Event("matrix.resolved", map[string]any{"source": "geodesic", "points": len(points), "error": err.Error()})
		return o
	}
	o.table = table
	tr.Event("matrix.resolved", map[string]any{"source": "table", "points": len(points)})
	return o
}

// Fallback reports whether the routing table was unavailable for this
// request.
func (o *Oracle) Fallback() bool { return o.fallback }

// Points returns the location list the oracle was built over.
func (o *Oracle) Points() []geo.Point { return o.points }

// Leg resolves the edge from location i to location j. Matrix values are
// preferred; a nil cell (unreachable pair) falls back to the geodesic
// estimate for that pair only. Durations are always traffic-adjusted.
func (o *Oracle) Leg(i, j int) Leg {
	if i == j {
		return Leg{}
	}
	if !o.fallback {
		dur := o.table.Durations[i][j]
		dist := o.table.Distances[i][j]
		if dur != nil && dist != nil {
			return Leg{DistanceM: *dist, DurationS: *dur * o.durMult}
		}
	}
	return o.geodesic(o.points[i], o.points[j])
}

func (o *Oracle) geodesic(a, b geo.Point) Leg {
	dist := geo.Haversine(a, b) * RoadFactor
	return Leg{DistanceM: dist, DurationS: dist / DefaultSpeedMPS * o.durMult}
}
