package solve

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"fleetopt/internal/model"
)

const reasonUnroutable = "Could not fit in any vehicle route (capacity/time constraints)"
const reasonNoVehicles = "No vehicles available"

// assemble merges skill-infeasible orders with feasible orders no route
// visited, and computes the aggregate metrics.
func assemble(b *build, routes []model.Route, skillUnassigned []model.UnassignedOrder, started time.Time) *model.SolveResponse {
	visited := make(map[string]bool)
	for i := range routes {
		for j := range routes[i].Stops {
			visited[routes[i].Stops[j].OrderID] = true
		}
	}

	unassigned := append([]model.UnassignedOrder{}, skillUnassigned...)
	for i := range b.orders {
		o := &b.orders[i]
		if !visited[o.ID] {
			unassigned = append(unassigned, model.UnassignedOrder{
				OrderID:    o.ID,
				TrackingID: o.TrackingID,
				Reason:     reasonUnroutable,
			})
		}
	}

	var dist, dur float64
	stops := 0
	for i := range routes {
		dist += routes[i].TotalDistance
		dur += routes[i].TotalDuration
		stops += len(routes[i].Stops)
	}

	score := balanceScore(routes)
	return &model.SolveResponse{
		Routes:     routes,
		Unassigned: unassigned,
		Metrics: model.Metrics{
			TotalDistance:   round1(dist),
			TotalDuration:   round1(dur),
			TotalRoutes:     len(routes),
			TotalStops:      stops,
			ComputingTimeMs: round1(float64(time.Since(started).Microseconds()) / 1000),
			BalanceScore:    ptr(score),
		},
	}
}

// balanceScore measures how evenly stops spread across routes: 1 minus half
// the coefficient of variation of per-route stop counts, floored at 0. Fewer
// than two routes, or an all-empty set, scores a perfect 1.
func balanceScore(routes []model.Route) float64 {
	if len(routes) < 2 {
		return 1.0
	}
	counts := make([]float64, len(routes))
	for i := range routes {
		counts[i] = float64(len(routes[i].Stops))
	}
	mean := stat.Mean(counts, nil)
	if mean == 0 {
		return 1.0
	}
	// Population standard deviation: second central moment over n.
	sd := math.Sqrt(stat.Moment(2, counts, nil))
	score := 1 - (sd/mean)/2
	if score < 0 {
		score = 0
	}
	return round4(score)
}

// emptyResponse is the zero-order fast path: nothing to route, nothing
// unassigned.
func emptyResponse(started time.Time) *model.SolveResponse {
	return &model.SolveResponse{
		Routes:     []model.Route{},
		Unassigned: []model.UnassignedOrder{},
		Metrics: model.Metrics{
			ComputingTimeMs: round1(float64(time.Since(started).Microseconds()) / 1000),
		},
	}
}

// allUnassignedResponse marks every order unroutable with one shared reason.
func allUnassignedResponse(orders []model.Order, reason string, extra []model.UnassignedOrder, started time.Time) *model.SolveResponse {
	unassigned := append([]model.UnassignedOrder{}, extra...)
	for i := range orders {
		unassigned = append(unassigned, model.UnassignedOrder{
			OrderID:    orders[i].ID,
			TrackingID: orders[i].TrackingID,
			Reason:     reason,
		})
	}
	return &model.SolveResponse{
		Routes:     []model.Route{},
		Unassigned: unassigned,
		Metrics: model.Metrics{
			ComputingTimeMs: round1(float64(time.Since(started).Microseconds()) / 1000),
		},
	}
}
