package solve

import (
	"context"
	"math"

	"fleetopt/internal/engine"
	"fleetopt/internal/geo"
	"fleetopt/internal/model"
	"fleetopt/internal/trace"
	"fleetopt/internal/travel"
)

// reconstruct walks each solution route against the shared oracle, simulating
// an absolute clock from the vehicle's shift start. Arrival time is recorded
// before waiting and service; the return leg is skipped entirely for open-end
// routes. Geometry is fetched only when the routing service answered the
// matrix (a fallback request has no road network to draw from).
func reconstruct(ctx context.Context, b *build, sol *engine.Solution, req *model.SolveRequest, path travel.PathAPI, tr trace.Tracer) []model.Route {
	routes := make([]model.Route, 0, len(sol.Routes))
	numDepots := len(b.problem.Depots)

	for _, er := range sol.Routes {
		if len(er.Visits) == 0 {
			continue
		}
		vi := er.Vehicle
		veh := &req.Vehicles[vi]
		vt := &b.problem.Vehicles[vi]

		// The arrival clock always starts at the depot's opening time;
		// open_start only loosens the engine's shift window, not reporting.
		clock := float64(b.depotOpen)
		loc := vt.StartDepot
		var dist, travelTime, serviceTime, weight, volume float64
		stops := make([]model.Stop, 0, len(er.Visits))

		for seq, l := range er.Visits {
			ci := l - numDepots
			o := &b.orders[ci]
			cl := &b.problem.Clients[ci]

			leg := b.oracle.Leg(loc, l)
			clock += leg.DurationS
			dist += leg.DistanceM
			travelTime += leg.DurationS

			arrival := clock
			waiting := 0.0
			if w := float64(cl.TWStart) - clock; w > 0 {
				waiting = w
			}
			svc := float64(cl.ServiceSec)
			// Per-stop times stay unrounded; only route totals are rounded.
			stops = append(stops, model.Stop{
				OrderID:     o.ID,
				TrackingID:  o.TrackingID,
				Address:     o.Address,
				Lat:         o.Lat,
				Lng:         o.Lng,
				Sequence:    seq + 1,
				ArrivalTime: ptr(arrival),
				ServiceTime: ptr(svc),
				WaitingTime: ptr(waiting),
			})
			clock += waiting + svc
			serviceTime += svc
			weight += o.Weight
			volume += o.Volume
			loc = l
		}

		if !b.openEnd {
			leg := b.oracle.Leg(loc, vt.EndDepot)
			dist += leg.DistanceM
			travelTime += leg.DurationS
		}

		route := model.Route{
			VehicleID:         veh.ID,
			VehicleIdentifier: veh.Identifier,
			Stops:             stops,
			TotalDistance:     round1(dist),
			TotalDuration:     round1(travelTime + serviceTime),
			TotalServiceTime:  round1(serviceTime),
			TotalTravelTime:   round1(travelTime),
			TotalWeight:       round2(weight),
			TotalVolume:       round2(volume),
		}
		if path != nil && !b.oracle.Fallback() {
			if g := routeGeometry(ctx, b, &er, vt, path); g != "" {
				route.Geometry = &g
			}
		}
		routes = append(routes, route)
	}

	tr.Event("routes.reconstructed", map[string]any{"routes": len(routes)})
	return routes
}

// routeGeometry fetches an encoded polyline for the realized coordinate
// sequence. Failure is silent; the route just carries no geometry.
func routeGeometry(ctx context.Context, b *build, er *engine.Route, vt *engine.VehicleType, path travel.PathAPI) string {
	pts := make([]geo.Point, 0, len(er.Visits)+2)
	pts = append(pts, b.points[vt.StartDepot])
	for _, l := range er.Visits {
		pts = append(pts, b.points[l])
	}
	if !b.openEnd {
		pts = append(pts, b.points[vt.EndDepot])
	}
	g, err := path.Route(ctx, pts)
	if err != nil {
		return ""
	}
	return g
}

func ptr[T any](v T) *T { return &v }

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
