// Package solve is the request-to-model translation and solution-reconstruction
// pipeline: it turns a solve request into an optimization problem, drives the
// search engine under a time budget, and rebuilds human-consumable routes from
// the winning solution.
package solve

import (
	"context"
	"errors"
	"fmt"
	"math"

	"fleetopt/internal/capacity"
	"fleetopt/internal/engine"
	"fleetopt/internal/geo"
	"fleetopt/internal/model"
	"fleetopt/internal/timewin"
	"fleetopt/internal/trace"
	"fleetopt/internal/travel"
)

// ErrBadInput marks request data the pipeline cannot translate, such as an
// unparseable time window. Callers map it to a client error.
var ErrBadInput = errors.New("bad input")

// Fixed per-vehicle activation cost when minimize_vehicles is set. Large
// enough to discourage spare vehicles without dominating route shape.
const minimizeVehiclesCost = 100_000

// prizePerPriority converts an order's priority into a solver prize.
const prizePerPriority = 1000

// build holds the assembled problem plus everything reconstruction needs to
// map solver indices back onto request entities. It is immutable once
// assembled.
type build struct {
	problem *engine.Problem
	orders  []model.Order // feasible orders; client i corresponds to orders[i]
	oracle  *travel.Oracle
	points  []geo.Point // joint location list, depots first

	vehicleStart []int
	vehicleEnd   []int
	openEnd      bool
	depotOpen    int64 // seconds from midnight; anchors the arrival clock
}

// buildModel assembles the optimization problem for the feasible orders. The
// distance oracle is resolved exactly once here and shared with
// reconstruction.
func buildModel(ctx context.Context, req *model.SolveRequest, feasible []model.Order, table travel.TableAPI, tr trace.Tracer) (*build, error) {
	cfg := &req.Config

	depotWindow, err := timewin.Parse(cfg.Depot.TimeWindowStart, cfg.Depot.TimeWindowEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: depot: %v", ErrBadInput, err)
	}

	// Depot registry: main depot is always index 0, then one depot per
	// distinct vehicle origin. Every depot shares the configured window.
	depotPoints := []geo.Point{{Lat: cfg.Depot.Lat, Lng: cfg.Depot.Lng}}
	depotIndex := map[[2]float64]int{geo.Key(depotPoints[0]): 0}
	vehicleStart := make([]int, len(req.Vehicles))
	for i := range req.Vehicles {
		v := &req.Vehicles[i]
		if v.OriginLat == nil || v.OriginLng == nil {
			vehicleStart[i] = 0
			continue
		}
		p := geo.Point{Lat: *v.OriginLat, Lng: *v.OriginLng}
		key := geo.Key(p)
		idx, ok := depotIndex[key]
		if !ok {
			idx = len(depotPoints)
			depotPoints = append(depotPoints, p)
			depotIndex[key] = idx
		}
		vehicleStart[i] = idx
	}

	endMode := cfg.EndMode()
	openEnd := endMode == model.RouteEndOpen
	vehicleEnd := make([]int, len(req.Vehicles))
	for i := range req.Vehicles {
		switch endMode {
		case model.RouteEndReturnToDepot, model.RouteEndSpecificDepot:
			vehicleEnd[i] = 0
		default:
			// DRIVER_ORIGIN, OPEN_END, or anything unrecognized. OPEN_END
			// still needs a modeled end depot; reconstruction drops the leg.
			vehicleEnd[i] = vehicleStart[i]
		}
	}

	dims := capacity.ActiveDimensions(feasible)
	balancedCap := 0
	if cfg.BalanceVisits {
		balancedCap = capacity.BalancedOrderCap(len(feasible), len(req.Vehicles))
	}

	speedMult := travel.SpeedMultiplier(cfg.Traffic())
	depotOpen := int64(depotWindow.Start)
	twStart := depotOpen
	if cfg.OpenStart {
		twStart = 0
	}
	// Distance/duration ceilings shorten the shift from the depot's opening
	// time, even when open_start lets vehicles leave earlier.
	twEnd := int64(depotWindow.End)
	if cfg.MaxDistanceKm != nil && *cfg.MaxDistanceKm > 0 {
		// Approximate a distance ceiling as a shift-length ceiling at the
		// traffic-adjusted assumed speed.
		travelSec := *cfg.MaxDistanceKm * 1000 / (travel.DefaultSpeedMPS * speedMult)
		if limit := depotOpen + int64(math.Round(travelSec)); limit < twEnd {
			twEnd = limit
		}
	}
	if cfg.MaxTravelTimeMinutes != nil && *cfg.MaxTravelTimeMinutes > 0 {
		if limit := depotOpen + int64(math.Round(*cfg.MaxTravelTimeMinutes*60)); limit < twEnd {
			twEnd = limit
		}
	}

	var unitDist, unitDur int64
	switch cfg.Objective {
	case model.ObjectiveDistance:
		unitDist, unitDur = 1, 0
	case model.ObjectiveTime:
		unitDist, unitDur = 0, 1
	default:
		unitDist, unitDur = 1, 1
	}
	var fixedCost int64
	if cfg.MinimizeVehicles {
		fixedCost = minimizeVehiclesCost
	}

	p := &engine.Problem{}
	refLat := cfg.Depot.Lat
	for _, dp := range depotPoints {
		x, y := geo.Project(dp, refLat)
		p.Depots = append(p.Depots, engine.Depot{
			X: x, Y: y,
			TWStart: int64(depotWindow.Start),
			TWEnd:   int64(depotWindow.End),
		})
	}
	for i := range req.Vehicles {
		v := &req.Vehicles[i]
		orderCap := capacity.EffectiveOrderCap(balancedCap, v)
		p.Vehicles = append(p.Vehicles, engine.VehicleType{
			Name:             v.ID,
			Capacity:         capacity.CapacityVector(v, dims, orderCap),
			StartDepot:       vehicleStart[i],
			EndDepot:         vehicleEnd[i],
			TWStart:          twStart,
			TWEnd:            twEnd,
			UnitDistanceCost: unitDist,
			UnitDurationCost: unitDur,
			FixedCost:        fixedCost,
		})
	}

	for i := range feasible {
		o := &feasible[i]
		w, err := timewin.Parse(o.TimeWindowStart, o.TimeWindowEnd)
		if err != nil {
			return nil, fmt.Errorf("%w: order %s: %v", ErrBadInput, o.ID, err)
		}
		if cfg.FlexibleTimeWindows {
			w = w.Widen(timewin.FlexTolerance)
		}
		x, y := geo.Project(geo.Point{Lat: o.Lat, Lng: o.Lng}, refLat)
		var prize int64
		if o.Priority != nil && *o.Priority > 0 {
			prize = int64(*o.Priority) * prizePerPriority
		}
		p.Clients = append(p.Clients, engine.Client{
			Name:       o.ID,
			X:          x,
			Y:          y,
			Delivery:   capacity.DeliveryVector(o, dims),
			ServiceSec: int64(o.ServiceSeconds()),
			TWStart:    int64(w.Start),
			TWEnd:      int64(w.End),
			Prize:      prize,
			Required:   true,
		})
	}

	points := make([]geo.Point, 0, len(depotPoints)+len(feasible))
	points = append(points, depotPoints...)
	for i := range feasible {
		points = append(points, geo.Point{Lat: feasible[i].Lat, Lng: feasible[i].Lng})
	}
	oracle := travel.NewOracle(ctx, table, points, cfg.Traffic(), tr)

	n := len(points)
	p.Distance = make([][]int64, n)
	p.Duration = make([][]int64, n)
	for i := 0; i < n; i++ {
		p.Distance[i] = make([]int64, n)
		p.Duration[i] = make([]int64, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			leg := oracle.Leg(i, j)
			p.Distance[i][j] = int64(math.Round(leg.DistanceM))
			p.Duration[i][j] = int64(math.Round(leg.DurationS))
		}
	}

	tr.Event("model.assembled", map[string]any{
		"depots":     len(p.Depots),
		"vehicles":   len(p.Vehicles),
		"clients":    len(p.Clients),
		"dimensions": len(dims),
		"fallback":   oracle.Fallback(),
	})

	return &build{
		problem:      p,
		orders:       feasible,
		oracle:       oracle,
		points:       points,
		vehicleStart: vehicleStart,
		vehicleEnd:   vehicleEnd,
		openEnd:      openEnd,
		depotOpen:    depotOpen,
	}, nil
}

// skillFilter splits orders into those servable by at least one vehicle and
// unassigned entries for the rest. Skills are a hard pre-filter, never a
// solver dimension.
func skillFilter(orders []model.Order, vehicles []model.Vehicle) (feasible []model.Order, unassigned []model.UnassignedOrder) {
	for i := range orders {
		o := &orders[i]
		if len(o.Skills) == 0 || anyVehicleHasSkills(vehicles, o.Skills) {
			feasible = append(feasible, *o)
			continue
		}
		unassigned = append(unassigned, model.UnassignedOrder{
			OrderID:    o.ID,
			TrackingID: o.TrackingID,
			Reason:     "No vehicle has required skills: " + joinSkills(o.Skills),
		})
	}
	return feasible, unassigned
}

func anyVehicleHasSkills(vehicles []model.Vehicle, required []string) bool {
	for i := range vehicles {
		have := make(map[string]bool, len(vehicles[i].Skills))
		for _, s := range vehicles[i].Skills {
			have[s] = true
		}
		ok := true
		for _, s := range required {
			if !have[s] {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func joinSkills(skills []string) string {
	out := ""
	for i, s := range skills {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
