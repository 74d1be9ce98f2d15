// Package engine defines the optimization model handed to the search engine
// and the engine contract itself. The solve pipeline treats any Engine as a
// black box: model in, best-known solution (or ErrNoSolution) out, within a
// time budget.
package engine

import (
	"context"
	"errors"
	"time"
)

// ErrNoSolution is returned when no feasible solution was found within the
// budget.
var ErrNoSolution = errors.New("no feasible solution")

// Depot is a route start/end location in projected planar coordinates.
type Depot struct {
	X, Y    int
	TWStart int64 // seconds from midnight
	TWEnd   int64
}

// VehicleType describes one usable route slot.
type VehicleType struct {
	Name             string // opaque to the engine, round-trips to the caller
	Capacity         []int64
	StartDepot       int // index into Problem.Depots
	EndDepot         int
	TWStart          int64
	TWEnd            int64
	UnitDistanceCost int64
	UnitDurationCost int64
	FixedCost        int64 // charged when the vehicle serves at least one client
}

// Client is a deliverable stop.
type Client struct {
	Name       string
	X, Y       int
	Delivery   []int64
	ServiceSec int64
	TWStart    int64
	TWEnd      int64
	Prize      int64 // bias toward keeping the stop, does not force inclusion
	Required   bool
}

// Problem is a fully assembled optimization model. Locations are indexed
// depots first, then clients; the edge matrices are square over that joint
// index space and must not be mutated once the solve starts.
type Problem struct {
	Depots   []Depot
	Vehicles []VehicleType
	Clients  []Client

	Distance [][]int64
	Duration [][]int64
}

// NumLocations is the joint location count (depots + clients).
func (p *Problem) NumLocations() int { return len(p.Depots) + len(p.Clients) }

// ClientLoc maps a client index to its location index.
func (p *Problem) ClientLoc(i int) int { return len(p.Depots) + i }

// Route is one vehicle's visit sequence in a solution. Visits are location
// indices (always >= len(Depots)).
type Route struct {
	Vehicle int // index into Problem.Vehicles
	Visits  []int
}

// Solution is a feasible assignment with aggregate travel totals. Distance is
// meters; Duration is elapsed route seconds including waiting and service.
type Solution struct {
	Routes   []Route
	Distance int64
	Duration int64
}

// Engine finds route assignments for a Problem.
type Engine interface {
	Solve(ctx context.Context, p *Problem, seed int64, budget time.Duration) (*Solution, error)
}
