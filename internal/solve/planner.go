package solve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetopt/internal/engine"
	"fleetopt/internal/model"
	"fleetopt/internal/trace"
	"fleetopt/internal/travel"
)

// Planner wires the pipeline's collaborators. Table and Path may be nil; the
// pipeline then runs entirely on geodesic estimates and skips geometry.
type Planner struct {
	Engine engine.Engine
	Table  travel.TableAPI
	Path   travel.PathAPI
	Tracer trace.Tracer
}

// Solve runs the full pipeline for one request. Infeasibility is never an
// error: orders that cannot be routed come back unassigned with a reason. An
// error return means the request itself was unusable or the engine failed
// unexpectedly.
func (pl *Planner) Solve(ctx context.Context, req *model.SolveRequest) (*model.SolveResponse, error) {
	started := time.Now()
	tr := pl.Tracer
	if tr == nil {
		tr = trace.Nop()
	}

	if len(req.Orders) == 0 {
		return emptyResponse(started), nil
	}
	if len(req.Vehicles) == 0 {
		return allUnassignedResponse(req.Orders, reasonNoVehicles, nil, started), nil
	}

	feasible, skillUnassigned := skillFilter(req.Orders, req.Vehicles)
	tr.Event("orders.filtered", map[string]any{
		"orders": len(req.Orders), "feasible": len(feasible), "skill_rejected": len(skillUnassigned),
	})
	if len(feasible) == 0 {
		return &model.SolveResponse{
			Routes:     []model.Route{},
			Unassigned: skillUnassigned,
			Metrics:    model.Metrics{ComputingTimeMs: round1(float64(time.Since(started).Microseconds()) / 1000)},
		}, nil
	}

	b, err := buildModel(ctx, req, feasible, pl.Table, tr)
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}

	sol, err := orchestrate(ctx, pl.Engine, b, &req.Config, tr)
	if errors.Is(err, engine.ErrNoSolution) {
		return allUnassignedResponse(feasible, reasonUnroutable, skillUnassigned, started), nil
	}
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	routes := reconstruct(ctx, b, sol, req, pl.Path, tr)
	resp := assemble(b, routes, skillUnassigned, started)
	tr.Event("solve.completed", map[string]any{
		"routes":     resp.Metrics.TotalRoutes,
		"stops":      resp.Metrics.TotalStops,
		"unassigned": len(resp.Unassigned),
		"ms":         resp.Metrics.ComputingTimeMs,
	})
	return resp, nil
}
