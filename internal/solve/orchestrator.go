package solve

import (
	"context"
	"errors"
	"sync"
	"time"

	"fleetopt/internal/engine"
	"fleetopt/internal/model"
	"fleetopt/internal/trace"
)

const (
	defaultBudget = 60 * time.Second
	minRunBudget  = 5 * time.Second
	multiStarts   = 3
	// singleRunMax is the instance size at or below which one run suffices.
	singleRunMax = 10
)

// searchBudget adapts the configured timeout to the instance size: small
// instances converge fast and never get the full budget.
func searchBudget(orderCount, timeoutSeconds int) time.Duration {
	base := defaultBudget
	if timeoutSeconds > 0 {
		base = time.Duration(timeoutSeconds) * time.Second
	}
	var ceil time.Duration
	switch {
	case orderCount <= 3:
		ceil = 5 * time.Second
	case orderCount <= 10:
		ceil = 15 * time.Second
	case orderCount <= 30:
		ceil = 30 * time.Second
	case orderCount <= 100:
		ceil = 60 * time.Second
	default:
		return base
	}
	if base < ceil {
		return base
	}
	return ceil
}

// runSeed derives the deterministic seed for a multi-start run.
func runSeed(run int) int64 { return int64(run)*42 + 1 }

// objectiveCost scores a solution under the configured objective.
func objectiveCost(sol *engine.Solution, objective string) int64 {
	switch objective {
	case model.ObjectiveDistance:
		return sol.Distance
	case model.ObjectiveTime:
		return sol.Duration
	default:
		return sol.Distance + sol.Duration
	}
}

// orchestrate runs the engine once for small instances, or three concurrent
// seeded runs for larger ones, and keeps the feasible solution with the
// lowest objective cost. Every run infeasible yields ErrNoSolution.
func orchestrate(ctx context.Context, eng engine.Engine, b *build, cfg *model.Config, tr trace.Tracer) (*engine.Solution, error) {
	total := searchBudget(len(b.orders), cfg.TimeoutSeconds)

	if len(b.orders) <= singleRunMax {
		sol, err := eng.Solve(ctx, b.problem, runSeed(0), total)
		if err != nil {
			return nil, err
		}
		tr.Event("search.completed", map[string]any{
			"runs": 1, "budget_s": total.Seconds(), "cost": objectiveCost(sol, cfg.Objective),
		})
		return sol, nil
	}

	perRun := total / multiStarts
	if perRun < minRunBudget {
		perRun = minRunBudget
	}

	sols := make([]*engine.Solution, multiStarts)
	errs := make([]error, multiStarts)
	var wg sync.WaitGroup
	for run := 0; run < multiStarts; run++ {
		wg.Add(1)
		go func(run int) {
			defer wg.Done()
			runCtx, cancel := context.WithTimeout(ctx, perRun)
			defer cancel()
			sols[run], errs[run] = eng.Solve(runCtx, b.problem, runSeed(run), perRun)
		}(run)
	}
	wg.Wait()

	var best *engine.Solution
	var bestCost int64
	feasible := 0
	for run := 0; run < multiStarts; run++ {
		if errs[run] != nil {
			if !errors.Is(errs[run], engine.ErrNoSolution) {
				return nil, errs[run]
			}
			continue
		}
		feasible++
		c := objectiveCost(sols[run], cfg.Objective)
		if best == nil || c < bestCost {
			best = sols[run]
			bestCost = c
		}
	}
	tr.Event("search.completed", map[string]any{
		"runs": multiStarts, "feasible": feasible, "per_run_s": perRun.Seconds(),
	})
	if best == nil {
		return nil, engine.ErrNoSolution
	}
	return best, nil
}
