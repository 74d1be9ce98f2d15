package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"fleetopt/internal/buildinfo"
	"fleetopt/internal/metrics"
	"fleetopt/internal/model"
	"fleetopt/internal/solve"
	"fleetopt/internal/store"
	"fleetopt/internal/trace"
)

// brokerTracer forwards every pipeline stage event to the solve's event
// channel, so watchers see progress live.
type brokerTracer struct {
	broker  EventBroker
	solveID string
}

func (t brokerTracer) Event(stage string, fields map[string]any) {
	t.broker.Publish(t.solveID, Event{Type: stage, Data: fields})
}

// fallbackWatch notes whether the matrix came from geodesic fallback.
type fallbackWatch struct {
	fallback bool
}

func (f *fallbackWatch) Event(stage string, fields map[string]any) {
	if stage == "matrix.resolved" && fields["source"] == "geodesic" {
		f.fallback = true
	}
}

// SolveHandler handles POST /v1/solve
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateSolveRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
		return
	}

	// A caller may pre-pick the solve id to watch events while the solve
	// runs; anything that is not a UUID is replaced.
	solveID := r.Header.Get("X-Solve-Id")
	if _, err := uuid.Parse(solveID); err != nil {
		solveID = uuid.New().String()
	}
	log := s.Log.WithField("solve_id", solveID)
	watch := &fallbackWatch{}
	tr := trace.Multi(trace.Logrus(log), brokerTracer{broker: s.Broker, solveID: solveID}, watch)

	started := time.Now()
	resp, err := s.planner(tr).Solve(r.Context(), &req)
	if err != nil {
		if errors.Is(err, solve.ErrBadInput) {
			writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
			return
		}
		log.WithError(err).Error("solve failed")
		writeProblem(w, http.StatusInternalServerError, "Solve failed", err.Error(), r.URL.Path)
		return
	}

	objective := req.Config.Objective
	if objective == "" {
		objective = model.ObjectiveBalanced
	}
	metrics.SolveDuration.WithLabelValues(objective).Observe(time.Since(started).Seconds())
	metrics.SolveOrders.WithLabelValues("routed").Add(float64(resp.Metrics.TotalStops))
	metrics.SolveOrders.WithLabelValues("unassigned").Add(float64(len(resp.Unassigned)))
	if watch.fallback {
		metrics.MatrixFallbacks.Inc()
	}

	rec := store.SolveRecord{
		ID:            solveID,
		Objective:     objective,
		Orders:        len(req.Orders),
		Vehicles:      len(req.Vehicles),
		Routes:        resp.Metrics.TotalRoutes,
		Stops:         resp.Metrics.TotalStops,
		Unassigned:    len(resp.Unassigned),
		TotalDistance: resp.Metrics.TotalDistance,
		TotalDuration: resp.Metrics.TotalDuration,
		BalanceScore:  resp.Metrics.BalanceScore,
		ComputingMs:   resp.Metrics.ComputingTimeMs,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.Store.SaveSolve(r.Context(), rec); err != nil {
		log.WithError(err).Warn("save solve record failed")
	}

	w.Header().Set("X-Solve-Id", solveID)
	writeJSON(w, http.StatusOK, resp)
}

// SolvesHandler handles GET /v1/solves
func (s *Server) SolvesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	items, err := s.Store.ListSolves(r.Context(), limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List solves failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// SolveByIDHandler handles GET /v1/solves/{id} and /v1/solves/{id}/events/ws
func (s *Server) SolveByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/solves/")
	if id, ok := strings.CutSuffix(rest, "/events/ws"); ok {
		s.solveEventsWS(w, r, id)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rec, err := s.Store.GetSolve(r.Context(), rest)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "no solve with id "+rest, r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get solve failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HealthHandler reports engine identity and build version.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	info := buildinfo.Info()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"engine":  s.engineName(),
		"version": info["version"],
		"commit":  info["commit"],
	})
}

type pinger interface {
	Ping(ctx context.Context) error
}

// ReadyHandler reports dependency reachability.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.Store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}
