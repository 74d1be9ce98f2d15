// Package store persists solve history: one summary row per completed solve,
// queryable for operational review. The full route payload is not persisted;
// responses are request-scoped artifacts.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a solve id has no recorded summary.
var ErrNotFound = errors.New("solve not found")

// SolveRecord is the persisted summary of one solve request.
type SolveRecord struct {
	ID            string    `json:"id"`
	Objective     string    `json:"objective"`
	Orders        int       `json:"orders"`
	Vehicles      int       `json:"vehicles"`
	Routes        int       `json:"routes"`
	Stops         int       `json:"stops"`
	Unassigned    int       `json:"unassigned"`
	TotalDistance float64   `json:"total_distance"`
	TotalDuration float64   `json:"total_duration"`
	BalanceScore  *float64  `json:"balance_score,omitempty"`
	ComputingMs   float64   `json:"computing_time_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

type Store interface {
	SaveSolve(ctx context.Context, rec SolveRecord) error
	GetSolve(ctx context.Context, id string) (SolveRecord, error)
	// ListSolves returns the most recent records, newest first.
	ListSolves(ctx context.Context, limit int) ([]SolveRecord, error)
	Close() error
}
