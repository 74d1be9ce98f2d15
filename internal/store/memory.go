package store

import (
	"context"
	"sync"
)

// memoryCap bounds retained history when running without a database.
const memoryCap = 1000

// Memory is the default store when no database is configured.
type Memory struct {
	mu   sync.RWMutex
	recs []SolveRecord
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) SaveSolve(_ context.Context, rec SolveRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	if len(m.recs) > memoryCap {
		m.recs = m.recs[len(m.recs)-memoryCap:]
	}
	return nil
}

func (m *Memory) GetSolve(_ context.Context, id string) (SolveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.recs) - 1; i >= 0; i-- {
		if m.recs[i].ID == id {
			return m.recs[i], nil
		}
	}
	return SolveRecord{}, ErrNotFound
}

func (m *Memory) ListSolves(_ context.Context, limit int) ([]SolveRecord, error) {
	if limit <= 0 || limit > memoryCap {
		limit = 100
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []SolveRecord{}
	for i := len(m.recs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.recs[i])
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
