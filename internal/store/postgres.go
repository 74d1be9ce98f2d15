package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type Postgres struct {
	db *sql.DB
}

const solvesSchema = `
CREATE TABLE IF NOT EXISTS solves (
    id                TEXT PRIMARY KEY,
    objective         TEXT NOT NULL,
    orders            INT NOT NULL,
    vehicles          INT NOT NULL,
    routes            INT NOT NULL,
    stops             INT NOT NULL,
    unassigned        INT NOT NULL,
    total_distance    DOUBLE PRECISION NOT NULL,
    total_duration    DOUBLE PRECISION NOT NULL,
    balance_score     DOUBLE PRECISION,
    computing_time_ms DOUBLE PRECISION NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL
)`

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := db.Exec(solvesSchema); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) SaveSolve(ctx context.Context, rec SolveRecord) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO solves
        (id, objective, orders, vehicles, routes, stops, unassigned, total_distance, total_duration, balance_score, computing_time_ms, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		rec.ID, rec.Objective, rec.Orders, rec.Vehicles, rec.Routes, rec.Stops, rec.Unassigned,
		rec.TotalDistance, rec.TotalDuration, rec.BalanceScore, rec.ComputingMs, rec.CreatedAt)
	return err
}

func (p *Postgres) GetSolve(ctx context.Context, id string) (SolveRecord, error) {
	row := p.db.QueryRowContext(ctx, `SELECT id, objective, orders, vehicles, routes, stops, unassigned,
        total_distance, total_duration, balance_score, computing_time_ms, created_at
        FROM solves WHERE id = $1`, id)
	rec, err := scanSolve(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SolveRecord{}, ErrNotFound
	}
	return rec, err
}

func (p *Postgres) ListSolves(ctx context.Context, limit int) ([]SolveRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `SELECT id, objective, orders, vehicles, routes, stops, unassigned,
        total_distance, total_duration, balance_score, computing_time_ms, created_at
        FROM solves ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []SolveRecord{}
	for rows.Next() {
		rec, err := scanSolve(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error { return p.db.Close() }

// Ping reports database reachability for the readiness endpoint.
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

type scanner interface {
	Scan(dest ...any) error
}

func scanSolve(s scanner) (SolveRecord, error) {
	var rec SolveRecord
	var balance sql.NullFloat64
	err := s.Scan(&rec.ID, &rec.Objective, &rec.Orders, &rec.Vehicles, &rec.Routes, &rec.Stops,
		&rec.Unassigned, &rec.TotalDistance, &rec.TotalDuration, &balance, &rec.ComputingMs, &rec.CreatedAt)
	if err != nil {
		return SolveRecord{}, err
	}
	if balance.Valid {
		rec.BalanceScore = &balance.Float64
	}
	return rec, nil
}
