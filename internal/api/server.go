package api

import (
	"strings"

	"github.com/sirupsen/logrus"

	"fleetopt/internal/config"
	"fleetopt/internal/engine"
	"fleetopt/internal/osrm"
	"fleetopt/internal/solve"
	"fleetopt/internal/store"
	"fleetopt/internal/trace"
	"fleetopt/internal/travel"
)

type Server struct {
	Store  store.Store
	Broker EventBroker
	Log    logrus.FieldLogger

	engine engine.Engine
	table  travel.TableAPI
	path   travel.PathAPI
}

// NewServer wires the service from configuration: Postgres or in-memory
// history, Redis or in-process event fanout, and the OSRM client when a base
// URL is configured.
func NewServer(cfg config.Config, log logrus.FieldLogger) (*Server, error) {
	var st store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		st = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st = sp
	}

	var broker EventBroker
	if cfg.RedisURL != "" {
		rb, err := NewRedisBroker(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("redis broker unavailable, using in-process broker")
			broker = NewBroker()
		} else {
			broker = rb
		}
	} else {
		broker = NewBroker()
	}

	s := &Server{
		Store:  st,
		Broker: broker,
		Log:    log,
		engine: engine.NewALNS(),
	}
	if cfg.OSRMURL != "" {
		c := osrm.NewClient(cfg.OSRMURL, cfg.OSRMTimeout, log)
		s.table = c
		s.path = c
	}
	return s, nil
}

// planner builds a per-request pipeline carrying the request's tracer.
func (s *Server) planner(tr trace.Tracer) *solve.Planner {
	return &solve.Planner{Engine: s.engine, Table: s.table, Path: s.path, Tracer: tr}
}

func (s *Server) engineName() string {
	if n, ok := s.engine.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "unknown"
}
