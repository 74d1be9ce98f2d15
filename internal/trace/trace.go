// Package trace is the pipeline's observability seam: each stage emits one
// structured event through a Tracer, decoupled from any concrete sink.
package trace

import "github.com/sirupsen/logrus"

// Tracer receives one event per pipeline stage.
type Tracer interface {
	Event(stage string, fields map[string]any)
}

type nop struct{}

func (nop) Event(string, map[string]any) {}

// Nop returns a tracer that discards everything.
func Nop() Tracer { return nop{} }

type logrusTracer struct {
	log logrus.FieldLogger
}

// Logrus returns a tracer that logs each stage event at info level.
func Logrus(log logrus.FieldLogger) Tracer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &logrusTracer{log: log}
}

func (t *logrusTracer) Event(stage string, fields map[string]any) {
	t.log.WithFields(logrus.Fields(fields)).Info(stage)
}

type multi struct {
	tracers []Tracer
}

// Multi fans each event out to every given tracer.
func Multi(tracers ...Tracer) Tracer { return &multi{tracers: tracers} }

func (m *multi) Event(stage string, fields map[string]any) {
	for _, t := range m.tracers {
		t.Event(stage, fields)
	}
}
