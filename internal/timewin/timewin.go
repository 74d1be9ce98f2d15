// Package timewin resolves the loosely typed time-window strings accepted on
// the wire ("HH:MM", "HH:MM:SS", or a full timestamp) into seconds from
// midnight.
package timewin

import (
	"fmt"
	"time"
)

// FullDay is the upper bound of an unconstrained window, in seconds.
const FullDay = 24 * 3600

// FlexTolerance is the widening applied to each bound when flexible time
// windows are enabled (30 minutes).
const FlexTolerance = 1800

// Window is a validated [Start, End] range in seconds from midnight.
type Window struct {
	Start int
	End   int
}

// Timestamps carrying a zone offset keep their wall-clock time; the offset is
// stripped, not converted.
var layouts = []string{
	"15:04",
	"15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999Z07:00",
}

// Parse resolves an optional start/end pair. Both absent yields the full-day
// window (0, 86400). A string that matches no accepted layout is an error,
// never a silent zero.
func Parse(start, end *string) (Window, error) {
	w := Window{Start: 0, End: FullDay}
	if start != nil && *start != "" {
		s, err := SecondsOfDay(*start)
		if err != nil {
			return Window{}, fmt.Errorf("time window start: %w", err)
		}
		w.Start = s
	}
	if end != nil && *end != "" {
		e, err := SecondsOfDay(*end)
		if err != nil {
			return Window{}, fmt.Errorf("time window end: %w", err)
		}
		w.End = e
	}
	return w, nil
}

// SecondsOfDay extracts the time-of-day component of s as seconds from
// midnight.
func SecondsOfDay(s string) (int, error) {
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		h, m, sec := t.Clock()
		return h*3600 + m*60 + sec, nil
	}
	return 0, fmt.Errorf("unrecognized time %q", s)
}

// Widen expands the window by tol seconds on both ends, flooring the lower
// bound at zero.
func (w Window) Widen(tol int) Window {
	start := w.Start - tol
	if start < 0 {
		start = 0
	}
	return Window{Start: start, End: w.End + tol}
}
