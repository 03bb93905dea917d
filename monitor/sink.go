package monitor

import (
	"context"
	"time"

	"github.com/jnesss/mptevents/decode"
	"github.com/jnesss/mptevents/mpi"
)

// Severity of an emitted event line.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "info"
}

// Event is one decoded record on its way to a log destination.
type Event struct {
	Controller  mpi.Controller
	Time        time.Time
	Severity    Severity
	Description decode.Description

	// Text replaces the decoded lines when set. Alerts derived from an event use it.
	Text string
}

// Lines returns the text lines a sink writes for the event.
func (e Event) Lines() []string {
	if e.Text != "" {
		return []string{e.Text}
	}
	return e.Description.Lines()
}

// Sink receives decoded events. Implementations must be safe for concurrent
// use when shared between controller loops.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Emit(ctx context.Context, ev Event) error { return f(ctx, ev) }

type discard struct{}

func (discard) Emit(context.Context, Event) error { return nil }

// Discard drops every event. Used as the baseline sink to skip events that
// were already in the log at startup.
var Discard Sink = discard{}
