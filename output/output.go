// Package output holds the log destinations decoded events are written to.
package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jnesss/mptevents/monitor"
)

// TimeLayout prefixes every console line.
const TimeLayout = "2006-01-02 15:04:05"

// Console writes one timestamped line per event line.
type Console struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewConsole returns a console sink writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, now: time.Now}
}

func (c *Console) Emit(ctx context.Context, ev monitor.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.now().Format(TimeLayout)
	for _, line := range ev.Lines() {
		if _, err := fmt.Fprintf(c.w, "%s %s\n", ts, line); err != nil {
			return err
		}
	}
	return nil
}

// Write formats an operational message like an event line, so the console can
// back the daemon's log.Logger in stdout mode.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.w, "%s %s", c.now().Format(TimeLayout), p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Plain writes event lines with no timestamp. The offline replay tool uses it.
type Plain struct {
	mu sync.Mutex
	w  io.Writer
}

func NewPlain(w io.Writer) *Plain { return &Plain{w: w} }

func (p *Plain) Emit(ctx context.Context, ev monitor.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, line := range ev.Lines() {
		if _, err := fmt.Fprintln(p.w, line); err != nil {
			return err
		}
	}
	return nil
}

// Multi fans an event out to several sinks, returning the joined errors.
type Multi []monitor.Sink

func (m Multi) Emit(ctx context.Context, ev monitor.Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
