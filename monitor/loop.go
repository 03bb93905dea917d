package monitor

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/jnesss/mptevents/mpi"
)

// DefaultBusyBackoff is the pause after the controller reports busy.
const DefaultBusyBackoff = time.Second

// Fetcher is the device side of the loop.
type Fetcher interface {
	// EnableEvents turns on every event class for ctrl.
	EnableEvents(ctx context.Context, ctrl mpi.Controller) error
	// Fetch returns the whole event log of ctrl. Transient failures are
	// reported as ErrInterrupted or ErrBusy.
	Fetch(ctx context.Context, ctrl mpi.Controller) (*mpi.Snapshot, error)
}

// Waiter blocks until the device signals that new events may be available or
// ctx is done.
type Waiter interface {
	Wait(ctx context.Context) error
}

// WaiterFunc adapts a function to Waiter.
type WaiterFunc func(ctx context.Context) error

func (f WaiterFunc) Wait(ctx context.Context) error { return f(ctx) }

// State of a poll loop.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateScanning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateScanning:
		return "scanning"
	default:
		return "stopped"
	}
}

// Status is a point-in-time view of a loop.
type Status struct {
	Controller      mpi.Controller `json:"-"`
	ControllerID    int            `json:"controller_id"`
	ControllerType  string         `json:"controller_type"`
	State           string         `json:"state"`
	HighestReported uint32         `json:"highest_reported"`
	FirstScanDone   bool           `json:"first_scan_done"`
	Fetches         uint64         `json:"fetches"`
	Emitted         uint64         `json:"emitted"`
	Busy            uint64         `json:"busy"`
	Interrupted     uint64         `json:"interrupted"`
	LastError       string         `json:"last_error,omitempty"`
	LastScan        time.Time      `json:"last_scan"`
}

// LoopConfig wires a Loop. Controller, Fetcher, Waiter and Sink are required.
type LoopConfig struct {
	Controller mpi.Controller
	Fetcher    Fetcher
	Waiter     Waiter
	Sink       Sink

	// BaselineSink receives the events of the first successful scan. Nil
	// means Sink; Discard skips events already resident at startup.
	BaselineSink Sink

	Backoff time.Duration                              // default DefaultBusyBackoff
	Sleep   func(ctx context.Context, d time.Duration) // default sleeps until d or ctx done
	Now     func() time.Time
	Logger  *log.Logger
}

// Loop drives one controller: baseline fetch, then wait, fetch, scan until
// the context ends or the device fails.
type Loop struct {
	cfg     LoopConfig
	session *Session

	mu     sync.Mutex
	status Status
}

// NewLoop returns a loop with a fresh session for cfg.Controller.
func NewLoop(cfg LoopConfig) *Loop {
	if cfg.BaselineSink == nil {
		cfg.BaselineSink = cfg.Sink
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBusyBackoff
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Loop{
		cfg:     cfg,
		session: NewSession(cfg.Controller),
		status: Status{
			Controller:     cfg.Controller,
			ControllerID:   cfg.Controller.ID,
			ControllerType: cfg.Controller.Type.String(),
			State:          StateIdle.String(),
		},
	}
}

// Run blocks until ctx is cancelled, returning nil, or until a fatal device
// error, returning a *FetchError.
func (l *Loop) Run(ctx context.Context) error {
	ctrl := l.cfg.Controller
	defer l.setState(StateStopped)

	if err := l.cfg.Fetcher.EnableEvents(ctx, ctrl); err != nil {
		l.cfg.Logger.Printf("%s: enabling events failed, monitoring anyway: %v", ctrl, err)
	}

	for first := true; ; first = false {
		if !first {
			l.setState(StateIdle)
			if err := l.cfg.Waiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if errors.Is(err, ErrInterrupted) {
					continue
				}
				return l.fail(&FetchError{Controller: ctrl, Op: "wait", Err: err})
			}
		}
		if ctx.Err() != nil {
			return nil
		}

		err := l.poll(ctx)
		switch Classify(err) {
		case ClassNone:
		case ClassInterrupted:
			l.count(func(s *Status) { s.Interrupted++ })
		case ClassBusy:
			l.count(func(s *Status) { s.Busy++ })
			l.cfg.Sleep(ctx, l.cfg.Backoff)
		default:
			if ctx.Err() != nil {
				return nil
			}
			var fe *FetchError
			if !errors.As(err, &fe) {
				fe = &FetchError{Controller: ctrl, Op: "fetch", Err: err}
			}
			l.cfg.Logger.Printf("%s: reading events failed: %v", ctrl, fe.Err)
			return l.fail(fe)
		}
	}
}

// poll performs one fetch and scan. The session only changes on success.
func (l *Loop) poll(ctx context.Context) error {
	l.setState(StateFetching)
	l.count(func(s *Status) { s.Fetches++ })

	snap, err := l.cfg.Fetcher.Fetch(ctx, l.cfg.Controller)
	if err != nil {
		return err
	}

	l.setState(StateScanning)
	sink := l.cfg.Sink
	if !l.session.FirstScanDone {
		sink = l.cfg.BaselineSink
	}
	fresh := l.session.Scan(snap)
	now := l.cfg.Now()
	for _, desc := range fresh {
		ev := Event{
			Controller:  l.cfg.Controller,
			Time:        now,
			Severity:    SeverityInfo,
			Description: desc,
		}
		if err := sink.Emit(ctx, ev); err != nil {
			l.cfg.Logger.Printf("%s: emitting context %d: %v", l.cfg.Controller, desc.Context, err)
		}
	}

	l.mu.Lock()
	l.status.HighestReported = l.session.HighestReported
	l.status.FirstScanDone = l.session.FirstScanDone
	l.status.Emitted += uint64(len(fresh))
	l.status.LastScan = now
	l.mu.Unlock()
	return nil
}

// Status returns a copy of the loop's current status.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Controller returns the controller this loop monitors.
func (l *Loop) Controller() mpi.Controller { return l.cfg.Controller }

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.status.State = s.String()
	l.mu.Unlock()
}

func (l *Loop) count(f func(*Status)) {
	l.mu.Lock()
	f(&l.status)
	l.mu.Unlock()
}

func (l *Loop) fail(err *FetchError) error {
	l.mu.Lock()
	l.status.LastError = err.Error()
	l.mu.Unlock()
	return err
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
