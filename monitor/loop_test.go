package monitor

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/jnesss/mptevents/mpi"
)

// fetchResult is one scripted Fetch outcome.
type fetchResult struct {
	snap *mpi.Snapshot
	err  error
}

type fakeFetcher struct {
	enableErr error
	results   []fetchResult
	cancel    context.CancelFunc

	mu      sync.Mutex
	enabled int
	fetches int
}

func (f *fakeFetcher) EnableEvents(ctx context.Context, ctrl mpi.Controller) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled++
	return f.enableErr
}

// Fetch replays the script, then cancels the run.
func (f *fakeFetcher) Fetch(ctx context.Context, ctrl mpi.Controller) (*mpi.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if len(f.results) == 0 {
		f.cancel()
		return nil, ErrInterrupted
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.snap, r.err
}

type countingWaiter struct {
	mu    sync.Mutex
	waits int
}

func (w *countingWaiter) Wait(ctx context.Context) error {
	w.mu.Lock()
	w.waits++
	w.mu.Unlock()
	return ctx.Err()
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(ctx context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) contexts() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint32
	for _, ev := range s.events {
		out = append(out, ev.Description.Context)
	}
	return out
}

type harness struct {
	fetcher  *fakeFetcher
	waiter   *countingWaiter
	sink     *recordingSink
	pauses   []time.Duration
	loop     *Loop
	ctx      context.Context
	baseline Sink
}

func newHarness(results ...fetchResult) *harness {
	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		fetcher: &fakeFetcher{results: results, cancel: cancel},
		waiter:  &countingWaiter{},
		sink:    &recordingSink{},
		ctx:     ctx,
	}
	return h
}

func (h *harness) run(t *testing.T) error {
	t.Helper()
	h.loop = NewLoop(LoopConfig{
		Controller:   mpi.Controller{ID: 1, Type: mpi.MPT3SAS},
		Fetcher:      h.fetcher,
		Waiter:       h.waiter,
		Sink:         h.sink,
		BaselineSink: h.baseline,
		Backoff:      time.Second,
		Sleep: func(ctx context.Context, d time.Duration) {
			h.pauses = append(h.pauses, d)
		},
		Logger: log.New(io.Discard, "", 0),
	})

	done := make(chan error, 1)
	go func() { done <- h.loop.Run(h.ctx) }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
		return nil
	}
}

func ok(slots ...slot) fetchResult { return fetchResult{snap: snapshotOf(slots...)} }

func TestLoopBaselineThenSteadyState(t *testing.T) {
	h := newHarness(
		ok(temp(5), temp(9), temp(2)),
		ok(temp(5), temp(9), temp(10)),
		ok(temp(5), temp(9), temp(10)),
	)
	if err := h.run(t); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := h.sink.contexts(); !equal(got, []uint32{5, 9, 2, 10}) {
		t.Errorf("emitted %v, want [5 9 2 10]", got)
	}
	if h.fetcher.enabled != 1 {
		t.Errorf("EnableEvents called %d times, want 1", h.fetcher.enabled)
	}
	// The baseline fetch skips the wait; the cancelling fetch at the end of
	// the script sends the loop back to one more wait, which sees ctx done.
	if h.waiter.waits != h.fetcher.fetches {
		t.Errorf("waits = %d, fetches = %d", h.waiter.waits, h.fetcher.fetches)
	}

	st := h.loop.Status()
	if st.HighestReported != 10 || !st.FirstScanDone || st.Emitted != 4 {
		t.Errorf("status = %+v", st)
	}
	if st.State != StateStopped.String() {
		t.Errorf("state = %s, want stopped", st.State)
	}
}

func TestLoopBusyBackoff(t *testing.T) {
	h := newHarness(
		ok(),
		fetchResult{err: ErrBusy},
		fetchResult{err: ErrBusy},
		fetchResult{err: ErrBusy},
	)
	if err := h.run(t); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(h.pauses) != 3 {
		t.Errorf("paused %d times, want 3", len(h.pauses))
	}
	for _, d := range h.pauses {
		if d != time.Second {
			t.Errorf("pause = %v, want 1s", d)
		}
	}
	if n := len(h.sink.contexts()); n != 0 {
		t.Errorf("emitted %d events, want 0", n)
	}
	st := h.loop.Status()
	if st.Busy != 3 || st.HighestReported != 0 {
		t.Errorf("status = %+v", st)
	}
}

func TestLoopInterruptedDoesNotPause(t *testing.T) {
	h := newHarness(
		fetchResult{err: ErrInterrupted},
		ok(temp(4)),
	)
	if err := h.run(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.pauses) != 0 {
		t.Errorf("paused %d times after interrupt", len(h.pauses))
	}
	// The interrupted baseline leaves the session fresh, so the next
	// successful fetch is the baseline.
	if got := h.sink.contexts(); !equal(got, []uint32{4}) {
		t.Errorf("emitted %v, want [4]", got)
	}
}

func TestLoopFatalStops(t *testing.T) {
	boom := errors.New("EIO")
	h := newHarness(
		ok(temp(1)),
		fetchResult{err: boom},
		ok(temp(2)),
	)
	err := h.run(t)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Run = %v, want *FetchError", err)
	}
	if !errors.Is(err, boom) || Classify(err) != ClassFatal {
		t.Errorf("error %v not classified as fatal wrapping %v", err, boom)
	}
	if fe.Controller.ID != 1 {
		t.Errorf("FetchError controller = %v", fe.Controller)
	}
	if got := h.sink.contexts(); !equal(got, []uint32{1}) {
		t.Errorf("emitted %v, want [1]", got)
	}
	if h.loop.Status().LastError == "" {
		t.Error("LastError not recorded")
	}
}

func TestLoopEnableFailureStillMonitors(t *testing.T) {
	h := newHarness(ok(temp(3)))
	h.fetcher.enableErr = errors.New("EINVAL")
	if err := h.run(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := h.sink.contexts(); !equal(got, []uint32{3}) {
		t.Errorf("emitted %v, want [3]", got)
	}
}

func TestLoopSkipOld(t *testing.T) {
	h := newHarness(
		ok(temp(5), temp(9)),
		ok(temp(5), temp(9), temp(11)),
	)
	h.baseline = Discard
	if err := h.run(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := h.sink.contexts(); !equal(got, []uint32{11}) {
		t.Errorf("emitted %v, want only [11]", got)
	}
	if h.loop.Status().HighestReported != 11 {
		t.Errorf("HighestReported = %d", h.loop.Status().HighestReported)
	}
}

func TestLoopCancelledWaitReturnsNil(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loop := NewLoop(LoopConfig{
		Controller: mpi.Controller{ID: 0},
		Fetcher:    &fakeFetcher{results: []fetchResult{ok()}, cancel: func() {}},
		Waiter: WaiterFunc(func(ctx context.Context) error {
			cancel()
			<-ctx.Done()
			return ctx.Err()
		}),
		Sink:   Discard,
		Logger: log.New(io.Discard, "", 0),
	})
	if err := loop.Run(ctx); err != nil {
		t.Errorf("Run = %v, want nil on cancel", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Class
	}{
		{nil, ClassNone},
		{ErrInterrupted, ClassInterrupted},
		{ErrBusy, ClassBusy},
		{&FetchError{Op: "fetch", Err: ErrBusy}, ClassBusy},
		{errors.New("EIO"), ClassFatal},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
