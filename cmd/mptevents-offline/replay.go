package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jnesss/mptevents/capture"
	"github.com/jnesss/mptevents/monitor"
	"github.com/jnesss/mptevents/mpi"
	"github.com/jnesss/mptevents/output"
)

// replay scans every frame of a capture with the session of the frame's
// controller, so each event is printed once, and ends with "EOF" at a clean
// frame boundary.
func replay(r io.Reader, w io.Writer, logSize int) error {
	ctx := context.Background()
	reader := capture.NewReader(r, logSize)
	sink := output.NewPlain(w)

	sessions := make(map[uint32]*monitor.Session)
	for frame := 0; ; frame++ {
		snap, err := reader.ReadSnapshot()
		if errors.Is(err, io.EOF) {
			_, err = fmt.Fprintln(w, "EOF")
			return err
		}
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}

		ctrl := mpi.Controller{ID: int(snap.Header.IOCNumber)}
		session, ok := sessions[snap.Header.IOCNumber]
		if !ok {
			session = monitor.NewSession(ctrl)
			sessions[snap.Header.IOCNumber] = session
		}
		for _, desc := range session.Scan(snap) {
			ev := monitor.Event{
				Controller:  ctrl,
				Time:        time.Now(),
				Severity:    monitor.SeverityInfo,
				Description: desc,
			}
			if err := sink.Emit(ctx, ev); err != nil {
				return err
			}
		}
	}
}
