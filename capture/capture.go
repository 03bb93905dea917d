// Package capture reads and writes the raw debug capture: a sequence of
// frames, each a little-endian uint32 length followed by one full event-log
// snapshot as returned by the driver.
package capture

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/jnesss/mptevents/monitor"
	"github.com/jnesss/mptevents/mpi"
)

// DefaultPath is where the daemon appends frames in debug mode.
const DefaultPath = "/var/log/mptevents.log"

// ErrFrameSize reports a frame whose length does not match the snapshot size.
var ErrFrameSize = errors.New("capture: frame size mismatch")

// Writer appends snapshots to a capture file.
type Writer struct {
	mu sync.Mutex
	f  *os.File
}

// Create opens path for appending, creating it with mode 0600.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening capture %s: %w", path, err)
	}
	return &Writer{f: f}, nil
}

// WriteSnapshot appends one frame.
func (w *Writer) WriteSnapshot(snap *mpi.Snapshot) error {
	body, err := snap.MarshalBinary()
	if err != nil {
		return err
	}
	frame := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[4:], body)

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.f.Write(frame)
	return err
}

func (w *Writer) Close() error {
	return w.f.Close()
}

// Reader reads frames of a fixed snapshot size.
type Reader struct {
	r    *bufio.Reader
	size int
}

// NewReader returns a reader expecting snapshots of logSize records.
func NewReader(r io.Reader, logSize int) *Reader {
	return &Reader{r: bufio.NewReader(r), size: mpi.SnapshotSize(logSize)}
}

// ReadSnapshot returns the next frame. It returns io.EOF at a clean frame
// boundary, io.ErrUnexpectedEOF on a truncated frame and ErrFrameSize when a
// frame's length differs from the expected snapshot size.
func (r *Reader) ReadSnapshot() (*mpi.Snapshot, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r.r, hdr[:]); err != nil {
		return nil, err
	}
	if n := binary.LittleEndian.Uint32(hdr[:]); int(n) != r.size {
		return nil, fmt.Errorf("%w: frame is %d bytes, want %d", ErrFrameSize, n, r.size)
	}

	body := make([]byte, r.size)
	if _, err := io.ReadFull(r.r, body); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	var snap mpi.Snapshot
	if err := snap.UnmarshalBinary(body); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Recorder is a monitor.Fetcher that appends every successful snapshot to a
// capture before handing it on.
type Recorder struct {
	monitor.Fetcher
	W      *Writer
	Logger *log.Logger
}

func (r *Recorder) Fetch(ctx context.Context, ctrl mpi.Controller) (*mpi.Snapshot, error) {
	snap, err := r.Fetcher.Fetch(ctx, ctrl)
	if err != nil {
		return nil, err
	}
	if werr := r.W.WriteSnapshot(snap); werr != nil {
		logger := r.Logger
		if logger == nil {
			logger = log.Default()
		}
		logger.Printf("%s: writing debug capture: %v", ctrl, werr)
	}
	return snap, nil
}
