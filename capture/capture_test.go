package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/jnesss/mptevents/mpi"
)

func TestWriteReadFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.log")
	w, err := Create(path)
	if err != nil {
		t.Fatal(err)
	}

	for i := uint32(1); i <= 3; i++ {
		snap := mpi.NewSnapshot(mpi.Controller{ID: 2}, 4)
		snap.Records[0].Event = mpi.EventGPIOInterrupt
		snap.Records[0].Context = i
		if err := w.WriteSnapshot(snap); err != nil {
			t.Fatalf("WriteSnapshot: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("capture mode = %o, want 600", perm)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	r := NewReader(f, 4)
	for i := uint32(1); i <= 3; i++ {
		snap, err := r.ReadSnapshot()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if snap.Records[0].Context != i || snap.Header.IOCNumber != 2 {
			t.Errorf("frame %d decoded as %+v", i, snap.Records[0])
		}
	}
	if _, err := r.ReadSnapshot(); err != io.EOF {
		t.Errorf("after last frame err = %v, want io.EOF", err)
	}
}

func TestReaderFrameSizeMismatch(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(mpi.SnapshotSize(4)))
	buf.Write(make([]byte, mpi.SnapshotSize(4)))

	_, err := NewReader(&buf, mpi.DefaultEventLogSize).ReadSnapshot()
	if !errors.Is(err, ErrFrameSize) {
		t.Errorf("err = %v, want ErrFrameSize", err)
	}
}

func TestReaderTruncatedFrame(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(mpi.SnapshotSize(2)))
	buf.Write(make([]byte, 10))

	_, err := NewReader(&buf, 2).ReadSnapshot()
	if err != io.ErrUnexpectedEOF {
		t.Errorf("err = %v, want io.ErrUnexpectedEOF", err)
	}

	_, err = NewReader(bytes.NewReader([]byte{1, 2}), 2).ReadSnapshot()
	if err != io.ErrUnexpectedEOF {
		t.Errorf("short length prefix err = %v, want io.ErrUnexpectedEOF", err)
	}
}

type staticFetcher struct{ snap *mpi.Snapshot }

func (f staticFetcher) EnableEvents(context.Context, mpi.Controller) error { return nil }

func (f staticFetcher) Fetch(context.Context, mpi.Controller) (*mpi.Snapshot, error) {
	return f.snap, nil
}

func TestRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.log")
	w, err := Create(path)
	if err != nil {
		t.Fatal(err)
	}
	snap := mpi.NewSnapshot(mpi.Controller{}, 2)
	rec := &Recorder{Fetcher: staticFetcher{snap}, W: w}

	if _, err := rec.Fetch(context.Background(), mpi.Controller{}); err != nil {
		t.Fatal(err)
	}
	w.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 4+mpi.SnapshotSize(2) {
		t.Errorf("capture is %d bytes, want %d", len(data), 4+mpi.SnapshotSize(2))
	}
}
