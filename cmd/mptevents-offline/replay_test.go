package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jnesss/mptevents/capture"
	"github.com/jnesss/mptevents/mpi"
)

const logSize = 4

func gpioSnapshot(contexts ...uint32) *mpi.Snapshot {
	return controllerSnapshot(1, contexts...)
}

func controllerSnapshot(ioc int, contexts ...uint32) *mpi.Snapshot {
	snap := mpi.NewSnapshot(mpi.Controller{ID: ioc}, logSize)
	for i, c := range contexts {
		snap.Records[i].Event = mpi.EventGPIOInterrupt
		snap.Records[i].Context = c
		snap.Records[i].Data[0] = byte(c)
	}
	return snap
}

func writeCapture(t *testing.T, snaps ...*mpi.Snapshot) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.log")
	w, err := capture.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range snaps {
		if err := w.WriteSnapshot(s); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestReplay(t *testing.T) {
	raw := writeCapture(t, gpioSnapshot(1, 2), gpioSnapshot(1, 2, 3))

	var out bytes.Buffer
	if err := replay(bytes.NewReader(raw), &out, logSize); err != nil {
		t.Fatalf("replay: %v", err)
	}
	want := "GPIO Interrupt: context=1 gpionum=1 reserved1=0 reserved2=0\n" +
		"GPIO Interrupt: context=2 gpionum=2 reserved1=0 reserved2=0\n" +
		"GPIO Interrupt: context=3 gpionum=3 reserved1=0 reserved2=0\n" +
		"EOF\n"
	if out.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestReplaySessionPerController(t *testing.T) {
	// Controller 2 is behind controller 1; its contexts must not be
	// judged against controller 1's.
	raw := writeCapture(t,
		controllerSnapshot(1, 50),
		controllerSnapshot(2, 7),
		controllerSnapshot(1, 50, 51),
		controllerSnapshot(2, 7, 8),
	)

	var out bytes.Buffer
	if err := replay(bytes.NewReader(raw), &out, logSize); err != nil {
		t.Fatalf("replay: %v", err)
	}
	want := "GPIO Interrupt: context=50 gpionum=50 reserved1=0 reserved2=0\n" +
		"GPIO Interrupt: context=7 gpionum=7 reserved1=0 reserved2=0\n" +
		"GPIO Interrupt: context=51 gpionum=51 reserved1=0 reserved2=0\n" +
		"GPIO Interrupt: context=8 gpionum=8 reserved1=0 reserved2=0\n" +
		"EOF\n"
	if out.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestReplayEmpty(t *testing.T) {
	var out bytes.Buffer
	if err := replay(bytes.NewReader(nil), &out, logSize); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if out.String() != "EOF\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestReplayErrors(t *testing.T) {
	raw := writeCapture(t, gpioSnapshot(1))

	var out bytes.Buffer
	err := replay(bytes.NewReader(raw), &out, logSize+1)
	if !errors.Is(err, capture.ErrFrameSize) {
		t.Errorf("size mismatch err = %v", err)
	}

	out.Reset()
	err = replay(bytes.NewReader(raw[:len(raw)-1]), &out, logSize)
	if err == nil || bytes.Contains(out.Bytes(), []byte("EOF")) {
		t.Errorf("truncated frame: err = %v, out = %q", err, out.String())
	}
}
