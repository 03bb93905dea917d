//go:build linux

package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/jnesss/mptevents/monitor"
	"github.com/jnesss/mptevents/mpi"
)

// FindControlDevice returns the single character device in devDir whose
// device number matches an mpt control node.
func FindControlDevice(devDir string) (string, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", devDir, err)
	}

	var found []string
	for _, entry := range entries {
		path := filepath.Join(devDir, entry.Name())
		var st unix.Stat_t
		if err := unix.Stat(path, &st); err != nil {
			continue
		}
		if st.Mode&unix.S_IFMT != unix.S_IFCHR {
			continue
		}
		if IsControlNode(unix.Major(uint64(st.Rdev)), unix.Minor(uint64(st.Rdev))) {
			found = append(found, path)
		}
	}

	switch len(found) {
	case 0:
		return "", ErrNoControlDevice
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%w: %v", ErrAmbiguousControlDevice, found)
	}
}

// Device is an open control node. It implements monitor.Fetcher and is safe
// for concurrent use by several controller loops.
type Device struct {
	path    string
	fd      int
	logSize int
}

// Open opens the control node at path. logSize is the number of ring slots
// the driver returns per event report.
func Open(path string, logSize int) (*Device, error) {
	if logSize <= 0 {
		logSize = mpi.DefaultEventLogSize
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &Device{path: path, fd: fd, logSize: logSize}, nil
}

// Path returns the device path.
func (d *Device) Path() string { return d.path }

// EnableEvents sets the full event mask on ctrl.
func (d *Device) EnableEvents(ctx context.Context, ctrl mpi.Controller) error {
	buf, err := mpi.NewEventEnable(ctrl).MarshalBinary()
	if err != nil {
		return err
	}
	if err := d.ioctl(mpi.EventEnableRequest(ctrl.Type), buf); err != nil {
		return &monitor.FetchError{Controller: ctrl, Op: "event enable", Err: err}
	}
	return nil
}

// Fetch reads the whole event log of ctrl.
func (d *Device) Fetch(ctx context.Context, ctrl mpi.Controller) (*mpi.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := mpi.NewSnapshot(ctrl, d.logSize)
	buf, err := snap.MarshalBinary()
	if err != nil {
		return nil, err
	}

	switch err := d.ioctl(mpi.EventReportRequest(ctrl.Type), buf); {
	case err == nil:
	case errors.Is(err, unix.EINTR):
		return nil, monitor.ErrInterrupted
	case errors.Is(err, unix.EAGAIN):
		return nil, monitor.ErrBusy
	default:
		return nil, &monitor.FetchError{Controller: ctrl, Op: "event report", Err: err}
	}

	if err := snap.UnmarshalBinary(buf); err != nil {
		return nil, &monitor.FetchError{Controller: ctrl, Op: "event report", Err: err}
	}
	return snap, nil
}

func (d *Device) ioctl(req uintptr, buf []byte) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), req, uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return errno
	}
	return nil
}

// NewWaiter returns a readiness waiter on this device. Each controller loop
// needs its own.
func (d *Device) NewWaiter() (*Waiter, error) {
	return newWaiter(d.fd)
}

// Close closes the device.
func (d *Device) Close() error {
	return unix.Close(d.fd)
}
