//go:build !linux

package platform

import (
	"context"
	"errors"

	"github.com/jnesss/mptevents/mpi"
)

var errUnsupported = errors.New("mpt control devices are only supported on linux")

// FindControlDevice is unsupported off Linux.
func FindControlDevice(devDir string) (string, error) {
	return "", errUnsupported
}

// Device is a placeholder so the daemon builds on other platforms.
type Device struct{}

func Open(path string, logSize int) (*Device, error) {
	return nil, errUnsupported
}

func (d *Device) Path() string { return "" }

func (d *Device) EnableEvents(ctx context.Context, ctrl mpi.Controller) error {
	return errUnsupported
}

func (d *Device) Fetch(ctx context.Context, ctrl mpi.Controller) (*mpi.Snapshot, error) {
	return nil, errUnsupported
}

func (d *Device) NewWaiter() (*Waiter, error) {
	return nil, errUnsupported
}

func (d *Device) Close() error { return nil }

type Waiter struct{}

func (w *Waiter) Wait(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (w *Waiter) Close() error { return nil }
