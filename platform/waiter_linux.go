//go:build linux

package platform

import (
	"context"
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/jnesss/mptevents/monitor"
)

// Waiter blocks on an edge-triggered epoll of the control node. An eventfd in
// the same epoll set lets context cancellation wake a blocked Wait.
type Waiter struct {
	epfd int
	wake int
}

func newWaiter(devfd int) (*Waiter, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create: %w", err)
	}
	wake, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}

	dev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLET, Fd: int32(devfd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, devfd, &dev); err != nil {
		unix.Close(wake)
		unix.Close(epfd)
		return nil, fmt.Errorf("adding device to epoll: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wake)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wake, &ev); err != nil {
		unix.Close(wake)
		unix.Close(epfd)
		return nil, fmt.Errorf("adding eventfd to epoll: %w", err)
	}
	return &Waiter{epfd: epfd, wake: wake}, nil
}

// Wait returns nil when the device signals readiness, ctx.Err() once ctx is
// done and monitor.ErrInterrupted when a signal interrupts the wait.
func (w *Waiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, w.interrupt)
	defer stop()

	events := make([]unix.EpollEvent, 2)
	n, err := unix.EpollWait(w.epfd, events, -1)
	if err == unix.EINTR {
		return monitor.ErrInterrupted
	}
	if err != nil {
		return fmt.Errorf("epoll_wait: %w", err)
	}

	ready := false
	for _, ev := range events[:n] {
		if int(ev.Fd) == w.wake {
			w.drain()
			continue
		}
		ready = true
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ready {
		return monitor.ErrInterrupted
	}
	return nil
}

func (w *Waiter) interrupt() {
	var one [8]byte
	binary.LittleEndian.PutUint64(one[:], 1)
	unix.Write(w.wake, one[:])
}

func (w *Waiter) drain() {
	var buf [8]byte
	unix.Read(w.wake, buf[:])
}

// Close releases the epoll set and eventfd. It does not close the device.
func (w *Waiter) Close() error {
	err := unix.Close(w.epfd)
	if cerr := unix.Close(w.wake); err == nil {
		err = cerr
	}
	return err
}
