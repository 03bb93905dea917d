package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jnesss/mptevents/capture"
	"github.com/jnesss/mptevents/config"
	"github.com/jnesss/mptevents/monitor"
	"github.com/jnesss/mptevents/platform"
)

// daemon opens the control node, monitors every controller behind it until
// the device fails, and reopens it after a delay.
type daemon struct {
	cfg      *config.Config
	logger   *log.Logger
	sink     monitor.Sink
	registry *monitor.Registry
}

// run returns nil on shutdown or once the open attempts are used up.
func (d *daemon) run(ctx context.Context) error {
	path := d.cfg.Device
	if path == "" {
		found, err := platform.FindControlDevice(d.cfg.DevDir)
		if err != nil {
			return fmt.Errorf("auto-detecting control device: %w", err)
		}
		path = found
	}

	d.logger.Printf("mptevents starting for device %s", path)
	defer d.logger.Printf("mptevents stopping")

	attempts := d.cfg.ReopenAttempts
	for attempts > 0 {
		dev, err := platform.Open(path, d.cfg.EventLogSize)
		if err != nil {
			d.logger.Printf("Failed to open mpt device %s: %v", path, err)
			attempts--
		} else {
			if err := d.monitorDevice(ctx, dev); err != nil {
				d.logger.Printf("Monitoring %s stopped: %v", path, err)
			}
			dev.Close()
		}

		if ctx.Err() != nil || attempts == 0 {
			return nil
		}
		if !sleep(ctx, d.cfg.ReopenDelay) {
			return nil
		}
	}
	return nil
}

// monitorDevice runs one loop per controller. The first fatal error cancels
// the others so the device is reopened as a whole.
func (d *daemon) monitorDevice(ctx context.Context, dev *platform.Device) error {
	ctrls, err := platform.FindControllers(d.cfg.SysDir)
	if err != nil {
		return err
	}
	if len(ctrls) == 0 {
		return errors.New("no mpt2sas/mpt3sas controllers found")
	}

	var fetcher monitor.Fetcher = dev
	if d.cfg.Debug {
		w, err := capture.Create(d.cfg.CapturePath)
		if err != nil {
			return err
		}
		defer w.Close()
		fetcher = &capture.Recorder{Fetcher: dev, W: w, Logger: d.logger}
		d.logger.Printf("Saving raw event logs to %s", d.cfg.CapturePath)
	}

	var baseline monitor.Sink
	if d.cfg.SkipOld {
		baseline = monitor.Discard
	}

	loops := make([]*monitor.Loop, 0, len(ctrls))
	for _, ctrl := range ctrls {
		waiter, err := dev.NewWaiter()
		if err != nil {
			return fmt.Errorf("%s: creating waiter: %w", ctrl, err)
		}
		defer waiter.Close()

		d.logger.Printf("Monitoring controller %s", ctrl)
		loops = append(loops, monitor.NewLoop(monitor.LoopConfig{
			Controller:   ctrl,
			Fetcher:      fetcher,
			Waiter:       waiter,
			Sink:         d.sink,
			BaselineSink: baseline,
			Backoff:      d.cfg.BusyBackoff,
			Logger:       d.logger,
		}))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, loop := range loops {
		d.registry.Add(loop)
		g.Go(func() error {
			defer d.registry.Remove(loop)
			return loop.Run(gctx)
		})
	}
	return g.Wait()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
