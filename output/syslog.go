//go:build !windows && !plan9

package output

import (
	"context"
	"fmt"
	"log/syslog"

	"github.com/jnesss/mptevents/monitor"
)

// SyslogTag identifies the daemon's messages.
const SyslogTag = "mptevents"

// Syslog writes event lines to the system logger under facility user.
type Syslog struct {
	w *syslog.Writer
}

// NewSyslog connects to the local syslog daemon.
func NewSyslog() (*Syslog, error) {
	w, err := syslog.New(syslog.LOG_USER|syslog.LOG_INFO, SyslogTag)
	if err != nil {
		return nil, fmt.Errorf("connecting to syslog: %w", err)
	}
	return &Syslog{w: w}, nil
}

func (s *Syslog) Emit(ctx context.Context, ev monitor.Event) error {
	for _, line := range ev.Lines() {
		var err error
		if ev.Severity == monitor.SeverityWarning {
			err = s.w.Warning(line)
		} else {
			err = s.w.Info(line)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Write sends an operational message at info level, so Syslog can back a log.Logger.
func (s *Syslog) Write(p []byte) (int, error) {
	if err := s.w.Info(string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *Syslog) Close() error { return s.w.Close() }
