// Package config loads daemon configuration from the command line, the
// environment (MPTEVENTS_*) and an optional config file using Viper.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jnesss/mptevents/capture"
	"github.com/jnesss/mptevents/monitor"
	"github.com/jnesss/mptevents/mpi"
	"github.com/jnesss/mptevents/platform"
)

// Output destinations.
const (
	OutputSyslog = "syslog"
	OutputStdout = "stdout"
)

// Config holds daemon configuration.
type Config struct {
	// Device is the control node; empty means auto-detect under DevDir.
	Device string `mapstructure:"device"`
	// Output is "syslog" or "stdout".
	Output string `mapstructure:"output"`
	// SkipOld suppresses events already in the log when monitoring starts.
	SkipOld bool `mapstructure:"skip_old"`
	// Debug appends every raw snapshot to CapturePath.
	Debug       bool   `mapstructure:"debug"`
	CapturePath string `mapstructure:"capture_path"`
	// EventLogSize is the number of ring slots per snapshot.
	EventLogSize int           `mapstructure:"event_log_size"`
	BusyBackoff  time.Duration `mapstructure:"busy_backoff"`
	// ReopenAttempts bounds how many times a failed device open is retried.
	ReopenAttempts int           `mapstructure:"reopen_attempts"`
	ReopenDelay    time.Duration `mapstructure:"reopen_delay"`
	SysDir         string        `mapstructure:"sys_dir"`
	DevDir         string        `mapstructure:"dev_dir"`

	Database DatabaseConfig `mapstructure:"database"`
	Web      WebConfig      `mapstructure:"web"`
	Rules    RulesConfig    `mapstructure:"rules"`

	// Help is set when -h was given; the caller prints Usage and exits.
	Help bool `mapstructure:"-"`
}

// DatabaseConfig enables the sqlite event archive when Path is set.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// WebConfig enables the status API when Listen is set.
type WebConfig struct {
	Listen string `mapstructure:"listen"`
}

// RulesConfig enables Sigma alerting when Dir is set.
type RulesConfig struct {
	Dir       string        `mapstructure:"dir"`
	Throttle  time.Duration `mapstructure:"throttle"`
	CacheSize int           `mapstructure:"cache_size"`
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("mptevents", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolP("debug", "d", false, "Save raw data to a debug file for later re-parsing with mptevents-offline.")
	fs.BoolP("stdout", "o", false, "Output the logs to stdout with a timestamp (else, output to syslog without timestamps).")
	fs.BoolP("skip-old", "k", false, "Skip the old events in case of a restart.")
	fs.BoolP("help", "h", false, "Display this usage information.")
	fs.String("config", "", "Read configuration from this file.")
	fs.String("database", "", "Archive decoded events in this sqlite database.")
	fs.String("listen", "", "Serve the status API on this address.")
	fs.String("rules", "", "Evaluate Sigma rules from this directory.")
	return fs
}

// Usage writes command line help to w.
func Usage(w io.Writer, name string) {
	fmt.Fprintf(w, "\nmptevents [options]\nUsage:\n\t%s <dev>\n\tFor example %s %s\n\nOptions:\n", name, name, platform.MPT3DevicePath)
	fmt.Fprint(w, newFlagSet().FlagUsages())
}

// Load parses args (without the program name) and builds the Config.
func Load(args []string) (*Config, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	v := viper.New()

	v.SetDefault("device", "")
	v.SetDefault("output", OutputSyslog)
	v.SetDefault("skip_old", false)
	v.SetDefault("debug", false)
	v.SetDefault("capture_path", capture.DefaultPath)
	v.SetDefault("event_log_size", mpi.DefaultEventLogSize)
	v.SetDefault("busy_backoff", monitor.DefaultBusyBackoff)
	v.SetDefault("reopen_attempts", 10)
	v.SetDefault("reopen_delay", 30*time.Second)
	v.SetDefault("sys_dir", platform.DefaultSysDir)
	v.SetDefault("dev_dir", platform.DefaultDevDir)
	v.SetDefault("database.path", "")
	v.SetDefault("web.listen", "")
	v.SetDefault("rules.dir", "")
	v.SetDefault("rules.throttle", time.Minute)
	v.SetDefault("rules.cache_size", 256)

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("MPTEVENTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"debug":         "debug",
		"skip_old":      "skip-old",
		"database.path": "database",
		"web.listen":    "listen",
		"rules.dir":     "rules",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, err
		}
	}
	if stdout, _ := fs.GetBool("stdout"); stdout {
		v.Set("output", OutputStdout)
	}

	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		v.Set("device", rest[0])
	default:
		return nil, errors.New("config: too many devices given, can only monitor one")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Help, _ = fs.GetBool("help")
	if cfg.Help {
		return &cfg, nil
	}

	if cfg.Device != "" && !platform.ValidDevicePath(cfg.Device) {
		return nil, fmt.Errorf("config: unsupported device %s", cfg.Device)
	}
	if cfg.Output != OutputSyslog && cfg.Output != OutputStdout {
		return nil, fmt.Errorf("config: output must be %q or %q, got %q", OutputSyslog, OutputStdout, cfg.Output)
	}
	if cfg.EventLogSize <= 0 {
		return nil, errors.New("config: event_log_size must be positive")
	}
	if cfg.ReopenAttempts <= 0 {
		return nil, errors.New("config: reopen_attempts must be positive")
	}
	if cfg.Rules.Dir != "" && cfg.Rules.CacheSize <= 0 {
		return nil, errors.New("config: rules.cache_size must be positive")
	}

	return &cfg, nil
}
