package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jnesss/mptevents/config"
	"github.com/jnesss/mptevents/database"
	"github.com/jnesss/mptevents/monitor"
	"github.com/jnesss/mptevents/output"
	"github.com/jnesss/mptevents/sigma"
	"github.com/jnesss/mptevents/web"
)

func main() {
	name := filepath.Base(os.Args[0])

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		config.Usage(os.Stderr, name)
		os.Exit(1)
	}
	if cfg.Help {
		config.Usage(os.Stdout, name)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, logger, closeOutput, err := openOutput(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log output: %v\n", err)
		os.Exit(1)
	}
	defer closeOutput()

	// Optional archive
	var db *database.DB
	if cfg.Database.Path != "" {
		db, err = database.NewDB(cfg.Database.Path)
		if err != nil {
			logger.Printf("Failed to initialize database: %v", err)
			os.Exit(1)
		}
		defer db.Close()
		sink = output.Multi{sink, db}
		logger.Printf("Archiving events to %s (run %s)", cfg.Database.Path, db.RunID)
	}

	// Optional rule alerting
	var detector *sigma.Detector
	if cfg.Rules.Dir != "" {
		detector, err = sigma.NewDetector(cfg.Rules.Dir, logger)
		if err != nil {
			logger.Printf("Failed to initialize Sigma detector: %v", err)
			os.Exit(1)
		}
		defer detector.Close()
		go detector.Run(ctx)

		var recorder sigma.MatchRecorder
		if db != nil {
			recorder = db
		}
		alerts, err := sigma.NewAlertSink(sink, detector, recorder, cfg.Rules.Throttle, cfg.Rules.CacheSize, logger)
		if err != nil {
			logger.Printf("Failed to initialize alerting: %v", err)
			os.Exit(1)
		}
		sink = alerts
	}

	registry := monitor.NewRegistry()

	if cfg.Web.Listen != "" {
		srv := web.NewServer(registry, db, detector, cfg.Web.Listen, logger)
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Printf("Web server error: %v", err)
			}
		}()
	}

	d := &daemon{
		cfg:      cfg,
		logger:   logger,
		sink:     sink,
		registry: registry,
	}
	if err := d.run(ctx); err != nil {
		logger.Printf("%v", err)
		os.Exit(1)
	}
}

// logOutput is a destination for both decoded events and log messages.
type logOutput interface {
	monitor.Sink
	io.Writer
	Close() error
}

// openOutput picks the event sink and the operational logger. Both share the
// same destination so messages and events interleave in one stream.
func openOutput(cfg *config.Config) (monitor.Sink, *log.Logger, func(), error) {
	if cfg.Output == config.OutputStdout {
		console := output.NewConsole(os.Stdout)
		return console, log.New(console, "", 0), func() {}, nil
	}

	sys, err := openSyslog()
	if err != nil {
		return nil, nil, nil, err
	}
	// Mirror to stderr like LOG_PERROR.
	logger := log.New(io.MultiWriter(sys, os.Stderr), "", 0)
	return sys, logger, func() { sys.Close() }, nil
}
