package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sigmago "github.com/bradleyjkemp/sigma-go"

	"github.com/jnesss/mptevents/database"
	"github.com/jnesss/mptevents/monitor"
	"github.com/jnesss/mptevents/sigma"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// StatusSource reports the state of the running controller loops.
type StatusSource interface {
	Statuses() []monitor.Status
}

// Server is the read-only status API. db and sigmaDetector may be nil, in
// which case their endpoints answer 404.
type Server struct {
	statuses      StatusSource
	db            *database.DB
	sigmaDetector *sigma.Detector
	listenAddr    string
	logger        *log.Logger
	started       time.Time
}

// NewServer returns a server logging to logger, or the standard logger if nil.
func NewServer(statuses StatusSource, db *database.DB, sigmaDetector *sigma.Detector, listenAddr string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		statuses:      statuses,
		db:            db,
		sigmaDetector: sigmaDetector,
		listenAddr:    listenAddr,
		logger:        logger,
		started:       time.Now(),
	}
}

// Handler returns the API routes on a fresh mux.
func (s *Server) Handler() http.Handler {
	// Logs each request before handling it
	debugHandler := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			s.logger.Printf("%s %s", r.Method, r.URL.Path)
			h(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/controllers", debugHandler(s.handleControllers))
	mux.HandleFunc("/api/events", debugHandler(s.handleEvents))
	mux.HandleFunc("/api/matches", debugHandler(s.handleMatches))
	mux.HandleFunc("/api/rules", debugHandler(s.handleRules))
	return mux
}

// Start serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.listenAddr,
		Handler: s.Handler(),
	}

	s.logger.Printf("Starting web server on %s", s.listenAddr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{
		Status:      "ok",
		Uptime:      time.Since(s.started).Round(time.Second).String(),
		Controllers: len(s.statuses.Statuses()),
	})
}

func (s *Server) handleControllers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.statuses.Statuses())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		http.Error(w, "event archive not enabled", http.StatusNotFound)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	controller := -1
	if v := r.URL.Query().Get("controller"); v != "" {
		controller, err = strconv.Atoi(v)
		if err != nil || controller < 0 {
			http.Error(w, "Invalid controller", http.StatusBadRequest)
			return
		}
	}

	events, err := s.db.RecentEvents(r.Context(), limit, controller)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []database.EventRecord{}
	}
	writeJSON(w, events)
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		http.Error(w, "event archive not enabled", http.StatusNotFound)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	matches, err := s.db.RecentMatches(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if matches == nil {
		matches = []database.MatchRecord{}
	}
	writeJSON(w, matches)
}

// handleRules lists the rule files in enabled_rules and disabled_rules.
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	if s.sigmaDetector == nil {
		http.Error(w, "rules not enabled", http.StatusNotFound)
		return
	}

	rules := []RuleRow{}
	for _, sub := range []string{"enabled_rules", "disabled_rules"} {
		dir := filepath.Join(s.sigmaDetector.RulesDir, sub)
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, file := range files {
			ext := filepath.Ext(file.Name())
			if file.IsDir() || (ext != ".yml" && ext != ".yaml") {
				continue
			}
			content, err := os.ReadFile(filepath.Join(dir, file.Name()))
			if err != nil {
				continue
			}
			rule, err := sigmago.ParseRule(content)
			if err != nil {
				// Skip files that can't be parsed
				continue
			}
			rules = append(rules, RuleRow{
				ID:          rule.ID,
				Title:       rule.Title,
				Description: rule.Description,
				Level:       rule.Level,
				Filename:    file.Name(),
				Enabled:     sub == "enabled_rules",
			})
		}
	}
	writeJSON(w, rules)
}

func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("Invalid limit")
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
