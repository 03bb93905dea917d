package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jnesss/mptevents/monitor"
)

// DB archives decoded events and rule matches in sqlite. It implements
// monitor.Sink.
type DB struct {
	Db    *sql.DB
	RunID string
}

// EventRecord is one archived event line.
type EventRecord struct {
	ID             int64     `json:"id"`
	RunID          string    `json:"run_id"`
	Timestamp      time.Time `json:"timestamp"`
	ControllerID   int       `json:"controller_id"`
	ControllerType string    `json:"controller_type"`
	Kind           uint32    `json:"kind"`
	Category       string    `json:"category"`
	Context        uint32    `json:"context"`
	Severity       string    `json:"severity"`
	Line           string    `json:"line"`
}

// MatchRecord is one rule match.
type MatchRecord struct {
	ID           int64     `json:"id"`
	RunID        string    `json:"run_id"`
	Timestamp    time.Time `json:"timestamp"`
	ControllerID int       `json:"controller_id"`
	Context      uint32    `json:"context"`
	Category     string    `json:"category"`
	RuleID       string    `json:"rule_id"`
	RuleName     string    `json:"rule_name"`
	Level        string    `json:"level"`
}

// NewDB opens or creates the archive at path. Each call starts a new run id.
func NewDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %v", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %v", err)
	}

	if err := initEventSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize event schema: %v", err)
	}

	if err := initMatchSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize match schema: %v", err)
	}

	return &DB{Db: db, RunID: uuid.New().String()}, nil
}

func initEventSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id          TEXT NOT NULL,
		timestamp       DATETIME NOT NULL,
		controller_id   INTEGER NOT NULL,
		controller_type TEXT NOT NULL,
		kind            INTEGER NOT NULL,
		category        TEXT NOT NULL,
		context         INTEGER NOT NULL,
		severity        TEXT NOT NULL,
		line            TEXT NOT NULL
	);`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create events table: %v", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);",
		"CREATE INDEX IF NOT EXISTS idx_events_controller_context ON events(controller_id, context);",
	}

	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %v", err)
		}
	}

	return nil
}

func initMatchSchema(db *sql.DB) error {
	schema := `
    CREATE TABLE IF NOT EXISTS rule_matches (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT NOT NULL,
        timestamp DATETIME NOT NULL,
        controller_id INTEGER NOT NULL,
        context INTEGER NOT NULL,
        category TEXT NOT NULL,
        rule_id TEXT NOT NULL,
        rule_name TEXT NOT NULL,
        level TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_rule_matches_rule_id ON rule_matches(rule_id);
    CREATE INDEX IF NOT EXISTS idx_rule_matches_timestamp ON rule_matches(timestamp);`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create rule match table: %v", err)
	}

	return nil
}

// Emit archives every line of ev.
func (db *DB) Emit(ctx context.Context, ev monitor.Event) error {
	query := `
		INSERT INTO events (
			run_id, timestamp, controller_id, controller_type,
			kind, category, context, severity, line
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.Db.ExecContext(ctx, query,
		db.RunID,
		ev.Time,
		ev.Controller.ID,
		ev.Controller.Type.String(),
		uint32(ev.Description.Kind),
		ev.Description.Name,
		ev.Description.Context,
		ev.Severity.String(),
		strings.Join(ev.Lines(), "\n"),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %v", err)
	}
	return nil
}

// InsertMatch records a rule match.
func (db *DB) InsertMatch(ctx context.Context, m *MatchRecord) error {
	query := `
		INSERT INTO rule_matches (
			run_id, timestamp, controller_id, context,
			category, rule_id, rule_name, level
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.Db.ExecContext(ctx, query,
		db.RunID,
		m.Timestamp,
		m.ControllerID,
		m.Context,
		m.Category,
		m.RuleID,
		m.RuleName,
		m.Level,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rule match: %v", err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first. A negative
// controller matches every controller.
func (db *DB) RecentEvents(ctx context.Context, limit, controller int) ([]EventRecord, error) {
	query := `
		SELECT id, run_id, timestamp, controller_id, controller_type,
		       kind, category, context, severity, line
		FROM events`
	var args []interface{}
	if controller >= 0 {
		query += " WHERE controller_id = ?"
		args = append(args, controller)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %v", err)
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var r EventRecord
		err := rows.Scan(
			&r.ID, &r.RunID, &r.Timestamp, &r.ControllerID, &r.ControllerType,
			&r.Kind, &r.Category, &r.Context, &r.Severity, &r.Line,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %v", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// RecentMatches returns up to limit rule matches, newest first.
func (db *DB) RecentMatches(ctx context.Context, limit int) ([]MatchRecord, error) {
	rows, err := db.Db.QueryContext(ctx, `
		SELECT id, run_id, timestamp, controller_id, context,
		       category, rule_id, rule_name, level
		FROM rule_matches
		ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rule matches: %v", err)
	}
	defer rows.Close()

	var records []MatchRecord
	for rows.Next() {
		var m MatchRecord
		err := rows.Scan(
			&m.ID, &m.RunID, &m.Timestamp, &m.ControllerID, &m.Context,
			&m.Category, &m.RuleID, &m.RuleName, &m.Level,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule match: %v", err)
		}
		records = append(records, m)
	}
	return records, rows.Err()
}

func (db *DB) Close() error {
	return db.Db.Close()
}
