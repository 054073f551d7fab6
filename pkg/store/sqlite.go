package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // register pure-Go SQLite driver

	"github.com/devicelab-dev/screen-crawler/pkg/core"
)

//go:embed schema.sql
var schemaSQL string

// SQLite is a Store backed by a SQLite database.
type SQLite struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens (creating if needed) the database at path and ensures the schema.
// Use ":memory:" for a throwaway database.
func Open(path string, log *zap.Logger) (*SQLite, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// Single writer; also keeps a ":memory:" database alive across calls.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := NewSQLite(db, log)
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	s.log.Info("database ready", zap.String("path", path))
	return s, nil
}

// NewSQLite wraps an existing connection. The schema is not touched.
func NewSQLite(db *sql.DB, log *zap.Logger) *SQLite {
	if log == nil {
		log = zap.NewNop()
	}
	return &SQLite{db: db, log: log.Named("store")}
}

// Migrate creates the tables and indices if they do not exist.
func (s *SQLite) Migrate() error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// InsertScreen implements Writer.
func (s *SQLite) InsertScreen(sc core.Screen) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO screens (composite_hash, screen_id, xml_hash, visual_hash, screenshot_path) VALUES (?, ?, ?, ?, ?)`,
		sc.CompositeHash, sc.ID, sc.XMLHash, sc.VisualHash, sc.ScreenshotPath,
	)
	if err != nil {
		return core.ErrPersistence.WithCause(fmt.Errorf("insert screen %d: %w", sc.ID, err))
	}
	return nil
}

// InsertTransition implements Writer.
func (s *SQLite) InsertTransition(t core.Transition) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO transitions (source_composite_hash, action_description, dest_composite_hash) VALUES (?, ?, ?)`,
		t.SourceHash, t.Action, t.DestHash,
	)
	if err != nil {
		return 0, core.ErrPersistence.WithCause(fmt.Errorf("insert transition: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, core.ErrPersistence.WithCause(fmt.Errorf("transition id: %w", err))
	}
	return id, nil
}

// Screens implements Reader. Rows are ordered by screen id.
func (s *SQLite) Screens() ([]core.Screen, error) {
	rows, err := s.db.Query(`SELECT screen_id, composite_hash, xml_hash, visual_hash, screenshot_path, timestamp FROM screens ORDER BY screen_id`)
	if err != nil {
		return nil, fmt.Errorf("query screens: %w", err)
	}
	defer rows.Close()

	var out []core.Screen
	for rows.Next() {
		var (
			sc   core.Screen
			path sql.NullString
			ts   sql.NullString
		)
		if err := rows.Scan(&sc.ID, &sc.CompositeHash, &sc.XMLHash, &sc.VisualHash, &path, &ts); err != nil {
			return nil, fmt.Errorf("scan screen: %w", err)
		}
		sc.ScreenshotPath = path.String
		sc.CreatedAt = parseTimestamp(ts.String)
		out = append(out, sc)
	}
	return out, rows.Err()
}

// Transitions implements Reader. Rows are in insertion order.
func (s *SQLite) Transitions() ([]core.Transition, error) {
	rows, err := s.db.Query(`SELECT transition_id, source_composite_hash, action_description, dest_composite_hash, timestamp FROM transitions ORDER BY transition_id`)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []core.Transition
	for rows.Next() {
		var (
			t    core.Transition
			dest sql.NullString
			ts   sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.SourceHash, &t.Action, &dest, &ts); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.DestHash = dest.String
		t.CreatedAt = parseTimestamp(ts.String)
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountScreens implements Reader.
func (s *SQLite) CountScreens() (int, error) {
	return s.count("screens")
}

// CountTransitions implements Reader.
func (s *SQLite) CountTransitions() (int, error) {
	return s.count("transitions")
}

func (s *SQLite) count(table string) (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Reset implements Store.
func (s *SQLite) Reset() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	for _, stmt := range []string{`DELETE FROM transitions`, `DELETE FROM screens`} {
		if _, err := tx.Exec(stmt); err != nil {
			tx.Rollback()
			return core.ErrPersistence.WithCause(fmt.Errorf("reset: %w", err))
		}
	}
	if err := tx.Commit(); err != nil {
		return core.ErrPersistence.WithCause(fmt.Errorf("commit reset: %w", err))
	}
	s.log.Info("store reset")
	return nil
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
