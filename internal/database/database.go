package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"discotheque/pkg/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Database wraps a *sql.DB providing higher-level helper methods for
// interacting with the application's persistent store. It is safe for
// concurrent use because the underlying *sql.DB is concurrency-safe.
type Database struct {
	conn   *sql.DB
	logger *logrus.Logger

	getPreferenceStmt *sql.Stmt
	setPreferenceStmt *sql.Stmt
	insertPlayStmt    *sql.Stmt
	recentPlaysStmt   *sql.Stmt
}

// NewDatabase opens (or creates) a SQLite database at the provided path and
// ensures all required tables and indices exist. Caller should Close() it
// when finished.
func NewDatabase(dbPath string, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works better with few connections
	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=memory;",
		"PRAGMA busy_timeout=5000;",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	db := &Database{
		conn:   conn,
		logger: logger,
	}

	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := db.prepareStatements(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Database initialized successfully")
	return db, nil
}

// createTables creates tables and indices if they do not already exist.
// This is idempotent and safe to call multiple times.
func (db *Database) createTables() error {
	preferencesTable := `
	CREATE TABLE IF NOT EXISTS preferences (
		profile TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (profile, key)
	);`

	historyTable := `
	CREATE TABLE IF NOT EXISTS play_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		profile TEXT NOT NULL,
		src TEXT NOT NULL,
		name TEXT NOT NULL,
		album TEXT,
		played_at DATETIME NOT NULL
	);`

	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_play_history_profile ON play_history(profile, played_at);",
	}

	for _, table := range []string{preferencesTable, historyTable} {
		if _, err := db.conn.Exec(table); err != nil {
			return err
		}
	}

	for _, index := range indices {
		if _, err := db.conn.Exec(index); err != nil {
			return err
		}
	}

	return nil
}

// prepareStatements prepares the statements used on hot paths
func (db *Database) prepareStatements() error {
	var err error

	db.getPreferenceStmt, err = db.conn.Prepare(`
		SELECT value FROM preferences WHERE profile = ? AND key = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get preference statement: %w", err)
	}

	db.setPreferenceStmt, err = db.conn.Prepare(`
		INSERT INTO preferences (profile, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(profile, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare set preference statement: %w", err)
	}

	db.insertPlayStmt, err = db.conn.Prepare(`
		INSERT INTO play_history (profile, src, name, album, played_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert play statement: %w", err)
	}

	db.recentPlaysStmt, err = db.conn.Prepare(`
		SELECT id, profile, src, name, COALESCE(album, ''), played_at
		FROM play_history WHERE profile = ?
		ORDER BY played_at DESC, id DESC LIMIT ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare recent plays statement: %w", err)
	}

	return nil
}

// GetPreference returns the stored value for a profile key. ok is false when
// nothing is stored.
func (db *Database) GetPreference(profile, key string) (value string, ok bool, err error) {
	err = db.getPreferenceStmt.QueryRow(profile, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return value, true, nil
}

// SetPreference stores a value for a profile key, replacing any previous one
func (db *Database) SetPreference(profile, key, value string) error {
	if _, err := db.setPreferenceStmt.Exec(profile, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}

// RecordPlay appends a track start to the play history of a profile
func (db *Database) RecordPlay(profile string, track models.Track) (int, error) {
	result, err := db.insertPlayStmt.Exec(profile, track.Src, track.Name, track.Album, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to record play: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

// RecentPlays returns the latest history entries of a profile, newest first
func (db *Database) RecentPlays(profile string, limit int) ([]models.HistoryEntry, error) {
	rows, err := db.recentPlaysStmt.Query(profile, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := make([]models.HistoryEntry, 0)
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.Profile, &e.Src, &e.Name, &e.Album, &e.PlayedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Ping checks database connectivity
func (db *Database) Ping() error {
	return db.conn.Ping()
}

// Close closes prepared statements and the connection
func (db *Database) Close() error {
	stmts := []*sql.Stmt{
		db.getPreferenceStmt,
		db.setPreferenceStmt,
		db.insertPlayStmt,
		db.recentPlaysStmt,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return db.conn.Close()
}
