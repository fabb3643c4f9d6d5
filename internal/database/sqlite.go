package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"negma/internal/database/migrations"
	"negma/internal/negma"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// FileName is the history database file name inside the config root.
const FileName = "history.db"

// SQLiteHistory implements negma.History on SQLite.
type SQLiteHistory struct {
	db   *sql.DB
	path string
}

// NewSQLiteHistory opens the history database at path, creating it and
// applying migrations as needed. path may be ":memory:".
func NewSQLiteHistory(path string) (*SQLiteHistory, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history database: %w", err)
	}

	h := &SQLiteHistory{db: db, path: path}
	if err := h.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("checking history database %s: %w", path, err)
	}
	return h, nil
}

// CheckMigrations verifies the schema matches the embedded migrations.
func (s *SQLiteHistory) CheckMigrations() error {
	return migrations.Status(s.db)
}

// OpenConnection opens and configures a SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		// Every new connection would get its own empty in-memory database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

func (s *SQLiteHistory) StartOperation(operation, profile, parameters string, startedAt time.Time) (*negma.Operation, error) {
	res, err := s.db.Exec(
		`INSERT INTO operations (operation, profile, parameters, started_at, status) VALUES (?, ?, ?, ?, ?)`,
		operation, profile, parameters, startedAt.UTC(), negma.StatusRunning,
	)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}

	return &negma.Operation{
		ID:         id,
		Operation:  operation,
		Profile:    profile,
		Parameters: parameters,
		StartedAt:  startedAt.UTC(),
		Status:     negma.StatusRunning,
	}, nil
}

func (s *SQLiteHistory) FinishOperation(id int64, status string, exitCode int, finishedAt time.Time) error {
	res, err := s.db.Exec(
		`UPDATE operations SET status = ?, exit_code = ?, finished_at = ? WHERE id = ?`,
		status, exitCode, finishedAt.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing operation: no operation with id %d", id)
	}
	return nil
}

// ListOperations returns up to limit operations, newest first. A limit of 0
// or less returns all of them.
func (s *SQLiteHistory) ListOperations(limit int) ([]*negma.Operation, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(
		`SELECT id, operation, profile, parameters, started_at, finished_at, status, exit_code
		 FROM operations ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*negma.Operation
	for rows.Next() {
		var op negma.Operation
		if err := rows.Scan(&op.ID, &op.Operation, &op.Profile, &op.Parameters, &op.StartedAt, &op.FinishedAt, &op.Status, &op.ExitCode); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

func (s *SQLiteHistory) Close() error {
	return s.db.Close()
}
