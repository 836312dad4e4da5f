// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive persists completed pipeline runs in a SQLite database so
// earlier Summa documents can be listed and re-read without re-running the
// reasoner.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/summa-engine/pkg/types"
)

const dbFile = "runs.db"

// Run statuses stored in the archive.
const (
	StatusFinal          = "final"
	StatusPartialFailure = "partial_failure"
)

// Record is one archived pipeline run.
type Record struct {
	ID         string
	CreatedAt  time.Time
	Question   string
	Domain     string
	Status     string
	ErrorStage string
	Payload    types.Payload
}

// Store manages the run archive SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the archive database at dir/runs.db, creating the
// schema if it does not exist.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening archive database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating archive schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			question TEXT NOT NULL,
			domain TEXT NOT NULL,
			status TEXT NOT NULL,
			error_stage TEXT,
			payload TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun stores a payload and returns the new run id.
func (s *Store) SaveRun(ctx context.Context, payload types.Payload) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding payload: %w", err)
	}

	status := StatusFinal
	errorStage := ""
	if payload.IsPartialFailure() {
		status = StatusPartialFailure
		errorStage = payload.Error.Stage
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, question, domain, status, error_stage, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		time.Now().UTC().Format(time.RFC3339),
		payload.Question,
		payload.Domain,
		status,
		errorStage,
		string(encoded),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return id, nil
}

// ListRuns returns archived runs, newest first, without their payloads.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, question, domain, status, error_stage
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var createdAt string
		if err := rows.Scan(&rec.ID, &createdAt, &rec.Question, &rec.Domain, &rec.Status, &rec.ErrorStage); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetRun loads one archived run, payload included.
func (s *Store) GetRun(ctx context.Context, id string) (Record, error) {
	var rec Record
	var createdAt, encoded string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, question, domain, status, error_stage, payload
		 FROM runs WHERE id = ?`, id).
		Scan(&rec.ID, &createdAt, &rec.Question, &rec.Domain, &rec.Status, &rec.ErrorStage, &encoded)
	if err == sql.ErrNoRows {
		return Record{}, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("loading run: %w", err)
	}

	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if err := json.Unmarshal([]byte(encoded), &rec.Payload); err != nil {
		return Record{}, fmt.Errorf("decoding run payload: %w", err)
	}
	return rec, nil
}
