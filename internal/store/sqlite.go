package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/couchcryptid/cbc-history-etl/internal/domain"
)

// SQLite stores each report as a JSON payload in a single table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite store: empty path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS reports (
		id           TEXT PRIMARY KEY,
		count_code   TEXT,
		extracted_at TEXT NOT NULL,
		payload      BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create reports table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Put(ctx context.Context, report domain.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", report.ID, err)
	}

	var code sql.NullString
	if report.Result != nil && report.Result.CountInfo.CountCode != nil {
		code = sql.NullString{String: *report.Result.CountInfo.CountCode, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO reports (id, count_code, extracted_at, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			count_code = excluded.count_code,
			extracted_at = excluded.extracted_at,
			payload = excluded.payload`,
		report.ID, code, report.ExtractedAt.UTC().Format(time.RFC3339Nano), payload)
	if err != nil {
		return fmt.Errorf("upsert report %s: %w", report.ID, err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (domain.Report, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM reports WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Report{}, ErrNotFound
	}
	if err != nil {
		return domain.Report{}, fmt.Errorf("select report %s: %w", id, err)
	}

	var report domain.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return domain.Report{}, fmt.Errorf("decode report %s: %w", id, err)
	}
	return report, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
