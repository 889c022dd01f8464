package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"cropadvisor/models"
)

// SQLiteStore keeps advisories in a local SQLite file
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens or creates the database at path
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = "data/history.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteHistoryTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history table: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Record(ctx context.Context, rec models.AdvisoryRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO advisory_history (`+historyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.State,
		rec.District,
		rec.Month,
		string(rec.Language),
		rec.TopCrop,
		rec.Confidence,
		string(rec.RiskLevel),
		rec.Rainfall,
		rec.RainfallDegraded,
		rec.Temperature,
		rec.Humidity,
	)
	if err != nil {
		return fmt.Errorf("failed to insert advisory: %w", err)
	}
	return nil
}

// Recent returns records newest first
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]models.AdvisoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+historyColumns+`
		FROM advisory_history ORDER BY id DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	records := []models.AdvisoryRecord{}
	for rows.Next() {
		var (
			rec       models.AdvisoryRecord
			createdAt string
			lang      string
			level     string
		)
		if err := rows.Scan(&createdAt, &rec.State, &rec.District, &rec.Month, &lang, &rec.TopCrop,
			&rec.Confidence, &level, &rec.Rainfall, &rec.RainfallDegraded, &rec.Temperature, &rec.Humidity); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("bad created_at %q: %w", createdAt, err)
		}
		rec.Language = models.Language(lang)
		rec.RiskLevel = models.RiskLevel(level)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Backend() string { return BackendSQLite }

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
