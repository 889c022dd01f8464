package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"cropadvisor/models"
)

// PostgresStore keeps advisories in PostgreSQL
type PostgresStore struct {
	Pool *pgxpool.Pool
}

// NewPostgresStore connects and creates the history table
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	if connStr == "" {
		return nil, errors.New("postgres connection string is required")
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{Pool: pool}
	if err := store.Initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// Initialize sets up the history table and index
func (p *PostgresStore) Initialize(ctx context.Context) error {
	if _, err := p.Pool.Exec(ctx, postgresHistoryTable); err != nil {
		return fmt.Errorf("failed to create advisory_history table: %w", err)
	}
	if _, err := p.Pool.Exec(ctx, postgresHistoryIndex); err != nil {
		return fmt.Errorf("failed to create advisory_history index: %w", err)
	}
	return nil
}

func (p *PostgresStore) Record(ctx context.Context, rec models.AdvisoryRecord) error {
	_, err := p.Pool.Exec(ctx, `INSERT INTO advisory_history (`+historyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.CreatedAt,
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
func (p *PostgresStore) Recent(ctx context.Context, limit int) ([]models.AdvisoryRecord, error) {
	rows, err := p.Pool.Query(ctx, `SELECT `+historyColumns+`
		FROM advisory_history ORDER BY created_at DESC, id DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	records := []models.AdvisoryRecord{}
	for rows.Next() {
		var (
			rec   models.AdvisoryRecord
			lang  string
			level string
		)
		if err := rows.Scan(&rec.CreatedAt, &rec.State, &rec.District, &rec.Month, &lang, &rec.TopCrop,
			&rec.Confidence, &level, &rec.Rainfall, &rec.RainfallDegraded, &rec.Temperature, &rec.Humidity); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		rec.Language = models.Language(lang)
		rec.RiskLevel = models.RiskLevel(level)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (p *PostgresStore) Backend() string { return BackendPostgres }

func (p *PostgresStore) Close() error {
	p.Pool.Close()
	return nil
}
