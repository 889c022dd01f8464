package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"cropadvisor/models"
)

// ClickHouseStore appends advisories to a ClickHouse MergeTree table
type ClickHouseStore struct {
	conn driver.Conn
}

// NewClickHouseStore creates a new ClickHouse connection and schema
func NewClickHouseStore(ctx context.Context, addr, database, username, password string) (*ClickHouseStore, error) {
	if addr == "" {
		return nil, errors.New("clickhouse address is required")
	}
	if database == "" {
		database = "default"
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	if err := conn.Exec(ctx, clickhouseHistoryTable); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	log.Printf("Connected to ClickHouse at %s", addr)
	return &ClickHouseStore{conn: conn}, nil
}

func (c *ClickHouseStore) Record(ctx context.Context, rec models.AdvisoryRecord) error {
	err := c.conn.Exec(ctx, `INSERT INTO advisory_history (`+historyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
func (c *ClickHouseStore) Recent(ctx context.Context, limit int) ([]models.AdvisoryRecord, error) {
	rows, err := c.conn.Query(ctx, `SELECT `+historyColumns+`
		FROM advisory_history ORDER BY created_at DESC LIMIT ?`, clampLimit(limit))
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

func (c *ClickHouseStore) Backend() string { return BackendClickHouse }

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
