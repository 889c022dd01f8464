package database

import (
	"context"
	"fmt"
	"log"
	"strings"

	"cropadvisor/models"
)

// History backends
const (
	BackendNone       = "none"
	BackendMemory     = "memory"
	BackendSQLite     = "sqlite"
	BackendPostgres   = "postgres"
	BackendClickHouse = "clickhouse"
)

// Record listing limits
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// HistoryStore keeps completed advisories
type HistoryStore interface {
	Record(ctx context.Context, rec models.AdvisoryRecord) error
	Recent(ctx context.Context, limit int) ([]models.AdvisoryRecord, error)
	Backend() string
	Close() error
}

// Config selects and configures a history backend
type Config struct {
	Backend            string
	SQLitePath         string
	PostgresURL        string
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	MemoryCapacity     int
}

// Open connects to the configured backend and ensures its schema exists.
// The "none" backend returns a nil store.
func Open(ctx context.Context, cfg Config) (HistoryStore, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = BackendSQLite
	}

	var (
		store HistoryStore
		err   error
	)
	switch backend {
	case BackendNone:
		log.Printf("History: disabled")
		return nil, nil
	case BackendMemory:
		store = NewMemoryStore(cfg.MemoryCapacity)
	case BackendSQLite:
		store, err = NewSQLiteStore(ctx, cfg.SQLitePath)
	case BackendPostgres:
		store, err = NewPostgresStore(ctx, cfg.PostgresURL)
	case BackendClickHouse:
		store, err = NewClickHouseStore(ctx, cfg.ClickHouseAddr, cfg.ClickHouseDatabase, cfg.ClickHouseUser, cfg.ClickHousePassword)
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("History: using %s backend", store.Backend())
	return store, nil
}

// clampLimit applies the default and maximum record limits
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
