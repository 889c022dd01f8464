package database

// Table definitions per backend. Every backend stores the same columns.

const sqliteHistoryTable = `
CREATE TABLE IF NOT EXISTS advisory_history (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at        TEXT NOT NULL,
	state             TEXT NOT NULL,
	district          TEXT NOT NULL,
	month             TEXT NOT NULL,
	language          TEXT NOT NULL,
	top_crop          TEXT NOT NULL,
	confidence        REAL NOT NULL,
	risk_level        TEXT NOT NULL,
	rainfall          REAL NOT NULL,
	rainfall_fallback INTEGER NOT NULL,
	temperature       REAL NOT NULL,
	humidity          REAL NOT NULL
)`

const postgresHistoryTable = `
CREATE TABLE IF NOT EXISTS advisory_history (
	id                BIGSERIAL PRIMARY KEY,
	created_at        TIMESTAMPTZ NOT NULL,
	state             TEXT NOT NULL,
	district          TEXT NOT NULL,
	month             TEXT NOT NULL,
	language          TEXT NOT NULL,
	top_crop          TEXT NOT NULL,
	confidence        DOUBLE PRECISION NOT NULL,
	risk_level        TEXT NOT NULL,
	rainfall          DOUBLE PRECISION NOT NULL,
	rainfall_fallback BOOLEAN NOT NULL,
	temperature       DOUBLE PRECISION NOT NULL,
	humidity          DOUBLE PRECISION NOT NULL
)`

const postgresHistoryIndex = `
CREATE INDEX IF NOT EXISTS advisory_history_created_idx ON advisory_history (created_at DESC)`

const clickhouseHistoryTable = `
CREATE TABLE IF NOT EXISTS advisory_history (
	created_at        DateTime64(3),
	state             String,
	district          String,
	month             String,
	language          String,
	top_crop          String,
	confidence        Float64,
	risk_level        String,
	rainfall          Float64,
	rainfall_fallback Bool,
	temperature       Float64,
	humidity          Float64
) ENGINE = MergeTree()
ORDER BY (created_at, state, district)
TTL toDateTime(created_at) + INTERVAL 365 DAY`

const historyColumns = `created_at, state, district, month, language, top_crop, confidence,
	risk_level, rainfall, rainfall_fallback, temperature, humidity`
