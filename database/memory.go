package database

import (
	"context"
	"sync"

	"cropadvisor/models"
)

const defaultMemoryCapacity = 500

// MemoryStore keeps the most recent advisories in a ring buffer
type MemoryStore struct {
	mu      sync.Mutex
	records []models.AdvisoryRecord
	next    int
	full    bool
}

// NewMemoryStore creates a store holding at most capacity records
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryStore{records: make([]models.AdvisoryRecord, capacity)}
}

func (m *MemoryStore) Record(_ context.Context, rec models.AdvisoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[m.next] = rec
	m.next = (m.next + 1) % len(m.records)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Recent returns records newest first
func (m *MemoryStore) Recent(_ context.Context, limit int) ([]models.AdvisoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := m.next
	if m.full {
		size = len(m.records)
	}
	limit = clampLimit(limit)
	if limit > size {
		limit = size
	}

	out := make([]models.AdvisoryRecord, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.records)) % len(m.records)
		out = append(out, m.records[idx])
	}
	return out, nil
}

func (m *MemoryStore) Backend() string { return BackendMemory }

func (m *MemoryStore) Close() error { return nil }
