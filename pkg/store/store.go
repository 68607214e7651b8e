package store

import (
	"context"
	"sync"

	"keyword-go/pkg/keyword"
)

// Store persists canonical keyword records. Writes are upserts keyed on
// (owner_id, topic_id, keyword); duplicate inserts are treated as updates.
type Store interface {
	UpsertRecords(ctx context.Context, records []keyword.Record) error
	Close()
}

// MemoryStore keeps records in-process. Used in tests and when no
// Postgres DSN is configured, so enrichment results are still computed
// and returned.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]keyword.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]keyword.Record)}
}

func (m *MemoryStore) UpsertRecords(ctx context.Context, records []keyword.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.records[r.Identity()] = r
	}
	return nil
}

// Records returns all stored records for a scope.
func (m *MemoryStore) Records(scope keyword.Scope) []keyword.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []keyword.Record
	for _, r := range m.records {
		if r.OwnerID == scope.OwnerID && r.TopicID == scope.TopicID {
			out = append(out, r)
		}
	}
	return out
}

func (m *MemoryStore) Close() {}
