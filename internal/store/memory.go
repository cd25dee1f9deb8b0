package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"wattwise/internal/domain"
)

type cachedEntry struct {
	model     json.RawMessage
	expiresAt time.Time
}

// MemoryStore is an in-memory Store used by tests and by local/offline
// runs. It is safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	records   map[string][]domain.HistoricalRecord
	systems   map[string]domain.SystemProfile
	models    map[string]cachedEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]domain.HistoricalRecord),
		systems: make(map[string]domain.SystemProfile),
		models:  make(map[string]cachedEntry),
	}
}

// SeedRecords installs a system's record set, sorted ascending by
// timestamp as the store's contract requires.
func (m *MemoryStore) SeedRecords(systemID string, records []domain.HistoricalRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sorted := append([]domain.HistoricalRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })
	m.records[systemID] = sorted
}

// SeedSystem installs a system profile.
func (m *MemoryStore) SeedSystem(profile domain.SystemProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.systems[profile.ID] = profile
}

func (m *MemoryStore) Records(ctx context.Context, systemID string, from, to time.Time) ([]domain.HistoricalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.HistoricalRecord
	for _, r := range m.records[systemID] {
		if !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryStore) System(ctx context.Context, systemID string) (*domain.SystemProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.systems[systemID]
	if !ok {
		return nil, nil
	}
	cp := p
	return &cp, nil
}

func (m *MemoryStore) RecentSnapshots(ctx context.Context, systemID string, n int) ([]domain.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.records[systemID]
	var out []domain.Snapshot
	for i := len(recs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, recs[i].Analysis)
	}
	return out, nil
}

func (m *MemoryStore) CachedModel(ctx context.Context, systemID, kind string) (json.RawMessage, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.models[systemID+"|"+kind]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.model, true, nil
}

func (m *MemoryStore) PutCachedModel(ctx context.Context, systemID, kind string, model json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models[systemID+"|"+kind] = cachedEntry{model: model, expiresAt: time.Now().Add(ModelTTL)}
	return nil
}

func (m *MemoryStore) Close() {}
