package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wattwise/internal/domain"
)

func TestMemoryStore_RecordsAscendingWithinRange(t *testing.T) {
	m := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.SeedRecords("sys1", []domain.HistoricalRecord{
		{SystemID: "sys1", Timestamp: base.Add(2 * time.Hour)},
		{SystemID: "sys1", Timestamp: base},
		{SystemID: "sys1", Timestamp: base.Add(24 * time.Hour)},
	})

	got, err := m.Records(context.Background(), "sys1", base, base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.True(t, got[0].Timestamp.Before(got[1].Timestamp))
}

func TestMemoryStore_CachedModelExpiry(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, m.PutCachedModel(ctx, "sys1", "capacity", json.RawMessage(`{"k":1}`)))

	_, found, err := m.CachedModel(ctx, "sys1", "capacity")
	require.NoError(t, err)
	require.True(t, found)

	m.mu.Lock()
	entry := m.models["sys1|capacity"]
	entry.expiresAt = time.Now().Add(-time.Minute)
	m.models["sys1|capacity"] = entry
	m.mu.Unlock()

	_, found, err = m.CachedModel(ctx, "sys1", "capacity")
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemoryStore_SystemUnknownReturnsNil(t *testing.T) {
	m := NewMemoryStore()
	p, err := m.System(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, p)
}
