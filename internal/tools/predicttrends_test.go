package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wattwise/internal/domain"
	"wattwise/internal/store"
)

func seededDecayStore(systemID string, n int) *store.MemoryStore {
	m := store.NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c0 := 1000.0
	var records []domain.HistoricalRecord
	for i := 0; i < n; i++ {
		ts := base.AddDate(0, 0, i)
		capacity := c0 * (1.0 - 0.001*float64(i))
		records = append(records, domain.HistoricalRecord{
			SystemID:  systemID,
			Timestamp: ts,
			Analysis: domain.Snapshot{
				SOC:               domain.Known(90.0),
				RemainingCapacity: domain.Known(capacity),
				CycleCount:        domain.Known(100 + i),
				Chemistry:         domain.Known("LiFePO4"),
				Timestamp:         ts,
			},
		})
	}
	m.SeedRecords(systemID, records)
	m.SeedSystem(domain.SystemProfile{ID: systemID, Chemistry: domain.Known("LiFePO4")})
	return m
}

func TestPredictBatteryTrendsTool_ComputesWhenNoCache(t *testing.T) {
	defer pinClock(fixtureNow)()
	tool := &PredictBatteryTrendsTool{Store: seededDecayStore("sys1", 20)}
	raw, _ := json.Marshal(map[string]any{"systemId": "sys1", "metric": "capacity"})
	got, err := tool.Call(context.Background(), raw)
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestPredictBatteryTrendsTool_UsesCacheWhenPresent(t *testing.T) {
	st := seededDecayStore("sys1", 20)
	cached := json.RawMessage(`{"exponential":{"method":"exponential","daysToThreshold":42}}`)
	require.NoError(t, st.PutCachedModel(context.Background(), "sys1", "capacity", cached))

	tool := &PredictBatteryTrendsTool{Store: st}
	raw, _ := json.Marshal(map[string]any{"systemId": "sys1", "metric": "capacity"})
	got, err := tool.Call(context.Background(), raw)
	require.NoError(t, err)

	var result struct {
		Exponential struct {
			DaysToThreshold float64 `json:"daysToThreshold"`
		} `json:"exponential"`
	}
	encoded, err := json.Marshal(got)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(encoded, &result))
	require.Equal(t, 42.0, result.Exponential.DaysToThreshold)
}

func TestPredictBatteryTrendsTool_RejectsUnknownMetric(t *testing.T) {
	tool := &PredictBatteryTrendsTool{Store: seededDecayStore("sys1", 20)}
	raw, _ := json.Marshal(map[string]any{"systemId": "sys1", "metric": "bogus"})
	_, err := tool.Call(context.Background(), raw)
	require.Error(t, err)
}
