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

func seededMemoryStore(systemID string, n int) *store.MemoryStore {
	m := store.NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	records := make([]domain.HistoricalRecord, 0, n)
	for i := 0; i < n; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		records = append(records, domain.HistoricalRecord{
			SystemID:  systemID,
			Timestamp: ts,
			Analysis: domain.Snapshot{
				Voltage:   domain.Known(13.0),
				Timestamp: ts,
			},
		})
	}
	m.SeedRecords(systemID, records)
	return m
}

func TestRequestBMSDataTool_RejectsBadTimeRange(t *testing.T) {
	tool := &RequestBMSDataTool{Store: seededMemoryStore("sys1", 10)}
	raw, _ := json.Marshal(map[string]any{
		"systemId":         "sys1",
		"metric":           "voltage",
		"time_range_start": "2026-01-02T00:00:00Z",
		"time_range_end":   "2026-01-01T00:00:00Z",
		"granularity":      "raw",
	})
	_, err := tool.Call(context.Background(), raw)
	require.Error(t, err)
}

func TestRequestBMSDataTool_StrideSamplesLargeRawResults(t *testing.T) {
	tool := &RequestBMSDataTool{Store: seededMemoryStore("sys1", 800)}
	raw, _ := json.Marshal(map[string]any{
		"systemId":         "sys1",
		"metric":           "voltage",
		"time_range_start": "2026-01-01T00:00:00Z",
		"time_range_end":   "2026-02-01T00:00:00Z",
		"granularity":      "raw",
	})
	got, err := tool.Call(context.Background(), raw)
	require.NoError(t, err)
	result := got.(*requestBMSDataResult)
	require.NotEmpty(t, result.Note)
	data := result.Data.([]domain.HistoricalRecord)
	require.LessOrEqual(t, len(data), 550)
	require.NotEmpty(t, data)
}

func TestRequestBMSDataTool_BucketsHourly(t *testing.T) {
	tool := &RequestBMSDataTool{Store: seededMemoryStore("sys1", 48)}
	raw, _ := json.Marshal(map[string]any{
		"systemId":         "sys1",
		"metric":           "voltage",
		"time_range_start": "2026-01-01T00:00:00Z",
		"time_range_end":   "2026-01-03T00:00:00Z",
		"granularity":      "hourly_avg",
	})
	got, err := tool.Call(context.Background(), raw)
	require.NoError(t, err)
	result := got.(*requestBMSDataResult)
	buckets := result.Data.([]bucketAgg)
	require.NotEmpty(t, buckets)
	for _, b := range buckets {
		require.InDelta(t, 13.0, b.Avg, 1e-9)
	}
}

func TestGetSystemHistoryTool_RedirectsToRequestBMSData(t *testing.T) {
	delegate := &RequestBMSDataTool{Store: seededMemoryStore("sys1", 10)}
	alias := &GetSystemHistoryTool{Delegate: delegate}
	require.Equal(t, "getSystemHistory", alias.Name())
	require.Equal(t, "request_bms_data", delegate.Name())

	raw, _ := json.Marshal(map[string]any{
		"systemId":         "sys1",
		"metric":           "voltage",
		"time_range_start": "2026-01-01T00:00:00Z",
		"time_range_end":   "2026-01-01T05:00:00Z",
		"granularity":      "raw",
	})
	got, err := alias.Call(context.Background(), raw)
	require.NoError(t, err)
	require.NotNil(t, got)
}
