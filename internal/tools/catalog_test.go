package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCatalog_RegistersAllEightTools(t *testing.T) {
	reg := NewCatalog(seededMemoryStore("sys1", 10), &fakeWeatherClient{})
	schemas := reg.Schemas()
	names := make([]string, 0, len(schemas))
	for _, s := range schemas {
		names = append(names, s.Name)
	}
	require.ElementsMatch(t, []string{
		"request_bms_data",
		"getSystemAnalytics",
		"getWeatherData",
		"getSolarEstimate",
		"predict_battery_trends",
		"analyze_usage_patterns",
		"calculate_energy_budget",
		"getSystemHistory",
	}, names)
}

func TestNewCatalog_DispatchUnknownToolReportsErrorPayload(t *testing.T) {
	reg := NewCatalog(seededMemoryStore("sys1", 10), &fakeWeatherClient{})
	raw, err := reg.Dispatch(context.Background(), "does_not_exist", json.RawMessage(`{}`))
	require.NoError(t, err)

	var payload struct {
		Error   bool   `json:"error"`
		Tool    string `json:"tool"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.True(t, payload.Error)
	require.Equal(t, "does_not_exist", payload.Tool)
}

func TestNewCatalog_DispatchToolFailureNeverReturnsGoError(t *testing.T) {
	reg := NewCatalog(seededMemoryStore("sys1", 10), &fakeWeatherClient{})
	raw, err := reg.Dispatch(context.Background(), "request_bms_data", json.RawMessage(`{}`))
	require.NoError(t, err)

	var payload struct {
		Error bool `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.True(t, payload.Error)
}
