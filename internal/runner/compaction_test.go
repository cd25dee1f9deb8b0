package runner

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildDataPayload(n int) json.RawMessage {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	b, _ := json.Marshal(map[string]any{"data": items})
	return b
}

func decodeDataLen(t *testing.T, raw json.RawMessage) ([]json.RawMessage, map[string]json.RawMessage) {
	t.Helper()
	var obj map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &obj))
	var data []json.RawMessage
	require.NoError(t, json.Unmarshal(obj["data"], &data))
	return data, obj
}

func TestCompactToolResult_PassesThroughSmallResults(t *testing.T) {
	raw := buildDataPayload(50)
	out := compactToolResult(raw)
	require.Equal(t, string(raw), string(out))
}

func TestCompactToolResult_MidRangeSamplesTo100(t *testing.T) {
	raw := buildDataPayload(180)
	out := compactToolResult(raw)
	data, obj := decodeDataLen(t, out)
	require.LessOrEqual(t, len(data), 100)
	require.Contains(t, string(obj["_compactionNote"]), "resampled from 180")
}

func TestCompactToolResult_HighRangeSamplesTo80KeepingLast(t *testing.T) {
	raw := buildDataPayload(850)
	out := compactToolResult(raw)
	data, _ := decodeDataLen(t, out)
	require.LessOrEqual(t, len(data), 81)
	var last int
	require.NoError(t, json.Unmarshal(data[len(data)-1], &last))
	require.Equal(t, 849, last)
}

func TestCompactToolResult_PassesThroughNonDataPayloads(t *testing.T) {
	raw := json.RawMessage(`{"error":true,"tool":"x","message":"bad params"}`)
	out := compactToolResult(raw)
	require.Equal(t, string(raw), string(out))
}
