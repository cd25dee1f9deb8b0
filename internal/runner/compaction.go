package runner

import (
	"encoding/json"
	"strconv"
)

const (
	compactionHighThreshold   = 200
	compactionHighTarget      = 80
	compactionMidThreshold    = 150
	compactionMidTarget       = 100
)

// compactToolResult stride-samples a result's top-level "data" array when
// it is large, always keeping the last element, and annotates the result
// with a note that invites a more specific query. Results without a
// "data" array, or with one shorter than the mid threshold, pass through
// unchanged.
func compactToolResult(raw json.RawMessage) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw
	}
	dataRaw, ok := obj["data"]
	if !ok {
		return raw
	}
	var data []json.RawMessage
	if err := json.Unmarshal(dataRaw, &data); err != nil {
		return raw
	}

	var target int
	switch {
	case len(data) > compactionHighThreshold:
		target = compactionHighTarget
	case len(data) >= compactionMidThreshold:
		target = compactionMidTarget
	default:
		return raw
	}

	sampled := strideSampleKeepingLast(data, target)
	sampledRaw, err := json.Marshal(sampled)
	if err != nil {
		return raw
	}
	obj["data"] = sampledRaw
	note := "result resampled from " + strconv.Itoa(len(data)) + " to " + strconv.Itoa(len(sampled)) + " points; request a narrower range or a specific metric for full detail"
	noteRaw, _ := json.Marshal(note)
	obj["_compactionNote"] = noteRaw

	out, err := json.Marshal(obj)
	if err != nil {
		return raw
	}
	return out
}

func strideSampleKeepingLast(data []json.RawMessage, target int) []json.RawMessage {
	if target <= 0 || len(data) <= target {
		return data
	}
	stride := (len(data) + target - 1) / target
	out := make([]json.RawMessage, 0, target+1)
	for i := 0; i < len(data); i += stride {
		out = append(out, data[i])
	}
	if last := data[len(data)-1]; len(out) == 0 || string(out[len(out)-1]) != string(last) {
		out = append(out, last)
	}
	return out
}
