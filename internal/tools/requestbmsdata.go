package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wattwise/internal/domain"
	"wattwise/internal/engineerr"
	"wattwise/internal/store"
)

const rawSampleCap = 500
const rawSampleStrideTarget = 500

// RequestBMSDataTool is the canonical data-access tool: queries the store
// for a time range and either stride-samples raw points or buckets them
// into hourly/daily per-metric aggregates.
type RequestBMSDataTool struct {
	Store store.Store
}

func (t *RequestBMSDataTool) Name() string { return "request_bms_data" }

func (t *RequestBMSDataTool) Schema() Schema {
	return Schema{
		Name:        "request_bms_data",
		Description: "Fetch historical BMS telemetry for a system over a time range, raw or bucketed.",
		Parameters: []Parameter{
			{Name: "systemId", Type: "string", Required: true, Description: "Target system identifier."},
			{Name: "metric", Type: "enum", Required: true, Enum: validMetrics, Description: "Which metric to return."},
			{Name: "time_range_start", Type: "string", Required: true, Description: "ISO-8601 start timestamp."},
			{Name: "time_range_end", Type: "string", Required: true, Description: "ISO-8601 end timestamp."},
			{Name: "granularity", Type: "enum", Required: true, Enum: []string{"raw", "hourly_avg", "daily_avg"}, Description: "Aggregation level."},
		},
	}
}

type requestBMSDataParams struct {
	SystemID       string `json:"systemId"`
	Metric         string `json:"metric"`
	TimeRangeStart string `json:"time_range_start"`
	TimeRangeEnd   string `json:"time_range_end"`
	Granularity    string `json:"granularity"`
}

type bucketAgg struct {
	Bucket string  `json:"bucket"`
	Avg    float64 `json:"avg"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

type requestBMSDataResult struct {
	SystemID string      `json:"systemId"`
	Metric   string      `json:"metric"`
	Data     interface{} `json:"data"`
	Note     string      `json:"note,omitempty"`
}

func (t *RequestBMSDataTool) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var p requestBMSDataParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "invalid parameters: " + err.Error()}
	}
	if p.SystemID == "" {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "systemId is required"}
	}
	if !isValidMetric(p.Metric) {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: fmt.Sprintf("unknown metric %q", p.Metric)}
	}
	start, err := time.Parse(time.RFC3339, p.TimeRangeStart)
	if err != nil {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "time_range_start must be ISO-8601: " + err.Error()}
	}
	end, err := time.Parse(time.RFC3339, p.TimeRangeEnd)
	if err != nil {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "time_range_end must be ISO-8601: " + err.Error()}
	}
	if !start.Before(end) {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "time_range_start must be before time_range_end"}
	}
	if p.Granularity != "raw" && p.Granularity != "hourly_avg" && p.Granularity != "daily_avg" {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: fmt.Sprintf("unknown granularity %q", p.Granularity)}
	}

	records, err := t.Store.Records(ctx, p.SystemID, start, end)
	if err != nil {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "store read failed: " + err.Error()}
	}

	result := &requestBMSDataResult{SystemID: p.SystemID, Metric: p.Metric}

	switch p.Granularity {
	case "raw":
		if len(records) > rawSampleCap {
			sampled := strideSampleRecords(records, rawSampleStrideTarget)
			result.Data = sampled
			result.Note = fmt.Sprintf("stride-sampled from %d records to %d, preserving the most recent point", len(records), len(sampled))
		} else {
			result.Data = records
		}
	case "hourly_avg":
		result.Data = bucketRecords(records, p.Metric, "2006-01-02T15")
	case "daily_avg":
		result.Data = bucketRecords(records, p.Metric, "2006-01-02")
	}

	return result, nil
}

// strideSampleRecords reduces a record set to approximately target length,
// always preserving the final (most recent) record.
func strideSampleRecords(records []domain.HistoricalRecord, target int) []domain.HistoricalRecord {
	if len(records) <= target {
		return records
	}
	stride := (len(records) + target - 1) / target
	if stride < 1 {
		stride = 1
	}
	var sampled []domain.HistoricalRecord
	for i := 0; i < len(records); i += stride {
		sampled = append(sampled, records[i])
	}
	last := records[len(records)-1]
	if len(sampled) == 0 || !sampled[len(sampled)-1].Timestamp.Equal(last.Timestamp) {
		sampled = append(sampled, last)
	}
	return sampled
}

func bucketRecords(records []domain.HistoricalRecord, metric, layout string) []bucketAgg {
	selector, ok := metricSelector(metric)
	if !ok {
		selector = func(s domain.Snapshot) (float64, bool) { return s.Voltage.Get() } // "all" defaults to voltage for a single-series bucket view
	}

	type acc struct {
		sum, min, max float64
		count         int
	}
	byBucket := map[string]*acc{}
	var order []string

	for _, r := range records {
		v, ok := selector(r.Analysis)
		if !ok {
			continue
		}
		key := r.Timestamp.Format(layout)
		a, exists := byBucket[key]
		if !exists {
			a = &acc{min: v, max: v}
			byBucket[key] = a
			order = append(order, key)
		}
		a.sum += v
		a.count++
		if v < a.min {
			a.min = v
		}
		if v > a.max {
			a.max = v
		}
	}

	out := make([]bucketAgg, 0, len(order))
	for _, key := range order {
		a := byBucket[key]
		out = append(out, bucketAgg{
			Bucket: key,
			Avg:    a.sum / float64(a.count),
			Min:    a.min,
			Max:    a.max,
			Count:  a.count,
		})
	}
	return out
}
