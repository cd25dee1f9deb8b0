package tools

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"wattwise/internal/engineerr"
	"wattwise/internal/store"
)

const defaultLookbackDays = 60

const alertRecoverySOCThreshold = 20.0

// SystemAnalyticsTool returns hourly averages, a performance baseline, and
// alert-event groupings over a lookback window.
type SystemAnalyticsTool struct {
	Store store.Store
}

func (t *SystemAnalyticsTool) Name() string { return "getSystemAnalytics" }

func (t *SystemAnalyticsTool) Schema() Schema {
	return Schema{
		Name:        "getSystemAnalytics",
		Description: "Hourly voltage averages, a performance baseline, and grouped alert events over a lookback window.",
		Parameters: []Parameter{
			{Name: "systemId", Type: "string", Required: true, Description: "Target system identifier."},
			{Name: "lookbackDays", Type: "integer", Required: false, Description: "Lookback window in days (default 60)."},
		},
	}
}

type systemAnalyticsParams struct {
	SystemID     string `json:"systemId"`
	LookbackDays int    `json:"lookbackDays"`
}

type systemAnalyticsResult struct {
	SystemID          string       `json:"systemId"`
	LookbackDays      int          `json:"lookbackDays"`
	HourlyAverages    []bucketAgg  `json:"hourlyAverages"`
	PerformanceBaseline float64    `json:"performanceBaseline"`
	AlertEvents       []AlertEvent `json:"alertEvents"`
}

func (t *SystemAnalyticsTool) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var p systemAnalyticsParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "invalid parameters: " + err.Error()}
	}
	if p.SystemID == "" {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "systemId is required"}
	}
	if p.LookbackDays <= 0 {
		p.LookbackDays = defaultLookbackDays
	}

	end := timeNow()
	start := end.AddDate(0, 0, -p.LookbackDays)

	records, err := t.Store.Records(ctx, p.SystemID, start, end)
	if err != nil {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "store read failed: " + err.Error()}
	}

	hourly := bucketRecords(records, "voltage", "2006-01-02T15")

	var voltages []float64
	for _, r := range records {
		if v, ok := r.Analysis.Voltage.Get(); ok {
			voltages = append(voltages, v)
		}
	}
	baseline := medianOf(voltages)

	events := GroupAlertEvents(records, alertRecoverySOCThreshold)

	return &systemAnalyticsResult{
		SystemID:            p.SystemID,
		LookbackDays:        p.LookbackDays,
		HourlyAverages:      hourly,
		PerformanceBaseline: baseline,
		AlertEvents:         events,
	}, nil
}

// timeNow is a seam so callers can substitute a fixed clock in tests
// without injecting time.Time everywhere through the tool interface.
var timeNow = time.Now

func medianOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
