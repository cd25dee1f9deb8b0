package tools

import (
	"context"
	"encoding/json"
	"time"

	"wattwise/internal/analytics"
	"wattwise/internal/engineerr"
	"wattwise/internal/store"
)

const analyzeUsageDefaultLookbackDays = 30

// AnalyzeUsagePatternsTool wraps the load-profile (daily) and anomaly
// kernel functions behind a single patternType switch.
type AnalyzeUsagePatternsTool struct {
	Store store.Store
}

func (t *AnalyzeUsagePatternsTool) Name() string { return "analyze_usage_patterns" }

func (t *AnalyzeUsagePatternsTool) Schema() Schema {
	return Schema{
		Name:        "analyze_usage_patterns",
		Description: "Daily load profile or flagged anomalies over a time range.",
		Parameters: []Parameter{
			{Name: "systemId", Type: "string", Required: true, Description: "Target system identifier."},
			{Name: "patternType", Type: "enum", Required: true, Enum: []string{"daily", "anomalies"}, Description: "Which analysis to run."},
			{Name: "timeRange", Type: "string", Required: false, Description: "Go duration string, e.g. 720h; defaults to 30 days."},
		},
	}
}

type analyzeUsageParams struct {
	SystemID    string `json:"systemId"`
	PatternType string `json:"patternType"`
	TimeRange   string `json:"timeRange"`
}

func (t *AnalyzeUsagePatternsTool) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var p analyzeUsageParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "invalid parameters: " + err.Error()}
	}
	if p.SystemID == "" {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "systemId is required"}
	}
	if p.PatternType != "daily" && p.PatternType != "anomalies" {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "patternType must be daily or anomalies"}
	}

	end := timeNow()
	lookbackDays := analyzeUsageDefaultLookbackDays
	if d, err := time.ParseDuration(p.TimeRange); err == nil && d > 0 {
		lookbackDays = int(d.Hours() / 24)
		if lookbackDays < 1 {
			lookbackDays = 1
		}
	}
	start := end.AddDate(0, 0, -lookbackDays)

	records, err := t.Store.Records(ctx, p.SystemID, start, end)
	if err != nil {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "store read failed: " + err.Error()}
	}

	switch p.PatternType {
	case "daily":
		profile, insufficientData := analytics.ComputeLoadProfile(records)
		if insufficientData != nil {
			return insufficientData, nil
		}
		return profile, nil
	default: // "anomalies"
		anomalies, insufficientData := analytics.ComputeAnomalies(records)
		if insufficientData != nil {
			return insufficientData, nil
		}
		return anomalies, nil
	}
}
