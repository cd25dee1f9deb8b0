package tools

import (
	"context"
	"encoding/json"

	"wattwise/internal/analytics"
	"wattwise/internal/domain"
	"wattwise/internal/engineerr"
	"wattwise/internal/store"
)

const predictTrendsLookbackDays = 180

// PredictBatteryTrendsTool wraps the predictive-models kernel function with
// a 24h cache keyed by (systemId, kind). Terminology discipline: this
// produces service-life predictions, never runtime/autonomy.
type PredictBatteryTrendsTool struct {
	Store store.Store
}

func (t *PredictBatteryTrendsTool) Name() string { return "predict_battery_trends" }

func (t *PredictBatteryTrendsTool) Schema() Schema {
	return Schema{
		Name:        "predict_battery_trends",
		Description: "Forecast battery service-life using exponential, linear, and cycle-based models.",
		Parameters: []Parameter{
			{Name: "systemId", Type: "string", Required: true, Description: "Target system identifier."},
			{Name: "metric", Type: "enum", Required: true, Enum: []string{"capacity", "lifetime"}, Description: "Prediction kind."},
			{Name: "forecastDays", Type: "integer", Required: false, Description: "Forecast horizon in days (informational)."},
			{Name: "confidenceLevel", Type: "number", Required: false, Description: "Requested confidence level (informational)."},
		},
	}
}

type predictTrendsParams struct {
	SystemID        string  `json:"systemId"`
	Metric          string  `json:"metric"`
	ForecastDays    int     `json:"forecastDays"`
	ConfidenceLevel float64 `json:"confidenceLevel"`
}

func (t *PredictBatteryTrendsTool) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var p predictTrendsParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "invalid parameters: " + err.Error()}
	}
	if p.SystemID == "" {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "systemId is required"}
	}
	if p.Metric != "capacity" && p.Metric != "lifetime" {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "metric must be capacity or lifetime"}
	}

	if cached, found, err := t.Store.CachedModel(ctx, p.SystemID, p.Metric); err == nil && found {
		var models analytics.PredictiveModels
		if err := json.Unmarshal(cached, &models); err == nil {
			return &models, nil
		}
	}

	end := timeNow()
	start := end.AddDate(0, 0, -predictTrendsLookbackDays)
	records, err := t.Store.Records(ctx, p.SystemID, start, end)
	if err != nil {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "store read failed: " + err.Error()}
	}

	profile, err := t.Store.System(ctx, p.SystemID)
	if err != nil {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "store read failed: " + err.Error()}
	}

	recent, err := t.Store.RecentSnapshots(ctx, p.SystemID, 1)
	if err != nil {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "store read failed: " + err.Error()}
	}

	var current *domain.Snapshot
	if len(recent) > 0 {
		current = &recent[0]
	}

	models, insufficientData := analytics.ComputePredictiveModels(records, profile, current)
	if insufficientData != nil {
		return insufficientData, nil
	}

	if encoded, err := json.Marshal(models); err == nil {
		_ = t.Store.PutCachedModel(ctx, p.SystemID, p.Metric, encoded)
	}

	return models, nil
}
