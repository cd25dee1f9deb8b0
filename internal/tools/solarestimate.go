package tools

import (
	"context"
	"encoding/json"
	"time"

	"wattwise/internal/domain"
	"wattwise/internal/engineerr"
	"wattwise/internal/weather"
)

// SolarEstimateTool delegates to the external weather/solar collaborator
// for a modeled solar-generation estimate.
type SolarEstimateTool struct {
	Client weather.Client
}

func (t *SolarEstimateTool) Name() string { return "getSolarEstimate" }

func (t *SolarEstimateTool) Schema() Schema {
	return Schema{
		Name:        "getSolarEstimate",
		Description: "Modeled daily solar generation for a panel rating and location over a date range.",
		Parameters: []Parameter{
			{Name: "location", Type: "object", Required: true, Description: "Object with numeric latitude and longitude."},
			{Name: "panelWatts", Type: "number", Required: true, Description: "Installed panel wattage."},
			{Name: "startDate", Type: "string", Required: true, Description: "ISO-8601 start date."},
			{Name: "endDate", Type: "string", Required: true, Description: "ISO-8601 end date."},
		},
	}
}

type solarEstimateParams struct {
	Location   domain.Location `json:"location"`
	PanelWatts float64         `json:"panelWatts"`
	StartDate  string          `json:"startDate"`
	EndDate    string          `json:"endDate"`
}

func (t *SolarEstimateTool) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var p solarEstimateParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "invalid parameters: " + err.Error()}
	}
	start, err := time.Parse(time.RFC3339, p.StartDate)
	if err != nil {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "startDate must be ISO-8601: " + err.Error()}
	}
	end, err := time.Parse(time.RFC3339, p.EndDate)
	if err != nil {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "endDate must be ISO-8601: " + err.Error()}
	}
	if p.PanelWatts <= 0 {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "panelWatts must be positive"}
	}

	estimate, err := t.Client.SolarEstimate(ctx, p.Location, p.PanelWatts, start, end)
	if err != nil {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "solar estimate provider failed: " + err.Error()}
	}
	return estimate, nil
}
