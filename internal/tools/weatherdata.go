package tools

import (
	"context"
	"encoding/json"
	"time"

	"wattwise/internal/engineerr"
	"wattwise/internal/weather"
)

// WeatherDataTool delegates to the external weather collaborator.
type WeatherDataTool struct {
	Client weather.Client
}

func (t *WeatherDataTool) Name() string { return "getWeatherData" }

func (t *WeatherDataTool) Schema() Schema {
	return Schema{
		Name:        "getWeatherData",
		Description: "Fetch current or historical weather for a location.",
		Parameters: []Parameter{
			{Name: "lat", Type: "number", Required: true, Description: "Latitude."},
			{Name: "lon", Type: "number", Required: true, Description: "Longitude."},
			{Name: "timestamp", Type: "string", Required: false, Description: "ISO-8601 timestamp; omit for current."},
			{Name: "type", Type: "enum", Required: true, Enum: []string{"current", "historical"}, Description: "Observation type."},
		},
	}
}

type weatherDataParams struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Timestamp string  `json:"timestamp"`
	Type      string  `json:"type"`
}

func (t *WeatherDataTool) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var p weatherDataParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "invalid parameters: " + err.Error()}
	}
	if p.Type != "current" && p.Type != "historical" {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "type must be current or historical"}
	}

	var ts *time.Time
	if p.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, p.Timestamp)
		if err != nil {
			return nil, &engineerr.ToolError{Tool: t.Name(), Message: "timestamp must be ISO-8601: " + err.Error()}
		}
		ts = &parsed
	}

	obs, err := t.Client.CurrentWeather(ctx, p.Lat, p.Lon, ts)
	if err != nil {
		return nil, &engineerr.ToolError{Tool: t.Name(), Message: "weather provider failed: " + err.Error()}
	}
	return obs, nil
}
