package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"wattwise/internal/config"
	"wattwise/internal/domain"
	"wattwise/internal/engineerr"
)

// HTTPClient calls a configured weather/solar HTTP collaborator.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// New returns an HTTPClient built from the weather section of the config.
func New(cfg config.WeatherConfig, httpClient *http.Client) *HTTPClient {
	return &HTTPClient{httpClient: httpClient, baseURL: cfg.Endpoint, apiKey: cfg.APIKey}
}

type currentWeatherResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Temp      *float64  `json:"temp"`
	Clouds    *float64  `json:"clouds"`
	UVI       *float64  `json:"uvi"`
	Condition *string   `json:"condition"`
}

func (c *HTTPClient) CurrentWeather(ctx context.Context, lat, lon float64, timestamp *time.Time) (*domain.WeatherObservation, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	if timestamp != nil {
		q.Set("timestamp", timestamp.Format(time.RFC3339))
	}

	var resp currentWeatherResponse
	if err := c.getJSON(ctx, "/weather", q, &resp); err != nil {
		return nil, err
	}

	obs := &domain.WeatherObservation{Timestamp: resp.Timestamp}
	if resp.Temp != nil {
		obs.Temp = domain.Known(*resp.Temp)
	}
	if resp.Clouds != nil {
		obs.Clouds = domain.Known(*resp.Clouds)
	}
	if resp.UVI != nil {
		obs.UVI = domain.Known(*resp.UVI)
	}
	if resp.Condition != nil {
		obs.Condition = domain.Known(*resp.Condition)
	}
	return obs, nil
}

type solarEstimateResponse struct {
	DailyAverageWh float64 `json:"dailyAverageWh"`
	PeakSunHours   float64 `json:"peakSunHours"`
}

func (c *HTTPClient) SolarEstimate(ctx context.Context, loc domain.Location, panelWatts float64, start, end time.Time) (*SolarEstimate, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("panelWatts", strconv.FormatFloat(panelWatts, 'f', -1, 64))
	q.Set("start", start.Format(time.RFC3339))
	q.Set("end", end.Format(time.RFC3339))

	var resp solarEstimateResponse
	if err := c.getJSON(ctx, "/solar-estimate", q, &resp); err != nil {
		return nil, err
	}
	return &SolarEstimate{DailyAverageWh: resp.DailyAverageWh, PeakSunHours: resp.PeakSunHours}, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	if c.baseURL == "" {
		return &engineerr.ToolError{Tool: "weather", Message: "weather endpoint not configured"}
	}
	if c.apiKey != "" {
		q.Set("appid", c.apiKey)
	}
	reqURL := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &engineerr.ToolError{Tool: "weather", Message: err.Error()}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &engineerr.ToolError{Tool: "weather", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &engineerr.ToolError{Tool: "weather", Message: fmt.Sprintf("weather provider returned status %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &engineerr.ToolError{Tool: "weather", Message: "failed to decode weather response: " + err.Error()}
	}
	return nil
}
