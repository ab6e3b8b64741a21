package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/talgya/wildsim/internal/fleet"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// Client fetches current conditions from OpenWeatherMap to seed the
// starting environment.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a weather API client. Returns nil if apiKey is empty.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the client at another endpoint (tests, proxies).
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// Conditions holds parsed weather data from the API.
type Conditions struct {
	Temp        float64 `json:"temp"`       // Celsius
	Humidity    float64 `json:"humidity"`   // %
	WindSpeed   float64 `json:"wind_speed"` // m/s
	RainLastHr  float64 `json:"rain_1h"`    // mm
	Description string  `json:"description"`
}

// Fetch retrieves current conditions at loc.
func (c *Client) Fetch(ctx context.Context, loc fleet.Location) (*Conditions, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.4f", loc.Lat))
	q.Set("lon", fmt.Sprintf("%.4f", loc.Lng))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather API call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read weather response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API error %d: %s", resp.StatusCode, string(body))
	}

	var owm struct {
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Rain struct {
			OneHour float64 `json:"1h"`
		} `json:"rain"`
	}

	if err := json.Unmarshal(body, &owm); err != nil {
		return nil, fmt.Errorf("parse weather: %w", err)
	}

	conditions := &Conditions{
		Temp:       owm.Main.Temp,
		Humidity:   owm.Main.Humidity,
		WindSpeed:  owm.Wind.Speed,
		RainLastHr: owm.Rain.OneHour,
	}
	if len(owm.Weather) > 0 {
		conditions.Description = owm.Weather[0].Description
	}

	slog.Debug("weather fetched", "temp", conditions.Temp, "desc", conditions.Description)
	return conditions, nil
}

// StateFrom maps live conditions onto a clamped environment state.
func StateFrom(c *Conditions, now time.Time) State {
	s := State{
		BaseTemperature: c.Temp,
		Humidity:        c.Humidity,
		WindSpeed:       c.WindSpeed,
		Rainfall:        c.RainLastHr,
		LastUpdate:      now,
	}
	s.Clamp()
	return s
}
