package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mhorbach/weather-reminder/internal/config"
)

// ErrCityNotFound means the provider does not know the requested city name.
var ErrCityNotFound = errors.New("city not found")

// Report is the normalized current-weather record for one city.
type Report struct {
	City        string  `json:"city"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Description string  `json:"description"`
	WindSpeed   float64 `json:"wind_speed"`
}

// Client fetches current weather from OpenWeatherMap in metric units.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	maxRetries int
}

func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		apiKey: cfg.WeatherAPIKey,
		httpClient: &http.Client{
			Timeout: cfg.WeatherTimeout,
		},
		baseURL:    cfg.WeatherAPIURL,
		logger:     logger,
		maxRetries: 3,
	}
}

// Current returns the weather for a city. Transport errors and 5xx responses
// are retried with exponential backoff; an unknown city is not.
func (c *Client) Current(ctx context.Context, cityName string) (Report, error) {
	var lastErr error
	backoff := 200 * time.Millisecond

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		report, retryable, err := c.fetch(ctx, cityName)
		if err == nil {
			return report, nil
		}
		if !retryable {
			return Report{}, err
		}
		lastErr = err
		c.logger.Warn("weather fetch failed", "city", cityName, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return Report{}, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return Report{}, fmt.Errorf("weather fetch for %q failed after %d attempts: %w", cityName, c.maxRetries, lastErr)
}

// Exists reports whether the provider recognizes the city name.
func (c *Client) Exists(ctx context.Context, cityName string) (bool, error) {
	_, err := c.Current(ctx, cityName)
	if errors.Is(err, ErrCityNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) fetch(ctx context.Context, cityName string) (Report, bool, error) {
	params := url.Values{
		"q":     {cityName},
		"units": {"metric"},
		"appid": {c.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Report{}, false, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Report{}, true, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Report{}, false, ErrCityNotFound
	case resp.StatusCode >= 500:
		return Report{}, true, fmt.Errorf("weather API error: status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return Report{}, false, fmt.Errorf("weather API error: status %d: %s", resp.StatusCode, body)
	}

	var owm response
	if err := json.NewDecoder(resp.Body).Decode(&owm); err != nil {
		return Report{}, false, fmt.Errorf("decode response: %w", err)
	}

	if owm.Name == "" || len(owm.Weather) == 0 {
		return Report{}, false, fmt.Errorf("weather API response missing fields for %q", cityName)
	}

	return Report{
		City:        owm.Name,
		Temperature: owm.Main.Temp,
		FeelsLike:   owm.Main.FeelsLike,
		Description: owm.Weather[0].Description,
		WindSpeed:   owm.Wind.Speed,
	}, false, nil
}

// OpenWeatherMap API response types.

type response struct {
	Name string `json:"name"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}
