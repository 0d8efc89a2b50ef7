// Package weather proxies current-weather data from OpenWeatherMap. The
// upstream allows a limited number of free calls per day, so responses are
// cached in-process for an hour.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	cacheKey = "weatherData"
	cacheTTL = 1 * time.Hour
)

// Client calls the OpenWeatherMap API over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	city       string
	httpClient *http.Client
	cache      *gocache.Cache
	logger     *slog.Logger
}

func NewClient(baseURL, apiKey, city string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		city:       city,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      gocache.New(gocache.NoExpiration, 10*time.Minute),
		logger:     logger,
	}
}

// Current returns the weather payload for the configured city, served from
// cache when a fetch happened within the last hour.
func (c *Client) Current(ctx context.Context) (map[string]any, error) {
	if cached, found := c.cache.Get(cacheKey); found {
		return cached.(map[string]any), nil
	}

	u := fmt.Sprintf("%s/data/2.5/weather?q=%s&appid=%s&units=metric",
		c.baseURL, url.QueryEscape(c.city), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("weather upstream returned %d: %s", resp.StatusCode, string(body))
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("weather decode: %w", err)
	}

	c.cache.Set(cacheKey, data, cacheTTL)
	return data, nil
}

// Handler answers GET /api/weather with {"data": {...}}.
func (c *Client) Handler(w http.ResponseWriter, r *http.Request) {
	data, err := c.Current(r.Context())
	if err != nil {
		c.logger.Error("fetch weather", "error", err)
		http.Error(w, `{"error":"failed to fetch weather data"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"data": data})
}
