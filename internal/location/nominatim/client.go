// Package nominatim provides a geocoder backed by the OpenStreetMap Nominatim search API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/clearroute/clearroute/internal/location"
	"github.com/clearroute/clearroute/internal/provider/resilience"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "nominatim"

	// DefaultBaseURL is the public Nominatim instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultUserAgent is sent on every request; Nominatim rejects anonymous clients.
	DefaultUserAgent = "ClearRoute/1.0"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Nominatim client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional).
	BaseURL string

	// UserAgent identifies the application (optional).
	UserAgent string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Metrics records call latency and outcome (optional).
	Metrics *resilience.Metrics

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Nominatim search client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Nominatim client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		clientCfg.Metrics = cfg.Metrics
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Geocode returns the best match for query.
// Returns location.ErrNoResult for an empty result set and
// location.ErrGeocoderUnavailable for transport or upstream failures.
func (c *Client) Geocode(ctx context.Context, query string) (*location.Place, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", location.ErrGeocoderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", location.ErrGeocoderUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", location.ErrGeocoderUnavailable, resp.StatusCode)
	}

	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", location.ErrGeocoderUnavailable, err)
	}

	if len(results) == 0 {
		return nil, location.ErrNoResult
	}

	place, err := results[0].toPlace()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", location.ErrGeocoderUnavailable, err)
	}

	c.logger.Debug().
		Str("query", query).
		Str("display_name", place.DisplayName).
		Msg("nominatim match")

	return place, nil
}

// searchResult is one element of the /search JSON array. Nominatim encodes
// coordinates as strings.
type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (r searchResult) toPlace() (*location.Place, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing lat %q: %w", r.Lat, err)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing lon %q: %w", r.Lon, err)
	}
	return &location.Place{
		Coordinate:  location.Coordinate{Lat: lat, Lon: lon},
		DisplayName: r.DisplayName,
	}, nil
}
