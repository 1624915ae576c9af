// Package lta provides a client for the Singapore LTA DataMall traffic datasets.
package lta

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clearroute/clearroute/internal/incident"
	"github.com/clearroute/clearroute/internal/provider/resilience"
	"github.com/clearroute/clearroute/internal/traffic"
)

const (
	// ProviderName identifies this traffic provider.
	ProviderName = "lta-datamall"

	// DefaultBaseURL is the DataMall OData root.
	DefaultBaseURL = "https://datamall2.mytransport.sg/ltaodataservice"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// PageSize is the fixed number of rows DataMall returns per page.
	PageSize = 500

	speedBandsPath = "/v4/TrafficSpeedBands"
	incidentsPath  = "/TrafficIncidents"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the DataMall client.
type ClientConfig struct {
	// AccountKey is the DataMall API key (required).
	AccountKey string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// MaxPages caps $skip paging per fetch (default: 1).
	MaxPages int

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

// Client is a DataMall API client. It implements traffic.Provider and incident.Source.
type Client struct {
	accountKey string
	baseURL    string
	maxPages   int
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new DataMall client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
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
		accountKey: cfg.AccountKey,
		baseURL:    baseURL,
		maxPages:   maxPages,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FetchSpeedBands returns raw speed-band rows in feed order, following $skip
// paging until a short page or MaxPages.
func (c *Client) FetchSpeedBands(ctx context.Context) ([]traffic.RawSegment, error) {
	var rows []traffic.RawSegment

	for page := 0; page < c.maxPages; page++ {
		params := url.Values{}
		if page > 0 {
			params.Set("$skip", strconv.Itoa(page*PageSize))
		}

		var env envelope[speedBand]
		if err := c.get(ctx, speedBandsPath, params, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", traffic.ErrProviderUnavailable, err)
		}

		for _, sb := range env.Value {
			rows = append(rows, traffic.RawSegment{
				LinkID:       sb.LinkID,
				RoadName:     sb.RoadName,
				RoadCategory: sb.RoadCategory,
				SpeedBand:    sb.SpeedBand.intOr(0),
				MinimumSpeed: sb.MinimumSpeed.ptr(),
				MaximumSpeed: sb.MaximumSpeed.ptr(),
				SpeedKMHEst:  sb.SpeedKMHEst.ptr(),
			})
		}

		if len(env.Value) < PageSize {
			break
		}
	}

	c.logger.Debug().
		Int("rows", len(rows)).
		Msg("fetched speed bands from LTA")

	return rows, nil
}

// FetchIncidents returns the current traffic incidents.
func (c *Client) FetchIncidents(ctx context.Context) ([]incident.Report, error) {
	var env envelope[trafficIncident]
	if err := c.get(ctx, incidentsPath, nil, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", incident.ErrSourceUnavailable, err)
	}

	reports := make([]incident.Report, 0, len(env.Value))
	for _, ti := range env.Value {
		reports = append(reports, incident.Report{
			Type:      strings.TrimSpace(ti.Type),
			Message:   strings.TrimSpace(ti.Message),
			Latitude:  ti.Latitude.floatOr(0),
			Longitude: ti.Longitude.floatOr(0),
		})
	}

	c.logger.Debug().
		Int("incidents", len(reports)).
		Msg("fetched incidents from LTA")

	return reports, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("AccountKey", c.accountKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("LTA returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
