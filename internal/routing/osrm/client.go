// Package osrm provides a routing.Provider backed by the OSRM HTTP route service.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clearroute/clearroute/internal/provider/resilience"
	"github.com/clearroute/clearroute/internal/routing"
	"github.com/clearroute/clearroute/pkg/polyline"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "osrm"

	// DefaultBaseURL is the public OSRM demo server.
	DefaultBaseURL = "http://router.project-osrm.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OSRM client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional, defaults to the public demo server).
	BaseURL string

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

// Client is an OSRM API client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OSRM client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
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
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetDirections retrieves driving routes between two points. OSRM decides how
// many alternatives to return; the routing service trims the list.
func (c *Client) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	profile := req.Profile
	if profile == "" {
		profile = routing.ProfileDriving
	}

	// OSRM uses lon,lat order.
	coords := fmt.Sprintf("%f,%f;%f,%f",
		req.Origin.Lon, req.Origin.Lat,
		req.Destination.Lon, req.Destination.Lat,
	)

	params := url.Values{}
	params.Set("overview", "full")
	params.Set("geometries", "polyline")
	params.Set("alternatives", "true")
	params.Set("steps", "false")

	reqURL := fmt.Sprintf("%s/route/v1/%s/%s?%s", c.baseURL, profile, coords, params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lon", req.Origin.Lon).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lon", req.Destination.Lon).
		Msg("requesting directions from OSRM")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      routing.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "READ_FAILED",
			Message:  "failed to read routing response",
			Err:      routing.ErrProviderUnavailable,
		}
	}

	var osrmResp routeResponse
	decodeErr := json.Unmarshal(respBody, &osrmResp)

	if resp.StatusCode != http.StatusOK || osrmResp.Code != codeOK {
		return nil, c.handleErrorResponse(resp.StatusCode, &osrmResp, decodeErr)
	}
	if decodeErr != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "DECODE_FAILED",
			Message:  "malformed routing response",
			Err:      routing.ErrProviderUnavailable,
		}
	}

	result := c.toDirectionsResponse(&osrmResp)

	c.logger.Debug().
		Int("route_count", len(result.Routes)).
		Msg("received directions from OSRM")

	return result, nil
}

// handleErrorResponse maps OSRM error responses to domain errors.
func (c *Client) handleErrorResponse(statusCode int, resp *routeResponse, decodeErr error) error {
	if statusCode == http.StatusTooManyRequests {
		return &routing.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "routing rate limit exceeded, please try again later",
			Err:      routing.ErrRateLimitExceeded,
		}
	}

	if decodeErr != nil {
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  fmt.Sprintf("routing provider returned status %d", statusCode),
			Err:      routing.ErrProviderUnavailable,
		}
	}

	switch resp.Code {
	case codeNoRoute, codeNoSegment:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no route found between the given points",
			Err:      routing.ErrNoRouteFound,
		}
	case codeInvalidQuery, codeInvalidValue:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "BAD_REQUEST",
			Message:  resp.Message,
			Err:      routing.ErrInvalidCoordinates,
		}
	default:
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  fmt.Sprintf("routing provider error %q", resp.Code),
			Err:      routing.ErrProviderUnavailable,
		}
	}
}

// toDirectionsResponse converts an OSRM response to the domain model, keeping provider order.
func (c *Client) toDirectionsResponse(resp *routeResponse) *routing.DirectionsResponse {
	routes := make([]routing.Route, 0, len(resp.Routes))

	for i := range resp.Routes {
		r := &resp.Routes[i]

		points, err := polyline.DecodePrecision(r.Geometry, polyline.Precision5)
		if err != nil {
			c.logger.Warn().Err(err).Int("route_index", i).Msg("truncated route geometry")
		}

		summaries := make([]string, 0, len(r.Legs))
		for _, leg := range r.Legs {
			if leg.Summary != "" {
				summaries = append(summaries, leg.Summary)
			}
		}

		routes = append(routes, routing.Route{
			Index:            i,
			Points:           points,
			GeometryPolyline: r.Geometry,
			DistanceMeters:   r.Distance,
			DurationSeconds:  r.Duration,
			Summary:          strings.Join(summaries, "; "),
		})
	}

	return &routing.DirectionsResponse{
		Routes:    routes,
		Provider:  ProviderName,
		FetchedAt: time.Now(),
	}
}
