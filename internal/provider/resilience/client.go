package resilience

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// Predefined errors for resilient operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// ClientConfig holds configuration for the resilient HTTP client.
type ClientConfig struct {
	// Name identifies this client in the registry, metrics and breaker logs.
	Name string

	// Timeout is the request timeout for individual HTTP calls.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxRetries is the number of additional attempts after the first one.
	// Clients on the prediction path keep this at zero.
	MaxRetries uint64

	// InitialInterval is the initial retry backoff interval.
	// Default: 200ms
	InitialInterval time.Duration

	// MaxInterval is the maximum retry backoff interval.
	// Default: 5 seconds
	MaxInterval time.Duration

	// CircuitBreaker is the circuit breaker configuration.
	// If nil, uses DefaultCircuitBreakerConfig.
	CircuitBreaker *CircuitBreakerConfig

	// Registry receives success/failure bookkeeping (optional).
	Registry *Registry

	// Metrics records call duration and outcome (optional).
	Metrics *Metrics
}

// DefaultClientConfig returns the single-attempt configuration used on the request path.
func DefaultClientConfig(name string) ClientConfig {
	cbConfig := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		CircuitBreaker:  &cbConfig,
	}
}

// BackgroundClientConfig returns a configuration with retries, for jobs nobody waits on.
func BackgroundClientConfig(name string) ClientConfig {
	cfg := DefaultClientConfig(name)
	cfg.Timeout = 30 * time.Second
	cfg.MaxRetries = 3
	return cfg
}

// Client is a resilient HTTP client with circuit breaker and optional retry logic.
type Client struct {
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker[*http.Response]
	config         ClientConfig
}

// NewClient creates a new resilient HTTP client and registers it when a registry is configured.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}

	cbConfig := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		cbConfig = *cfg.CircuitBreaker
	}

	c := &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		circuitBreaker: NewCircuitBreaker[*http.Response](cbConfig), //nolint:bodyclose // type param, not response
		config:         cfg,
	}

	if cfg.Registry != nil {
		cfg.Registry.Register(cfg.Name, c)
	}

	return c
}

// Name returns the provider name this client was created for.
func (c *Client) Name() string {
	return c.config.Name
}

// Do executes an HTTP request through the circuit breaker.
// 5xx responses and transport errors count as failures; they are retried only when MaxRetries > 0.
// Returns ErrCircuitOpen without touching the network while the breaker is open.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.do(req.Context(), req)
	c.record(req.Context(), start, resp, err)
	return resp, err
}

func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastResp *http.Response

	operation := func() error {
		resp, err := c.circuitBreaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes
			r, err := c.httpClient.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= 500 {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			if resp != nil {
				if lastResp != nil {
					lastResp.Body.Close()
				}
				lastResp = resp
			}
			return err
		}

		lastResp = resp
		return nil
	}

	if c.config.MaxRetries == 0 {
		if err := operation(); err != nil {
			return finish(lastResp, err)
		}
		return lastResp, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return finish(lastResp, err)
	}
	return lastResp, nil
}

// finish hands a final 5xx response back to the caller so it can map the status itself.
func finish(lastResp *http.Response, err error) (*http.Response, error) {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	if errors.Is(err, ErrCircuitOpen) {
		if lastResp != nil {
			lastResp.Body.Close()
		}
		return nil, err
	}
	if lastResp != nil {
		return lastResp, nil
	}
	return nil, err
}

func (c *Client) record(ctx context.Context, start time.Time, resp *http.Response, err error) {
	failed := err != nil || (resp != nil && resp.StatusCode >= 500)

	if c.config.Registry != nil {
		switch {
		case err != nil:
			c.config.Registry.RecordFailure(c.config.Name, err)
		case failed:
			c.config.Registry.RecordFailure(c.config.Name, &ServerError{StatusCode: resp.StatusCode})
		default:
			c.config.Registry.RecordSuccess(c.config.Name)
		}
	}

	if c.config.Metrics != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		c.config.Metrics.RecordCall(ctx, c.config.Name, status, time.Since(start), failed)
	}
}

// ServerError represents an HTTP 5xx server error.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.circuitBreaker.State()
}

// CircuitBreakerCounts returns the current counts of the circuit breaker.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.circuitBreaker.Counts()
}
