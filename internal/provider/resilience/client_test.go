package resilience_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearroute/clearroute/internal/provider/resilience"
)

func newRequest(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	return req
}

func TestClient_SuccessfulRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"value":[]}`))
	}))
	defer server.Close()

	client := resilience.NewClient(resilience.DefaultClientConfig("lta"))

	resp, err := client.Do(newRequest(t, server.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "lta", client.Name())
}

func TestClient_DefaultConfigDoesNotRetry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := resilience.NewClient(resilience.DefaultClientConfig("osrm"))

	resp, err := client.Do(newRequest(t, server.URL))
	require.NoError(t, err, "final 5xx response is handed back to the caller")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_RetryOn5xx(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cbConfig := resilience.DefaultCircuitBreakerConfig("lta-incidents")
	cbConfig.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.Requests >= 100 }

	client := resilience.NewClient(resilience.ClientConfig{
		Name:            "lta-incidents",
		Timeout:         5 * time.Second,
		MaxRetries:      5,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     50 * time.Millisecond,
		CircuitBreaker:  &cbConfig,
	})

	resp, err := client.Do(newRequest(t, server.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_CircuitBreakerTrips(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cbConfig := resilience.CircuitBreakerConfig{
		Name:        "trip",
		MaxRequests: 1,
		Timeout:     time.Minute,
	}
	client := resilience.NewClient(resilience.ClientConfig{
		Name:           "trip",
		Timeout:        time.Second,
		CircuitBreaker: &cbConfig,
	})

	for i := 0; i < 5; i++ {
		resp, _ := client.Do(newRequest(t, server.URL))
		if resp != nil {
			resp.Body.Close()
		}
	}
	assert.Equal(t, gobreaker.StateOpen, client.CircuitBreakerState())

	resp, err := client.Do(newRequest(t, server.URL))
	if resp != nil {
		resp.Body.Close()
	}
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(5), attempts.Load(), "open circuit must not reach the server")
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := resilience.DefaultClientConfig("slow")
	cfg.Timeout = 50 * time.Millisecond
	client := resilience.NewClient(cfg)

	resp, err := client.Do(newRequest(t, server.URL))
	if resp != nil {
		resp.Body.Close()
	}
	assert.Error(t, err)
}

func TestClient_4xxNotRetried(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	cfg := resilience.BackgroundClientConfig("nominatim")
	cfg.InitialInterval = 10 * time.Millisecond
	client := resilience.NewClient(cfg)

	resp, err := client.Do(newRequest(t, server.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_RecordsOutcomeInRegistry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	metrics, err := resilience.NewMetrics()
	require.NoError(t, err)

	cfg := resilience.DefaultClientConfig("osrm")
	cfg.Registry = registry
	cfg.Metrics = metrics
	client := resilience.NewClient(cfg)

	resp, err := client.Do(newRequest(t, server.URL+"/ok"))
	require.NoError(t, err)
	resp.Body.Close()

	health := registry.GetHealth("osrm")
	require.NotNil(t, health)
	assert.NotNil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)

	resp, err = client.Do(newRequest(t, server.URL+"/fail"))
	require.NoError(t, err)
	resp.Body.Close()

	health = registry.GetHealth("osrm")
	require.NotNil(t, health.LastFailureAt)
	assert.Contains(t, health.LastError, "Internal Server Error")
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	cfg := resilience.DefaultCircuitBreakerConfig("test")

	assert.Equal(t, "test", cfg.Name)
	assert.Equal(t, uint32(1), cfg.MaxRequests)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.NotNil(t, cfg.ReadyToTrip)
}

func TestDefaultReadyToTrip(t *testing.T) {
	tests := []struct {
		name     string
		counts   gobreaker.Counts
		expected bool
	}{
		{"no requests", gobreaker.Counts{}, false},
		{"not enough requests", gobreaker.Counts{Requests: 4, TotalFailures: 4}, false},
		{"low failure rate", gobreaker.Counts{Requests: 10, TotalFailures: 4}, false},
		{"high failure rate", gobreaker.Counts{Requests: 10, TotalFailures: 5}, true},
		{"five of five failing", gobreaker.Counts{Requests: 5, TotalFailures: 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resilience.DefaultReadyToTrip(tt.counts))
		})
	}
}

func TestClientConfigs(t *testing.T) {
	def := resilience.DefaultClientConfig("a")
	assert.Equal(t, "a", def.Name)
	assert.Equal(t, 10*time.Second, def.Timeout)
	assert.Zero(t, def.MaxRetries)
	assert.NotNil(t, def.CircuitBreaker)

	bg := resilience.BackgroundClientConfig("b")
	assert.Equal(t, uint64(3), bg.MaxRetries)
	assert.Equal(t, 30*time.Second, bg.Timeout)
}

func TestServerError(t *testing.T) {
	err := &resilience.ServerError{StatusCode: http.StatusBadGateway}
	assert.Contains(t, err.Error(), "Bad Gateway")
}
