package lta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearroute/clearroute/internal/incident"
	"github.com/clearroute/clearroute/internal/traffic"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	body, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return body
}

func newTestClient(t *testing.T, maxPages int, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(ClientConfig{
		AccountKey: "test-key",
		BaseURL:    server.URL,
		MaxPages:   maxPages,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})
}

func TestClient_FetchSpeedBands(t *testing.T) {
	body := loadFixture(t, "speed_bands.json")

	client := newTestClient(t, 1, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/TrafficSpeedBands", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("AccountKey"))
		assert.Empty(t, r.URL.Query().Get("$skip"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})

	rows, err := client.FetchSpeedBands(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "103000000", rows[0].LinkID)
	assert.Equal(t, "KENT ROAD", rows[0].RoadName)
	assert.Equal(t, 4, rows[0].SpeedBand)
	require.NotNil(t, rows[0].MinimumSpeed)
	assert.Equal(t, 30.0, *rows[0].MinimumSpeed)
	assert.Nil(t, rows[0].SpeedKMHEst)

	require.NotNil(t, rows[1].MaximumSpeed, "numeric JSON values are accepted")
	assert.Equal(t, 29.0, *rows[1].MaximumSpeed)

	assert.Nil(t, rows[2].MinimumSpeed, "empty string is treated as missing")
	assert.Nil(t, rows[3].MaximumSpeed, "null is treated as missing")
	require.NotNil(t, rows[3].SpeedKMHEst)
	assert.Equal(t, 75.0, *rows[3].SpeedKMHEst)
}

func TestClient_FetchSpeedBands_FeedsSnapshot(t *testing.T) {
	body := loadFixture(t, "speed_bands.json")
	client := newTestClient(t, 1, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	})

	svc := traffic.NewService(traffic.ServiceConfig{Provider: client, Logger: zerolog.Nop()})
	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"103000000", "103000010"}, snap.LinkIDs())
	assert.Equal(t, 34.5, snap.Segments[0].SpeedKMHEst)
}

func TestClient_FetchSpeedBands_Paging(t *testing.T) {
	var calls atomic.Int32

	page := func(prefix string, n int) []byte {
		rows := make([]map[string]any, n)
		for i := range rows {
			rows[i] = map[string]any{
				"LinkID":       fmt.Sprintf("%s%d", prefix, i),
				"MinimumSpeed": "10",
				"MaximumSpeed": "19",
			}
		}
		b, _ := json.Marshal(map[string]any{"value": rows})
		return b
	}

	client := newTestClient(t, 3, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Query().Get("$skip") {
		case "":
			_, _ = w.Write(page("a", PageSize))
		case "500":
			_, _ = w.Write(page("b", 10))
		default:
			t.Errorf("unexpected page request %s", r.URL.RawQuery)
		}
	})

	rows, err := client.FetchSpeedBands(context.Background())
	require.NoError(t, err)

	assert.Len(t, rows, PageSize+10)
	assert.Equal(t, int32(2), calls.Load(), "a short page stops paging")
	assert.True(t, strings.HasPrefix(rows[PageSize].LinkID, "b"))
}

func TestClient_FetchSpeedBands_MaxPagesDefaultsToOne(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		rows := make([]map[string]any, PageSize)
		for i := range rows {
			rows[i] = map[string]any{"LinkID": fmt.Sprint(i)}
		}
		b, _ := json.Marshal(map[string]any{"value": rows})
		_, _ = w.Write(b)
	})

	_, err := client.FetchSpeedBands(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_FetchSpeedBands_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"fault":"invalid key"}`},
		{"server error", http.StatusInternalServerError, ``},
		{"malformed json", http.StatusOK, `{"value":[`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, 1, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.FetchSpeedBands(context.Background())
			assert.ErrorIs(t, err, traffic.ErrProviderUnavailable)
		})
	}
}

func TestClient_FetchIncidents(t *testing.T) {
	body := loadFixture(t, "incidents.json")
	client := newTestClient(t, 1, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/TrafficIncidents", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("AccountKey"))
		_, _ = w.Write(body)
	})

	reports, err := client.FetchIncidents(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, "Accident", reports[0].Type)
	assert.InDelta(t, 1.3245, reports[0].Latitude, 1e-9)
	assert.InDelta(t, 103.8289, reports[1].Longitude, 1e-9, "string coordinates are parsed")
}

func TestClient_FetchIncidents_Error(t *testing.T) {
	client := newTestClient(t, 1, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.FetchIncidents(context.Background())
	assert.ErrorIs(t, err, incident.ErrSourceUnavailable)
}

func TestNumber_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		raw  string
		want *float64
	}{
		{`42`, ptr(42)},
		{`"42.5"`, ptr(42.5)},
		{`" 7 "`, ptr(7)},
		{`""`, nil},
		{`null`, nil},
		{`"fast"`, nil},
		{`true`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var n number
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &n))
			assert.Equal(t, tt.want, n.ptr())
		})
	}
}

func ptr(v float64) *float64 { return &v }
