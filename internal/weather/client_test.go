package weather

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-key"

func testClient(baseURL string) *Client {
	return &Client{
		apiKey:     testAPIKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxRetries: 3,
	}
}

func londonResponse() response {
	var r response
	r.Name = "London"
	r.Main.Temp = 15.3
	r.Main.FeelsLike = 14.1
	r.Weather = []struct {
		Description string `json:"description"`
	}{{Description: "light rain"}}
	r.Wind.Speed = 4.2
	return r
}

func TestClient_Current_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "London", r.URL.Query().Get("q"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, testAPIKey, r.URL.Query().Get("appid"))

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(londonResponse()))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	report, err := c.Current(context.Background(), "London")
	require.NoError(t, err)

	assert.Equal(t, "London", report.City)
	assert.Equal(t, 15.3, report.Temperature)
	assert.Equal(t, 14.1, report.FeelsLike)
	assert.Equal(t, "light rain", report.Description)
	assert.Equal(t, 4.2, report.WindSpeed)
}

func TestClient_Current_UnknownCity(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Current(context.Background(), "aaaaabbbbcccc")
	require.ErrorIs(t, err, ErrCityNotFound)
	// A 404 is definitive, no retries.
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Current_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(londonResponse()))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	report, err := c.Current(context.Background(), "London")
	require.NoError(t, err)
	assert.Equal(t, "London", report.City)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Current_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Current(context.Background(), "London")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Current_MissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"London"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Current(context.Background(), "London")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing fields")
}

func TestClient_Exists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "London" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(londonResponse()))
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	ok, err := c.Exists(context.Background(), "London")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Exists(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.False(t, ok)
}
