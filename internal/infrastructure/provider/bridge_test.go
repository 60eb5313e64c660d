package provider_test

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strings"
	"testing"
	"time"

	"cip-service/internal/domain"
	"cip-service/internal/infrastructure/httpx"
	"cip-service/internal/infrastructure/provider"

	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r), nil }

func httpClient(fn func(r *http.Request) (string, int)) *httpx.Client {
	return &httpx.Client{HTTP: &http.Client{
		Timeout: 2 * time.Second,
		Transport: roundTripFunc(func(r *http.Request) *http.Response {
			body, code := fn(r)
			return &http.Response{
				StatusCode: code,
				Body:       io.NopCloser(strings.NewReader(body)),
				Header:     make(http.Header),
			}
		}),
	}}
}

const sampleOK = `{
  "data": [
    {"date": "2024-01-02", "ticker": "ADSOC CMPN Curncy", "field": "PX_LAST", "value": 0.68},
    {"date": "2024-01-03", "ticker": "ADSOC CMPN Curncy", "field": "PX_LAST", "value": null}
  ]
}`

func TestBulkHistory(t *testing.T) {
	var got map[string]any
	c := &provider.BridgeClient{
		BaseURL: "http://bridge.local:8194",
		HTTP: httpClient(func(r *http.Request) (string, int) {
			require.Equal(t, "/v1/bdh", r.URL.Path)
			require.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			return sampleOK, 200
		}),
	}
	rng, err := domain.ParseDateRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)

	obs, err := c.BulkHistory(context.Background(), []string{"ADSOC CMPN Curncy"}, []string{"PX_LAST"}, rng)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	require.Equal(t, "ADSOC CMPN Curncy", obs[0].Ticker)
	require.InDelta(t, 0.68, obs[0].Value, 1e-12)
	require.True(t, math.IsNaN(obs[1].Value))
	require.Equal(t, "2024-01-01", got["start_date"])
	require.Equal(t, "2024-01-31", got["end_date"])
}

func TestBulkHistory_BridgeError(t *testing.T) {
	c := &provider.BridgeClient{
		BaseURL: "http://bridge.local:8194",
		HTTP: httpClient(func(*http.Request) (string, int) {
			return `{"data": [], "error": {"code": 7, "info": "no session"}}`, 200
		}),
	}
	_, err := c.BulkHistory(context.Background(), []string{"X"}, []string{"PX_LAST"}, domain.DateRange{})
	require.ErrorContains(t, err, "no session")
}

func TestBulkHistory_MissingConfig(t *testing.T) {
	c := &provider.BridgeClient{}
	_, err := c.BulkHistory(context.Background(), []string{"X"}, []string{"PX_LAST"}, domain.DateRange{})
	require.Error(t, err)
}

func TestFake_WeekdaysOnly(t *testing.T) {
	f := provider.NewFake(map[string]float64{"A": 1.5})
	rng, err := domain.ParseDateRange("2024-01-05", "2024-01-08")
	require.NoError(t, err)
	obs, err := f.BulkHistory(context.Background(), []string{"A", "B"}, []string{"PX_LAST"}, rng)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	require.Equal(t, time.Friday, obs[0].Date.Weekday())
	require.Equal(t, time.Monday, obs[1].Date.Weekday())
}
