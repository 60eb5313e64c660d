package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	"cip-service/internal/application"
	"cip-service/internal/domain"
	"cip-service/internal/infrastructure/httpx"

	"go.uber.org/zap"
)

const (
	bridgeHistoryPath = "/v1/bdh"
)

// BridgeClient queries a terminal bridge that exposes the bulk historical data request
// over HTTP.
type BridgeClient struct {
	BaseURL string
	HTTP    *httpx.Client
	Log     *zap.Logger
}

var _ application.HistoryClient = (*BridgeClient)(nil)

type bdhRequest struct {
	Tickers   []string `json:"tickers"`
	Fields    []string `json:"fields"`
	StartDate string   `json:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty"`
}

type bdhResponse struct {
	Data []struct {
		Date   string   `json:"date"`
		Ticker string   `json:"ticker"`
		Field  string   `json:"field"`
		Value  *float64 `json:"value"`
	} `json:"data"`
	Error *struct {
		Code int    `json:"code"`
		Info string `json:"info"`
	} `json:"error,omitempty"`
}

func (c *BridgeClient) BulkHistory(ctx context.Context, tickers, fields []string, r domain.DateRange) ([]domain.Observation, error) {
	if c.BaseURL == "" {
		return nil, errors.New("terminal bridge: missing base url")
	}
	if len(tickers) == 0 || len(fields) == 0 {
		return nil, errors.New("terminal bridge: tickers and fields are required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("terminal bridge: invalid base url: %w", err)
	}
	u.Path = bridgeHistoryPath

	in := bdhRequest{Tickers: tickers, Fields: fields}
	if !r.Start.IsZero() {
		in.StartDate = r.Start.Format(domain.DateLayout)
	}
	if !r.End.IsZero() {
		in.EndDate = r.End.Format(domain.DateLayout)
	}

	client := c.HTTP
	if client == nil {
		client = &httpx.Client{}
	}
	var body bdhResponse
	if err := client.PostJSON(ctx, u.String(), in, &body, httpx.Zap(c.Log)); err != nil {
		return nil, fmt.Errorf("terminal bridge: %w", err)
	}
	if body.Error != nil {
		return nil, fmt.Errorf("terminal bridge: %d %s", body.Error.Code, body.Error.Info)
	}

	out := make([]domain.Observation, 0, len(body.Data))
	for _, d := range body.Data {
		day, err := time.Parse(domain.DateLayout, d.Date)
		if err != nil {
			return nil, fmt.Errorf("terminal bridge: bad date %q: %w", d.Date, err)
		}
		v := math.NaN()
		if d.Value != nil {
			v = *d.Value
		}
		out = append(out, domain.Observation{Date: day, Ticker: d.Ticker, Field: d.Field, Value: v})
	}
	return out, nil
}
