package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Logger receives retry events. Key/value pairs follow the zap sugared convention.
type Logger interface {
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
}

type zapLogger struct{ s *zap.SugaredLogger }

func (z zapLogger) Info(msg string, kv ...any) { z.s.Infow(msg, kv...) }
func (z zapLogger) Warn(msg string, kv ...any) { z.s.Warnw(msg, kv...) }

// Zap adapts a zap logger to Logger.
func Zap(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return zapLogger{s: l.Sugar()}
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any) {}
func (nopLogger) Warn(string, ...any) {}

type Client struct {
	HTTP  *http.Client
	Token string
	// MaxElapsed bounds the total retry time; zero means 3s.
	MaxElapsed time.Duration
}

func (c *Client) backoff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 1 * time.Second
	exp.MaxElapsedTime = 3 * time.Second
	if c.MaxElapsed > 0 {
		exp.MaxElapsedTime = c.MaxElapsed
	}
	return backoff.WithContext(exp, ctx)
}

// do sends req with retries on transport errors and 5xx responses and hands a 200
// body to read. Other statuses and read errors are permanent.
func (c *Client) do(ctx context.Context, req *http.Request, log Logger, read func(io.Reader) error) error {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	if log == nil {
		log = nopLogger{}
	}
	req = req.WithContext(ctx)

	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(fmt.Errorf("rewind body: %w", err))
			}
			req.Body = body
		}
		resp, err := hc.Do(req)
		if err != nil {
			log.Warn("httpx.request_failed", "url", req.URL.String(), "attempt", attempt, "error", err.Error())
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			log.Warn("httpx.server_error", "url", req.URL.String(), "attempt", attempt, "status", resp.StatusCode)
			return fmt.Errorf("server error %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}
		if err := read(resp.Body); err != nil {
			return backoff.Permanent(err)
		}
		log.Info("httpx.request_done", "url", req.URL.String(), "attempt", attempt)
		return nil
	}
	return backoff.Retry(op, c.backoff(ctx))
}

func (c *Client) DoJSON(ctx context.Context, req *http.Request, out any, log Logger) error {
	return c.do(ctx, req, log, func(r io.Reader) error {
		if err := json.NewDecoder(r).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

// PostJSON encodes in as the request body and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, in, out any, log Logger) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.DoJSON(ctx, req, out, log)
}

// Download fetches url and returns the whole body.
func (c *Client) Download(ctx context.Context, url string, log Logger) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	var out []byte
	err = c.do(ctx, req, log, func(r io.Reader) error {
		b, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		out = b
		return nil
	})
	return out, err
}
