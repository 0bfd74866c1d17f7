// Package backend is the dashboard's client for the backend API. Identity
// lookups go through AdminClient; everything that reads a user's data goes
// through UserClient, which only ever holds that user's own key.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"infraiq/platform/internal/metrics"
)

const (
	apiKeyHeader     = "X-API-Key"
	maxResponseBytes = 4 << 20
)

// Conn is the transport shared by both clients. It carries no credential.
type Conn struct {
	baseURL string
	http    *http.Client
}

func NewConn(baseURL string, timeout time.Duration) *Conn {
	return &Conn{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type call struct {
	scope  string
	key    string
	method string
	path   string
	query  url.Values
	body   any
}

// do sends one request with exactly one X-API-Key header and decodes the JSON
// response into out. Backend error bodies are drained, never returned.
func (c *Conn) do(ctx context.Context, in call, out any) (err error) {
	defer func() { metrics.RecordUpstream(in.scope, outcome(err)) }()

	if in.key == "" {
		return ErrMissingCredential
	}

	target := c.baseURL + in.path
	if len(in.query) > 0 {
		target += "?" + in.query.Encode()
	}

	var body io.Reader
	if in.body != nil {
		b, err := json.Marshal(in.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, in.method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(apiKeyHeader, in.key)
	req.Header.Set("Accept", "application/json")
	if in.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrUpstream, in.method, in.path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s %s", ErrUnauthorized, in.method, in.path)
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s %s", ErrNotFound, in.method, in.path)
	case resp.StatusCode >= 300:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s %s: status %d", ErrUpstream, in.method, in.path, resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrUpstream, in.path, err)
	}
	return nil
}
