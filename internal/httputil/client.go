// Package httputil holds the JSON response helpers used by the HTTP API and
// a small client for talking to a running planner daemon.
package httputil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPClient abstracts HTTP operations for testability. *http.Client
// implements it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientFunc adapts a function to HTTPClient.
type ClientFunc func(req *http.Request) (*http.Response, error)

func (f ClientFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

// maxResponseBytes bounds a planner reply.
const maxResponseBytes = 1 << 20

// PlanClient posts planning requests to a planner daemon's API.
type PlanClient struct {
	base   string
	client HTTPClient
}

// NewPlanClient returns a client for the daemon at base, e.g.
// "http://127.0.0.1:8080/api". A nil client uses http.DefaultClient.
func NewPlanClient(base string, c HTTPClient) *PlanClient {
	if c == nil {
		c = http.DefaultClient
	}
	return &PlanClient{base: strings.TrimRight(base, "/"), client: c}
}

// Plan posts payload to /plan, or /plan/geo when geo is set, and returns the
// raw JSON body and HTTP status. Non-2xx statuses are not errors: the body
// carries the planner's error kind.
func (c *PlanClient) Plan(ctx context.Context, payload []byte, geo bool) ([]byte, int, error) {
	path := "/plan"
	if geo {
		path = "/plan/geo"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request to %s failed: %w", req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
