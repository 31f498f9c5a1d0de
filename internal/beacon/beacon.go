// Package beacon sends best-effort diagnostic pings to an operator's
// collection endpoint — the server-side equivalent of
// navigator.sendBeacon, implemented as a plain POST since a Go process
// has no unload-safe beacon primitive to call through to.
package beacon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Payload is the fixed, typed shape every beacon sends. Extra carries
// additional fields but is sanitized before transmission: only
// string, bool, int, int64, and float64 values survive, so a caller can never
// accidentally leak a struct, error, or channel value into the wire
// payload.
type Payload struct {
	Event           string         `json:"event"`
	RetryID         string         `json:"retryId,omitempty"`
	Attempt         int            `json:"attempt,omitempty"`
	Source          string         `json:"source,omitempty"`
	TimestampMillis int64          `json:"timestamp"`
	Extra           map[string]any `json:"extra,omitempty"`
}

// SanitizeExtra drops every value from extra whose type isn't one of
// string, bool, int, int64, float64 — the set JSON round-trips
// unambiguously.
func SanitizeExtra(extra map[string]any) map[string]any {
	if extra == nil {
		return nil
	}
	out := make(map[string]any, len(extra))
	for k, v := range extra {
		switch v.(type) {
		case string, bool, int, int64, float64:
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Client posts Payloads to a configured endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// New constructs a Client. An empty endpoint makes Send a no-op,
// matching an unconfigured beacon URL in the browser original.
func New(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// Send posts payload as JSON. It is a no-op returning nil when no
// endpoint is configured.
func (c *Client) Send(ctx context.Context, payload Payload) error {
	if c.endpoint == "" {
		return nil
	}
	payload.Extra = SanitizeExtra(payload.Extra)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("beacon: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("beacon: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("beacon: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("beacon: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
