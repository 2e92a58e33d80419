// Package api implements the REST collaborators the providers consume: the
// Auth API and the Orders API, plus the single documented response envelope
// and the mapping from transport failures to classified errors.
package api

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

	"github.com/google/uuid"

	"tienda.app/internal/apierr"
	"tienda.app/internal/ids"
)

// TokenSource yields the current bearer token, empty when logged out. The
// session manager satisfies this.
type TokenSource interface {
	Token() string
}

// Client wraps the HTTP transport shared by the Auth and Orders clients.
type Client struct {
	base  *url.URL
	http  *http.Client
	token TokenSource
}

// ClientOption configures Client behavior.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying transport (useful for tests).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTokenSource attaches bearer tokens to every request.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(c *Client) { c.token = ts }
}

// NewClient builds a client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	c := &Client{
		base: base,
		http: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// envelope is the single documented response schema. Every endpoint wraps
// its payload in data; failures carry error instead.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *wireError      `json:"error,omitempty"`
}

type wireError struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// do performs one request and decodes the envelope into out (which may be
// nil). Transport failures classify as network errors; HTTP failures
// classify by status.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", ids.New())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}
	if c.token != nil {
		if tok := c.token.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apierr.Network(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return apierr.Network(err)
	}

	var env envelope
	// A body that is not the documented envelope is tolerated on failure
	// statuses; the classification then falls back to the status alone.
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode >= 400 {
		var msg string
		var details []string
		if env.Error != nil {
			msg = env.Error.Message
			details = env.Error.Details
		}
		return apierr.FromStatus(resp.StatusCode, msg, details)
	}

	if out == nil {
		return nil
	}
	if env.Data == nil {
		return apierr.New(apierr.KindUnknown, apierr.MsgUnknown)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}
