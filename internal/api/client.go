// Package api wraps the backend REST collaborator. Every endpoint returns the
// uniform {success, data, message} envelope; this package validates that
// envelope at the transport boundary so malformed payloads never reach flow
// state. A transport-level 401 triggers the OnUnauthorized hook as a global
// side effect, independent of which flow issued the call.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Error is a failed call: either a transport-level status or a
// success == false envelope. Message carries the backend text verbatim.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	apiErr, ok := err.(*Error)
	return ok && apiErr.Status == http.StatusUnauthorized
}

// Client talks to the backend. The zero value is not usable; construct with
// New.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	// TokenSource, when set, is consulted per request and its value sent as
	// a bearer token.
	TokenSource func() string

	// OnUnauthorized runs once per 401 response, before the error is
	// returned to the caller. The client CLI uses it to purge the session
	// store and route back to login.
	OnUnauthorized func()
}

// New builds a client against baseURL (scheme://host[:port], no /api suffix).
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *Client) url(path string) string {
	return c.baseURL + "/api" + path
}

// do runs one request through the interceptor pair: log on the way out,
// enforce envelope semantics on the way back.
func (c *Client) do(req *http.Request) (*envelopeResult, error) {
	c.logger.Debug("request", "method", req.Method, "url", req.URL.String())

	if c.TokenSource != nil {
		if tok := c.TokenSource(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "url", req.URL.String(), "err", err)
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("response", "status", resp.StatusCode, "url", req.URL.String())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if c.OnUnauthorized != nil {
			c.OnUnauthorized()
		}
		return nil, &Error{Status: resp.StatusCode, Message: "unauthorized"}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := ""
		var env struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &env) == nil {
			msg = env.Message
		}
		return nil, &Error{Status: resp.StatusCode, Message: msg}
	}

	var env envelopeResult
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding response envelope: %w", err)
	}
	if !env.Success {
		return nil, &Error{Status: resp.StatusCode, Message: env.failureMessage()}
	}
	return &env, nil
}

type envelopeResult struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
	Reason  *struct {
		ErrMsg string `json:"errMsg,omitempty"`
		ExFrom string `json:"exFrom,omitempty"`
	} `json:"reason,omitempty"`
}

func (e *envelopeResult) failureMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Reason != nil && e.Reason.ErrMsg != "" {
		return e.Reason.ErrMsg
	}
	return ""
}

// decode unmarshals the envelope's data into target, treating malformed data
// as a transport error rather than letting it propagate into view state.
func (e *envelopeResult) decode(target any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("response envelope has no data")
	}
	if err := json.Unmarshal(e.Data, target); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}

// get issues a GET with query parameters.
func (c *Client) get(ctx context.Context, path string, query url.Values) (*envelopeResult, error) {
	u := c.url(path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// postForm issues a POST encoded as application/x-www-form-urlencoded, the
// backend's default content type.
func (c *Client) postForm(ctx context.Context, path string, fields url.Values) (*envelopeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path),
		strings.NewReader(fields.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// postJSON issues a POST with a JSON body; only the scan submit uses it.
func (c *Client) postJSON(ctx context.Context, path string, body any) (*envelopeResult, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path),
		bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}
