// Package client is the client-side session and authentication layer: an
// HTTP transport that carries the session cookie, a thin gateway over the
// auth endpoints, and a SessionStore that reconciles the locally mirrored
// session against the server, which is the sole source of truth for
// identity.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/hashfleet/hashfleet/apitypes"
)

// Transport issues JSON requests against the API base URL. The underlying
// http.Client owns a cookie jar, so the session cookie set by the server
// rides every subsequent request; no credential material is duplicated in
// application state.
type Transport struct {
	baseURL *url.URL
	http    *http.Client
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithHTTPClient overrides the HTTP client. The replacement should carry its
// own cookie jar, or session cookies will be lost between calls.
func WithHTTPClient(hc *http.Client) TransportOption {
	return func(t *Transport) {
		t.http = hc
	}
}

// NewTransport builds a Transport for the given base URL. When no HTTP
// client is supplied, one with a fresh in-memory cookie jar is created.
func NewTransport(baseURL string, opts ...TransportOption) (*Transport, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	t := &Transport{baseURL: parsed}
	for _, opt := range opts {
		opt(t)
	}

	if t.http == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		t.http = &http.Client{Jar: jar}
	}

	return t, nil
}

// Do sends a JSON request and decodes a successful response into out (when
// out is non-nil). Failures are classified into the package error taxonomy.
func (t *Transport) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("invalid request path: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL.ResolveReference(ref).String(), reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response body: %w", err)
		}
		return nil
	}

	return classifyError(resp)
}

func classifyError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var body apitypes.ErrorResponseDTO
	if err := json.Unmarshal(raw, &body); err != nil || body.Message == "" {
		body.Message = strings.TrimSpace(string(raw))
	}
	if body.Message == "" {
		body.Message = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusConflict:
		return &ValidationError{Message: body.Message}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Message: body.Message, Code: body.Code}
	default:
		return &UnknownError{StatusCode: resp.StatusCode, Message: body.Message}
	}
}
