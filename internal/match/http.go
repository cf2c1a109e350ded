// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package match

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds one request/response round trip.
const DefaultTimeout = 2500 * time.Millisecond

const maxReplyBytes = 64 << 10

// Transport performs one report/reply exchange with the server.
type Transport interface {
	Exchange(ctx context.Context, r Report) (Reply, error)
}

// TransportError marks a failure to complete the exchange at all: timeout,
// refused connection, DNS failure or a 5xx without a usable body. It is
// retryable and never changes the match state.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("match: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPClient talks to the coordination server's device endpoint.
type HTTPClient struct {
	URL    string
	Method string // http.MethodPost or http.MethodGet
	http   *http.Client
}

// NewHTTPClient returns a client for url. method defaults to POST and
// timeout to DefaultTimeout.
func NewHTTPClient(url, method string, timeout time.Duration) *HTTPClient {
	if method == "" {
		method = http.MethodPost
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		URL:    url,
		Method: strings.ToUpper(method),
		http:   &http.Client{Timeout: timeout},
	}
}

// Exchange sends r and decodes the server reply.
func (c *HTTPClient) Exchange(ctx context.Context, r Report) (Reply, error) {
	var body io.Reader
	if c.Method == http.MethodPost {
		b, err := json.Marshal(r)
		if err != nil {
			return Reply{}, fmt.Errorf("match: encode report: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, c.Method, c.URL, body)
	if err != nil {
		return Reply{}, fmt.Errorf("match: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Reply{}, &TransportError{Op: strings.ToLower(c.Method), Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return Reply{}, &TransportError{Op: "read reply", Err: err}
	}

	if c.Method == http.MethodGet {
		if resp.StatusCode >= http.StatusInternalServerError {
			return Reply{}, &TransportError{Op: "get", Err: fmt.Errorf("server status %d", resp.StatusCode)}
		}
		return StatusReply(strings.TrimSpace(string(b))), nil
	}

	reply, err := DecodeReply(b)
	if resp.StatusCode >= http.StatusInternalServerError {
		// a 5xx only counts as an answer if it carries a sentinel
		if err == nil && reply.Kind != ReplyAccepted {
			return reply, nil
		}
		return Reply{}, &TransportError{Op: "post", Err: fmt.Errorf("server status %d", resp.StatusCode)}
	}
	if err != nil {
		return Reply{}, fmt.Errorf("%w (status %d)", err, resp.StatusCode)
	}
	return reply, nil
}
