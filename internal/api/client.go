// Package api is a typed client for the study platform's REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"studyhub/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Client calls the platform API. Every call carries the caller's SessionContext;
// the service token is used only when a call has no caller, e.g. cache fills.
type Client struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithServiceToken sets the token used for calls made without a user session.
func WithServiceToken(token string) ClientOption {
	return func(c *Client) { c.serviceToken = token }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func New(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type errorBody struct {
	Message string `json:"message"`
}

// do sends a JSON request and decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, sc domain.SessionContext, method, path string, query url.Values, in, out any) error {
	op := method + " " + path

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.token(sc); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.NetworkError{Op: op, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.NetworkError{Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 300 {
		return statusError(op, resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) token(sc domain.SessionContext) string {
	if sc.Token != "" {
		return sc.Token
	}
	return c.serviceToken
}

func statusError(op string, status int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	msg := eb.Message
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %s: %w", op, msg, domain.ErrNotFound)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%s: %s: %w", op, msg, domain.ErrValidation)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: %s: %w", op, msg, domain.ErrUnauthorized)
	}
	return &domain.NetworkError{Op: op, Status: status, Err: errors.New(msg)}
}
