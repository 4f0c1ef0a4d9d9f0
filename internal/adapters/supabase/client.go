// Package supabase provides adapters for the hosted Supabase auth (GoTrue) and data (PostgREST) APIs.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Config holds configuration for the Supabase REST client.
type Config struct {
	URL        string
	AnonKey    string
	ServiceKey string // optional; used for PostgREST calls when set
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client // optional, defaults to a client with Timeout
	Logger     *slog.Logger
}

// Client is the shared transport for the GoTrue and PostgREST endpoints of one project.
type Client struct {
	base       *url.URL
	anonKey    string
	serviceKey string
	hc         *http.Client
	retries    int
	backoff    time.Duration
	logger     *slog.Logger
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if raw == "" {
		return nil, errors.New("supabase URL is required")
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid supabase URL %q", cfg.URL)
	}
	if strings.TrimSpace(cfg.AnonKey) == "" {
		return nil, errors.New("supabase anon key is required")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base:       base,
		anonKey:    strings.TrimSpace(cfg.AnonKey),
		serviceKey: strings.TrimSpace(cfg.ServiceKey),
		hc:         hc,
		retries:    max(cfg.MaxRetries, 0),
		backoff:    100 * time.Millisecond,
		logger:     logger.With("component", "supabase"),
	}, nil
}

// APIError is a non-2xx response from GoTrue or PostgREST.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: %d: %s", e.Status, e.Message)
}

// errorBody covers the GoTrue (legacy and current) and PostgREST error shapes.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Code             any    `json:"code"`
}

func decodeAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		e.Message = strings.TrimSpace(string(body))
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
		return e
	}
	e.Message = firstNonEmpty(eb.Msg, eb.ErrorDescription, eb.Message, eb.Error, http.StatusText(status))
	code := eb.ErrorCode
	if code == "" {
		if s, ok := eb.Code.(string); ok {
			code = s
		}
	}
	if code == "" {
		code = eb.Error
	}
	e.Code = code
	return e
}

// request describes one REST call.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// bearer is the Authorization token; apikey is always the anon or service key.
	bearer  string
	apiKey  string
	headers map[string]string
}

// send performs r and decodes a 2xx JSON body into out (when non-nil).
// GET requests are retried on transport errors and 5xx responses.
func (c *Client) send(ctx context.Context, r request, out any) error {
	var payload []byte
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", r.path, err)
		}
		payload = b
	}

	attempts := 1
	if r.method == http.MethodGet {
		attempts += c.retries
	}

	var lastErr error
	for attempt := range attempts {
		if attempt > 0 {
			if err := c.wait(ctx, attempt); err != nil {
				return errors.Join(lastErr, err)
			}
		}
		retry, err := c.once(ctx, r, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
		c.logger.DebugContext(ctx, "retrying supabase request", "path", r.path, "attempt", attempt+1, "error", err)
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, r request, payload []byte, out any) (retry bool, err error) {
	u := c.base.JoinPath(r.path)
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return false, fmt.Errorf("create %s request: %w", r.path, err)
	}
	req.Header.Set("apikey", r.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient(ctx, r.bearer).Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, fmt.Errorf("%s %s: %w", r.method, r.path, ctx.Err())
		}
		return true, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return true, fmt.Errorf("read %s response: %w", r.path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode >= 500, decodeAPIError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s response: %w", r.path, err)
	}
	return false, nil
}

// httpClient returns a client that sets Authorization: Bearer <token> on every request.
func (c *Client) httpClient(ctx context.Context, bearer string) *http.Client {
	if bearer == "" {
		return c.hc
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.hc)
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: bearer, TokenType: "Bearer"}))
	hc.Timeout = c.hc.Timeout
	return hc
}

func (c *Client) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(time.Duration(attempt) * c.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// dataKey is the key PostgREST calls authenticate with: the service key when configured.
func (c *Client) dataKey() string {
	if c.serviceKey != "" {
		return c.serviceKey
	}
	return c.anonKey
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
