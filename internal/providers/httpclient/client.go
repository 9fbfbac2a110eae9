// Package httpclient is the shared transport of all provider adapters: one
// rate-limited attempt per call with status codes mapped onto the provider
// failure taxonomy.
package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/candidate-scout/internal/logger"
	"github.com/spigell/candidate-scout/internal/sourcing"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5.0
	DefaultRateBurst = 2
	DefaultUserAgent = "spigell/candidate-scout"

	contentType     = "application/json"
	contentEncoding = "gzip"
	maxBodySize     = 8 << 20
)

// Config describes one provider endpoint.
type Config struct {
	// Name is used in errors and logs.
	Name    string
	BaseURL string
	Auth    Auth
	// Timeout bounds a single request. Callers usually also pass a deadline in ctx.
	Timeout time.Duration
	// RateLimit is requests per second shared by all calls of this client.
	RateLimit float64
	RateBurst int
	Headers   map[string]string
	UserAgent string
	// HTTPClient allows injecting a custom client in tests.
	HTTPClient *http.Client
}

// Client performs single-attempt requests against one provider.
type Client struct {
	name      string
	baseURL   string
	auth      Auth
	headers   map[string]string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// New builds a client, filling defaults for unset fields.
func New(cfg Config, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = DefaultRateBurst
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Auth == nil {
		cfg.Auth = NoAuth{}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		name:      cfg.Name,
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		auth:      cfg.Auth,
		headers:   cfg.Headers,
		userAgent: cfg.UserAgent,
		http:      httpClient,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:    logger.WithSource(log, cfg.Name),
	}
}

// HTTPError is a non-2xx response. It unwraps to the matching failure sentinel.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
	kind       error
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("bad status: %s", e.Status)
	}
	return fmt.Sprintf("bad status: %s: %s", e.Status, e.Body)
}

func (e *HTTPError) Unwrap() error { return e.kind }

// IsRateLimited returns true if this is a rate limit error.
func (e *HTTPError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsServerError returns true if this is a server error.
func (e *HTTPError) IsServerError() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// Classify maps a status code onto the failure taxonomy.
func Classify(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return sourcing.ErrUnauthenticated
	case status == http.StatusTooManyRequests:
		return sourcing.ErrRateLimited
	case status >= http.StatusInternalServerError, status == http.StatusRequestTimeout:
		return sourcing.ErrTransient
	default:
		return sourcing.ErrMalformedResponse
	}
}

// classifyResponse treats a 403 with an exhausted quota header as rate limiting.
func classifyResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0" {
		return sourcing.ErrRateLimited
	}
	return Classify(resp.StatusCode)
}

// GetJSON performs a GET request and decodes the JSON body into target.
func (c *Client) GetJSON(ctx context.Context, path string, q url.Values, target any) error {
	body, err := c.Get(ctx, path, q)
	if err != nil {
		return err
	}
	return c.decode(body, target)
}

// PostJSON sends payload as JSON and decodes the JSON response into target.
func (c *Client) PostJSON(ctx context.Context, path string, payload any, target any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", c.name, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, nil, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	body, err := c.do(req)
	if err != nil {
		return err
	}
	return c.decode(body, target)
}

// Get performs a GET request and returns the raw body.
func (c *Client) Get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, body io.Reader) (*http.Request, error) {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.baseURL + "/" + strings.TrimPrefix(path, "/")
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: build request: %w", sourcing.ErrMalformedResponse, c.name, err)
	}
	if len(q) > 0 {
		req.URL.RawQuery = q.Encode()
	}

	c.setHeaders(req)
	return req, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	c.auth.Apply(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	data, err := c.send(req)
	if err != nil {
		c.logger.Debug("request failed", logger.FailureFields(err)...)
	}
	return data, err
}

func (c *Client) send(req *http.Request) ([]byte, error) {
	ctx := req.Context()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: rate limiter: %w", sourcing.ErrTransient, c.name, err)
	}

	c.logger.Debug("make request", zap.String("url", redact(req.URL)))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", sourcing.ErrTransient, c.name, err)
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: gzip: %w", sourcing.ErrMalformedResponse, c.name, err)
		}
		defer gz.Close()
		reader = gz
	}

	data, err := io.ReadAll(io.LimitReader(reader, maxBodySize))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %w", sourcing.ErrTransient, c.name, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %s: read body: %w", sourcing.ErrTransient, c.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: %w", c.name, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       snippet(data),
			kind:       classifyResponse(resp),
		})
	}

	return data, nil
}

func (c *Client) decode(body []byte, target any) error {
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%w: %s: decode: %w", sourcing.ErrMalformedResponse, c.name, err)
	}
	return nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// redact drops query values that look like credentials.
func redact(u *url.URL) string {
	clone := *u
	q := clone.Query()
	for k := range q {
		lower := strings.ToLower(k)
		if strings.Contains(lower, "key") || strings.Contains(lower, "token") {
			q.Set(k, "***")
		}
	}
	clone.RawQuery = q.Encode()
	return clone.String()
}
