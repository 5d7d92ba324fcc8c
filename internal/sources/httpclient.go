package sources

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// DefaultUserAgent identifies the harvester to remote APIs.
const DefaultUserAgent = "makecv/1.0 (+https://github.com/makecv/makecv)"

// maxBodySize caps response bodies read into memory.
const maxBodySize = 32 << 20

// Cache stores response bodies between runs.
type Cache interface {
	// Get returns a body stored under key no older than maxAge.
	Get(key string, maxAge time.Duration) ([]byte, bool, error)
	Put(key string, body []byte) error
}

// RequestRecorder observes completed HTTP requests, for metrics.
type RequestRecorder interface {
	ObserveRequest(source, outcome string)
}

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Source names the API in errors and metrics.
	Source string

	// Timeout is the request timeout for HTTP operations.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the maximum number of retry attempts on 429 and 5xx.
	MaxRetries int

	// RetryDelay is the delay between retries when no Retry-After is sent.
	RetryDelay time.Duration

	UserAgent string

	// APIKey is sent in APIKeyHeader when both are set.
	APIKey       string
	APIKeyHeader string

	// Cache, when set, serves repeated requests for CacheTTL.
	Cache    Cache
	CacheTTL time.Duration

	Recorder RequestRecorder
}

// HTTPClient wraps http.Client with rate limiting, retries and an optional
// response cache. It is safe for concurrent use.
type HTTPClient struct {
	client  *http.Client
	limiter *rate.Limiter
	config  HTTPClientConfig
}

// NewHTTPClient creates a rate-limited client, applying defaults for unset
// configuration.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 5
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 1
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 24 * time.Hour
	}

	return &HTTPClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.BurstSize),
		config:  cfg,
	}
}

// WithHTTPClient replaces the underlying transport client (for testing).
func (c *HTTPClient) WithHTTPClient(hc *http.Client) *HTTPClient {
	c.client = hc
	return c
}

// Do executes a request with rate limiting and retries on 429 (honouring
// Retry-After) and 5xx. Requests with a body must set GetBody to be retried.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := resetRequestBody(req); err != nil {
				return nil, fmt.Errorf("cannot retry request: %w", err)
			}
		}

		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			c.observe("network_error")
			lastErr = fmt.Errorf("request to %s failed: %w", c.config.Source, err)
			if attempt < c.config.MaxRetries {
				if err := waitForRetry(req.Context(), c.config.RetryDelay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		if !shouldRetry(resp.StatusCode) {
			c.observe(strconv.Itoa(resp.StatusCode))
			return resp, nil
		}

		c.observe(strconv.Itoa(resp.StatusCode))
		delay := c.retryDelay(resp)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("%w: %s returned 429", ErrRateLimited, c.config.Source)
		} else {
			lastErr = &APIError{Source: c.config.Source, StatusCode: resp.StatusCode, URL: req.URL.String()}
		}
		if attempt < c.config.MaxRetries {
			if err := waitForRetry(req.Context(), delay); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// Get fetches url and returns the body. Successful responses are cached.
// Non-2xx statuses become errors recognised by IsNotFound, IsAuthError and
// IsRateLimited.
func (c *HTTPClient) Get(ctx context.Context, url, accept string) ([]byte, error) {
	key := cacheKey(http.MethodGet, url, accept, nil)
	if body, ok := c.cached(key); ok {
		return body, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	body, err := c.send(req)
	if err != nil {
		return nil, err
	}
	c.store(key, body)
	return body, nil
}

// GetJSON fetches url and decodes the JSON body into out.
func (c *HTTPClient) GetJSON(ctx context.Context, url string, out any) error {
	body, err := c.Get(ctx, url, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, c.config.Source, err)
	}
	return nil
}

// PostJSON sends payload as JSON and decodes the response into out.
// Responses are cached by URL and payload.
func (c *HTTPClient) PostJSON(ctx context.Context, url string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	key := cacheKey(http.MethodPost, url, "application/json", data)
	body, ok := c.cached(key)
	if !ok {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		body, err = c.send(req)
		if err != nil {
			return err
		}
		c.store(key, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, c.config.Source, err)
	}
	return nil
}

func (c *HTTPClient) send(req *http.Request) ([]byte, error) {
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkHTTPErrors(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", c.config.Source, err)
	}
	return body, nil
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func (c *HTTPClient) checkHTTPErrors(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	apiErr := &APIError{
		Source:     c.config.Source,
		StatusCode: resp.StatusCode,
		URL:        resp.Request.URL.String(),
		Message:    string(bytes.TrimSpace(msg)),
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrAuth, apiErr)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, apiErr)
	}
	return apiErr
}

func (c *HTTPClient) cached(key string) ([]byte, bool) {
	if c.config.Cache == nil {
		return nil, false
	}
	body, ok, err := c.config.Cache.Get(key, c.config.CacheTTL)
	if err != nil || !ok {
		return nil, false
	}
	c.observe("cache_hit")
	return body, true
}

func (c *HTTPClient) store(key string, body []byte) {
	if c.config.Cache != nil {
		// A failed cache write only costs a refetch next run.
		_ = c.config.Cache.Put(key, body)
	}
}

func (c *HTTPClient) observe(outcome string) {
	if c.config.Recorder != nil {
		c.config.Recorder.ObserveRequest(c.config.Source, outcome)
	}
}

// retryDelay respects the Retry-After header if present, otherwise uses the
// configured retry delay.
func (c *HTTPClient) retryDelay(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return c.config.RetryDelay
	}
	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return c.config.RetryDelay
	}
	if t, err := http.ParseTime(retryAfter); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}
	return c.config.RetryDelay
}

func shouldRetry(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= 500 && statusCode < 600)
}

func waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func resetRequestBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to get request body for retry: %w", err)
	}
	req.Body = body
	return nil
}

// cacheKey identifies a request. API keys are not part of it.
func cacheKey(method, url, accept string, body []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%s\n%s\n", method, url, accept)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
