// Package http provides the HTTP plumbing used against the video site: an
// anonymous session bootstrap, a bounded retry executor with jittered pauses
// and growing per-attempt timeouts, and an optional per-host rate limiter.
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"ytinsight/internal/metrics"
)

// DesktopUserAgent is sent on every request to the video site.
const DesktopUserAgent = "Mozilla/5.0 (Windows NT 6.1; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/52.0.2743.116 Safari/537.36"

// Client issues requests with bounded retries.
type Client struct {
	base        *http.Client
	config      *Config
	rateLimiter *RateLimiter
	metrics     *metrics.Metrics
	log         *logrus.Entry
	sleep       func(context.Context, time.Duration) error
}

// Config holds the attempt policy.
type Config struct {
	// MaxAttempts is the number of tries per request.
	MaxAttempts int

	// JitterMin and JitterMax bound the random pause taken before every attempt.
	JitterMin time.Duration
	JitterMax time.Duration

	// TimeoutBase is scaled by 2^attempt to get the timeout of each attempt,
	// so later attempts tolerate slower responses.
	TimeoutBase time.Duration

	// Rate limiter configuration
	RateLimiter RateLimiterConfig

	// Connection pool configuration
	Transport TransportConfig
}

// TransportConfig configures the HTTP transport (connection pooling).
type TransportConfig struct {
	// MaxIdleConns is the maximum number of idle connections across all hosts.
	MaxIdleConns int
	// MaxIdleConnsPerHost is the maximum idle connections per host.
	MaxIdleConnsPerHost int
	// IdleConnTimeout is the maximum amount of time an idle connection can remain open.
	IdleConnTimeout time.Duration
}

// DefaultConfig returns three attempts with 0.1s-1s jitter and 2s/4s/8s timeouts.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		JitterMin:   100 * time.Millisecond,
		JitterMax:   1 * time.Second,
		TimeoutBase: 1 * time.Second,
		RateLimiter: DefaultRateLimiterConfig(),
		Transport:   DefaultTransportConfig(),
	}
}

// DefaultTransportConfig returns sensible defaults for HTTP transport configuration.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client. Its Timeout should be
// zero; per-attempt timeouts are applied through the request context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.base = hc }
}

// WithMetrics records attempts and latencies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the entry attempt failures are logged to.
func WithLogger(entry *logrus.Entry) Option {
	return func(c *Client) { c.log = entry }
}

// WithSleep replaces the pause function. Tests use it to count or skip pauses.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// New creates a new HTTP client with the given configuration.
func New(cfg *Config, opts ...Option) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	c := &Client{
		base: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        cfg.Transport.MaxIdleConns,
				MaxIdleConnsPerHost: cfg.Transport.MaxIdleConnsPerHost,
				IdleConnTimeout:     cfg.Transport.IdleConnTimeout,
			},
		},
		config:      cfg,
		rateLimiter: NewRateLimiter(cfg.RateLimiter),
		log:         logrus.NewEntry(logrus.StandardLogger()),
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request is a fully built request. Body is re-sent on every attempt.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
	// Endpoint labels attempts in metrics.
	Endpoint string
}

// Response represents an HTTP response with status code and body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Attempts is how many tries it took.
	Attempts int
}

// Get fetches url with the same attempt policy as Fetch.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.Fetch(ctx, &Request{
		Method:   http.MethodGet,
		URL:      url,
		Header:   http.Header{"User-Agent": {DesktopUserAgent}},
		Endpoint: metrics.EndpointProbe,
	})
}

// bodyError marks a failure that happened after response headers arrived.
type bodyError struct{ err error }

func (e *bodyError) Error() string { return "read response body: " + e.err.Error() }
func (e *bodyError) Unwrap() error { return e.err }

// Fetch issues req up to MaxAttempts times. Before every attempt it pauses
// for a random duration in [JitterMin, JitterMax). Transport errors and
// non-2xx statuses move on to the next attempt. A body that cannot be read
// ends the sequence immediately with OutcomeReadFailure, since the server
// did answer.
func (c *Client) Fetch(ctx context.Context, req *Request) (*Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if err := c.sleep(ctx, c.jitter()); err != nil {
			return nil, &FetchError{Outcome: OutcomeTransportFailure, URL: req.URL, Attempts: attempt - 1, Err: err}
		}
		if err := c.rateLimiter.WaitForBackoff(ctx, req.URL); err != nil {
			return nil, &FetchError{Outcome: OutcomeTransportFailure, URL: req.URL, Attempts: attempt - 1, Err: err}
		}
		if err := c.rateLimiter.Wait(ctx, req.URL); err != nil {
			return nil, &FetchError{Outcome: OutcomeTransportFailure, URL: req.URL, Attempts: attempt - 1, Err: err}
		}

		c.metrics.IncAttempt(req.Endpoint)
		start := time.Now()
		resp, err := c.attempt(ctx, req, c.attemptTimeout(attempt))
		if err == nil {
			resp.Attempts = attempt
			c.rateLimiter.RecordSuccess(req.URL)
			c.metrics.ObserveFetch(req.Endpoint, time.Since(start))
			return resp, nil
		}

		var be *bodyError
		if errors.As(err, &be) {
			c.log.WithFields(logrus.Fields{"url": req.URL, "attempt": attempt}).WithError(err).Warn("response body unreadable")
			return nil, &FetchError{Outcome: OutcomeReadFailure, URL: req.URL, Attempts: attempt, Err: be.err}
		}

		lastErr = err
		c.log.WithFields(logrus.Fields{"url": req.URL, "attempt": attempt}).WithError(err).Debug("attempt failed")

		if ctx.Err() != nil {
			return nil, &FetchError{Outcome: OutcomeTransportFailure, URL: req.URL, Attempts: attempt, Err: ctx.Err()}
		}
	}

	return nil, &FetchError{Outcome: OutcomeTransportFailure, URL: req.URL, Attempts: c.config.MaxAttempts, Err: lastErr}
}

// attempt performs one request under its own timeout.
func (c *Client) attempt(ctx context.Context, req *Request, timeout time.Duration) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.base.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		statusErr := &StatusError{StatusCode: resp.StatusCode, RetryAfter: parseRetryAfter(resp.Header)}
		if statusErr.IsRateLimited() {
			c.rateLimiter.RecordRateLimitError(req.URL, statusErr.RetryAfter)
		}
		return nil, statusErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &bodyError{err: err}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// attemptTimeout returns TimeoutBase * 2^attempt.
func (c *Client) attemptTimeout(attempt int) time.Duration {
	return c.config.TimeoutBase << uint(attempt)
}

// jitter returns a uniform random duration in [JitterMin, JitterMax).
func (c *Client) jitter() time.Duration {
	return uniform(c.config.JitterMin, c.config.JitterMax)
}

func uniform(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// parseRetryAfter extracts the Retry-After header value.
// Returns 0 if not present or unparseable.
func parseRetryAfter(header http.Header) time.Duration {
	retryAfter := header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(retryAfter); err == nil {
		return time.Until(t)
	}
	return 0
}

// Close closes idle connections.
func (c *Client) Close() error {
	if c.base != nil {
		c.base.CloseIdleConnections()
	}
	return nil
}
