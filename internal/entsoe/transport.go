package entsoe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/AldairPetronilia/trading-project-sub002/pkg/logging"
	"github.com/AldairPetronilia/trading-project-sub002/pkg/metrics"
)

// RetryPolicy bounds the transport's retry behaviour
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// Backoff returns the delay before the attempt following the given 1-based
// attempt number, capped at MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= p.Multiplier
	}
	if max := float64(p.MaxDelay); delay > max {
		delay = max
	}
	return time.Duration(delay)
}

// TransportConfig holds connection pool, timeout, rate limit and retry
// settings for the upstream API.
type TransportConfig struct {
	ConnectTimeout     time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	PoolTimeout        time.Duration
	MaxConnections     int
	MaxIdleConnections int
	RateLimit          float64
	RateBurst          int
	UserAgent          string
	Retry              RetryPolicy
}

// DefaultTransportConfig returns a transport config with sensible defaults
func DefaultTransportConfig() *TransportConfig {
	return &TransportConfig{
		ConnectTimeout:     10 * time.Second,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       10 * time.Second,
		PoolTimeout:        5 * time.Second,
		MaxConnections:     10,
		MaxIdleConnections: 5,
		RateLimit:          2.0,
		RateBurst:          2,
		UserAgent:          "energy-collector/1.0",
		Retry: RetryPolicy{
			MaxAttempts: 4,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    30 * time.Second,
			Multiplier:  2.0,
		},
	}
}

// Transport is a pooled, rate-limited HTTP GET transport with bounded
// exponential backoff. Transient failures (429, 502, 503, 504, connect/read
// timeouts) are retried up to the policy limit; on exhaustion the original
// classified error is returned, never a retry-exhaustion wrapper, so callers
// can branch on the true cause.
type Transport struct {
	config  *TransportConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewTransport creates a transport with its own connection pool. Close must
// be called to release pooled connections on every exit path.
func NewTransport(config *TransportConfig, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Transport {
	if config == nil {
		config = DefaultTransportConfig()
	}

	httpTransport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: config.ConnectTimeout,
		}).DialContext,
		ResponseHeaderTimeout: config.ReadTimeout,
		MaxConnsPerHost:       config.MaxConnections,
		MaxIdleConnsPerHost:   config.MaxIdleConnections,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Transport{
		config:  config,
		client:  &http.Client{Transport: httpTransport},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Close releases the transport's pooled connections
func (t *Transport) Close() {
	t.client.CloseIdleConnections()
}

// Get performs a GET request against rawURL with the given query parameters
// and returns the response body.
func (t *Transport) Get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	fullURL := rawURL
	if len(params) > 0 {
		fullURL = rawURL + "?" + params.Encode()
	}
	reportURL := sanitizeURL(rawURL, params)

	var lastErr error
	for attempt := 1; attempt <= t.config.Retry.MaxAttempts; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, &ConnectionError{URL: reportURL, Err: err}
		}

		timer := time.Now()
		body, err := t.doOnce(ctx, fullURL, reportURL)
		t.metrics.TransportRequestDuration.Observe(time.Since(timer).Seconds())

		if err == nil {
			t.metrics.RecordTransportOutcome("success")
			return body, nil
		}
		lastErr = err

		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.IsRateLimited() {
			t.metrics.RateLimitHitsTotal.Inc()
		}

		if !isTransient(err) {
			t.metrics.RecordTransportOutcome("fatal")
			return nil, err
		}

		if attempt == t.config.Retry.MaxAttempts {
			break
		}

		delay := t.config.Retry.Backoff(attempt)
		t.metrics.TransportRetriesTotal.Inc()
		t.logger.Warn(ctx, "[TRANSPORT_RETRY] Retrying upstream request", logging.Fields{
			"url":      reportURL,
			"attempt":  attempt,
			"delay_ms": delay.Milliseconds(),
			"cause":    err.Error(),
		})

		select {
		case <-ctx.Done():
			return nil, &ConnectionError{URL: reportURL, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}

	t.metrics.RecordTransportOutcome("exhausted")
	return nil, lastErr
}

// doOnce executes a single request attempt
func (t *Transport) doOnce(ctx context.Context, fullURL, reportURL string) ([]byte, error) {
	// One overall deadline per attempt covering queueing for a pooled
	// connection, connect, write and body read.
	attemptTimeout := t.config.PoolTimeout + t.config.ConnectTimeout + t.config.WriteTimeout + t.config.ReadTimeout
	attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, &ConnectionError{URL: reportURL, Err: err}
	}
	req.Header.Set("User-Agent", t.config.UserAgent)
	req.Header.Set("Accept", "application/xml")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, classifyNetworkError(reportURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyNetworkError(reportURL, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	httpErr := &HTTPError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		URL:        reportURL,
		Body:       truncatePayload(body),
		Retryable:  isRetryableStatus(resp.StatusCode),
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds > 0 {
			httpErr.RetryAfter = time.Duration(seconds) * time.Second
		}
	}
	return nil, httpErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func isTransient(err error) bool {
	if t, ok := err.(interface{ IsTransient() bool }); ok {
		return t.IsTransient()
	}
	return false
}

// classifyNetworkError maps a low-level request failure into the transport's
// error taxonomy.
func classifyNetworkError(reportURL string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		phase := "read"
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			phase = "connect"
		}
		return &TimeoutError{Phase: phase, URL: reportURL, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Phase: "read", URL: reportURL, Err: err}
	}
	return &ConnectionError{URL: reportURL, Err: err}
}

// sanitizeURL rebuilds the request URL for logs and errors with the security
// token redacted.
func sanitizeURL(rawURL string, params url.Values) string {
	if len(params) == 0 {
		return rawURL
	}
	clean := url.Values{}
	for key, values := range params {
		if key == "securityToken" {
			clean.Set(key, "REDACTED")
			continue
		}
		clean[key] = values
	}
	return fmt.Sprintf("%s?%s", rawURL, clean.Encode())
}
