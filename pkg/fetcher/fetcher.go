// Package fetcher provides the rate-limited, retrying fetch path shared by
// every pipeline in a crawl.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrDisallowed is returned when the policy gate rejects a URL before any
// network call is made.
var ErrDisallowed = errors.New("blocked by robots policy")

// StatusError reports a non-success HTTP response. Unlike transport errors
// it is not retried unless its code is in the configured retryable set.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/115.0",
}

func randomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// PolicyGate answers whether a URL may be fetched.
type PolicyGate interface {
	Allowed(rawURL string) bool
}

// Options configures a Fetcher.
type Options struct {
	// RateLimit is the minimum interval between outgoing requests, enforced
	// across all concurrent fetches. Zero disables pacing.
	RateLimit time.Duration
	// MaxRetries is the total attempt ceiling for transport failures.
	MaxRetries int
	// Timeout bounds each individual attempt.
	Timeout time.Duration
	// RetryMinDelay and RetryMaxDelay clamp the exponential backoff.
	RetryMinDelay time.Duration
	RetryMaxDelay time.Duration
	// RetryOnStatus lists non-2xx codes that are retried like transport
	// failures. Empty means non-success responses fail immediately.
	RetryOnStatus []int
}

// Fetcher issues paced, retrying GET requests through one shared transport.
// The underlying client is created lazily on first use and reused for the
// crawl's lifetime; Close releases it.
type Fetcher struct {
	limiter       *rate.Limiter
	gate          PolicyGate
	logger        *logrus.Logger
	maxRetries    int
	timeout       time.Duration
	retryMinDelay time.Duration
	retryMaxDelay time.Duration
	retryOnStatus map[int]bool

	once   sync.Once
	client *http.Client
}

// New creates a Fetcher. gate may be nil, in which case every URL passes.
func New(opts Options, gate PolicyGate, logger *logrus.Logger) *Fetcher {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.RateLimit), 1)
	}

	retryOn := make(map[int]bool, len(opts.RetryOnStatus))
	for _, code := range opts.RetryOnStatus {
		retryOn[code] = true
	}

	maxRetries := opts.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &Fetcher{
		limiter:       limiter,
		gate:          gate,
		logger:        logger,
		maxRetries:    maxRetries,
		timeout:       opts.Timeout,
		retryMinDelay: opts.RetryMinDelay,
		retryMaxDelay: opts.RetryMaxDelay,
		retryOnStatus: retryOn,
	}
}

// SetGate installs the policy gate checked before every fetch. The crawler
// constructs the gate with the shared client, after the fetcher exists.
func (f *Fetcher) SetGate(gate PolicyGate) {
	f.gate = gate
}

// Client returns the shared HTTP client, creating it on first call.
func (f *Fetcher) Client() *http.Client {
	f.once.Do(func() {
		f.client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
			Timeout: f.timeout,
		}
	})
	return f.client
}

// Fetch returns the body of rawURL. A policy-gate rejection short-circuits
// before pacing and network I/O. Transport failures are retried with
// exponential backoff up to the attempt ceiling; non-success responses fail
// without retry unless their status is configured retryable.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if f.gate != nil && !f.gate.Allowed(rawURL) {
		f.logger.Warnf("URL not allowed by robots.txt: %s", rawURL)
		return "", ErrDisallowed
	}

	var lastErr error
	delay := f.retryMinDelay
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			delay *= 2
			if delay > f.retryMaxDelay {
				delay = f.retryMaxDelay
			}
		}

		body, err := f.attempt(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !f.retryOnStatus[statusErr.Code] {
			f.logger.Errorf("Failed to fetch %s: status %d", rawURL, statusErr.Code)
			return "", err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		f.logger.Errorf("Error fetching %s (attempt %d/%d): %v", rawURL, attempt, f.maxRetries, err)
	}

	return "", fmt.Errorf("fetching %s: %w", rawURL, lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, rawURL string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", randomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.Client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Close releases the shared transport. Safe to call when no fetch ever
// happened.
func (f *Fetcher) Close() {
	if f.client != nil {
		f.client.CloseIdleConnections()
	}
}
