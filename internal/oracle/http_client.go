package oracle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/tunevault/tunevault/internal/apperrors"
	"github.com/tunevault/tunevault/internal/logging"
	"github.com/tunevault/tunevault/internal/ratelimit"
)

// callTimeout is the per-oracle-call timeout (spec §5: "A timeout on any
// single oracle call is 10 seconds; expiring a timeout is equivalent to a
// transient failure.").
const callTimeout = 10 * time.Second

// PermanentError wraps a non-retryable oracle response (4xx other than
// 429), so resolvers know to cache it as a negative result (spec §4.3).
type PermanentError struct {
	StatusCode int
	Err        error
}

func (e *PermanentError) Error() string { return fmt.Sprintf("permanent oracle error (%d): %v", e.StatusCode, e.Err) }
func (e *PermanentError) Unwrap() error { return e.Err }

// httpClient is the shared resilient HTTP client used by every oracle
// implementation: rate-limited, retried with exponential backoff on
// transient failures, circuit-broken on repeated failure, modeled on
// internal/imageprovider/wikipedia.go.
type httpClient struct {
	service    string
	base       *http.Client
	limiter    *ratelimit.Limiter
	maxRetries int
	logger     *logging.Logger

	mu               sync.Mutex
	circuitOpenUntil time.Time
	circuitFailures  int
}

func newHTTPClient(service string, limiter *ratelimit.Limiter) *httpClient {
	return &httpClient{
		service:    service,
		base:       &http.Client{Timeout: callTimeout},
		limiter:    limiter,
		maxRetries: 3,
		logger:     logging.Module("oracle").With(service),
	}
}

func (c *httpClient) circuitOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Before(c.circuitOpenUntil)
}

func (c *httpClient) openCircuit(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.circuitFailures++
	c.circuitOpenUntil = time.Now().Add(d)
}

func (c *httpClient) resetCircuit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.circuitFailures = 0
	c.circuitOpenUntil = time.Time{}
}

// get performs a rate-limited, retried GET and returns the response body.
// Retry/backoff policy (spec §4.3):
//   - transient (timeout, 5xx): retry up to 3 times with exponential backoff
//   - permanent (4xx other than 429): returns *PermanentError, no retry
//   - 429: forced pacing backoff (ratelimit.Backoff) + a single retry
func (c *httpClient) get(ctx context.Context, url string) ([]byte, error) {
	if c.circuitOpen() {
		return nil, apperrors.Newf("circuit open for %s", c.service).
			Component("oracle").Category(apperrors.CategoryOracle).Build()
	}

	var lastErr error
	backoff := 200 * time.Millisecond
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Acquire(ctx, c.service); err != nil {
			return nil, err
		}

		body, status, err := c.doOnce(ctx, url)
		if err == nil {
			c.resetCircuit()
			return body, nil
		}

		switch {
		case status == http.StatusTooManyRequests:
			c.limiter.Backoff(c.service)
			if attempt == 0 {
				lastErr = err
				continue // single forced retry
			}
			c.openCircuit(30 * time.Second)
			return nil, err
		case status >= 400 && status < 500:
			return nil, &PermanentError{StatusCode: status, Err: err}
		default:
			// transient: timeout, 5xx, or transport error.
			lastErr = err
			if attempt == c.maxRetries {
				c.openCircuit(15 * time.Second)
				break
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, apperrors.New(lastErr).Component("oracle").Category(apperrors.CategoryOracle).
		Context("service", c.service).Build()
}

func (c *httpClient) doOnce(ctx context.Context, url string) (body []byte, status int, err error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", "tunevault/1.0")

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if resp.StatusCode >= 300 {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return b, resp.StatusCode, nil
}
