package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
	"github.com/custodia-labs/contentpipe/internal/logger"
)

// Ensure Coordinator implements the interface.
var _ driven.CallCoordinator = (*Coordinator)(nil)

// Default configuration values.
const (
	DefaultMaxConcurrent     = 10
	DefaultRequestsPerSecond = 5.0
	DefaultBurst             = 5
	DefaultTimeout           = 30 * time.Second
	DefaultMaxAttempts       = 3
	DefaultBaseDelay         = 300 * time.Millisecond
	DefaultMaxDelay          = 10 * time.Second
)

// Config holds configuration for the call coordinator.
type Config struct {
	// MaxConcurrent is the number of calls allowed in flight (default: 10).
	MaxConcurrent int

	// RequestsPerSecond is the token-bucket refill rate (default: 5).
	// Negative disables rate limiting.
	RequestsPerSecond float64

	// Burst is the token-bucket size (default: 5).
	Burst int

	// Timeout bounds each attempt (default: 30s).
	Timeout time.Duration

	// MaxAttempts is the total number of attempts per call (default: 3).
	MaxAttempts int

	// BaseDelay is the first backoff delay, doubled per retry (default: 300ms).
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay (default: 10s).
	MaxDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.Burst <= 0 {
		c.Burst = DefaultBurst
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	return c
}

// Coordinator bounds, paces and retries outbound calls.
// It is safe for concurrent use.
type Coordinator struct {
	sem         *semaphore.Weighted
	limiter     *RateLimiter
	timeout     time.Duration
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewCoordinator creates a coordinator from cfg, applying defaults for zero values.
func NewCoordinator(cfg Config) *Coordinator {
	cfg = cfg.withDefaults()
	return &Coordinator{
		sem:         semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		limiter:     NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		maxDelay:    cfg.MaxDelay,
	}
}

// Limiter returns the shared rate limiter.
func (c *Coordinator) Limiter() *RateLimiter {
	return c.limiter
}

// Do runs call with the coordinator's limits and retry policy.
// Terminal errors are returned as-is; exhausted retries return a *RetryError.
func (c *Coordinator) Do(ctx context.Context, call driven.Call) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		lastErr = c.attempt(ctx, call)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == c.maxAttempts {
			break
		}

		delay := backoff(c.baseDelay, c.maxDelay, attempt)
		if wait := retryAfter(lastErr); wait > 0 {
			c.limiter.PauseUntil(time.Now().Add(wait))
		}
		logger.Debug("retrying call (attempt %d/%d) in %s: %v", attempt+1, c.maxAttempts, delay, lastErr)
		if err := sleep(ctx, delay); err != nil {
			return lastErr
		}
	}
	return &RetryError{Attempts: c.maxAttempts, Err: lastErr}
}

// attempt runs a single try under the semaphore, the limiter and the per-call timeout.
func (c *Coordinator) attempt(ctx context.Context, call driven.Call) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := call(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", ErrCallTimeout, c.timeout, err)
	}
	return err
}

// Fan runs n tasks concurrently and waits for all of them.
// Tasks are started in submission order; once ctx is done no further task starts.
func (c *Coordinator) Fan(ctx context.Context, n int, task func(ctx context.Context, i int)) {
	var g errgroup.Group
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			task(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
