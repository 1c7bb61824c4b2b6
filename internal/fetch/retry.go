package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
)

// ErrCallTimeout indicates a single call exceeded its per-call timeout.
var ErrCallTimeout = errors.New("call timed out")

// RetryError reports a call that kept failing transiently until attempts ran out.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// IsRetryable classifies an error as transient.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, domain.ErrMalformedResponse):
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, ErrCallTimeout), errors.Is(err, context.DeadlineExceeded):
		return true
	}

	var statusErr *domain.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// retryAfter extracts a server-requested delay from err.
func retryAfter(err error) time.Duration {
	var statusErr *domain.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.RetryAfter
	}
	return 0
}

// backoff returns the delay before the attempt following attempt (1-based).
func backoff(base, ceiling time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= ceiling {
			return ceiling
		}
	}
	if delay > ceiling {
		return ceiling
	}
	return delay
}
