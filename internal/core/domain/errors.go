package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Pipeline error taxonomy. Only ErrRunFatal (and the errors wrapped with it)
// ever leave the orchestrator; the rest are counted in the RunSummary.
var (
	// ErrSourceUnreachable indicates a source could not be fetched after retries.
	ErrSourceUnreachable = errors.New("source unreachable")

	// ErrSourceInterrupted indicates a source stopped early because the run
	// was cancelled. Its records are discarded and it is not counted as a failure.
	ErrSourceInterrupted = errors.New("source interrupted")

	// ErrItemMalformed indicates a single source item could not be mapped.
	// The item is skipped and counted.
	ErrItemMalformed = errors.New("item malformed")

	// ErrEnhancementSchemaInvalid indicates an AI response failed schema validation.
	// The record passes through unenhanced.
	ErrEnhancementSchemaInvalid = errors.New("enhancement response failed schema validation")

	// ErrEnhancementProvider indicates the AI provider failed after retries.
	ErrEnhancementProvider = errors.New("enhancement provider error")

	// ErrLowConfidence indicates a classification fell below the confidence threshold.
	// It resolves to the unclassified category and is never surfaced as a failure.
	ErrLowConfidence = errors.New("low confidence classification")

	// ErrRunFatal indicates a condition that aborts the whole run.
	ErrRunFatal = errors.New("run fatal")

	// ErrNoSources indicates the run was started without any sources.
	ErrNoSources = errors.New("no sources configured")

	// ErrOutputUnwritable indicates the artifact path cannot be written.
	ErrOutputUnwritable = errors.New("output path unwritable")

	// ErrMalformedResponse indicates a remote response could not be decoded.
	// Malformed responses are terminal for the call and never retried.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrUnsupportedKind indicates an unknown source kind.
	ErrUnsupportedKind = errors.New("unsupported source kind")

	// ErrInvalidConfig indicates the run configuration failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrAIUnavailable indicates no AI provider is configured.
	ErrAIUnavailable = errors.New("AI provider unavailable")
)

// SourceError is a source-level failure. The source yields zero records for the run.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// ItemError is an item-level mapping failure. Index is the item's position in the source.
type ItemError struct {
	Source string
	Index  int
	Reason string
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("source %s item %d: %s", e.Source, e.Index, e.Reason)
}

func (e *ItemError) Unwrap() error {
	return ErrItemMalformed
}

// StatusError is a non-2xx response from a remote endpoint.
type StatusError struct {
	StatusCode int
	URL        string
	Message    string

	// RetryAfter is the server-requested delay, zero when absent.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.URL, e.Message)
}

// Transient reports whether the status is worth retrying.
// Server errors and 429 are transient; other 4xx are not.
func (e *StatusError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// RunError is a run-fatal error tagged with the state the run failed in.
type RunError struct {
	State RunState
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run failed while %s: %v", e.State, e.Err)
}

func (e *RunError) Unwrap() []error {
	return []error{ErrRunFatal, e.Err}
}

// IsSourceError checks if the error is a source-level failure.
func IsSourceError(err error) bool {
	var srcErr *SourceError
	return errors.As(err, &srcErr)
}

// IsSourceInterrupted checks if the error reports a source stopped by cancellation.
func IsSourceInterrupted(err error) bool {
	return errors.Is(err, ErrSourceInterrupted)
}

// IsItemMalformed checks if the error is an item-level failure.
func IsItemMalformed(err error) bool {
	return errors.Is(err, ErrItemMalformed)
}

// IsTransientStatus checks if the error carries a retryable HTTP status.
func IsTransientStatus(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}
	return false
}

// IsClientStatus checks if the error carries a non-retryable 4xx status.
func IsClientStatus(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 && !statusErr.Transient()
	}
	return false
}

// IsRunFatal checks if the error aborts the run.
func IsRunFatal(err error) bool {
	return errors.Is(err, ErrRunFatal)
}
