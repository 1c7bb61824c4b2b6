package driven

import "context"

// Call is one outbound operation. It must honour ctx, which carries the per-call timeout.
type Call func(ctx context.Context) error

// CallCoordinator wraps every outbound network call of a run. Implementations
// are safe for concurrent use and own their synchronisation.
type CallCoordinator interface {
	// Do runs call under the concurrency ceiling, the rate limiter and the
	// per-call timeout, retrying transient failures with backoff.
	Do(ctx context.Context, call Call) error

	// Fan runs n tasks concurrently and returns when all have finished.
	// Task i must record its own outcome at index i so results keep
	// submission order. Tasks not yet started when ctx is done are skipped.
	Fan(ctx context.Context, n int, task func(ctx context.Context, i int))
}
