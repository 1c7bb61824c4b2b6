// Package fetch implements the call coordinator that wraps every outbound
// network call of a pipeline run, and the HTTP fetcher source adapters use.
//
// The coordinator enforces a global concurrency ceiling (a weighted
// semaphore), a token-bucket rate limit, a per-call timeout and a retry
// policy with exponential backoff. Timeouts, 5xx, 429 and connection
// resets are retried; other 4xx responses and malformed responses are
// terminal for the call.
package fetch
