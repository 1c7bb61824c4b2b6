package driven

import (
	"context"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
)

// SourceAdapter fetches one source and maps its items to canonical drafts.
// Each source kind (feed, site, custom) has one implementation.
type SourceAdapter interface {
	// Kind returns the source kind handled by this adapter.
	Kind() domain.SourceKind

	// Fetch retrieves the source and streams its drafts in source order.
	// Both channels are closed when the source is exhausted. Item-level
	// failures arrive as *domain.ItemError and do not stop the stream;
	// a source-level failure arrives as a single *domain.SourceError
	// and no drafts follow it. A source stopped early by cancellation
	// reports a *domain.SourceError wrapping domain.ErrSourceInterrupted.
	// Timeouts of individual calls are ordinary source failures. The
	// stream cannot be restarted.
	Fetch(ctx context.Context, source domain.SourceDescriptor) (<-chan domain.DraftRecord, <-chan error)
}

// SourceRegistry resolves adapters by kind.
type SourceRegistry interface {
	// Get returns the adapter for kind, or domain.ErrUnsupportedKind.
	Get(kind domain.SourceKind) (SourceAdapter, error)
}

// Fetcher retrieves raw payloads for source adapters.
type Fetcher interface {
	// Fetch performs a GET through the call coordinator.
	// Non-2xx responses surface as *domain.StatusError after retries.
	Fetch(ctx context.Context, url string) (*domain.RawPayload, error)
}
