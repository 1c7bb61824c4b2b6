package connectors

import (
	"fmt"

	"github.com/custodia-labs/contentpipe/internal/connectors/custom"
	"github.com/custodia-labs/contentpipe/internal/connectors/feed"
	"github.com/custodia-labs/contentpipe/internal/connectors/mapping"
	"github.com/custodia-labs/contentpipe/internal/connectors/site"
	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.SourceRegistry = (*Registry)(nil)

// Registry resolves source adapters by kind.
type Registry struct {
	adapters map[domain.SourceKind]driven.SourceAdapter
}

// NewRegistry creates a registry over the given adapters.
// A later adapter replaces an earlier one of the same kind.
func NewRegistry(adapters ...driven.SourceAdapter) *Registry {
	r := &Registry{adapters: make(map[domain.SourceKind]driven.SourceAdapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Kind()] = a
	}
	return r
}

// NewDefaultRegistry registers the built-in feed, site and custom adapters.
func NewDefaultRegistry(fetcher driven.Fetcher, limits mapping.Limits) *Registry {
	return NewRegistry(
		feed.New(fetcher, limits),
		site.New(fetcher, limits),
		custom.New(fetcher, limits),
	)
}

// Get returns the adapter for kind.
func (r *Registry) Get(kind domain.SourceKind) (driven.SourceAdapter, error) {
	a, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedKind, kind)
	}
	return a, nil
}

// Kinds returns the registered kinds in display order.
func (r *Registry) Kinds() []domain.SourceKind {
	var kinds []domain.SourceKind
	for _, k := range domain.SourceKinds() {
		if _, ok := r.adapters[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
