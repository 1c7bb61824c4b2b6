// Package similarity provides string similarity metrics for near-duplicate detection.
package similarity

import (
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
)

// Ensure Levenshtein implements the interface.
var _ driven.TextSimilarity = (*Levenshtein)(nil)

// Levenshtein scores strings by normalised edit distance.
type Levenshtein struct {
	metric *metrics.Levenshtein
}

// NewLevenshtein creates a case-insensitive Levenshtein similarity.
func NewLevenshtein() *Levenshtein {
	m := metrics.NewLevenshtein()
	m.CaseSensitive = false
	return &Levenshtein{metric: m}
}

// Similarity returns a value in [0, 1], 1 meaning identical.
func (l *Levenshtein) Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	return strutil.Similarity(a, b, l.metric)
}
