package driven

import (
	"context"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
)

// ArtifactWriter persists run outputs. Writes replace the target atomically.
type ArtifactWriter interface {
	// CheckWritable verifies the artifact can be created at path.
	CheckWritable(path string) error

	// WriteArtifact replaces path with the JSON array of records.
	WriteArtifact(ctx context.Context, path string, records []domain.ArtifactRecord) error

	// WriteSummary replaces path with the JSON run summary.
	WriteSummary(ctx context.Context, path string, summary *domain.RunSummary) error
}
