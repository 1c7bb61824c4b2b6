package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
)

// Pipeline runs the ingestion pipeline from sources to artifact.
type Pipeline interface {
	// Run executes one run. The summary is returned on success and on failure;
	// the error is non-nil only for run-fatal conditions.
	Run(ctx context.Context, req RunRequest) (*domain.RunSummary, error)

	// Status reports progress of the run in flight.
	Status() RunStatus
}

// RunRequest carries every input of a run explicitly.
type RunRequest struct {
	// Sources are processed in order; the order fixes the artifact order for ties.
	Sources []domain.SourceDescriptor

	// OutputPath is where the artifact is written.
	OutputPath string

	// SummaryPath, when set, receives the RunSummary as JSON.
	SummaryPath string

	// SkipAI disables enhancement and AI classification.
	SkipAI bool

	// Limit caps the number of fetched records passed on. Zero means no cap.
	Limit int

	// Timeout bounds the whole run. Zero means no run-level timeout.
	Timeout time.Duration
}

// RunStatus represents the state of a run in flight.
type RunStatus struct {
	// RunID identifies the run.
	RunID string

	// State is the current run state.
	State domain.RunState

	// Running indicates if a run is in progress.
	Running bool

	// RecordsFetched is the count of drafts received so far.
	RecordsFetched int

	// ErrorCount is the number of source errors so far.
	ErrorCount int
}
