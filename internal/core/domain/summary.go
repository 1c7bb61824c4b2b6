package domain

import (
	"encoding/json"
	"time"
)

// RejectReason explains why the quality validator dropped a record.
type RejectReason string

// Rejection reasons.
const (
	RejectLowQuality RejectReason = "low_quality"
	RejectDuplicate  RejectReason = "duplicate"
)

// Rejection pairs a dropped record with its reason.
type Rejection struct {
	Record EnhancedRecord
	Reason RejectReason

	// KeptFingerprint is the surviving record of a duplicate group.
	KeptFingerprint string
}

// RunSummary holds the statistics of one pipeline run.
// The orchestrator owns it until the run ends; callers must treat it as read-only.
type RunSummary struct {
	RunID      string    `json:"runId"`
	State      RunState  `json:"state"`
	Cancelled  bool      `json:"cancelled"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	Duration time.Duration `json:"-"`

	Fetched           int                  `json:"fetched"`
	Malformed         int                  `json:"malformed"`
	Enhanced          int                  `json:"enhanced"`
	EnhancementFailed int                  `json:"enhancementFailed"`
	Classified        int                  `json:"classified"`
	Unclassified      int                  `json:"unclassified"`
	Rejected          map[RejectReason]int `json:"rejected"`
	Deduplicated      int                  `json:"deduplicated"`
	Emitted           int                  `json:"emitted"`

	// SourceErrors counts source-level and item-level errors per source name.
	SourceErrors map[string]int `json:"sourceErrors"`

	Categories     map[Category]int `json:"categories"`
	AverageQuality float64          `json:"averageQuality"`

	OutputPath string `json:"outputPath,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewRunSummary creates an empty summary for a run.
func NewRunSummary(runID string, startedAt time.Time) *RunSummary {
	return &RunSummary{
		RunID:        runID,
		State:        RunIdle,
		StartedAt:    startedAt,
		Rejected:     make(map[RejectReason]int),
		SourceErrors: make(map[string]int),
		Categories:   make(map[Category]int),
	}
}

// TotalRejected returns the number of rejected records across reasons.
func (s *RunSummary) TotalRejected() int {
	total := 0
	for _, n := range s.Rejected {
		total += n
	}
	return total
}

// TotalSourceErrors returns the number of errors across sources.
func (s *RunSummary) TotalSourceErrors() int {
	total := 0
	for _, n := range s.SourceErrors {
		total += n
	}
	return total
}

// SuccessRate is the fraction of fetched records that were emitted.
func (s *RunSummary) SuccessRate() float64 {
	if s.Fetched == 0 {
		return 0
	}
	return float64(s.Emitted) / float64(s.Fetched)
}

// MarshalJSON adds the duration in a readable form.
func (s RunSummary) MarshalJSON() ([]byte, error) {
	type plain RunSummary
	return json.Marshal(struct {
		plain
		Duration    string  `json:"duration"`
		SuccessRate float64 `json:"successRate"`
	}{
		plain:       plain(s),
		Duration:    s.Duration.String(),
		SuccessRate: s.SuccessRate(),
	})
}
