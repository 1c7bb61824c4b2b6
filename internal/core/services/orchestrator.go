package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driving"
	"github.com/custodia-labs/contentpipe/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.Pipeline = (*Orchestrator)(nil)

// OrchestratorConfig holds the injectable run identity and clock.
type OrchestratorConfig struct {
	// NewRunID generates run identifiers (default: timestamp based).
	NewRunID func() string

	// Now is the run clock (default: time.Now).
	Now func() time.Time
}

// Orchestrator drives one run through fetch, enhancement, classification,
// validation and the artifact write. Runs are serialised.
type Orchestrator struct {
	registry   driven.SourceRegistry
	coord      driven.CallCoordinator
	enhancer   *Enhancer
	classifier *Classifier
	validator  *QualityValidator
	writer     driven.ArtifactWriter
	newRunID   func() string
	now        func() time.Time

	runMu sync.Mutex

	// Status tracking
	mu     sync.RWMutex
	status driving.RunStatus
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(
	registry driven.SourceRegistry,
	coord driven.CallCoordinator,
	enhancer *Enhancer,
	classifier *Classifier,
	validator *QualityValidator,
	writer driven.ArtifactWriter,
	cfg OrchestratorConfig,
) *Orchestrator {
	o := &Orchestrator{
		registry:   registry,
		coord:      coord,
		enhancer:   enhancer,
		classifier: classifier,
		validator:  validator,
		writer:     writer,
		newRunID:   cfg.NewRunID,
		now:        cfg.Now,
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newRunID == nil {
		o.newRunID = func() string {
			return fmt.Sprintf("run-%d", o.now().UnixNano())
		}
	}
	return o
}

// Status reports progress of the run in flight.
func (o *Orchestrator) Status() driving.RunStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

func (o *Orchestrator) setState(state domain.RunState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.State = state
	o.status.Running = !state.IsTerminal()
}

func (o *Orchestrator) addProgress(fetched, errs int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.RecordsFetched += fetched
	o.status.ErrorCount += errs
}

// run carries the per-run state shared by the stages.
type run struct {
	req     driving.RunRequest
	summary *domain.RunSummary
	machine *domain.RunMachine
	records []domain.EnhancedRecord
	kept    []domain.EnhancedRecord
}

// Run executes one pipeline run. A summary is always returned; the error is
// non-nil only for run-fatal conditions.
func (o *Orchestrator) Run(ctx context.Context, req driving.RunRequest) (*domain.RunSummary, error) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	r := &run{
		req:     req,
		summary: domain.NewRunSummary(o.newRunID(), o.now()),
		machine: domain.NewRunMachine(),
	}

	o.mu.Lock()
	o.status = driving.RunStatus{RunID: r.summary.RunID, State: domain.RunIdle, Running: true}
	o.mu.Unlock()

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	logger.Info("Starting run %s with %d source(s)", r.summary.RunID, len(req.Sources))

	if len(req.Sources) == 0 {
		return o.fail(ctx, r, domain.ErrNoSources)
	}
	if err := o.writer.CheckWritable(req.OutputPath); err != nil {
		return o.fail(ctx, r, unwritable(err))
	}

	stages := []struct {
		state domain.RunState
		title string
		exec  func(context.Context, *run) error
	}{
		{domain.RunFetching, "Fetching", o.fetch},
		{domain.RunEnhancing, "Enhancing", o.enhance},
		{domain.RunClassifying, "Classifying", o.classify},
		{domain.RunValidating, "Validating", o.validate},
		{domain.RunWriting, "Writing", o.write},
	}
	for _, stage := range stages {
		if err := r.machine.Advance(stage.state); err != nil {
			return o.fail(ctx, r, err)
		}
		o.setState(stage.state)
		done := logger.Timed(stage.title)
		err := stage.exec(ctx, r)
		done()
		if err != nil {
			return o.fail(ctx, r, err)
		}
	}

	if err := r.machine.Advance(domain.RunDone); err != nil {
		return o.fail(ctx, r, err)
	}
	o.setState(domain.RunDone)
	o.finish(ctx, r)

	logger.Info("Run %s done: fetched=%d emitted=%d rejected=%d cancelled=%t",
		r.summary.RunID, r.summary.Fetched, r.summary.Emitted, r.summary.TotalRejected(), r.summary.Cancelled)
	return r.summary, nil
}

// fail moves the run to Failed and returns the summary with the tagged error.
func (o *Orchestrator) fail(ctx context.Context, r *run, err error) (*domain.RunSummary, error) {
	runErr := r.machine.Fail(err)
	o.setState(domain.RunFailed)
	r.summary.Error = runErr.Error()
	o.finish(ctx, r)
	logger.Error("%v", runErr)
	return r.summary, runErr
}

// finish stamps the terminal fields and writes the companion summary file.
func (o *Orchestrator) finish(ctx context.Context, r *run) {
	s := r.summary
	s.State = r.machine.State()
	s.Cancelled = ctx.Err() != nil
	s.FinishedAt = o.now()
	s.Duration = s.FinishedAt.Sub(s.StartedAt)

	if r.req.SummaryPath == "" {
		return
	}
	if err := o.writer.WriteSummary(context.WithoutCancel(ctx), r.req.SummaryPath, s); err != nil {
		logger.Warn("write summary %s: %v", r.req.SummaryPath, err)
	}
}

// sourceResult is the outcome of one source's stream.
type sourceResult struct {
	drafts      []domain.DraftRecord
	errors      int
	malformed   int
	interrupted bool
}

// fetch streams every source concurrently. Results are slotted by source
// index so the flattened order follows the source list. Sources interrupted
// by cancellation contribute nothing.
func (o *Orchestrator) fetch(ctx context.Context, r *run) error {
	sources := r.req.Sources
	results := make([]sourceResult, len(sources))
	started := make([]bool, len(sources))

	o.coord.Fan(ctx, len(sources), func(ctx context.Context, i int) {
		started[i] = true
		results[i] = o.fetchSource(ctx, sources[i])
	})

	for i, res := range results {
		name := sources[i].Name
		if !started[i] {
			logger.Debug("source %s skipped: run cancelled", name)
			continue
		}
		if res.errors > 0 {
			r.summary.SourceErrors[name] += res.errors
		}
		r.summary.Malformed += res.malformed
		if res.interrupted {
			logger.Warn("source %s interrupted; discarding %d record(s)", name, len(res.drafts))
			continue
		}
		for _, d := range res.drafts {
			r.records = append(r.records, domain.NewEnhancedRecord(d, i))
		}
	}

	if r.req.Limit > 0 && len(r.records) > r.req.Limit {
		logger.Info("limiting %d record(s) to %d", len(r.records), r.req.Limit)
		r.records = r.records[:r.req.Limit]
	}
	r.summary.Fetched = len(r.records)
	return nil
}

// fetchSource drains one adapter stream.
func (o *Orchestrator) fetchSource(ctx context.Context, src domain.SourceDescriptor) sourceResult {
	var res sourceResult

	if err := src.Validate(); err != nil {
		logger.Warn("source %s: %v", src.Name, err)
		res.errors++
		o.addProgress(0, 1)
		return res
	}
	adapter, err := o.registry.Get(src.Kind)
	if err != nil {
		logger.Warn("source %s: %v", src.Name, err)
		res.errors++
		o.addProgress(0, 1)
		return res
	}

	drafts, errs := adapter.Fetch(ctx, src)
	for drafts != nil || errs != nil {
		select {
		case d, ok := <-drafts:
			if !ok {
				drafts = nil
				continue
			}
			res.drafts = append(res.drafts, d)
			o.addProgress(1, 0)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if domain.IsSourceInterrupted(err) {
				res.interrupted = true
				if !domain.IsItemMalformed(err) {
					continue
				}
			}
			if domain.IsItemMalformed(err) {
				res.malformed++
			}
			res.errors++
			o.addProgress(0, 1)
			logger.Warn("%v", err)
		}
	}
	return res
}

// enhance fills weak fields. Records whose task did not start keep their values.
func (o *Orchestrator) enhance(ctx context.Context, r *run) error {
	if r.req.SkipAI || o.enhancer == nil || !o.enhancer.Available() {
		logger.Debug("enhancement disabled")
		return nil
	}

	outcomes := make([]EnhanceOutcome, len(r.records))
	o.coord.Fan(ctx, len(r.records), func(ctx context.Context, i int) {
		r.records[i], outcomes[i] = o.enhancer.Enhance(ctx, r.records[i])
	})

	for _, outcome := range outcomes {
		switch outcome {
		case EnhanceApplied:
			r.summary.Enhanced++
		case EnhanceFailed:
			r.summary.EnhancementFailed++
		}
	}
	return nil
}

// classify labels every record. Records left untouched by a cancelled fan-out
// are still classified from their source category.
func (o *Orchestrator) classify(ctx context.Context, r *run) error {
	useAI := !r.req.SkipAI
	o.coord.Fan(ctx, len(r.records), func(ctx context.Context, i int) {
		r.records[i], _ = o.classifier.Classify(ctx, r.records[i], useAI)
	})

	for i := range r.records {
		if !r.records[i].IsClassified() {
			r.records[i], _ = o.classifier.Classify(ctx, r.records[i], false)
		}
		if r.records[i].Category == domain.CategoryUnclassified {
			r.summary.Unclassified++
		} else {
			r.summary.Classified++
		}
	}
	return nil
}

// validate scores, deduplicates and filters, then fixes the output order.
func (o *Orchestrator) validate(_ context.Context, r *run) error {
	result := o.validator.Validate(r.records)

	for _, rej := range result.Rejected {
		r.summary.Rejected[rej.Reason]++
		if rej.Reason == domain.RejectDuplicate {
			r.summary.Deduplicated++
		}
		logger.Debug("rejected %s: %s", rej.Record.URL(), rej.Reason)
	}

	r.kept = result.Kept
	SortForOutput(r.kept)

	var total float64
	for _, rec := range r.kept {
		r.summary.Categories[rec.Category]++
		total += rec.Score()
	}
	r.summary.Emitted = len(r.kept)
	if len(r.kept) > 0 {
		r.summary.AverageQuality = total / float64(len(r.kept))
	}
	return nil
}

// write replaces the artifact. It runs even after cancellation so validated
// records are never discarded.
func (o *Orchestrator) write(ctx context.Context, r *run) error {
	records := make([]domain.ArtifactRecord, len(r.kept))
	for i, rec := range r.kept {
		records[i] = domain.NewArtifactRecord(rec, r.req.Sources[rec.SourceIndex].AffiliateTag)
	}

	if err := o.writer.WriteArtifact(context.WithoutCancel(ctx), r.req.OutputPath, records); err != nil {
		return unwritable(err)
	}
	r.summary.OutputPath = r.req.OutputPath
	logger.Info("wrote %d record(s) to %s", len(records), r.req.OutputPath)
	return nil
}

// SortForOutput orders records by publish date descending with undated
// records last. Ties keep source-list order, then within-source order.
func SortForOutput(records []domain.EnhancedRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		ad, bd := a.Draft.PublishedAt, b.Draft.PublishedAt
		switch {
		case ad.IsZero() != bd.IsZero():
			return bd.IsZero()
		case !ad.Equal(bd):
			return ad.After(bd)
		case a.SourceIndex != b.SourceIndex:
			return a.SourceIndex < b.SourceIndex
		default:
			return a.Draft.Position < b.Draft.Position
		}
	})
}

func unwritable(err error) error {
	if errors.Is(err, domain.ErrOutputUnwritable) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrOutputUnwritable, err)
}
