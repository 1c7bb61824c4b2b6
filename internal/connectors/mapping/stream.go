package mapping

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
)

// Stream is the sending half of an adapter's Fetch result.
type Stream struct {
	ctx    context.Context
	drafts chan domain.DraftRecord
	errs   chan error
}

// NewStream creates the channel pair returned by SourceAdapter.Fetch.
func NewStream(ctx context.Context) (*Stream, <-chan domain.DraftRecord, <-chan error) {
	s := &Stream{
		ctx:    ctx,
		drafts: make(chan domain.DraftRecord),
		errs:   make(chan error, 1),
	}
	return s, s.drafts, s.errs
}

// Draft sends d, returning false once ctx is done.
func (s *Stream) Draft(d domain.DraftRecord) bool {
	select {
	case <-s.ctx.Done():
		return false
	case s.drafts <- d:
		return true
	}
}

// Error sends err, returning false once ctx is done.
func (s *Stream) Error(err error) bool {
	select {
	case <-s.ctx.Done():
		return false
	case s.errs <- err:
		return true
	}
}

// Fail sends a source-level failure for src. Once ctx is done the failure
// is reported as an interruption so consumers can tell a cancelled source
// from an exhausted one.
func (s *Stream) Fail(src domain.SourceDescriptor, err error) {
	if s.ctx.Err() != nil {
		s.Interrupt(src)
		return
	}
	s.Error(&domain.SourceError{Source: src.Name, Err: err})
}

// Interrupt reports that src stopped early because ctx is done, wrapping
// domain.ErrSourceInterrupted and the context error. It never
// blocks and is never dropped: an item error still sitting in the buffer is
// taken back and joined into the interruption. Only the producer sends on
// errs, so the loop ends once the buffer has room.
func (s *Stream) Interrupt(src domain.SourceDescriptor) {
	cause := fmt.Errorf("%w: %w", domain.ErrSourceInterrupted, s.ctx.Err())
	for {
		select {
		case s.errs <- &domain.SourceError{Source: src.Name, Err: cause}:
			return
		default:
		}
		select {
		case pending := <-s.errs:
			cause = errors.Join(cause, pending)
		default:
		}
	}
}

// Close closes both channels. It must be called exactly once by the producer.
func (s *Stream) Close() {
	close(s.drafts)
	close(s.errs)
}

// Emit builds and sends drafts for items in order, applying limits.
// Malformed items are reported as item errors and skipped.
func Emit(s *Stream, src domain.SourceDescriptor, items []Item, base *url.URL, limits Limits) {
	now := limits.Clock()
	items = items[:limits.Cap(len(items))]
	for i, item := range items {
		d, err := Build(src, item, i, base, now)
		if err != nil {
			if !s.Error(err) {
				s.Interrupt(src)
				return
			}
			continue
		}
		if limits.TooOld(d, now) {
			continue
		}
		if !s.Draft(d) {
			s.Interrupt(src)
			return
		}
	}
}
