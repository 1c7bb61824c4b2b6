package domain

import (
	"sort"
	"time"
)

// Field names a canonical record field.
type Field string

// Canonical fields that the enhancement stage can author.
const (
	FieldTitle   Field = "title"
	FieldExcerpt Field = "excerpt"
)

// FieldSet is a small sorted set of field names.
type FieldSet []Field

// Has reports whether f is in the set.
func (s FieldSet) Has(f Field) bool {
	for _, v := range s {
		if v == f {
			return true
		}
	}
	return false
}

// With returns a copy of the set including f.
func (s FieldSet) With(f Field) FieldSet {
	if s.Has(f) {
		return s.clone()
	}
	out := append(s.clone(), f)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s FieldSet) clone() FieldSet {
	if s == nil {
		return nil
	}
	out := make(FieldSet, len(s))
	copy(out, s)
	return out
}

// DraftRecord is a source-native record mapped to canonical fields.
// URL is always present and valid; adapters reject items without one.
type DraftRecord struct {
	Title       string
	URL         string
	Source      string
	RetrievedAt time.Time

	// Optional fields. Zero values mean absent.
	Image       string
	Excerpt     string
	PublishedAt time.Time

	// SourceCategory is the category declared by the source, if any.
	SourceCategory string

	// Domain-specific pass-through fields.
	DiscountPercent *int
	Featured        *bool
	Price           *float64
	OriginalPrice   *float64

	// Position orders records within a source.
	Position int
}

// EnhancedRecord is a draft carried through enhancement, classification and validation.
type EnhancedRecord struct {
	// Draft is the record as the adapter produced it.
	Draft DraftRecord

	Title   string
	Excerpt string

	// Provenance names the fields written by the enhancement stage.
	Provenance FieldSet

	Category   Category
	Confidence *float64

	// QualityScore is owned by the quality validator.
	QualityScore *float64

	// Fingerprint is derived from the draft's normalised title and URL.
	Fingerprint string

	// SourceIndex is the position of the record's source in the run's source list.
	SourceIndex int
}

// NewEnhancedRecord starts an enhanced record from a draft.
func NewEnhancedRecord(d DraftRecord, sourceIndex int) EnhancedRecord {
	return EnhancedRecord{
		Draft:       d,
		Title:       d.Title,
		Excerpt:     d.Excerpt,
		Fingerprint: Fingerprint(d.Title, d.URL),
		SourceIndex: sourceIndex,
	}
}

// URL returns the canonical URL.
func (r EnhancedRecord) URL() string {
	return r.Draft.URL
}

// Value returns the current value of an authorable field.
func (r EnhancedRecord) Value(f Field) string {
	switch f {
	case FieldTitle:
		return r.Title
	case FieldExcerpt:
		return r.Excerpt
	default:
		return ""
	}
}

// DraftValue returns the original source value of an authorable field.
func (r EnhancedRecord) DraftValue(f Field) string {
	switch f {
	case FieldTitle:
		return r.Draft.Title
	case FieldExcerpt:
		return r.Draft.Excerpt
	default:
		return ""
	}
}

// ChangedFields lists authorable fields whose value differs from the draft.
func (r EnhancedRecord) ChangedFields() FieldSet {
	var out FieldSet
	for _, f := range []Field{FieldExcerpt, FieldTitle} {
		if r.Value(f) != r.DraftValue(f) {
			out = out.With(f)
		}
	}
	return out
}

// IsClassified reports whether classification has run on the record.
func (r EnhancedRecord) IsClassified() bool {
	return r.Confidence != nil
}

// IsScored reports whether the quality validator has scored the record.
func (r EnhancedRecord) IsScored() bool {
	return r.QualityScore != nil
}

// Score returns the quality score, or zero when unset.
func (r EnhancedRecord) Score() float64 {
	if r.QualityScore == nil {
		return 0
	}
	return *r.QualityScore
}

// ConfidenceValue returns the classification confidence, or zero when unset.
func (r EnhancedRecord) ConfidenceValue() float64 {
	if r.Confidence == nil {
		return 0
	}
	return *r.Confidence
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
