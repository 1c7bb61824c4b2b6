package mapping

import (
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
)

// Item answers canonical field lookups for one source item.
type Item interface {
	// Value returns the raw value of a canonical field (domain.Map* keys).
	Value(field string) (any, bool)
}

// Defaults lists candidate paths per canonical field, tried in order when
// the source has no explicit mapping for the field.
type Defaults map[string][]string

// DataItem is an Item over decoded JSON or XML data.
type DataItem struct {
	Data     any
	Mapping  map[string]string
	Defaults Defaults
}

// Value resolves the mapped path, or the first default path with a non-empty value.
func (it DataItem) Value(field string) (any, bool) {
	if path, ok := it.Mapping[field]; ok && strings.TrimSpace(path) != "" {
		return Lookup(it.Data, strings.TrimSpace(path))
	}
	for _, path := range it.Defaults[field] {
		if v, ok := Lookup(it.Data, path); ok && present(v) {
			return v, true
		}
	}
	return nil, false
}

func present(v any) bool {
	if t, ok := v.(time.Time); ok {
		return !t.IsZero()
	}
	return String(v) != ""
}

// Limits bounds what an adapter keeps from a source.
type Limits struct {
	// MaxItems caps the items read per source. Zero means no cap.
	MaxItems int

	// MaxAge drops items published longer ago. Zero keeps everything; undated items are kept.
	MaxAge time.Duration

	// Now is the clock used for retrieval timestamps and the age filter.
	Now func() time.Time
}

// Clock returns the configured clock or time.Now.
func (l Limits) Clock() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// TooOld reports whether a draft falls outside MaxAge.
func (l Limits) TooOld(d domain.DraftRecord, now time.Time) bool {
	if l.MaxAge <= 0 || d.PublishedAt.IsZero() {
		return false
	}
	return now.Sub(d.PublishedAt) > l.MaxAge
}

// Cap returns n limited by MaxItems.
func (l Limits) Cap(n int) int {
	if l.MaxItems > 0 && n > l.MaxItems {
		return l.MaxItems
	}
	return n
}

// Build maps an item to a DraftRecord. Items without a valid http(s) URL
// are rejected with a *domain.ItemError; every other field is optional.
func Build(
	src domain.SourceDescriptor,
	item Item,
	index int,
	base *url.URL,
	retrievedAt time.Time,
) (domain.DraftRecord, error) {
	text := func(field string) string {
		v, _ := item.Value(field)
		return String(v)
	}

	rawURL := ResolveURL(base, text(domain.MapURL))
	if rawURL == "" {
		return domain.DraftRecord{}, &domain.ItemError{Source: src.Name, Index: index, Reason: "missing url"}
	}
	if !domain.IsValidURL(rawURL) {
		return domain.DraftRecord{}, &domain.ItemError{Source: src.Name, Index: index, Reason: "invalid url " + rawURL}
	}

	d := domain.DraftRecord{
		Title:          CleanText(text(domain.MapTitle)),
		URL:            rawURL,
		Source:         src.Name,
		RetrievedAt:    retrievedAt,
		Excerpt:        Truncate(CleanText(text(domain.MapExcerpt)), MaxExcerptRunes),
		SourceCategory: CleanText(text(domain.MapCategory)),
		Position:       index,
	}

	if img := ResolveURL(base, text(domain.MapImage)); domain.IsValidURL(img) {
		d.Image = img
	}
	if v, ok := item.Value(domain.MapDate); ok {
		if t, ok := ParseDate(v); ok {
			d.PublishedAt = t.UTC()
		}
	}
	if v, ok := item.Value(domain.MapDiscountPercent); ok {
		d.DiscountPercent = ParsePercent(v)
	}
	if v, ok := item.Value(domain.MapFeatured); ok {
		d.Featured = ParseBool(v)
	}
	if v, ok := item.Value(domain.MapPrice); ok {
		d.Price = ParsePrice(v)
	}
	if v, ok := item.Value(domain.MapOriginalPrice); ok {
		d.OriginalPrice = ParsePrice(v)
	}
	return d, nil
}
