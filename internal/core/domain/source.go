package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// SourceKind selects the adapter variant for a source.
type SourceKind string

// Supported source kinds. The set is closed.
const (
	// SourceKindFeed is a syndication feed (RSS, Atom, JSON Feed).
	SourceKindFeed SourceKind = "feed"

	// SourceKindSite is a website scraped via its REST API or HTML.
	SourceKindSite SourceKind = "site"

	// SourceKindCustom is an arbitrary JSON, XML or HTML endpoint with explicit mapping.
	SourceKindCustom SourceKind = "custom"
)

// SourceKinds lists every supported kind in display order.
func SourceKinds() []SourceKind {
	return []SourceKind{SourceKindFeed, SourceKindSite, SourceKindCustom}
}

// IsValid returns true if the kind is recognised.
func (k SourceKind) IsValid() bool {
	switch k {
	case SourceKindFeed, SourceKindSite, SourceKindCustom:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k SourceKind) String() string {
	return string(k)
}

// Field-mapping keys understood by the adapters. Values are dot paths for
// JSON and XML payloads and CSS selectors for HTML payloads.
const (
	MapTitle           = "title"
	MapURL             = "url"
	MapImage           = "image"
	MapExcerpt         = "excerpt"
	MapDate            = "date"
	MapCategory        = "category"
	MapDiscountPercent = "discountPercent"
	MapFeatured        = "featured"
	MapPrice           = "price"
	MapOriginalPrice   = "originalPrice"

	// MapItems locates the item collection: a dot path to an array, or a CSS item selector.
	MapItems = "items"
)

// MappingKeys lists every key accepted in a field mapping.
func MappingKeys() []string {
	return []string{
		MapItems, MapTitle, MapURL, MapImage, MapExcerpt,
		MapDate, MapCategory, MapDiscountPercent, MapFeatured,
		MapPrice, MapOriginalPrice,
	}
}

// SourceDescriptor describes one configured source. It is read-only for the run.
type SourceDescriptor struct {
	// Name identifies the source in logs and per-source error counts.
	Name string

	// Kind selects the adapter.
	Kind SourceKind

	// Endpoint is the URL fetched by the adapter.
	Endpoint string

	// FieldMapping translates canonical fields to source-native paths.
	// Missing keys fall back to the adapter's default name match.
	FieldMapping map[string]string

	// AffiliateTag is appended to marketplace links in the artifact.
	AffiliateTag string
}

// Mapping returns the mapped path for a canonical field.
func (s SourceDescriptor) Mapping(field string) (string, bool) {
	if s.FieldMapping == nil {
		return "", false
	}
	path, ok := s.FieldMapping[field]
	path = strings.TrimSpace(path)
	return path, ok && path != ""
}

// Validate checks the descriptor is usable by an adapter.
func (s SourceDescriptor) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: source name is required", ErrInvalidConfig)
	}
	if !s.Kind.IsValid() {
		return fmt.Errorf("%w: source %s: %w %q", ErrInvalidConfig, s.Name, ErrUnsupportedKind, s.Kind)
	}
	u, err := url.Parse(s.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: source %s: endpoint %q is not an http(s) URL", ErrInvalidConfig, s.Name, s.Endpoint)
	}
	for key := range s.FieldMapping {
		if !isMappingKey(key) {
			return fmt.Errorf("%w: source %s: unknown field mapping key %q", ErrInvalidConfig, s.Name, key)
		}
	}
	return nil
}

func isMappingKey(key string) bool {
	for _, k := range MappingKeys() {
		if k == key {
			return true
		}
	}
	return false
}
