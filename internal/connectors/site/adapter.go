package site

import (
	"context"
	"net/url"
	"strings"

	"github.com/custodia-labs/contentpipe/internal/connectors/feed"
	"github.com/custodia-labs/contentpipe/internal/connectors/mapping"
	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
)

// Ensure Adapter implements the interface.
var _ driven.SourceAdapter = (*Adapter)(nil)

// WordPressDefaults are the REST API paths tried for each unmapped field.
var WordPressDefaults = mapping.Defaults{
	domain.MapTitle: {"title.rendered", "title"},
	domain.MapURL:   {"link", "url"},
	domain.MapImage: {
		"_embedded.wp:featuredmedia.0.source_url",
		"jetpack_featured_media_url",
		"featured_image",
	},
	domain.MapExcerpt:  {"excerpt.rendered", "excerpt", "content.rendered"},
	domain.MapDate:     {"date_gmt", "date", "modified_gmt"},
	domain.MapCategory: {"_embedded.wp:term.0.0.name"},
}

// Adapter fetches websites.
type Adapter struct {
	fetcher driven.Fetcher
	limits  mapping.Limits
}

// New creates a site adapter.
func New(fetcher driven.Fetcher, limits mapping.Limits) *Adapter {
	return &Adapter{fetcher: fetcher, limits: limits}
}

// Kind returns the site source kind.
func (a *Adapter) Kind() domain.SourceKind {
	return domain.SourceKindSite
}

// Fetch retrieves the site endpoint and streams its posts.
func (a *Adapter) Fetch(ctx context.Context, src domain.SourceDescriptor) (<-chan domain.DraftRecord, <-chan error) {
	s, drafts, errs := mapping.NewStream(ctx)

	go func() {
		defer s.Close()

		endpoint := EmbedURL(src.Endpoint)
		payload, err := a.fetcher.Fetch(ctx, endpoint)
		if err != nil {
			s.Fail(src, err)
			return
		}
		items, err := a.items(payload, src)
		if err != nil {
			s.Fail(src, err)
			return
		}
		base, _ := url.Parse(src.Endpoint)
		mapping.Emit(s, src, items, base, a.limits)
	}()

	return drafts, errs
}

func (a *Adapter) items(payload *domain.RawPayload, src domain.SourceDescriptor) ([]mapping.Item, error) {
	switch mapping.Detect(payload) {
	case mapping.FormatJSON:
		data, err := mapping.DecodeJSON(payload.Body)
		if err != nil {
			return nil, err
		}
		path, _ := src.Mapping(domain.MapItems)
		values, err := mapping.JSONItems(data, path)
		if err != nil {
			return nil, err
		}
		return mapping.DataItems(values, src.FieldMapping, WordPressDefaults), nil
	case mapping.FormatXML:
		f, err := feed.Parse(payload.Body)
		if err != nil {
			return nil, err
		}
		return feed.Items(f, src.FieldMapping), nil
	default:
		return mapping.ParseHTML(payload.Body, src.FieldMapping)
	}
}

// EmbedURL adds _embed to WordPress REST endpoints that do not request it.
func EmbedURL(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || !strings.Contains(u.Path, "/wp-json/") {
		return endpoint
	}
	q := u.Query()
	if q.Has("_embed") {
		return endpoint
	}
	q.Set("_embed", "1")
	u.RawQuery = q.Encode()
	return u.String()
}
