package custom

import (
	"bytes"
	"context"
	"net/url"

	"github.com/custodia-labs/contentpipe/internal/connectors/mapping"
	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
)

// Ensure Adapter implements the interface.
var _ driven.SourceAdapter = (*Adapter)(nil)

// Defaults are the names tried for each unmapped field in JSON and XML items.
var Defaults = mapping.Defaults{
	domain.MapTitle:           {"title", "name", "headline"},
	domain.MapURL:             {"url", "link", "href", "permalink", "link.@href"},
	domain.MapImage:           {"image", "image_url", "imageUrl", "thumbnail", "img", "image.url"},
	domain.MapExcerpt:         {"excerpt", "description", "summary", "content", "body"},
	domain.MapDate:            {"date", "published", "published_at", "publishedAt", "pubDate", "created_at", "updated"},
	domain.MapCategory:        {"category", "section", "tags"},
	domain.MapDiscountPercent: {"discountPercent", "discount_percent", "discount"},
	domain.MapFeatured:        {"featured", "is_featured", "isFeatured"},
	domain.MapPrice:           {"price", "current_price", "currentPrice", "sale_price", "salePrice"},
	domain.MapOriginalPrice:   {"originalPrice", "original_price", "list_price", "listPrice", "was_price"},
}

// XMLItemNames are the element names searched for items in XML payloads.
var XMLItemNames = []string{"item", "entry", "post", "article", "record"}

// Adapter fetches custom endpoints.
type Adapter struct {
	fetcher driven.Fetcher
	limits  mapping.Limits
}

// New creates a custom adapter.
func New(fetcher driven.Fetcher, limits mapping.Limits) *Adapter {
	return &Adapter{fetcher: fetcher, limits: limits}
}

// Kind returns the custom source kind.
func (a *Adapter) Kind() domain.SourceKind {
	return domain.SourceKindCustom
}

// Fetch retrieves the endpoint and streams the mapped items.
func (a *Adapter) Fetch(ctx context.Context, src domain.SourceDescriptor) (<-chan domain.DraftRecord, <-chan error) {
	s, drafts, errs := mapping.NewStream(ctx)

	go func() {
		defer s.Close()

		payload, err := a.fetcher.Fetch(ctx, src.Endpoint)
		if err != nil {
			s.Fail(src, err)
			return
		}
		items, err := Items(payload, src)
		if err != nil {
			s.Fail(src, err)
			return
		}
		base, _ := url.Parse(src.Endpoint)
		mapping.Emit(s, src, items, base, a.limits)
	}()

	return drafts, errs
}

// Items decodes a payload into mapping items for src.
func Items(payload *domain.RawPayload, src domain.SourceDescriptor) ([]mapping.Item, error) {
	path, _ := src.Mapping(domain.MapItems)

	switch mapping.Detect(payload) {
	case mapping.FormatJSON:
		data, err := mapping.DecodeJSON(payload.Body)
		if err != nil {
			return nil, err
		}
		values, err := mapping.JSONItems(data, path)
		if err != nil {
			return nil, err
		}
		return mapping.DataItems(values, src.FieldMapping, Defaults), nil
	case mapping.FormatXML:
		root, err := mapping.DecodeXML(bytes.NewReader(payload.Body))
		if err != nil {
			return nil, err
		}
		var values []any
		if path != "" {
			values, err = mapping.JSONItems(root, path)
			if err != nil {
				return nil, err
			}
		} else {
			values = mapping.FindItems(root, XMLItemNames)
		}
		return mapping.DataItems(values, src.FieldMapping, Defaults), nil
	default:
		return mapping.ParseHTML(payload.Body, src.FieldMapping)
	}
}
