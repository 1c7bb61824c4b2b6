package feed

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/custodia-labs/contentpipe/internal/connectors/mapping"
	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
)

// Ensure Adapter implements the interface.
var _ driven.SourceAdapter = (*Adapter)(nil)

// Defaults are the flattened keys tried for each unmapped field.
var Defaults = mapping.Defaults{
	domain.MapTitle:    {"title", "description"},
	domain.MapURL:      {"link", "guid"},
	domain.MapImage:    {"image"},
	domain.MapExcerpt:  {"description", "content"},
	domain.MapDate:     {"published", "updated"},
	domain.MapCategory: {"categories"},
}

// Adapter fetches and maps syndication feeds.
type Adapter struct {
	fetcher driven.Fetcher
	limits  mapping.Limits
}

// New creates a feed adapter.
func New(fetcher driven.Fetcher, limits mapping.Limits) *Adapter {
	return &Adapter{fetcher: fetcher, limits: limits}
}

// Kind returns the feed source kind.
func (a *Adapter) Kind() domain.SourceKind {
	return domain.SourceKindFeed
}

// Fetch retrieves the feed and streams one draft per entry.
func (a *Adapter) Fetch(ctx context.Context, src domain.SourceDescriptor) (<-chan domain.DraftRecord, <-chan error) {
	s, drafts, errs := mapping.NewStream(ctx)

	go func() {
		defer s.Close()

		payload, err := a.fetcher.Fetch(ctx, src.Endpoint)
		if err != nil {
			s.Fail(src, err)
			return
		}
		f, err := Parse(payload.Body)
		if err != nil {
			s.Fail(src, err)
			return
		}
		base, _ := url.Parse(src.Endpoint)
		mapping.Emit(s, src, Items(f, src.FieldMapping), base, a.limits)
	}()

	return drafts, errs
}

// Parse decodes an RSS, Atom or JSON Feed document.
func Parse(body []byte) (*gofeed.Feed, error) {
	f, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}
	return f, nil
}

// Items flattens every feed entry into a mapping item.
func Items(f *gofeed.Feed, fieldMapping map[string]string) []mapping.Item {
	values := make([]any, 0, len(f.Items))
	for _, item := range f.Items {
		if item != nil {
			values = append(values, Flatten(item))
		}
	}
	return mapping.DataItems(values, fieldMapping, Defaults)
}

// Flatten converts a gofeed item to a map addressed by dot paths.
func Flatten(item *gofeed.Item) map[string]any {
	m := map[string]any{
		"title":       item.Title,
		"link":        item.Link,
		"guid":        item.GUID,
		"description": item.Description,
		"content":     item.Content,
		"image":       imageURL(item),
	}
	if item.PublishedParsed != nil {
		m["published"] = *item.PublishedParsed
	} else if item.Published != "" {
		m["published"] = item.Published
	}
	if item.UpdatedParsed != nil {
		m["updated"] = *item.UpdatedParsed
	} else if item.Updated != "" {
		m["updated"] = item.Updated
	}
	if len(item.Categories) > 0 {
		cats := make([]any, len(item.Categories))
		for i, c := range item.Categories {
			cats[i] = c
		}
		m["categories"] = cats
	}
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		m["author"] = item.Authors[0].Name
	}
	if len(item.Custom) > 0 {
		custom := make(map[string]any, len(item.Custom))
		for k, v := range item.Custom {
			custom[k] = v
		}
		m["custom"] = custom
	}
	if len(item.Extensions) > 0 {
		m["ext"] = flattenExtensions(item.Extensions)
	}
	return m
}

func flattenExtensions(exts ext.Extensions) map[string]any {
	out := make(map[string]any, len(exts))
	for prefix, elems := range exts {
		ns := make(map[string]any, len(elems))
		for name, list := range elems {
			if len(list) == 0 {
				continue
			}
			e := list[0]
			v := map[string]any{"value": strings.TrimSpace(e.Value)}
			for k, a := range e.Attrs {
				v["@"+k] = a
			}
			ns[name] = v
		}
		out[prefix] = ns
	}
	return out
}

// imageURL picks an entry image: the item image, media thumbnail or
// content, an image enclosure, then the first <img> in the body.
func imageURL(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	if media, ok := item.Extensions["media"]; ok {
		if u := mediaURL(media["thumbnail"], false); u != "" {
			return u
		}
		if u := mediaURL(media["content"], true); u != "" {
			return u
		}
		for _, group := range media["group"] {
			if u := mediaURL(group.Children["thumbnail"], false); u != "" {
				return u
			}
			if u := mediaURL(group.Children["content"], true); u != "" {
				return u
			}
		}
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	if u := mapping.FirstImage(item.Description); u != "" {
		return u
	}
	return mapping.FirstImage(item.Content)
}

func mediaURL(list []ext.Extension, imagesOnly bool) string {
	for _, e := range list {
		u := e.Attrs["url"]
		if u == "" {
			continue
		}
		if imagesOnly && e.Attrs["medium"] != "image" && !strings.HasPrefix(e.Attrs["type"], "image/") {
			continue
		}
		return u
	}
	return ""
}
