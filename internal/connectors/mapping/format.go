package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
)

// Format is the detected payload encoding.
type Format int

// Payload formats.
const (
	FormatHTML Format = iota
	FormatJSON
	FormatXML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatXML:
		return "xml"
	default:
		return "html"
	}
}

// Detect classifies a payload by its content type, then by its first bytes.
func Detect(p *domain.RawPayload) Format {
	ct := strings.ToLower(p.ContentType)
	switch {
	case strings.Contains(ct, "json"):
		return FormatJSON
	case strings.Contains(ct, "html"):
		return FormatHTML
	case strings.Contains(ct, "xml"), strings.Contains(ct, "rss"), strings.Contains(ct, "atom"):
		return FormatXML
	}

	head := bytes.TrimSpace(p.Body)
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	switch {
	case len(head) == 0:
		return FormatHTML
	case head[0] == '{' || head[0] == '[':
		return FormatJSON
	case bytes.HasPrefix(head, []byte("<?xml")), bytes.HasPrefix(head, []byte("<rss")), bytes.HasPrefix(head, []byte("<feed")):
		return FormatXML
	default:
		return FormatHTML
	}
}

// IsFeed reports whether an XML body is an RSS or Atom document.
func IsFeed(body []byte) bool {
	n := len(body)
	if n > 1024 {
		n = 1024
	}
	head := strings.ToLower(string(body[:n]))
	return strings.Contains(head, "<rss") || strings.Contains(head, "<feed") || strings.Contains(head, "<rdf:rdf")
}

// ItemContainers are the keys searched for an item array when no items path is mapped.
var ItemContainers = []string{"items", "data", "posts", "articles", "results", "content"}

// DecodeJSON decodes a JSON body.
func DecodeJSON(body []byte) (any, error) {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}
	return data, nil
}

// JSONItems locates the item array in decoded JSON. With an explicit path the
// value there must be an array or object; otherwise the root array, or the
// first container key holding an array, is used.
func JSONItems(data any, path string) ([]any, error) {
	if path != "" {
		v, ok := Lookup(data, path)
		if !ok {
			return nil, fmt.Errorf("%w: no items at %q", domain.ErrMalformedResponse, path)
		}
		return asList(v)
	}
	if list, ok := data.([]any); ok {
		return list, nil
	}
	if m, ok := data.(map[string]any); ok {
		for _, key := range ItemContainers {
			if list, ok := m[key].([]any); ok {
				return list, nil
			}
		}
		for _, key := range ItemContainers {
			if inner, ok := m[key].(map[string]any); ok {
				if list, err := JSONItems(inner, ""); err == nil {
					return list, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("%w: no item array found", domain.ErrMalformedResponse)
}

func asList(v any) ([]any, error) {
	switch x := v.(type) {
	case []any:
		return x, nil
	case map[string]any:
		return []any{x}, nil
	default:
		return nil, fmt.Errorf("%w: items path does not hold a collection", domain.ErrMalformedResponse)
	}
}

// DataItems wraps decoded values as Items sharing one mapping and defaults.
func DataItems(values []any, fieldMapping map[string]string, defaults Defaults) []Item {
	items := make([]Item, len(values))
	for i, v := range values {
		items[i] = DataItem{Data: v, Mapping: fieldMapping, Defaults: defaults}
	}
	return items
}
