package mapping

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
)

// DefaultItemSelector matches common article containers.
const DefaultItemSelector = "article, .post, .item, .entry, .content-item, [data-item], .card"

// DefaultHTMLFields are the selectors used when a source has no mapping for a field.
var DefaultHTMLFields = map[string]string{
	domain.MapTitle:    "h1, h2, h3, .title, .entry-title",
	domain.MapURL:      "a[href]",
	domain.MapImage:    "img",
	domain.MapExcerpt:  ".excerpt, .summary, .description, p",
	domain.MapDate:     "time",
	domain.MapCategory: ".category, [rel=tag]",
}

// HTMLItem is an Item over one matched HTML container. Field selectors may
// name an attribute with "selector@attr"; "@attr" reads the container itself.
type HTMLItem struct {
	Selection *goquery.Selection
	Mapping   map[string]string
}

// Value returns the text or attribute selected for field.
func (it HTMLItem) Value(field string) (any, bool) {
	selector, ok := it.Mapping[field]
	if !ok || strings.TrimSpace(selector) == "" {
		selector, ok = DefaultHTMLFields[field]
		if !ok {
			return nil, false
		}
	}

	sel, attr := splitSelector(selector)
	target := it.Selection
	if sel != "" {
		target = it.Selection.Find(sel).First()
	}
	if target.Length() == 0 && field == domain.MapURL && goquery.NodeName(it.Selection) == "a" {
		target = it.Selection
	}
	if target.Length() == 0 {
		return nil, false
	}

	if attr == "" {
		target, attr = resolveAttr(field, target)
	}
	if attr != "" {
		if v, ok := target.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
		if field == domain.MapURL || field == domain.MapImage {
			return nil, false
		}
	}

	text := strings.TrimSpace(target.Text())
	return text, text != ""
}

func splitSelector(s string) (selector, attr string) {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "@"); i >= 0 && !strings.Contains(s[i:], "]") {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

// resolveAttr picks the element and attribute carrying a field's value when
// the selector names no attribute.
func resolveAttr(field string, target *goquery.Selection) (*goquery.Selection, string) {
	switch field {
	case domain.MapURL:
		if goquery.NodeName(target) != "a" {
			if link := target.Find("a[href]").First(); link.Length() > 0 {
				return link, "href"
			}
		}
		return target, "href"
	case domain.MapImage:
		if _, ok := target.Attr("src"); ok {
			return target, "src"
		}
		return target, "data-src"
	case domain.MapDate:
		if _, ok := target.Attr("datetime"); ok {
			return target, "datetime"
		}
	}
	return target, ""
}

// HTMLItems selects item containers. With no explicit selector the default
// containers are used, falling back to list items when at least two exist.
func HTMLItems(doc *goquery.Document, selector string) *goquery.Selection {
	if selector != "" {
		return doc.Find(selector)
	}
	items := doc.Find(DefaultItemSelector)
	if items.Length() > 0 {
		return items
	}
	if li := doc.Find("li"); li.Length() >= 2 {
		return li
	}
	return items
}

// ParseHTML returns an Item for each container matched in an HTML body,
// using the "items" mapping as the container selector when present.
func ParseHTML(body []byte, fieldMapping map[string]string) ([]Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}
	sel := HTMLItems(doc, strings.TrimSpace(fieldMapping[domain.MapItems]))
	items := make([]Item, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		items = append(items, HTMLItem{Selection: s, Mapping: fieldMapping})
	})
	return items, nil
}
