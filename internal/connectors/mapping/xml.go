package mapping

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
)

// DecodeXML converts an XML document into nested maps so dot paths apply.
// Elements become keys by local name, repeated elements become arrays,
// attributes are stored as "@name" and mixed text as "#text". Elements with
// only text collapse to a string.
func DecodeXML(r io.Reader) (map[string]any, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: empty XML document", domain.ErrMalformedResponse)
			}
			return nil, fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			node, err := decodeElement(dec, start)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
			}
			return map[string]any{start.Name.Local: node}, nil
		}
	}
}

func decodeElement(dec *xml.Decoder, start xml.StartElement) (any, error) {
	node := make(map[string]any)
	for _, attr := range start.Attr {
		node["@"+attr.Name.Local] = attr.Value
	}

	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(dec, t)
			if err != nil {
				return nil, err
			}
			appendChild(node, t.Name.Local, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			s := strings.TrimSpace(text.String())
			if len(node) == 0 {
				return s, nil
			}
			if s != "" {
				node["#text"] = s
			}
			return node, nil
		}
	}
}

func appendChild(node map[string]any, name string, child any) {
	existing, ok := node[name]
	if !ok {
		node[name] = child
		return
	}
	if list, ok := existing.([]any); ok {
		node[name] = append(list, child)
		return
	}
	node[name] = []any{existing, child}
}

// FindItems returns the first array-like collection of item elements found
// under any of the given element names, searching breadth-first.
func FindItems(root any, names []string) []any {
	queue := []any{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		m, ok := cur.(map[string]any)
		if !ok {
			if list, ok := cur.([]any); ok {
				queue = append(queue, list...)
			}
			continue
		}
		for _, name := range names {
			if v, ok := m[name]; ok {
				if list, ok := v.([]any); ok {
					return list
				}
				return []any{v}
			}
		}
		for _, v := range m {
			queue = append(queue, v)
		}
	}
	return nil
}
