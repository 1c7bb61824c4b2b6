package mapping

import (
	"fmt"
	"strconv"
	"strings"
)

// Lookup resolves a dot path against decoded JSON-like data.
// Numeric segments index into arrays: "_embedded.wp:term.0.0.name".
func Lookup(data any, path string) (any, bool) {
	if path == "" {
		return data, data != nil
	}
	cur := data
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

// String renders a scalar value as text. Arrays yield their first element;
// objects yield their "rendered", "value" or "#text" member.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		for _, e := range x {
			if s := String(e); s != "" {
				return s
			}
		}
		return ""
	case []string:
		if len(x) > 0 {
			return x[0]
		}
		return ""
	case map[string]any:
		for _, key := range []string{"rendered", "value", "#text", "href", "url", "name"} {
			if s := String(x[key]); s != "" {
				return s
			}
		}
		return ""
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
