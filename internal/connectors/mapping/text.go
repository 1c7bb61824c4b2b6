package mapping

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

// MaxExcerptRunes is the longest excerpt kept from a source.
const MaxExcerptRunes = 500

var emptyBrackets = regexp.MustCompile(`\(\s*\)|\[\s*\]|\{\s*\}`)

// CleanText strips markup and entities and collapses whitespace.
func CleanText(s string) string {
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	s = emptyBrackets.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most limit runes, ending with "..." when cut.
func Truncate(s string, limit int) string {
	if limit <= 3 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:limit-3]), " ,.;:") + "..."
}

// ResolveURL makes ref absolute against base. Protocol-relative references get https.
func ResolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if u.IsAbs() || base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

// FirstImage returns the src of the first <img> in an HTML fragment.
func FirstImage(fragment string) string {
	if !strings.Contains(fragment, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}

// ParseDate interprets a source date: time values, unix seconds, or free-form strings.
func ParseDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case *time.Time:
		if x == nil || x.IsZero() {
			return time.Time{}, false
		}
		return *x, true
	case float64:
		if x <= 0 {
			return time.Time{}, false
		}
		return time.Unix(int64(x), 0).UTC(), true
	}
	s := strings.TrimSpace(String(v))
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParsePercent reads a discount such as 25, "25", "25%" or "-25%" and clamps it to 0-100.
func ParsePercent(v any) *int {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int:
		f = float64(x)
	default:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(String(v)), "%"))
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	}
	n := int(math.Round(math.Abs(f)))
	if n > 100 {
		n = 100
	}
	return &n
}

// ParsePrice reads an amount such as 19.99, "$1,299.00" or "19,99 EUR".
// Negative or unreadable amounts yield nil.
func ParsePrice(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int:
		f = float64(x)
	default:
		s := priceDigits(String(v))
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// priceDigits keeps the number in s and normalises its decimal separator.
// The rightmost separator is the decimal one; a lone comma is decimal only
// when one or two digits follow it.
func priceDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	n := strings.Trim(b.String(), ".,")
	comma := strings.LastIndex(n, ",")
	switch {
	case comma < 0:
	case strings.LastIndex(n, ".") > comma:
		n = strings.ReplaceAll(n, ",", "")
	case strings.Contains(n, "."):
		n = strings.Replace(strings.ReplaceAll(n, ".", ""), ",", ".", 1)
	case strings.Count(n, ",") == 1 && len(n)-comma-1 <= 2:
		n = strings.Replace(n, ",", ".", 1)
	default:
		n = strings.ReplaceAll(n, ",", "")
	}
	return n
}

// ParseBool reads a flag such as true, "yes" or 1.
func ParseBool(v any) *bool {
	var b bool
	switch x := v.(type) {
	case bool:
		b = x
	case float64:
		b = x != 0
	default:
		switch strings.ToLower(strings.TrimSpace(String(v))) {
		case "true", "yes", "1", "y":
			b = true
		case "false", "no", "0", "n":
			b = false
		default:
			return nil
		}
	}
	return &b
}
