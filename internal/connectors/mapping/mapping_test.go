package mapping

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
)

func decodeJSON(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestLookup(t *testing.T) {
	data := decodeJSON(t, `{
		"title": {"rendered": "Hello"},
		"_embedded": {"wp:term": [[{"name": "News"}]], "wp:featuredmedia": [{"source_url": "https://x/img.png"}]},
		"tags": ["a", "b"]
	}`)

	tests := []struct {
		path  string
		want  string
		found bool
	}{
		{"title.rendered", "Hello", true},
		{"title", "Hello", true},
		{"_embedded.wp:term.0.0.name", "News", true},
		{"_embedded.wp:featuredmedia.0.source_url", "https://x/img.png", true},
		{"tags.1", "b", true},
		{"tags.5", "", false},
		{"tags.x", "", false},
		{"missing.path", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			v, ok := Lookup(data, tt.path)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, String(v))
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "12.5", String(12.5))
	assert.Equal(t, "true", String(true))
	assert.Equal(t, "first", String([]any{"", "first"}))
	assert.Equal(t, "x", String(map[string]any{"#text": "x"}))
	assert.Empty(t, String(nil))
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"Fish &amp; Chips", "Fish & Chips"},
		{"  spaced \n\t out  ", "spaced out"},
		{"Deal () of [ ] the day", "Deal of the day"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanText(tt.in), tt.in)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 600)
	out := Truncate(long, MaxExcerptRunes)

	assert.Equal(t, 500, len([]rune(out)))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "héllo wo...", Truncate("héllo world and more", 11))
}

func TestResolveURL(t *testing.T) {
	base, _ := url.Parse("https://example.com/blog/index.html")

	assert.Equal(t, "https://example.com/blog/post-1", ResolveURL(base, "post-1"))
	assert.Equal(t, "https://example.com/img/a.png", ResolveURL(base, "/img/a.png"))
	assert.Equal(t, "https://cdn.example.com/a.png", ResolveURL(base, "//cdn.example.com/a.png"))
	assert.Equal(t, "https://other.com/x", ResolveURL(base, "https://other.com/x"))
	assert.Empty(t, ResolveURL(base, "  "))
}

func TestFirstImage(t *testing.T) {
	assert.Equal(t, "https://x/a.jpg", FirstImage(`<p>Hi <img src="https://x/a.jpg"> <img src="b.jpg"></p>`))
	assert.Empty(t, FirstImage("no images here"))
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

	for _, in := range []any{"2024-03-09", "2024-03-09T00:00:00Z", "Sat, 09 Mar 2024 00:00:00 GMT", want, float64(want.Unix())} {
		got, ok := ParseDate(in)
		require.True(t, ok, "%v", in)
		assert.True(t, want.Equal(got), "%v -> %v", in, got)
	}

	_, ok := ParseDate("not a date")
	assert.False(t, ok)
	_, ok = ParseDate(nil)
	assert.False(t, ok)
}

func TestParsePercent(t *testing.T) {
	assert.Equal(t, 25, *ParsePercent("25%"))
	assert.Equal(t, 30, *ParsePercent(float64(-30)))
	assert.Equal(t, 100, *ParsePercent("150"))
	assert.Nil(t, ParsePercent("lots"))
	assert.Nil(t, ParsePercent(nil))
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{float64(19.99), 19.99},
		{"$1,299.00", 1299},
		{"19,99 EUR", 19.99},
		{"1.299,50 €", 1299.5},
		{"1,299", 1299},
		{"Now only 45", 45},
	}
	for _, tt := range tests {
		got := ParsePrice(tt.in)
		require.NotNil(t, got, "%v", tt.in)
		assert.InDelta(t, tt.want, *got, 1e-9, "%v", tt.in)
	}

	assert.Nil(t, ParsePrice("free"))
	assert.Nil(t, ParsePrice(float64(-3)))
	assert.Nil(t, ParsePrice(nil))
}

func TestParseBool(t *testing.T) {
	assert.True(t, *ParseBool("yes"))
	assert.False(t, *ParseBool(float64(0)))
	assert.True(t, *ParseBool(true))
	assert.Nil(t, ParseBool("maybe"))
}

func TestBuild(t *testing.T) {
	src := domain.SourceDescriptor{Name: "shop", Kind: domain.SourceKindCustom, Endpoint: "https://shop.example.com/api"}
	base, _ := url.Parse(src.Endpoint)
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	item := DataItem{
		Data: decodeJSON(t, `{"name": "<b>Deal</b> of the day", "href": "/deal/1",
			"pic": "//cdn.example.com/1.png", "blurb": "Great &amp; cheap", "when": "2024-03-09",
			"off": "40%", "hot": true, "cat": "Finance"}`),
		Mapping: map[string]string{
			domain.MapTitle: "name", domain.MapURL: "href", domain.MapImage: "pic",
			domain.MapExcerpt: "blurb", domain.MapDate: "when", domain.MapDiscountPercent: "off",
			domain.MapFeatured: "hot", domain.MapCategory: "cat",
		},
	}

	d, err := Build(src, item, 4, base, now)

	require.NoError(t, err)
	assert.Equal(t, "Deal of the day", d.Title)
	assert.Equal(t, "https://shop.example.com/deal/1", d.URL)
	assert.Equal(t, "https://cdn.example.com/1.png", d.Image)
	assert.Equal(t, "Great & cheap", d.Excerpt)
	assert.Equal(t, "2024-03-09", d.PublishedAt.Format(domain.DateLayout))
	assert.Equal(t, 40, *d.DiscountPercent)
	assert.True(t, *d.Featured)
	assert.Equal(t, "Finance", d.SourceCategory)
	assert.Equal(t, "shop", d.Source)
	assert.Equal(t, 4, d.Position)
	assert.Equal(t, now, d.RetrievedAt)
}

func TestBuild_RejectsMissingURL(t *testing.T) {
	src := domain.SourceDescriptor{Name: "shop"}
	item := DataItem{Data: map[string]any{"title": "No link"}, Defaults: Defaults{domain.MapURL: {"link", "url"}}}

	_, err := Build(src, item, 2, nil, time.Now())

	require.Error(t, err)
	assert.True(t, domain.IsItemMalformed(err))
	var itemErr *domain.ItemError
	require.True(t, errors.As(err, &itemErr))
	assert.Equal(t, 2, itemErr.Index)
}

func TestBuild_RejectsInvalidURL(t *testing.T) {
	item := DataItem{Data: map[string]any{"url": "javascript:void(0)"}, Defaults: Defaults{domain.MapURL: {"url"}}}

	_, err := Build(domain.SourceDescriptor{Name: "x"}, item, 0, nil, time.Now())

	assert.True(t, domain.IsItemMalformed(err))
}

func TestDataItem_DefaultsOrder(t *testing.T) {
	item := DataItem{
		Data:     map[string]any{"summary": "", "description": "from description"},
		Defaults: Defaults{domain.MapExcerpt: {"summary", "description"}},
	}

	v, ok := item.Value(domain.MapExcerpt)
	assert.True(t, ok)
	assert.Equal(t, "from description", v)

	_, ok = item.Value(domain.MapImage)
	assert.False(t, ok)
}

func TestLimits(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	l := Limits{MaxItems: 2, MaxAge: 24 * time.Hour, Now: func() time.Time { return now }}

	assert.Equal(t, now, l.Clock())
	assert.Equal(t, 2, l.Cap(5))
	assert.Equal(t, 1, l.Cap(1))
	assert.True(t, l.TooOld(domain.DraftRecord{PublishedAt: now.Add(-48 * time.Hour)}, now))
	assert.False(t, l.TooOld(domain.DraftRecord{PublishedAt: now.Add(-time.Hour)}, now))
	assert.False(t, l.TooOld(domain.DraftRecord{}, now))
	assert.Equal(t, 7, Limits{}.Cap(7))
}

func TestDecodeXML(t *testing.T) {
	doc := `<?xml version="1.0"?>
<catalog>
  <record id="1"><name>First</name><link>https://x/1</link></record>
  <record id="2"><name>Second</name><link>https://x/2</link></record>
</catalog>`

	root, err := DecodeXML(strings.NewReader(doc))
	require.NoError(t, err)

	items := FindItems(root, []string{"item", "entry", "record"})
	require.Len(t, items, 2)
	v, _ := Lookup(items[1], "name")
	assert.Equal(t, "Second", v)
	v, _ = Lookup(items[0], "@id")
	assert.Equal(t, "1", v)
}

func TestDecodeXML_Malformed(t *testing.T) {
	_, err := DecodeXML(strings.NewReader(""))
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestHTMLItem(t *testing.T) {
	page := `<html><body>
<div class="card"><h2>Card one</h2><a href="/one">Read</a><img data-src="/one.png">
  <p>First card text</p><time datetime="2024-03-01">March 1</time></div>
<div class="card"><h3 class="t">Card two</h3><a class="go" href="/two">Go</a></div>
</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)

	cards := HTMLItems(doc, "")
	require.Equal(t, 2, cards.Length())

	first := HTMLItem{Selection: cards.Eq(0)}
	title, _ := first.Value(domain.MapTitle)
	link, _ := first.Value(domain.MapURL)
	img, _ := first.Value(domain.MapImage)
	date, _ := first.Value(domain.MapDate)
	excerpt, _ := first.Value(domain.MapExcerpt)
	assert.Equal(t, "Card one", title)
	assert.Equal(t, "/one", link)
	assert.Equal(t, "/one.png", img)
	assert.Equal(t, "2024-03-01", date)
	assert.Equal(t, "First card text", excerpt)

	second := HTMLItem{Selection: cards.Eq(1), Mapping: map[string]string{
		domain.MapTitle: ".t", domain.MapURL: "a.go@href",
	}}
	title, _ = second.Value(domain.MapTitle)
	link, _ = second.Value(domain.MapURL)
	assert.Equal(t, "Card two", title)
	assert.Equal(t, "/two", link)
	_, ok := second.Value(domain.MapImage)
	assert.False(t, ok)
}

func TestHTMLItems_ListFallback(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<ul><li><a href="/a">A</a></li><li><a href="/b">B</a></li></ul>`))
	require.NoError(t, err)

	assert.Equal(t, 2, HTMLItems(doc, "").Length())
	assert.Equal(t, 0, HTMLItems(doc, ".nothing").Length())
}
