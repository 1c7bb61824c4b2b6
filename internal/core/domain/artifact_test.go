package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArtifactRecord(t *testing.T) {
	featured := true
	discount := 25
	rec := NewEnhancedRecord(DraftRecord{
		Title:           "Source title",
		URL:             "https://example.com/a",
		Image:           "https://example.com/a.png",
		PublishedAt:     time.Date(2024, 3, 9, 22, 0, 0, 0, time.UTC),
		RetrievedAt:     time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
		Featured:        &featured,
		DiscountPercent: &discount,
	}, 0)
	rec.Title = "Rewritten title"
	rec.Excerpt = "Excerpt"
	rec.Category = CategoryFinance
	rec.QualityScore = Float(0.81234)

	out := NewArtifactRecord(rec, "")

	assert.Equal(t, rec.Fingerprint, out.ID)
	assert.Equal(t, "Rewritten title", out.Title)
	assert.Equal(t, "https://example.com/a", out.URL)
	assert.Equal(t, "Finance", out.Category)
	assert.InDelta(t, 0.812, out.QualityScore, 1e-9)
	assert.Equal(t, "2024-03-09", out.DateAdded)
	assert.Equal(t, &featured, out.Featured)
	assert.Equal(t, &discount, out.DiscountPercent)
}

func TestNewArtifactRecord_Defaults(t *testing.T) {
	rec := NewEnhancedRecord(DraftRecord{
		URL:         "https://example.com/a",
		RetrievedAt: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
	}, 0)

	out := NewArtifactRecord(rec, "")

	assert.Equal(t, "unclassified", out.Category)
	assert.Equal(t, "2024-03-10", out.DateAdded)
	assert.Nil(t, out.Featured)
	assert.Nil(t, out.DiscountPercent)
}

func TestNewArtifactRecord_Prices(t *testing.T) {
	price := func(v float64) *float64 { return &v }
	supplied := 10
	tests := []struct {
		name         string
		draft        DraftRecord
		wantDiscount *int
		wantOriginal *float64
	}{
		{
			name:         "derived from prices",
			draft:        DraftRecord{Price: price(59.99), OriginalPrice: price(99.99)},
			wantDiscount: func() *int { n := 40; return &n }(),
			wantOriginal: price(99.99),
		},
		{
			name:         "supplied discount wins",
			draft:        DraftRecord{Price: price(50), OriginalPrice: price(100), DiscountPercent: &supplied},
			wantDiscount: &supplied,
			wantOriginal: price(100),
		},
		{
			name:         "original below price",
			draft:        DraftRecord{Price: price(30), OriginalPrice: price(20)},
			wantOriginal: price(30),
		},
		{
			name:  "price only",
			draft: DraftRecord{Price: price(30)},
		},
		{
			name:         "free item",
			draft:        DraftRecord{Price: price(0), OriginalPrice: price(20)},
			wantOriginal: price(20),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.draft.URL = "https://example.com/deal"
			tt.draft.RetrievedAt = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

			out := NewArtifactRecord(NewEnhancedRecord(tt.draft, 0), "")

			assert.Equal(t, tt.draft.Price, out.Price)
			assert.Equal(t, tt.wantOriginal, out.OriginalPrice)
			assert.Equal(t, tt.wantDiscount, out.DiscountPercent)
		})
	}
}

func TestArtifactRecord_OmitsAbsentPrices(t *testing.T) {
	rec := NewEnhancedRecord(DraftRecord{
		URL:         "https://example.com/a",
		RetrievedAt: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
	}, 0)

	data, err := json.Marshal(NewArtifactRecord(rec, ""))

	require.NoError(t, err)
	assert.NotContains(t, string(data), "price")
	assert.NotContains(t, string(data), "originalPrice")
}

func TestWithAffiliateTag(t *testing.T) {
	tests := []struct {
		name string
		url  string
		tag  string
		want string
	}{
		{"amazon", "https://www.amazon.ca/dp/B0001", "deals-20", "https://www.amazon.ca/dp/B0001?tag=deals-20"},
		{"keeps existing tag", "https://www.amazon.com/dp/B0001?tag=other", "deals-20", "https://www.amazon.com/dp/B0001?tag=other"},
		{"other host", "https://example.com/p", "deals-20", "https://example.com/p"},
		{"no tag", "https://www.amazon.com/dp/B0001", "", "https://www.amazon.com/dp/B0001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithAffiliateTag(tt.url, tt.tag))
		})
	}
}
