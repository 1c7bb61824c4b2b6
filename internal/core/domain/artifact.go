package domain

import (
	"math"
	"net/url"
	"strings"
)

// DateLayout is the calendar date format used in the artifact.
const DateLayout = "2006-01-02"

// ArtifactRecord is one entry of the output artifact.
type ArtifactRecord struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	URL             string   `json:"url"`
	Excerpt         string   `json:"excerpt"`
	Image           string   `json:"image,omitempty"`
	Category        string   `json:"category"`
	QualityScore    float64  `json:"qualityScore"`
	DateAdded       string   `json:"dateAdded"`
	Featured        *bool    `json:"featured,omitempty"`
	DiscountPercent *int     `json:"discountPercent,omitempty"`
	Price           *float64 `json:"price,omitempty"`
	OriginalPrice   *float64 `json:"originalPrice,omitempty"`
}

// NewArtifactRecord projects a validated record into its artifact shape.
func NewArtifactRecord(r EnhancedRecord, affiliateTag string) ArtifactRecord {
	added := r.Draft.PublishedAt
	if added.IsZero() {
		added = r.Draft.RetrievedAt
	}
	category := r.Category
	if category == "" {
		category = CategoryUnclassified
	}
	rec := ArtifactRecord{
		ID:              r.Fingerprint,
		Title:           r.Title,
		URL:             WithAffiliateTag(r.Draft.URL, affiliateTag),
		Excerpt:         r.Excerpt,
		Image:           r.Draft.Image,
		Category:        string(category),
		QualityScore:    math.Round(r.Score()*1000) / 1000,
		DateAdded:       added.UTC().Format(DateLayout),
		Featured:        r.Draft.Featured,
		DiscountPercent: r.Draft.DiscountPercent,
		Price:           r.Draft.Price,
		OriginalPrice:   r.Draft.OriginalPrice,
	}
	if rec.Price != nil && rec.OriginalPrice != nil && *rec.OriginalPrice < *rec.Price {
		orig := *rec.Price
		rec.OriginalPrice = &orig
	}
	if rec.DiscountPercent == nil {
		rec.DiscountPercent = discountFromPrices(rec.Price, rec.OriginalPrice)
	}
	return rec
}

// discountFromPrices derives a whole-percent discount, or nil when the
// prices do not describe a reduction.
func discountFromPrices(price, original *float64) *int {
	if price == nil || original == nil || *price <= 0 || *original <= *price {
		return nil
	}
	n := int((*original - *price) / *original * 100)
	if n > 100 {
		n = 100
	}
	return &n
}

// WithAffiliateTag appends tag=<tag> to marketplace links that do not carry one.
// Other URLs are returned unchanged.
func WithAffiliateTag(rawURL, tag string) string {
	if tag == "" {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || !isMarketplaceHost(u.Hostname()) {
		return rawURL
	}
	q := u.Query()
	if q.Get("tag") != "" {
		return rawURL
	}
	q.Set("tag", tag)
	u.RawQuery = q.Encode()
	return u.String()
}

func isMarketplaceHost(host string) bool {
	host = strings.ToLower(host)
	return strings.Contains(host, "amazon.") || host == "amzn.to"
}
