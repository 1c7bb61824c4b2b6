package domain

import "time"

// RawPayload is the body of a fetched source endpoint before parsing.
type RawPayload struct {
	// URL is the final URL after redirects.
	URL string

	// ContentType is the response media type without parameters.
	ContentType string

	// Body is the raw response bytes.
	Body []byte

	// FromCache is true when a 304 response replayed a cached body.
	FromCache bool
}

// CachedResponse is a stored response used for conditional requests.
type CachedResponse struct {
	URL          string
	ETag         string
	LastModified string
	ContentType  string
	Body         []byte
	FetchedAt    time.Time
}

// HasValidators reports whether a conditional request can be made.
func (c *CachedResponse) HasValidators() bool {
	return c != nil && (c.ETag != "" || c.LastModified != "")
}
