package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
	"github.com/custodia-labs/contentpipe/internal/logger"
)

// Ensure HTTPFetcher implements the interface.
var _ driven.Fetcher = (*HTTPFetcher)(nil)

// Default fetcher values.
const (
	DefaultUserAgent    = "Mozilla/5.0 (compatible; contentpipe/1.0)"
	DefaultMaxBodyBytes = 10 << 20

	acceptHeader = "application/rss+xml, application/atom+xml, application/feed+json, " +
		"application/json, application/xml;q=0.9, text/html;q=0.8, */*;q=0.5"
)

// HTTPConfig holds configuration for the HTTP fetcher.
type HTTPConfig struct {
	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodyBytes caps response bodies (default: 10 MiB).
	MaxBodyBytes int64

	// Client overrides the HTTP client. Timeouts come from the coordinator.
	Client *http.Client
}

// HTTPFetcher retrieves source payloads through a CallCoordinator, using
// conditional requests when a ResponseCache is configured.
type HTTPFetcher struct {
	client    *http.Client
	coord     driven.CallCoordinator
	cache     driven.ResponseCache
	userAgent string
	maxBody   int64
}

// NewHTTPFetcher creates a fetcher. cache may be nil.
func NewHTTPFetcher(coord driven.CallCoordinator, cache driven.ResponseCache, cfg HTTPConfig) *HTTPFetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	return &HTTPFetcher{
		client:    cfg.Client,
		coord:     coord,
		cache:     cache,
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
	}
}

// Fetch GETs url. A 304 against a cached validator replays the cached body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*domain.RawPayload, error) {
	cached := f.lookup(ctx, url)

	var (
		payload *domain.RawPayload
		fresh   *domain.CachedResponse
	)
	err := f.coord.Do(ctx, func(ctx context.Context) error {
		var err error
		payload, fresh, err = f.get(ctx, url, cached)
		return err
	})
	if err != nil {
		return nil, unreachable(ctx, err)
	}

	if fresh != nil && f.cache != nil {
		if err := f.cache.Put(ctx, *fresh); err != nil {
			logger.Warn("response cache write for %s failed: %v", url, err)
		}
	}
	return payload, nil
}

// unreachable marks a failed fetch as ErrSourceUnreachable. Cancellation and
// malformed responses keep their own classification.
func unreachable(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, domain.ErrMalformedResponse) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrSourceUnreachable, err)
}

func (f *HTTPFetcher) lookup(ctx context.Context, url string) *domain.CachedResponse {
	if f.cache == nil {
		return nil
	}
	cached, err := f.cache.Get(ctx, url)
	if err != nil {
		logger.Warn("response cache read for %s failed: %v", url, err)
		return nil
	}
	return cached
}

// get performs one request attempt.
func (f *HTTPFetcher) get(
	ctx context.Context,
	url string,
	cached *domain.CachedResponse,
) (*domain.RawPayload, *domain.CachedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: create request: %w", domain.ErrMalformedResponse, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)
	if cached.HasValidators() {
		if cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
		}
		if cached.LastModified != "" {
			req.Header.Set("If-Modified-Since", cached.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	finalURL := resp.Request.URL.String()

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		logger.Debug("%s not modified, replaying cached body", url)
		return &domain.RawPayload{
			URL:         finalURL,
			ContentType: cached.ContentType,
			Body:        cached.Body,
			FromCache:   true,
		}, nil, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, nil, &domain.StatusError{
			StatusCode: resp.StatusCode,
			URL:        url,
			Message:    http.StatusText(resp.StatusCode),
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBody {
		return nil, nil, fmt.Errorf("%w: body exceeds %d bytes", domain.ErrMalformedResponse, f.maxBody)
	}

	contentType := mediaType(resp.Header.Get("Content-Type"))
	payload := &domain.RawPayload{URL: finalURL, ContentType: contentType, Body: body}

	var fresh *domain.CachedResponse
	etag, lastModified := resp.Header.Get("ETag"), resp.Header.Get("Last-Modified")
	if etag != "" || lastModified != "" {
		fresh = &domain.CachedResponse{
			URL:          url,
			ETag:         etag,
			LastModified: lastModified,
			ContentType:  contentType,
			Body:         body,
			FetchedAt:    time.Now().UTC(),
		}
	}
	return payload, fresh, nil
}

func mediaType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return header
	}
	return mt
}

// ParseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func ParseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
