package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/contentpipe/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
)

// Store is a SQLite database exposing the pipeline caches through wrapper types.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore opens or creates the database at path.
func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL mode lets concurrent fetches read while another writes.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ResponseCache returns a ResponseCache backed by this store.
func (s *Store) ResponseCache() driven.ResponseCache {
	return &responseCache{store: s}
}

// EnhancementCache returns an EnhancementCache backed by this store.
func (s *Store) EnhancementCache() driven.EnhancementCache {
	return &enhancementCache{store: s}
}

// migrate runs all pending up migrations in version order.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Response Cache ====================

// responseCache implements driven.ResponseCache.
type responseCache struct {
	store *Store
}

var _ driven.ResponseCache = (*responseCache)(nil)

// Get returns the cached response for url, or nil when absent.
func (c *responseCache) Get(ctx context.Context, url string) (*domain.CachedResponse, error) {
	row := c.store.db.QueryRowContext(ctx, `
		SELECT url, etag, last_modified, content_type, body, fetched_at
		FROM response_cache WHERE url = ?`, url)

	var resp domain.CachedResponse
	err := row.Scan(&resp.URL, &resp.ETag, &resp.LastModified, &resp.ContentType, &resp.Body, &resp.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached response: %w", err)
	}
	return &resp, nil
}

// Put stores or replaces the response for resp.URL.
func (c *responseCache) Put(ctx context.Context, resp domain.CachedResponse) error {
	fetchedAt := resp.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = c.store.now()
	}
	body := resp.Body
	if body == nil {
		body = []byte{}
	}
	_, err := c.store.db.ExecContext(ctx, `
		INSERT INTO response_cache (url, etag, last_modified, content_type, body, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			etag = excluded.etag,
			last_modified = excluded.last_modified,
			content_type = excluded.content_type,
			body = excluded.body,
			fetched_at = excluded.fetched_at`,
		resp.URL, resp.ETag, resp.LastModified, resp.ContentType, body, fetchedAt.UTC())
	if err != nil {
		return fmt.Errorf("writing cached response: %w", err)
	}
	return nil
}

// ==================== Enhancement Cache ====================

// enhancementCache implements driven.EnhancementCache.
type enhancementCache struct {
	store *Store
}

var _ driven.EnhancementCache = (*enhancementCache)(nil)

// Get returns the cached fields for key.
func (c *enhancementCache) Get(ctx context.Context, key string) (map[string]string, bool, error) {
	var raw string
	err := c.store.db.QueryRowContext(ctx, "SELECT fields FROM enhancements WHERE cache_key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading enhancement: %w", err)
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, false, fmt.Errorf("unmarshalling enhancement: %w", err)
	}
	return fields, true, nil
}

// Put stores the fields for key.
func (c *enhancementCache) Put(ctx context.Context, key string, fields map[string]string) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshalling enhancement: %w", err)
	}
	_, err = c.store.db.ExecContext(ctx, `
		INSERT INTO enhancements (cache_key, fields, created_at) VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET fields = excluded.fields, created_at = excluded.created_at`,
		key, string(raw), c.store.now().UTC())
	if err != nil {
		return fmt.Errorf("writing enhancement: %w", err)
	}
	return nil
}
