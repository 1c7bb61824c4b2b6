// Package file writes the pipeline artifact and run summary to disk.
// Every write goes to a temporary file in the target directory that is
// synced and renamed over the target, so readers see either the previous
// file or the new one.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
)

// Ensure Writer implements the interface.
var _ driven.ArtifactWriter = (*Writer)(nil)

// DefaultFileMode is the permission of written files.
const DefaultFileMode os.FileMode = 0o644

// Writer is an atomic JSON file writer.
type Writer struct {
	mode   os.FileMode
	indent string
}

// NewWriter creates a writer. Output is indented with two spaces.
func NewWriter() *Writer {
	return &Writer{mode: DefaultFileMode, indent: "  "}
}

// CheckWritable verifies the parent directory of path exists or can be
// created, and accepts new files.
func (w *Writer) CheckWritable(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", domain.ErrOutputUnwritable)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", domain.ErrOutputUnwritable, path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrOutputUnwritable, err)
	}
	probe, err := os.CreateTemp(dir, "."+filepath.Base(path)+".probe.*")
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrOutputUnwritable, err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}

// WriteArtifact replaces path with the records as a JSON array.
func (w *Writer) WriteArtifact(ctx context.Context, path string, records []domain.ArtifactRecord) error {
	if records == nil {
		records = []domain.ArtifactRecord{}
	}
	return w.writeJSON(ctx, path, records)
}

// WriteSummary replaces path with the summary as a JSON object.
func (w *Writer) WriteSummary(ctx context.Context, path string, summary *domain.RunSummary) error {
	if summary == nil {
		return fmt.Errorf("write summary %s: nil summary", path)
	}
	return w.writeJSON(ctx, path, summary)
}

func (w *Writer) writeJSON(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", w.indent)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := writeFileAtomic(path, data, w.mode); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrOutputUnwritable, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	syncDir(dir)
	return nil
}

// syncDir makes the rename durable where the platform allows syncing directories.
func syncDir(dir string) {
	f, err := os.Open(dir)
	if err != nil {
		return
	}
	defer f.Close()
	_ = f.Sync()
}
