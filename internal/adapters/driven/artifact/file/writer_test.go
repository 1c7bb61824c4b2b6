package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
)

func TestWriter_WriteArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "public", "content.json")
	w := NewWriter()

	featured := true
	records := []domain.ArtifactRecord{{
		ID:           "abc123",
		Title:        "Drones map the ocean floor",
		URL:          "https://example.com/a",
		Excerpt:      "A detailed seabed map.",
		Category:     "Science",
		QualityScore: 0.97,
		DateAdded:    "2024-03-09",
		Featured:     &featured,
	}}
	require.NoError(t, w.WriteArtifact(context.Background(), path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "abc123", got[0]["id"])
	assert.Equal(t, "Science", got[0]["category"])
	assert.Equal(t, true, got[0]["featured"])
	assert.NotContains(t, got[0], "image")
	assert.NotContains(t, got[0], "discountPercent")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestWriter_WriteArtifact_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.json")
	require.NoError(t, NewWriter().WriteArtifact(context.Background(), path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestWriter_WriteArtifact_ReplacesPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.json")
	w := NewWriter()

	require.NoError(t, w.WriteArtifact(context.Background(), path, []domain.ArtifactRecord{{ID: "old"}}))
	require.NoError(t, w.WriteArtifact(context.Background(), path, []domain.ArtifactRecord{{ID: "new"}, {ID: "newer"}}))

	var got []domain.ArtifactRecord
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
}

func TestWriter_WriteSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	s := domain.NewRunSummary("run-1", time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	s.State = domain.RunDone
	s.Fetched = 3
	s.Emitted = 1
	s.Duration = 1500 * time.Millisecond

	require.NoError(t, NewWriter().WriteSummary(context.Background(), path, s))

	var got map[string]any
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-1", got["runId"])
	assert.Equal(t, "done", got["state"])
	assert.Equal(t, "1.5s", got["duration"])
	assert.InDelta(t, 1.0/3.0, got["successRate"], 1e-9)

	assert.Error(t, NewWriter().WriteSummary(context.Background(), path, nil))
}

func TestWriter_CheckWritable(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter()

	assert.NoError(t, w.CheckWritable(filepath.Join(dir, "nested", "content.json")))
	assert.DirExists(t, filepath.Join(dir, "nested"))

	err := w.CheckWritable(dir)
	assert.ErrorIs(t, err, domain.ErrOutputUnwritable)

	assert.ErrorIs(t, w.CheckWritable(""), domain.ErrOutputUnwritable)

	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	assert.ErrorIs(t, w.CheckWritable(filepath.Join(blocker, "content.json")), domain.ErrOutputUnwritable)
}

func TestWriter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "content.json")

	assert.ErrorIs(t, NewWriter().WriteArtifact(ctx, path, nil), context.Canceled)
	assert.NoFileExists(t, path)
}
