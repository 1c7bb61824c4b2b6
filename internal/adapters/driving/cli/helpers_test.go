package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	configfile "github.com/custodia-labs/contentpipe/internal/adapters/driven/config/file"
	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driving"
)

const validConfig = `output = "content.json"

[ai]
provider = "none"

[[sources]]
name = "news"
kind = "feed"
endpoint = "https://example.com/feed.xml"

[[sources]]
name = "shop"
kind = "custom"
endpoint = "https://example.com/deals.json"
affiliate_tag = "digest-20"
`

// fakePipeline records requests and returns a canned summary.
type fakePipeline struct {
	mu       sync.Mutex
	requests []driving.RunRequest
	summary  *domain.RunSummary
	err      error
}

func (f *fakePipeline) Run(_ context.Context, req driving.RunRequest) (*domain.RunSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	s := *f.summary
	return &s, f.err
}

func (f *fakePipeline) Status() driving.RunStatus {
	return driving.RunStatus{}
}

func (f *fakePipeline) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakePipeline) lastRequest() driving.RunRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func doneSummary() *domain.RunSummary {
	s := domain.NewRunSummary("run-1", testStart)
	s.State = domain.RunDone
	s.Fetched = 4
	s.Emitted = 3
	s.Rejected[domain.RejectDuplicate] = 1
	s.Categories[domain.CategoryTechnology] = 2
	s.Categories[domain.CategoryFinance] = 1
	s.AverageQuality = 0.812
	s.OutputPath = "content.json"
	return s
}

// usePipeline swaps the pipeline factory for the duration of the test.
func usePipeline(t *testing.T, p driving.Pipeline) {
	t.Helper()
	old := newPipeline
	newPipeline = func(*configfile.Config) (driving.Pipeline, func() error, error) {
		return p, func() error { return nil }, nil
	}
	t.Cleanup(func() { newPipeline = old })
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// executeCommand runs the root command with args, returning stdout and stderr.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		runOpts = runOptions{configPath: DefaultConfigPath}
		configPath = DefaultConfigPath
	})
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// syncBuffer is a bytes.Buffer safe for a writer goroutine and a reading test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
