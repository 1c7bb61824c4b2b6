package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configfile "github.com/custodia-labs/contentpipe/internal/adapters/driven/config/file"
	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driving"
)

var testStart = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func TestRunCmd_Use(t *testing.T) {
	assert.Equal(t, "run", runCmd.Use)
	for _, name := range []string{"config", "output", "summary", "no-ai", "limit", "timeout", "json"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "c", runCmd.Flags().Lookup("config").Shorthand)
	assert.Equal(t, "o", runCmd.Flags().Lookup("output").Shorthand)
}

func TestRunCmd_BuildsRequestFromConfigAndFlags(t *testing.T) {
	p := &fakePipeline{summary: doneSummary()}
	usePipeline(t, p)
	path := writeConfig(t, "contentpipe.toml", validConfig)

	stdout, _, err := executeCommand(t, "run", "-c", path,
		"-o", "custom.json", "--summary", "status.json", "--no-ai", "--limit", "5", "--timeout", "2m")

	require.NoError(t, err)
	require.Equal(t, 1, p.calls())
	req := p.lastRequest()
	assert.Equal(t, "custom.json", req.OutputPath)
	assert.Equal(t, "status.json", req.SummaryPath)
	assert.True(t, req.SkipAI)
	assert.Equal(t, 5, req.Limit)
	assert.Equal(t, 2*time.Minute, req.Timeout)
	require.Len(t, req.Sources, 2)
	assert.Equal(t, "news", req.Sources[0].Name)
	assert.Equal(t, domain.SourceKindCustom, req.Sources[1].Kind)
	assert.Equal(t, "digest-20", req.Sources[1].AffiliateTag)

	assert.Contains(t, stdout, "Run run-1 done")
	assert.Contains(t, stdout, "Technology 2, Finance 1")
	assert.Contains(t, stdout, "duplicate 1")
}

func TestRunCmd_JSONSummary(t *testing.T) {
	usePipeline(t, &fakePipeline{summary: doneSummary()})
	path := writeConfig(t, "contentpipe.yaml", `
output: content.json
sources:
  - name: news
    kind: feed
    endpoint: https://example.com/feed.xml
`)

	stdout, _, err := executeCommand(t, "run", "-c", path, "--json")

	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "run-1", got["runId"])
	assert.Equal(t, "done", got["state"])
	assert.EqualValues(t, 3, got["emitted"])
}

func TestRunCmd_RunFailureStillPrintsSummary(t *testing.T) {
	summary := domain.NewRunSummary("run-2", testStart)
	summary.State = domain.RunFailed
	summary.Error = "output path is not writable"
	runErr := &domain.RunError{State: domain.RunIdle, Err: domain.ErrOutputUnwritable}
	usePipeline(t, &fakePipeline{summary: summary, err: runErr})
	path := writeConfig(t, "contentpipe.toml", validConfig)

	stdout, _, err := executeCommand(t, "run", "-c", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "run failed")
	assert.ErrorIs(t, err, domain.ErrOutputUnwritable)
	assert.Contains(t, stdout, "Run run-2 failed")
	assert.Contains(t, stdout, "output path is not writable")
}

func TestRunCmd_InvalidConfig(t *testing.T) {
	p := &fakePipeline{summary: doneSummary()}
	usePipeline(t, p)
	path := writeConfig(t, "contentpipe.toml", "output = \"x.json\"\n")

	_, _, err := executeCommand(t, "run", "-c", path)

	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.Zero(t, p.calls())
}

func TestRunCmd_NegativeLimit(t *testing.T) {
	p := &fakePipeline{summary: doneSummary()}
	usePipeline(t, p)
	path := writeConfig(t, "contentpipe.toml", validConfig)

	_, _, err := executeCommand(t, "run", "-c", path, "--limit", "-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--limit")
	assert.Zero(t, p.calls())
}

func TestRunCmd_FactoryError(t *testing.T) {
	old := newPipeline
	newPipeline = func(*configfile.Config) (driving.Pipeline, func() error, error) {
		return nil, nil, errors.New("cache locked")
	}
	t.Cleanup(func() { newPipeline = old })
	path := writeConfig(t, "contentpipe.toml", validConfig)

	_, _, err := executeCommand(t, "run", "-c", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "set up pipeline: cache locked")
}

func TestBuildRequest(t *testing.T) {
	disabled := false
	tests := []struct {
		name     string
		ai       configfile.AIConfig
		opts     runOptions
		wantSkip bool
		wantOut  string
	}{
		{"provider none skips AI", configfile.AIConfig{Provider: "none"}, runOptions{}, true, "content.json"},
		{"provider set runs AI", configfile.AIConfig{Provider: "mock"}, runOptions{}, false, "content.json"},
		{"disabled provider skips AI", configfile.AIConfig{Provider: "mock", Enabled: &disabled}, runOptions{}, true, "content.json"},
		{"flag skips AI", configfile.AIConfig{Provider: "mock"}, runOptions{noAI: true}, true, "content.json"},
		{"output override", configfile.AIConfig{Provider: "none"}, runOptions{outputPath: "other.json"}, true, "other.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &configfile.Config{Output: "content.json", Summary: "status.json", AI: tt.ai}

			req, err := buildRequest(cfg, tt.opts)

			require.NoError(t, err)
			assert.Equal(t, tt.wantSkip, req.SkipAI)
			assert.Equal(t, tt.wantOut, req.OutputPath)
			assert.Equal(t, "status.json", req.SummaryPath)
		})
	}

	_, err := buildRequest(&configfile.Config{}, runOptions{timeout: -time.Second})
	assert.Error(t, err)
}

const pipelineFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example</title>
  <link>%[1]s/</link>
  <item>
    <title>Researchers unveil a faster open source compiler backend</title>
    <link>%[1]s/compiler</link>
    <description>The new backend halves build times for large projects while keeping output identical.</description>
    <category>Technology</category>
    <enclosure url="%[1]s/compiler.jpg" type="image/jpeg" length="1"/>
    <pubDate>%[2]s</pubDate>
  </item>
  <item>
    <title>Central bank holds interest rates steady for another quarter</title>
    <link>%[1]s/rates</link>
    <description>Policy makers kept the benchmark rate unchanged and signalled caution on inflation.</description>
    <category>Finance</category>
    <enclosure url="%[1]s/rates.jpg" type="image/jpeg" length="1"/>
    <pubDate>%[3]s</pubDate>
  </item>
  <item>
    <title>Researchers unveil a faster open source compiler backend</title>
    <link>%[1]s/compiler?utm_source=newsletter</link>
    <description>The new backend halves build times for large projects while keeping output identical.</description>
    <category>Technology</category>
    <enclosure url="%[1]s/compiler.jpg" type="image/jpeg" length="1"/>
    <pubDate>%[4]s</pubDate>
  </item>
</channel>
</rss>`

func TestRunCmd_EndToEndWithoutAI(t *testing.T) {
	now := time.Now().UTC()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, pipelineFeed, srv.URL,
			now.Add(-1*time.Hour).Format(time.RFC1123Z),
			now.Add(-2*time.Hour).Format(time.RFC1123Z),
			now.Add(-3*time.Hour).Format(time.RFC1123Z))
	}))
	defer srv.Close()

	dir := t.TempDir()
	out := filepath.Join(dir, "content.json")
	status := filepath.Join(dir, "status.json")
	path := writeConfig(t, "contentpipe.toml", fmt.Sprintf(`output = %q
summary = %q

[cache]
path = %q

[[sources]]
name = "news"
kind = "feed"
endpoint = "%s/feed.xml"
`, out, status, filepath.Join(dir, "cache.db"), srv.URL))

	stdout, _, err := executeCommand(t, "run", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "done")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var records []domain.ArtifactRecord
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, srv.URL+"/compiler", records[0].URL)
	assert.Equal(t, "Technology", records[0].Category)
	assert.Equal(t, srv.URL+"/rates", records[1].URL)
	assert.Equal(t, "Finance", records[1].Category)
	assert.InDelta(t, 1.0, records[0].QualityScore, 0.001)

	data, err = os.ReadFile(status)
	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, "done", summary["state"])
	assert.EqualValues(t, 3, summary["fetched"])
	assert.EqualValues(t, 1, summary["deduplicated"])
	assert.EqualValues(t, 2, summary["emitted"])
	assert.True(t, strings.HasSuffix(summary["outputPath"].(string), "content.json"))
}
