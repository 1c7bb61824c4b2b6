package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	configfile "github.com/custodia-labs/contentpipe/internal/adapters/driven/config/file"
	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driving"
	"github.com/custodia-labs/contentpipe/internal/logger"
)

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "contentpipe.toml"

// progressInterval is how often run progress is polled.
var progressInterval = 500 * time.Millisecond

// runOptions are the flags shared by run and watch.
type runOptions struct {
	configPath  string
	outputPath  string
	summaryPath string
	noAI        bool
	limit       int
	timeout     time.Duration
	jsonOutput  bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once and write the artifact",
	Long: `Fetches every configured source, enhances and classifies the items,
drops low-quality and duplicate items, and writes the artifact atomically.

Press Ctrl+C to stop early: in-flight calls are abandoned and the items
already fetched are still validated and written.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	addRunFlags(runCmd, &runOpts)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", DefaultConfigPath, "path to the TOML or YAML configuration")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "artifact path (overrides the configuration)")
	cmd.Flags().StringVar(&opts.summaryPath, "summary", "", "write the run summary as JSON to this path")
	cmd.Flags().BoolVar(&opts.noAI, "no-ai", false, "skip AI enhancement and classification")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "cap the number of fetched items (0 = no cap)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "abort the run after this duration (0 = no limit)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print the run summary as JSON")
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := configfile.Load(runOpts.configPath)
	if err != nil {
		return err
	}
	return runOnce(ctx, cmd, cfg, runOpts)
}

// buildRequest merges flag overrides into the configured request.
func buildRequest(cfg *configfile.Config, opts runOptions) (driving.RunRequest, error) {
	if opts.limit < 0 {
		return driving.RunRequest{}, errors.New("--limit must not be negative")
	}
	if opts.timeout < 0 {
		return driving.RunRequest{}, errors.New("--timeout must not be negative")
	}
	req := driving.RunRequest{
		Sources:     cfg.Descriptors(),
		OutputPath:  cfg.Output,
		SummaryPath: cfg.Summary,
		SkipAI:      opts.noAI || !cfg.AI.IsEnabled(),
		Limit:       opts.limit,
		Timeout:     opts.timeout,
	}
	if opts.outputPath != "" {
		req.OutputPath = opts.outputPath
	}
	if opts.summaryPath != "" {
		req.SummaryPath = opts.summaryPath
	}
	return req, nil
}

// runOnce builds a pipeline for cfg, runs it and prints the summary.
func runOnce(ctx context.Context, cmd *cobra.Command, cfg *configfile.Config, opts runOptions) error {
	req, err := buildRequest(cfg, opts)
	if err != nil {
		return err
	}

	pipeline, closePipeline, err := newPipeline(cfg)
	if err != nil {
		return fmt.Errorf("set up pipeline: %w", err)
	}
	defer func() {
		if err := closePipeline(); err != nil {
			logger.Warn("closing caches: %v", err)
		}
	}()

	summary, runErr := runWithProgress(ctx, cmd, pipeline, req)

	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		if err := writeSummaryJSON(out, summary); err != nil {
			return err
		}
	} else {
		renderSummary(out, summary, isTerminal(out))
	}

	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	return nil
}

// runWithProgress runs the pipeline while printing progress updates.
func runWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	pipeline driving.Pipeline,
	req driving.RunRequest,
) (*domain.RunSummary, error) {
	type result struct {
		summary *domain.RunSummary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		summary, err := pipeline.Run(ctx, req)
		done <- result{summary, err}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	var last driving.RunStatus
	progress := false
	for {
		select {
		case r := <-done:
			if progress {
				cmd.PrintErrln()
			}
			return r.summary, r.err
		case <-ticker.C:
			status := pipeline.Status()
			if !status.Running || status == last {
				continue
			}
			last = status
			progress = true
			cmd.PrintErrf("\r%-12s %d items fetched, %d source errors", status.State, status.RecordsFetched, status.ErrorCount)
		}
	}
}
