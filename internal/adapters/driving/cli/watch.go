package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	configfile "github.com/custodia-labs/contentpipe/internal/adapters/driven/config/file"
	"github.com/custodia-labs/contentpipe/internal/logger"
)

// watchDebounce coalesces the bursts of events editors emit on save.
var watchDebounce = 500 * time.Millisecond

var watchOpts runOptions

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the pipeline whenever the configuration changes",
	Long: `Runs the pipeline once, then watches the configuration file and runs
again after every save. An invalid configuration is reported and the
previous artifact is left in place until the file is fixed.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	addRunFlags(watchCmd, &watchOpts)
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path, err := filepath.Abs(watchOpts.configPath)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", watchOpts.configPath, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file rather than write it.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	cmd.PrintErrf("Watching %s (Ctrl+C to stop)\n", path)
	return watchLoop(ctx, cmd, path, watchOpts, watcher.Events, watcher.Errors)
}

// watchLoop runs once, then again after each debounced change to path.
// It returns when ctx is done or the event channels close.
func watchLoop(
	ctx context.Context,
	cmd *cobra.Command,
	path string,
	opts runOptions,
	events <-chan fsnotify.Event,
	errs <-chan error,
) error {
	rerun := func() {
		cfg, err := configfile.Load(path)
		if err != nil {
			cmd.PrintErrf("Error: %v\n", err)
			return
		}
		if err := runOnce(ctx, cmd, cfg, opts); err != nil {
			cmd.PrintErrf("Error: %v\n", err)
		}
	}
	rerun()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			logger.Info("%s changed, running again", path)
			rerun()

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)
		}
	}
}
