package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"highlighter/internal/batch"
	"highlighter/internal/catalog"
	"highlighter/internal/logging"
	"highlighter/internal/preflight"
)

type batchFlags struct {
	channels      []string
	skipPreflight bool
}

func (f *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.channels, "channel", nil, "Limit the batch to these configured channels (repeatable)")
	cmd.Flags().BoolVar(&f.skipPreflight, "skip-preflight", false, "Skip binary and directory checks before starting")
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags batchFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process new recordings for every configured channel once",
		Long: `Process new recordings for every configured channel once.

For each channel the catalog is asked for recordings newer than the channel
bookmark. Each recording is downloaded into temp_dir, cropped, scanned by the
detector, and trimmed into clips under clip_dir/<run timestamp>/ next to a
<recording id>.json listing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			runner, closeFn, err := buildBatchRunner(runCtx, cmd, ctx, flags)
			if err != nil {
				return err
			}
			defer closeFn()

			summary, err := runner.Run(runCtx, flags.channels)
			printBatchSummary(cmd.OutOrStdout(), summary)
			if err != nil {
				return err
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d recordings failed", summary.Failed, summary.Recordings)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// buildBatchRunner wires the ledger, catalog client, and batch runner. The
// returned close function releases the ledger.
func buildBatchRunner(runCtx context.Context, cmd *cobra.Command, ctx *commandContext, flags batchFlags) (*batch.Runner, func(), error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.RequireDetector(); err != nil {
		return nil, nil, err
	}
	if !flags.skipPreflight {
		if failed := preflight.Failed(preflight.RunAll(runCtx, cfg)); len(failed) > 0 {
			parts := make([]string, 0, len(failed))
			for _, f := range failed {
				parts = append(parts, fmt.Sprintf("%s: %s", f.Name, f.Detail))
			}
			return nil, nil, fmt.Errorf("preflight failed (%s); run `highlighter status` for details", strings.Join(parts, "; "))
		}
	}

	logger, err := ctx.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	store, err := ctx.openLedger()
	if err != nil {
		return nil, nil, err
	}
	client, err := catalog.New(cfg.Catalog.BaseURL, nil, logger,
		catalog.WithRequestTimeout(time.Duration(cfg.Catalog.RequestTimeout)*time.Second))
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	var opts []batch.Option
	if stderr := cmd.ErrOrStderr(); shouldColorize(stderr) {
		opts = append(opts, batch.WithProgress(stderr))
	}
	runner, err := batch.New(cfg, store, client, logger, opts...)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return runner, func() { _ = store.Close() }, nil
}

func printBatchSummary(out io.Writer, summary batch.Summary) {
	if summary.RunID == "" {
		return
	}
	if len(summary.Runs) == 0 {
		fmt.Fprintln(out, "No new recordings")
		return
	}
	rows := make([][]string, 0, len(summary.Runs))
	for _, run := range summary.Runs {
		rows = append(rows, []string{
			run.Channel,
			strconv.FormatInt(run.RecordingID, 10),
			string(run.Status),
			strconv.Itoa(run.Clips),
			strconv.Itoa(run.FailedClips),
			formatDuration(run.Duration()),
			truncate(run.ErrorMessage, 60),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Channel", "Recording", "Status", "Clips", "Failed", "Took", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
	fmt.Fprintf(out, "Run %s: %d succeeded, %d failed, %d skipped, %d clips in %s\n",
		summary.RunID, summary.Succeeded, summary.Failed, summary.Skipped, summary.Clips, summary.ClipDir)
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var flags batchFlags
	var immediate bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the batch on workflow.schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runner, closeFn, err := buildBatchRunner(runCtx, cmd, ctx, flags)
			if err != nil {
				return err
			}
			defer closeFn()
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %d channels on schedule %q (Ctrl+C to stop)\n", len(cfg.Channels), cfg.Workflow.Schedule)
			return batch.Watch(runCtx, cfg.Workflow.Schedule, immediate, logger, func(jobCtx context.Context) {
				summary, err := runner.Run(jobCtx, flags.channels)
				if errors.Is(err, batch.ErrLocked) {
					logger.Warn("skipping scheduled batch", logging.Error(err))
					return
				}
				if err != nil && !errors.Is(err, context.Canceled) {
					logging.ErrorWithContext(logger, "scheduled batch failed", "batch_failed", logging.Error(err))
				}
				printBatchSummary(out, summary)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&immediate, "now", false, "Run one batch immediately before waiting for the schedule")
	return cmd
}
