package main

import (
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"highlighter/internal/config"
	"highlighter/internal/highlight"
	"highlighter/internal/trimmer"
)

func newClipsCommand(ctx *commandContext) *cobra.Command {
	clipsCmd := &cobra.Command{
		Use:   "clips",
		Short: "Work with a single source video and its clip listing",
	}
	clipsCmd.AddCommand(newClipsGenerateCommand(ctx))
	clipsCmd.AddCommand(newClipsExportCommand(ctx))
	clipsCmd.AddCommand(newClipsListCommand())
	return clipsCmd
}

func newClipsGenerateCommand(ctx *commandContext) *cobra.Command {
	var displayName string
	var outDir string
	var prefix string

	cmd := &cobra.Command{
		Use:   "generate <source>",
		Short: "Crop, detect, merge, and export highlight clips from one video",
		Long: `Crop, detect, merge, and export highlight clips from one video.

Clips and a <source name>.json listing are written to --out (default clip_dir).
The listing can be replayed later with 'highlighter clips export'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve source: %w", err)
			}
			dir, err := resolveOutDir(outDir, cfg.Paths.ClipDir)
			if err != nil {
				return err
			}
			t, err := newTrimmer(ctx, prefix)
			if err != nil {
				return err
			}
			defer t.Close()

			intervals, err := t.GenerateClips(runCtx, source, dir, displayName)
			if err != nil {
				return err
			}
			listing := filepath.Join(dir, prefix+sourceStem(source)+".json")
			if err := highlight.WriteListing(listing, intervals); err != nil {
				return fmt.Errorf("write listing: %w", err)
			}

			out := cmd.OutOrStdout()
			printIntervals(out, intervals)
			fmt.Fprintf(out, "Listing written to %s\n", listing)
			return nil
		},
	}
	cmd.Flags().StringVarP(&displayName, "name", "n", "", "Display name used in clip filenames")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for clips and the listing (default clip_dir)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Prefix for the working file, clips, and listing")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newClipsExportCommand(ctx *commandContext) *cobra.Command {
	var displayName string
	var outDir string
	var prefix string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "export <listing> <source>",
		Short: "Re-run only the export stage for a saved listing",
		Long: `Re-run only the export stage for a saved listing.

Intervals whose clip already exists are skipped unless --overwrite is set.
The listing is rewritten with the resulting clip paths.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			listing, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve listing: %w", err)
			}
			source, err := config.ExpandPath(args[1])
			if err != nil {
				return fmt.Errorf("resolve source: %w", err)
			}
			intervals, err := highlight.ReadListing(listing)
			if err != nil {
				return err
			}
			dir, err := resolveOutDir(outDir, filepath.Dir(listing))
			if err != nil {
				return err
			}
			t, err := newTrimmer(ctx, prefix)
			if err != nil {
				return err
			}
			defer t.Close()

			intervals, err = t.ExportClips(runCtx, intervals, source, dir, displayName, overwrite)
			if err != nil {
				return err
			}
			if err := highlight.WriteListing(listing, intervals); err != nil {
				return fmt.Errorf("rewrite listing: %w", err)
			}
			printIntervals(cmd.OutOrStdout(), intervals)
			return nil
		},
	}
	cmd.Flags().StringVarP(&displayName, "name", "n", "", "Display name used in clip filenames")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for clips (default the listing's directory)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Prefix for clip filenames")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace clips that already exist")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newClipsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "list <listing>",
		Short:       "Show the intervals in a clip listing",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			listing, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve listing: %w", err)
			}
			intervals, err := highlight.ReadListing(listing)
			if err != nil {
				return err
			}
			printIntervals(cmd.OutOrStdout(), intervals)
			return nil
		},
	}
}

func newTrimmer(ctx *commandContext, prefix string) (*trimmer.Trimmer, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireDetector(); err != nil {
		return nil, err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return nil, err
	}
	opts := trimmer.OptionsFromConfig(cfg)
	opts.Prefix = prefix
	return trimmer.New(opts, logger)
}

func resolveOutDir(flagValue, fallback string) (string, error) {
	dir := strings.TrimSpace(flagValue)
	if dir == "" {
		return fallback, nil
	}
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return "", fmt.Errorf("resolve output directory: %w", err)
	}
	return expanded, nil
}

func sourceStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func printIntervals(out io.Writer, intervals []highlight.ClipInterval) {
	if len(intervals) == 0 {
		fmt.Fprintln(out, "No highlights detected")
		return
	}
	rows := make([][]string, 0, len(intervals))
	exported := 0
	for i, interval := range intervals {
		clip := "-"
		if interval.ClipFile != "" {
			clip = filepath.Base(interval.ClipFile)
			exported++
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.FormatUint(interval.Frame, 10),
			formatSeconds(interval.StartTime),
			formatSeconds(interval.EndTime),
			formatSeconds(interval.Duration()),
			truncate(interval.Text, 40),
			clip,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Frame", "Start", "End", "Length", "Text", "Clip"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))
	fmt.Fprintf(out, "%d of %d intervals exported\n", exported, len(intervals))
}
