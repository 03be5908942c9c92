package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"highlighter/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var skipCatalog bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show dependency, directory, catalog, and bookmark status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var lines []string

			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			for _, dep := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
				kind := statusOK
				detail := dep.Command
				if !dep.Available {
					kind = statusError
					if dep.Optional {
						kind = statusWarn
					}
					detail = dep.Detail
				}
				lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Directories", colorize)...)
			for _, check := range []preflight.Result{
				preflight.CheckDirectoryAccess("Temp", cfg.Paths.TempDir),
				preflight.CheckDirectoryAccess("Clips", cfg.Paths.ClipDir),
				preflight.CheckDirectoryAccess("Logs", cfg.Paths.LogDir),
				preflight.CheckDirectoryAccess("State", cfg.Paths.StateDir),
			} {
				lines = append(lines, renderCheck(check, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Catalog", colorize)...)
			if skipCatalog {
				lines = append(lines, renderStatusLine("Catalog", statusInfo, "check skipped", colorize))
			} else {
				timeout := time.Duration(cfg.Catalog.RequestTimeout) * time.Second
				lines = append(lines, renderCheck(preflight.CheckCatalog(cmd.Context(), cfg.Catalog.BaseURL, timeout), colorize))
			}
			lines = append(lines, renderStatusLine("Schedule", statusInfo, cfg.Workflow.Schedule, colorize))
			lines = append(lines, renderStatusLine("Cleanup", statusInfo, "delete temporary files: "+yesNo(cfg.Workflow.DeleteTemporaryFiles), colorize))

			for _, line := range lines {
				fmt.Fprintln(out, line)
			}

			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()
			bookmarks, err := store.Bookmarks(cmd.Context())
			if err != nil {
				return err
			}
			marks := make(map[string]time.Time, len(bookmarks))
			for _, b := range bookmarks {
				marks[b.Channel] = b.LastRecording
			}

			fmt.Fprintln(out)
			rows := make([][]string, 0, len(cfg.Channels))
			for _, name := range cfg.ChannelNames() {
				ch := cfg.Channels[name]
				last := "never"
				if at, ok := marks[name]; ok {
					last = formatRelative(at)
				}
				rows = append(rows, []string{name, fmt.Sprint(ch.ChannelID), ch.DisplayName, last})
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No channels configured")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Channel", "ID", "Display name", "Last recording"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipCatalog, "offline", false, "Skip the catalog reachability check")
	return cmd
}
