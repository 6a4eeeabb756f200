package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"visiontune/internal/logging"
	"visiontune/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		runID  string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the persistent log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.LogDir(), logging.LogFileName)
			out := cmd.OutOrStdout()
			var match func(string) bool
			if filter := strings.TrimSpace(runID); filter != "" {
				match = func(line string) bool { return strings.Contains(line, filter) }
			}
			emit := func(line string) {
				if match == nil || match(line) {
					fmt.Fprintln(out, line)
				}
			}

			tail, offset, err := logs.LastMatching(path, lines, match)
			if err != nil {
				return err
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, logs.DefaultPollInterval, emit)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&runID, "run", "", "Only show lines mentioning this run ID")
	return cmd
}
