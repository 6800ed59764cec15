package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mediatool/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var opts logs.Options

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the mediatool log, optionally for one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts.RunID = strings.TrimSpace(opts.RunID)
			out := cmd.OutOrStdout()
			return logs.Tail(cmd.Context(), cfg.LogPath(), opts, func(line string) error {
				_, err := fmt.Fprintln(out, line)
				return err
			})
		},
	}
	cmd.Flags().IntVarP(&opts.Limit, "lines", "n", 50, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "Only show lines for this run")
	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false, "Keep printing new lines")
	return cmd
}
