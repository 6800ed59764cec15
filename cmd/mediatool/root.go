package main

import (
	"github.com/spf13/cobra"

	"mediatool/internal/workflow"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "mediatool",
		Short:         "Batch media library tidying",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newActionCommand(ctx, workflow.ActionConvert, "Unpack, rename, extract subtitles and remux everything under a path"))
	rootCmd.AddCommand(newActionCommand(ctx, workflow.ActionExtract, "Only unpack archives under a path"))
	rootCmd.AddCommand(newActionCommand(ctx, workflow.ActionRename, "Only rename media files under a path"))
	rootCmd.AddCommand(newActionCommand(ctx, workflow.ActionMerge, "Mux .srt sidecars into their media containers"))
	rootCmd.AddCommand(newUpdateCommand(ctx))
	rootCmd.AddCommand(newVersionCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}
