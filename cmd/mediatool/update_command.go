package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediatool/internal/config"
	"mediatool/internal/logging"
	"mediatool/internal/media/ffmpeg"
	"mediatool/internal/notifications"
	"mediatool/internal/updater"
)

func newUpdateCommand(ctx *commandContext) *cobra.Command {
	var toolDir string
	var simulate bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Install the latest ffmpeg release into the managed tool directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			dir, err := updater.ResolveToolDir(cfg, toolDir)
			if err != nil {
				return err
			}
			binary := cfg.FFmpegBinary()
			if managed, ok := config.ToolBinaryIn(dir, "ffmpeg"); ok {
				binary = managed
			}
			local := ffmpeg.New(newRunner(cfg, logger), binary)
			u, err := updater.New(cfg, logger, local, dir)
			if err != nil {
				return err
			}
			result, err := u.Run(cmd.Context(), simulate)
			if err != nil {
				return err
			}

			if result.Outcome == updater.OutcomeUpdated {
				if err := notifications.NewService(cfg).NotifyUpdateInstalled(cmd.Context(), result.Local, result.Remote); err != nil {
					logger.Warn("update notification failed", logging.Error(err))
				}
			}

			kind := statusOK
			if result.Outcome == updater.OutcomeAvailable {
				kind = statusWarn
			}
			newConsole(cmd.OutOrStdout()).status("FFmpeg", kind, result.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&toolDir, "tool-dir", "", "ffmpeg install directory (defaults to tools.ffmpeg_dir)")
	cmd.Flags().BoolVarP(&simulate, "simulate", "s", false, "Only report whether an update is available")
	return cmd
}

func newVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mediatool and local ffmpeg versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mediatool %s\n", version)

			tool := ffmpeg.New(newRunner(cfg, logger), cfg.FFmpegBinary())
			v, err := tool.Version(cmd.Context(), cfg.VersionTimeout())
			if err != nil {
				return fmt.Errorf("ffmpeg version: %w", err)
			}
			fmt.Fprintf(out, "ffmpeg %s (%s)\n", v, tool.Binary())
			return nil
		},
	}
}
