package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediatool/internal/config"
	"mediatool/internal/logging"
	"mediatool/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor [path]",
		Short: "Check tools, directories and free space",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := ""
			if len(args) == 1 {
				if target, err = config.ExpandPath(args[0]); err != nil {
					return fmt.Errorf("resolve path: %w", err)
				}
			}

			con := newConsole(cmd.OutOrStdout())
			problems := 0

			con.section("Dependencies")
			for _, status := range preflight.CheckSystemDeps(cfg) {
				switch {
				case !status.Available:
					problems++
					con.status(status.Name, statusError, status.Detail)
				case status.Managed(cfg.Tools.FFmpegDir):
					con.status(status.Name, statusOK, status.Resolved+" (managed)")
				default:
					con.status(status.Name, statusOK, status.Resolved)
				}
			}

			con.section("Environment")
			for _, result := range preflight.RunAll(cmd.Context(), cfg, target) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					problems++
				}
				con.status(result.Name, kind, result.Detail)
			}

			con.section("Stages")
			stages := buildStages(cfg, logging.NewNop(), "doctor", true)
			for _, health := range stages.Health(cmd.Context()) {
				kind := statusOK
				if !health.Ready {
					kind = statusError
					problems++
				}
				con.status(health.Name, kind, health.Detail)
			}

			if problems > 0 {
				return fmt.Errorf("doctor found %d problem(s)", problems)
			}
			return nil
		},
	}
}
