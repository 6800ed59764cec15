package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mediatool/internal/config"
	"mediatool/internal/journal"
	"mediatool/internal/logging"
	"mediatool/internal/notifications"
	"mediatool/internal/runlock"
	"mediatool/internal/services"
	"mediatool/internal/workflow"
)

func newActionCommand(ctx *commandContext, action workflow.Action, short string) *cobra.Command {
	var simulate bool

	cmd := &cobra.Command{
		Use:   string(action) + " <path>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, ctx, action, args[0], simulate)
		},
	}
	cmd.Flags().BoolVarP(&simulate, "simulate", "s", false, "Report what would change without touching any file")
	return cmd
}

func runAction(cmd *cobra.Command, ctx *commandContext, action workflow.Action, target string, simulate bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	root, err := config.ExpandPath(target)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("path %s: %w", root, err)
	}

	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	lock, err := runlock.Acquire(cfg.LockPath())
	if errors.Is(err, runlock.ErrHeld) {
		return fmt.Errorf("%w (lock %s)", err, cfg.LockPath())
	}
	if err != nil {
		return err
	}
	defer lock.Release()

	store, err := journal.Open(cfg.JournalPath())
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()

	runID := uuid.NewString()
	runCtx := services.WithRunID(cmd.Context(), runID)
	if err := store.StartRun(runCtx, journal.Run{
		ID:        runID,
		Action:    string(action),
		Root:      root,
		Simulate:  simulate,
		StartedAt: time.Now(),
	}); err != nil {
		return fmt.Errorf("record run start: %w", err)
	}

	handlers, err := buildStages(cfg, logger, runID, simulate).For(action)
	if err != nil {
		return err
	}
	pipeline := workflow.NewPipeline(logger, handlers, workflow.WithRecorder(store.Recorder(runID)))
	summary, runErr := pipeline.Run(runCtx, root)

	if err := store.FinishRun(context.WithoutCancel(runCtx), runID, countsOf(summary), runErr); err != nil {
		logging.WarnWithContext(logging.WithContext(runCtx, logger), "run not finalised in journal", "journal_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history shows the run as unfinished"),
		)
	}

	notifier := notifications.NewService(cfg)
	if err := notifier.NotifyRunFinished(context.WithoutCancel(runCtx), notifications.RunReport{
		RunID:     runID,
		Action:    string(action),
		Root:      root,
		Simulate:  simulate,
		Failed:    summary.Failed,
		Modified:  summary.Modified,
		Unchanged: summary.Unchanged,
		Skipped:   summary.Skipped,
		Duration:  summary.Duration,
		Err:       runErr,
	}); err != nil {
		logging.WarnWithContext(logging.WithContext(runCtx, logger), "run notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no push message for this run"),
		)
	}

	con := newConsole(cmd.OutOrStdout())
	if simulate {
		con.status("Mode", statusInfo, "simulation, no files were changed")
	}
	con.println(renderSummary(summary))
	if len(summary.Failures) > 0 {
		con.println(renderFailures(summary.Failures))
	}
	con.status("Run", runStatusKind(summary, runErr), fmt.Sprintf("%s in %s", runID, summary.Duration.Round(time.Millisecond)))
	return runErr
}

func countsOf(s workflow.Summary) journal.Counts {
	return journal.Counts{
		Failed:    s.Failed,
		Modified:  s.Modified,
		Unchanged: s.Unchanged,
		Skipped:   s.Skipped,
	}
}

func runStatusKind(s workflow.Summary, runErr error) statusKind {
	switch {
	case runErr != nil:
		return statusError
	case s.Failed > 0:
		return statusWarn
	default:
		return statusOK
	}
}
