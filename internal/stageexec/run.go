package stageexec

import (
	"context"
	"log/slog"
	"time"

	"mediatool/internal/logging"
	"mediatool/internal/mediaitem"
	"mediatool/internal/services"
	"mediatool/internal/stage"
)

// Run executes one stage against item and logs the transition.
//
// A failed item passes through untouched. Non-fatal stage errors become the
// item's failure reason; only services.ErrInvariant errors are returned.
func Run(ctx context.Context, logger *slog.Logger, handler stage.Handler, item mediaitem.Item) (mediaitem.Item, error) {
	if handler == nil {
		return item, services.Wrap(services.ErrInvariant, "stageexec", "run", "stage handler unavailable", nil)
	}
	if item.Failed() {
		return item, nil
	}

	stageCtx := logging.WithStage(ctx, handler.Name())
	stageCtx = services.WithItemPath(stageCtx, item.Path)
	stageLogger := logging.WithContext(stageCtx, logger)

	stageLogger.Debug(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
	)
	started := time.Now()

	next, err := handler.Execute(stageCtx, item)
	if err != nil {
		if services.IsFatal(err) {
			stageLogger.Error(
				"stage failed",
				logging.String(logging.FieldEventType, "stage_failure"),
				logging.String(logging.FieldErrorHint, "run aborted; this indicates a defect, not bad input"),
				logging.Error(err),
			)
			return item, err
		}
		next = item.WithFailure(services.FailureReason(err))
	}

	if next.Failed() {
		logging.WarnWithContext(stageLogger, "item failed",
			"item_failed",
			logging.String("reason", next.Failure),
			logging.String(logging.FieldErrorHint, "fix the file and rerun"),
			logging.String(logging.FieldImpact, "remaining stages skipped for this item"),
		)
		return next, nil
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
	}
	if next.Path != item.Path {
		attrs = append(attrs, logging.String("new_path", next.Path))
	}
	if len(next.Tags) != len(item.Tags) {
		attrs = append(attrs, logging.Strings("tags", next.Tags))
	}
	stageLogger.Info("stage completed", logging.Args(attrs...)...)
	return next, nil
}
