package workflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mediatool/internal/logging"
	"mediatool/internal/mediaitem"
	"mediatool/internal/services"
	"mediatool/internal/stage"
	"mediatool/internal/stageexec"
)

const noExtensionReason = "has no extension"

// Recorder persists each item's final state. *journal.Recorder satisfies it.
type Recorder interface {
	RecordItem(ctx context.Context, item mediaitem.Item) error
}

// Pipeline runs a fixed, ordered list of stages over files.
type Pipeline struct {
	logger   *slog.Logger
	stages   []stage.Handler
	recorder Recorder
}

// Option configures optional Pipeline behaviour.
type Option func(*Pipeline)

// WithRecorder stores every item outcome through r.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// NewPipeline constructs a pipeline over stages, run in the given order.
func NewPipeline(logger *slog.Logger, stages []stage.Handler, opts ...Option) *Pipeline {
	p := &Pipeline{
		logger: logging.NewComponentLogger(logger, "workflow"),
		stages: stages,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// runState is the bookkeeping of a single Run.
type runState struct {
	summary Summary
	// produced holds the paths items were moved to during this run. A
	// directory snapshot entry with such a path is not visited again.
	produced map[string]bool
}

// Run processes root, which may be a single file or a directory tree. The
// returned error is non-nil only when the run was aborted; the summary then
// covers the items processed so far.
func (p *Pipeline) Run(ctx context.Context, root string) (Summary, error) {
	started := time.Now()
	state := &runState{produced: make(map[string]bool)}

	info, err := os.Stat(root)
	if err != nil {
		return state.summary, services.Wrap(services.ErrNotFound, "workflow", "stat root", root, err)
	}

	if info.IsDir() {
		err = p.processDirectory(ctx, root, state)
	} else {
		err = p.processFile(ctx, root, state)
	}
	summary := state.summary
	summary.Duration = time.Since(started)

	logger := logging.WithContext(ctx, p.logger)
	attrs := []logging.Attr{
		logging.String("root", root),
		logging.Int("failed", summary.Failed),
		logging.Int("modified", summary.Modified),
		logging.Int("unchanged", summary.Unchanged),
		logging.Int("skipped", summary.Skipped),
		logging.Duration("elapsed", summary.Duration),
	}
	if err != nil {
		logging.ErrorWithContext(logger, "run aborted", "run_aborted", append(attrs, logging.Error(err))...)
		return summary, err
	}
	logger.Info("run completed", logging.Args(attrs...)...)
	return summary, nil
}

// processDirectory visits the files of dir, then recurses into its
// subdirectories. Entries are snapshotted before any stage runs and each one
// is checked again right before its visit: entries removed by earlier items
// and paths earlier items were moved to are skipped. Symlinks to files are
// followed; symlinked directories are not descended into.
func (p *Pipeline) processDirectory(ctx context.Context, dir string, state *runState) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "directory not readable", "directory_unreadable",
			logging.String("dir", dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check directory permissions"),
			logging.String(logging.FieldImpact, "directory skipped"),
		)
		return nil
	}

	var subdirs []string
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			subdirs = append(subdirs, path)
			continue
		}
		if p.stillPending(path, state) {
			if err := p.processFile(ctx, path, state); err != nil {
				return err
			}
		}
	}
	for _, sub := range subdirs {
		if err := p.processDirectory(ctx, sub, state); err != nil {
			return err
		}
	}
	return nil
}

// stillPending reports whether a snapshot entry should be visited now.
func (p *Pipeline) stillPending(path string, state *runState) bool {
	if state.produced[path] {
		p.logger.Debug("skipping file produced by this run", logging.String("path", path))
		return false
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		p.logger.Debug("skipping entry removed during the run", logging.String("path", path))
		return false
	case err != nil:
		p.logger.Debug("skipping unreadable entry", logging.String("path", path), logging.Error(err))
		return false
	case !info.Mode().IsRegular():
		p.logger.Debug("skipping non-regular entry", logging.String("path", path))
		return false
	}
	return true
}

func (p *Pipeline) processFile(ctx context.Context, path string, state *runState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	item := mediaitem.New(path)
	if item.Ext() == "" {
		item = item.Exclude(noExtensionReason)
	}

	var err error
	for _, handler := range p.stages {
		if item.Failed() {
			break
		}
		item, err = stageexec.Run(ctx, p.logger, handler, item)
		if err != nil {
			aborted := item.WithFailure(services.FailureReason(err))
			state.finish(aborted)
			p.record(ctx, aborted)
			return fmt.Errorf("%s: %w", item.Path, err)
		}
	}

	state.finish(item)
	p.record(ctx, item)
	return nil
}

func (s *runState) finish(item mediaitem.Item) {
	s.summary.Add(item)
	if item.Path != item.SourcePath {
		s.produced[item.Path] = true
	}
}

func (p *Pipeline) record(ctx context.Context, item mediaitem.Item) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.RecordItem(context.WithoutCancel(ctx), item); err != nil && !errors.Is(err, context.Canceled) {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "item outcome not recorded", "journal_write",
			logging.String(logging.FieldItemPath, item.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the state directory"),
			logging.String(logging.FieldImpact, "history incomplete for this run"),
		)
	}
}
