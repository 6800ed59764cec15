package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mediatool/internal/mediaitem"
)

// Counts are the end-of-run counters.
type Counts struct {
	Failed    int
	Modified  int
	Unchanged int
	Skipped   int
}

// Total returns the number of items seen.
func (c Counts) Total() int {
	return c.Failed + c.Modified + c.Unchanged + c.Skipped
}

// Run is one recorded invocation of a pipeline action.
type Run struct {
	ID         string
	Action     string
	Root       string
	Simulate   bool
	StartedAt  time.Time
	FinishedAt time.Time
	Counts     Counts
	Error      string
}

// Finished reports whether the run recorded its end.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// ItemRecord is the recorded outcome of one item.
type ItemRecord struct {
	ID         int64
	RunID      string
	SourcePath string
	FinalPath  string
	Status     mediaitem.Status
	Ripper     string
	Tags       []string
	Failure    string
	RecordedAt time.Time
}

const runColumns = "id, action, root, simulate, started_at, finished_at, failed, modified, unchanged, skipped, error_message"

// StartRun records the beginning of a run.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if err := s.exec(ctx,
		`INSERT INTO runs (id, action, root, simulate, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Action, run.Root, boolToInt(run.Simulate), formatTime(run.StartedAt),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the counters and any run-aborting error.
func (s *Store) FinishRun(ctx context.Context, id string, counts Counts, runErr error) error {
	message := ""
	if runErr != nil {
		message = runErr.Error()
	}
	if err := s.exec(ctx,
		`UPDATE runs SET finished_at = ?, failed = ?, modified = ?, unchanged = ?, skipped = ?, error_message = ?
         WHERE id = ?`,
		formatTime(time.Now()), counts.Failed, counts.Modified, counts.Unchanged, counts.Skipped,
		nullableString(message), id,
	); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordItem stores the final state of item under run id.
func (s *Store) RecordItem(ctx context.Context, runID string, item mediaitem.Item) error {
	tags, err := json.Marshal(item.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	if err := s.exec(ctx,
		`INSERT INTO run_items (run_id, source_path, final_path, status, ripper, tags_json, failure, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, item.SourcePath, item.Path, string(item.Status()), nullableString(item.Ripper),
		string(tags), nullableString(item.Failure), formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("insert run item: %w", err)
	}
	return nil
}

// Recorder binds the store to a single run.
type Recorder struct {
	store *Store
	runID string
}

// Recorder returns a per-run recorder.
func (s *Store) Recorder(runID string) *Recorder {
	return &Recorder{store: s, runID: runID}
}

// RecordItem stores item under the bound run.
func (r *Recorder) RecordItem(ctx context.Context, item mediaitem.Item) error {
	return r.store.RecordItem(ctx, r.runID, item)
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches a run by id, returning nil when it does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

// ListItems returns a run's items in the order they were processed.
func (s *Store) ListItems(ctx context.Context, runID string) ([]ItemRecord, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, run_id, source_path, final_path, status, ripper, tags_json, failure, recorded_at
         FROM run_items WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []ItemRecord
	for rows.Next() {
		var (
			rec      ItemRecord
			status   string
			ripper   sql.NullString
			tags     sql.NullString
			failure  sql.NullString
			recorded sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.SourcePath, &rec.FinalPath, &status, &ripper, &tags, &failure, &recorded); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		rec.Status = mediaitem.Status(status)
		rec.Ripper = ripper.String
		rec.Failure = failure.String
		rec.RecordedAt = parseTime(recorded)
		if tags.Valid && tags.String != "" && tags.String != "null" {
			if err := json.Unmarshal([]byte(tags.String), &rec.Tags); err != nil {
				return nil, fmt.Errorf("decode tags for item %d: %w", rec.ID, err)
			}
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run      Run
		simulate int
		started  sql.NullString
		finished sql.NullString
		errMsg   sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Action,
		&run.Root,
		&simulate,
		&started,
		&finished,
		&run.Counts.Failed,
		&run.Counts.Modified,
		&run.Counts.Unchanged,
		&run.Counts.Skipped,
		&errMsg,
	); err != nil {
		return Run{}, err
	}
	run.Simulate = simulate != 0
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	run.Error = errMsg.String
	return run, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
