package workflow

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mediatool/internal/fileutil"
	"mediatool/internal/logging"
	"mediatool/internal/mediaitem"
	"mediatool/internal/organizer"
	"mediatool/internal/packaging"
	"mediatool/internal/services"
	"mediatool/internal/stage"
	"mediatool/internal/testsupport"
	"mediatool/internal/unpacking"
)

type memoryRecorder struct {
	items []mediaitem.Item
}

func (m *memoryRecorder) RecordItem(_ context.Context, item mediaitem.Item) error {
	m.items = append(m.items, item)
	return nil
}

func touch(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		testsupport.WriteFile(t, filepath.Join(root, name), 8)
	}
}

func rel(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		r, err := filepath.Rel(root, p)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, r)
	}
	return out
}

func TestTraversalVisitsFilesBeforeSubdirectories(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "b.mkv", "a.mkv", filepath.Join("sub", "c.mkv"), "z.mkv", filepath.Join("sub", "deeper", "d.mkv"))

	var visited []string
	recorder := stage.Func{StageName: "record", Fn: func(_ context.Context, item mediaitem.Item) (mediaitem.Item, error) {
		visited = append(visited, item.Path)
		return item, nil
	}}

	summary, err := NewPipeline(logging.NewNop(), []stage.Handler{recorder}).Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"a.mkv", "b.mkv", "z.mkv", filepath.Join("sub", "c.mkv"), filepath.Join("sub", "deeper", "d.mkv")}
	if diff := cmp.Diff(want, rel(t, root, visited)); diff != "" {
		t.Fatalf("visit order mismatch (-want +got):\n%s", diff)
	}
	if summary.Unchanged != 5 || summary.Total() != 5 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestEntriesChangedByEarlierItemsAreNotRevisited(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.mkv", "b.r00", "z.mkv")

	var visited []string
	move := stage.Func{StageName: "move", Fn: func(_ context.Context, item mediaitem.Item) (mediaitem.Item, error) {
		visited = append(visited, item.Name())
		if item.Name() != "a.mkv" {
			return item, nil
		}
		// a.mkv consumes its volume and takes over z.mkv's name.
		if err := os.Remove(filepath.Join(root, "b.r00")); err != nil {
			return item, err
		}
		target := filepath.Join(root, "z.mkv")
		if err := os.Remove(target); err != nil {
			return item, err
		}
		if err := os.Rename(item.Path, target); err != nil {
			return item, err
		}
		return item.WithPath(target).WithTag("move"), nil
	}}

	summary, err := NewPipeline(logging.NewNop(), []stage.Handler{move}).Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"a.mkv"}, visited); diff != "" {
		t.Fatalf("visits mismatch (-want +got):\n%s", diff)
	}
	if summary.Modified != 1 || summary.Total() != 1 || len(summary.Failures) != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestSymlinkedFilesAreFollowed(t *testing.T) {
	root := t.TempDir()
	elsewhere := t.TempDir()
	touch(t, elsewhere, "real.mkv")
	if err := os.Symlink(filepath.Join(elsewhere, "real.mkv"), filepath.Join(root, "link.mkv")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(root, filepath.Join(root, "loop")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(elsewhere, "missing.mkv"), filepath.Join(root, "dangling.mkv")); err != nil {
		t.Fatal(err)
	}

	var visited []string
	recorder := stage.Func{StageName: "record", Fn: func(_ context.Context, item mediaitem.Item) (mediaitem.Item, error) {
		visited = append(visited, item.Name())
		return item, nil
	}}
	summary, err := NewPipeline(logging.NewNop(), []stage.Handler{recorder}).Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"link.mkv"}, visited); diff != "" {
		t.Fatalf("visits mismatch (-want +got):\n%s", diff)
	}
	if summary.Unchanged != 1 || summary.Total() != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestFailureShortCircuitsOnlyThatItem(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "bad.mkv", "good.mkv", "README")

	var secondStage []string
	first := stage.Func{StageName: "first", Fn: func(_ context.Context, item mediaitem.Item) (mediaitem.Item, error) {
		if item.Name() == "bad.mkv" {
			return item, services.Wrap(services.ErrExternalTool, "ffprobe", "inspect", "exit code 1", nil)
		}
		return item.WithTag("first"), nil
	}}
	second := stage.Func{StageName: "second", Fn: func(_ context.Context, item mediaitem.Item) (mediaitem.Item, error) {
		secondStage = append(secondStage, item.Name())
		return item, nil
	}}

	rec := &memoryRecorder{}
	summary, err := NewPipeline(logging.NewNop(), []stage.Handler{first, second}, WithRecorder(rec)).Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"good.mkv"}, secondStage); diff != "" {
		t.Fatalf("second stage visits (-want +got):\n%s", diff)
	}
	if summary.Failed != 1 || summary.Modified != 1 || summary.Skipped != 1 || summary.Unchanged != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	wantFailures := []Failure{
		{Path: filepath.Join(root, "README"), Reason: "has no extension"},
		{Path: filepath.Join(root, "bad.mkv"), Reason: "ffprobe: inspect: exit code 1"},
	}
	if diff := cmp.Diff(wantFailures, summary.Failures); diff != "" {
		t.Fatalf("failures mismatch (-want +got):\n%s", diff)
	}
	if len(rec.items) != 3 {
		t.Fatalf("expected 3 recorded items, got %d", len(rec.items))
	}
}

func TestInvariantErrorAbortsRun(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.mkv", "b.mkv")

	calls := 0
	fatal := stage.Func{StageName: "fatal", Fn: func(_ context.Context, item mediaitem.Item) (mediaitem.Item, error) {
		calls++
		return item, services.Wrap(services.ErrInvariant, "ffprobe", "parse", "streams missing", nil)
	}}
	summary, err := NewPipeline(logging.NewNop(), []stage.Handler{fatal}).Run(context.Background(), root)
	if !errors.Is(err, services.ErrInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
	if calls != 1 || summary.Failed != 1 {
		t.Fatalf("run should stop at the first item: calls=%d summary=%+v", calls, summary)
	}
}

func TestMissingRootFails(t *testing.T) {
	_, err := NewPipeline(logging.NewNop(), nil).Run(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCancelledContextStops(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.mkv")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewPipeline(logging.NewNop(), nil).Run(ctx, root); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func writeZip(t *testing.T, path, entry string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create(entry)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("frames")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func convertStages(t *testing.T, simulate bool) []stage.Handler {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	remover := fileutil.NewRemover(fileutil.ModeTrash, cfg.Paths.TrashDir, "run")
	set := StageSet{
		Unpacker:       unpacking.New(cfg, logging.NewNop(), remover, simulate),
		Organizer:      organizer.NewOrganizer(cfg, logging.NewNop(), remover, simulate),
		MediaExtractor: stage.Func{StageName: "extract-media"},
		Packager:       packaging.New(logging.NewNop()),
	}
	stages, err := set.For(ActionConvert)
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	return stages
}

func snapshot(t *testing.T, root string) []string {
	t.Helper()
	var names []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			names = append(names, path)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return rel(t, root, names)
}

func TestSimulationMatchesRealRunWithoutTouchingFiles(t *testing.T) {
	build := func(t *testing.T) string {
		root := t.TempDir()
		writeZip(t, filepath.Join(root, "Alien.1979.zip"), "Alien.1979.720p.BluRay.2CH.x265.HEVC-PSA.mkv")
		touch(t, root, filepath.Join("tv", "Show.S01E02.Pilot.720p.mkv"), "The Thing (1982).mkv")
		return root
	}

	simRoot := build(t)
	before := snapshot(t, simRoot)
	simSummary, err := NewPipeline(logging.NewNop(), convertStages(t, true)).Run(context.Background(), simRoot)
	if err != nil {
		t.Fatalf("simulated Run: %v", err)
	}
	if diff := cmp.Diff(before, snapshot(t, simRoot)); diff != "" {
		t.Fatalf("simulation changed the tree (-want +got):\n%s", diff)
	}

	realRoot := build(t)
	realSummary, err := NewPipeline(logging.NewNop(), convertStages(t, false)).Run(context.Background(), realRoot)
	if err != nil {
		t.Fatalf("real Run: %v", err)
	}

	simSummary.Duration, realSummary.Duration = 0, 0
	if simSummary.Failed != realSummary.Failed || simSummary.Modified != realSummary.Modified ||
		simSummary.Unchanged != realSummary.Unchanged || simSummary.Skipped != realSummary.Skipped {
		t.Fatalf("simulated %+v differs from real %+v", simSummary, realSummary)
	}
	if realSummary.Modified != 2 || realSummary.Unchanged != 1 {
		t.Fatalf("unexpected real summary %+v", realSummary)
	}
	if !fileutil.Exists(filepath.Join(realRoot, "Alien (1979).8.mkv")) {
		t.Fatalf("extracted file not renamed: %v", snapshot(t, realRoot))
	}
}

func TestStageSetFor(t *testing.T) {
	noop := stage.Func{StageName: "noop"}
	set := StageSet{Organizer: noop}
	if _, err := set.For(ActionConvert); err == nil {
		t.Fatal("convert needs every stage")
	}
	stages, err := set.For(ActionRename)
	if err != nil || len(stages) != 1 {
		t.Fatalf("rename: %v %v", stages, err)
	}
	if _, err := ParseAction("transcode"); err == nil {
		t.Fatal("unknown action accepted")
	}
	if a, err := ParseAction(" Merge "); err != nil || a != ActionMerge {
		t.Fatalf("ParseAction: %v %v", a, err)
	}
}
