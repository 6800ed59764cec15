package organizer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mediatool/internal/fileutil"
	"mediatool/internal/logging"
	"mediatool/internal/mediaitem"
	"mediatool/internal/services"
	"mediatool/internal/testsupport"
)

func newOrganizer(t *testing.T, simulate bool) (*Organizer, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	remover := fileutil.NewRemover(fileutil.ModeTrash, cfg.Paths.TrashDir, "run-1")
	return NewOrganizer(cfg, logging.NewNop(), remover, simulate), filepath.Join(cfg.Paths.TrashDir, "run-1")
}

func TestRenamesToCanonicalName(t *testing.T) {
	o, _ := newOrganizer(t, false)
	dir := t.TempDir()
	src := filepath.Join(dir, "The.Thing.1982.720p.BluRay.2CH.x265.HEVC-PSA.mkv")
	testsupport.WriteFile(t, src, 10)

	out, err := o.Execute(context.Background(), mediaitem.New(src))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := filepath.Join(dir, "The Thing (1982).8.mkv")
	if out.Path != want {
		t.Fatalf("path = %q, want %q", out.Path, want)
	}
	if !out.HasTag(mediaitem.TagRename) || out.Ripper != "PSA" {
		t.Fatalf("unexpected item %+v", out)
	}
	if !fileutil.Exists(want) || fileutil.Exists(src) {
		t.Fatal("file was not moved")
	}
}

func TestCanonicalNameIsNoOp(t *testing.T) {
	o, _ := newOrganizer(t, false)
	dir := t.TempDir()
	for _, name := range []string{"The Thing (1982).mkv", "the thing (1982).mkv"} {
		src := filepath.Join(dir, name)
		testsupport.WriteFile(t, src, 10)
		out, err := o.Execute(context.Background(), mediaitem.New(src))
		if err != nil {
			t.Fatalf("Execute(%q): %v", name, err)
		}
		if out.Modified || out.Path != src {
			t.Fatalf("%q should be left alone: %+v", name, out)
		}
		if err := os.Remove(src); err != nil {
			t.Fatal(err)
		}
	}
}

func TestExistingDestinationMovedAside(t *testing.T) {
	o, trash := newOrganizer(t, false)
	dir := t.TempDir()
	src := filepath.Join(dir, "Heat.1995.1080p.BluRay.6CH.x265.HEVC-PSA.mkv")
	dest := filepath.Join(dir, "Heat (1995).1080.mkv")
	testsupport.WriteFile(t, src, 20)
	testsupport.WriteFile(t, dest, 5)

	out, err := o.Execute(context.Background(), mediaitem.New(src))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Path != dest {
		t.Fatalf("path = %q", out.Path)
	}
	info, err := os.Stat(dest)
	if err != nil || info.Size() != 20 {
		t.Fatalf("destination should hold the renamed file: %v %v", info, err)
	}
	moved, err := os.Stat(filepath.Join(trash, "Heat (1995).1080.mkv"))
	if err != nil || moved.Size() != 5 {
		t.Fatalf("previous destination should be in the trash: %v %v", moved, err)
	}
}

func TestSimulationKeepsFile(t *testing.T) {
	o, _ := newOrganizer(t, true)
	dir := t.TempDir()
	src := filepath.Join(dir, "Alien.1979.720p.BluRay.2CH.x265.HEVC-PSA.mkv")
	testsupport.WriteFile(t, src, 10)

	out, err := o.Execute(context.Background(), mediaitem.New(src))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.HasTag(mediaitem.TagRename) || out.Path != src {
		t.Fatalf("simulation should tag without moving: %+v", out)
	}
	if !fileutil.Exists(src) || fileutil.Exists(filepath.Join(dir, "Alien (1979).8.mkv")) {
		t.Fatal("simulation must not rename")
	}
}

func TestArchivesAreNotRenamed(t *testing.T) {
	o, _ := newOrganizer(t, false)
	out, err := o.Execute(context.Background(), mediaitem.New("/lib/movie.2001.part1.rar"))
	if err != nil || out.Modified {
		t.Fatalf("archive should pass through: %+v %v", out, err)
	}
}

func TestResolutionYearIsItemFailure(t *testing.T) {
	o, _ := newOrganizer(t, false)
	_, err := o.Execute(context.Background(), mediaitem.New("/lib/Movie.1080.mkv"))
	if !errors.Is(err, services.ErrValidation) || services.IsFatal(err) {
		t.Fatalf("expected item-level validation error, got %v", err)
	}
}

func TestPathOutsideParentIsFatal(t *testing.T) {
	o, _ := newOrganizer(t, false)
	item := mediaitem.Item{Path: "/other/dir/movie.mkv", ParentDir: "/lib"}
	_, err := o.Execute(context.Background(), item)
	if !services.IsFatal(err) {
		t.Fatalf("expected invariant error, got %v", err)
	}
}
