package unpacking

import (
	"archive/zip"
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediatool/internal/archive"
	"mediatool/internal/fileutil"
	"mediatool/internal/logging"
	"mediatool/internal/mediaitem"
	"mediatool/internal/services"
	"mediatool/internal/testsupport"
)

type fakeProvider struct {
	entry     archive.Entry
	extracted []string
}

func (f *fakeProvider) First(string) (archive.Entry, error) { return f.entry, nil }

func (f *fakeProvider) Extract(path string, entry archive.Entry, destDir string, _ bool) (string, error) {
	f.extracted = append(f.extracted, path)
	dest := filepath.Join(destDir, filepath.Base(entry.Name))
	return dest, os.WriteFile(dest, []byte("movie"), 0o644)
}

func newUnpacker(t *testing.T, mode string, simulate bool) (*Unpacker, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Removal.Mode = mode
	remover := fileutil.NewRemover(mode, cfg.Paths.TrashDir, "run-1")
	u := New(cfg, logging.NewNop(), remover, simulate)
	u.checkSpace = func(string, int64, int64, int64) error { return nil }
	return u, cfg.Paths.TrashDir
}

func writeZip(t *testing.T, path, entry, content string) {
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
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestExtractsZipAndTrashesArchive(t *testing.T) {
	u, trash := newUnpacker(t, fileutil.ModeTrash, false)
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "Movie.2001.zip")
	writeZip(t, zipPath, "inner/Movie.2001.mkv", "frames")

	out, err := u.Execute(context.Background(), mediaitem.New(zipPath))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := filepath.Join(dir, "Movie.2001.mkv")
	if out.Path != want || !out.HasTag(mediaitem.TagExtract) || out.Failed() {
		t.Fatalf("unexpected item %+v", out)
	}
	if data, err := os.ReadFile(want); err != nil || string(data) != "frames" {
		t.Fatalf("extracted content %q, %v", data, err)
	}
	if fileutil.Exists(zipPath) {
		t.Fatal("archive should be removed after extraction")
	}
	if !fileutil.Exists(filepath.Join(trash, "run-1", "Movie.2001.zip")) {
		t.Fatal("archive should be in the trash")
	}
}

func TestMultiPartRemovesEveryVolume(t *testing.T) {
	u, _ := newUnpacker(t, fileutil.ModeDelete, false)
	fake := &fakeProvider{entry: archive.Entry{Name: "movie.mkv", Size: 5}}
	u.archives = fake
	dir := t.TempDir()
	for _, name := range []string{"movie.part1.rar", "movie.part2.rar", "movie.part3.rar"} {
		testsupport.WriteFile(t, filepath.Join(dir, name), 16)
	}

	second, err := u.Execute(context.Background(), mediaitem.New(filepath.Join(dir, "movie.part2.rar")))
	if err != nil {
		t.Fatalf("Execute part2: %v", err)
	}
	if second.Modified || len(fake.extracted) != 0 {
		t.Fatal("a later volume must not trigger extraction")
	}

	out, err := u.Execute(context.Background(), mediaitem.New(filepath.Join(dir, "movie.part1.rar")))
	if err != nil {
		t.Fatalf("Execute part1: %v", err)
	}
	if out.Path != filepath.Join(dir, "movie.mkv") {
		t.Fatalf("unexpected path %q", out.Path)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "movie.mkv" {
		t.Fatalf("expected only the extracted file, found %v", entries)
	}
}

func TestSimulationLeavesFilesystemAlone(t *testing.T) {
	u, trash := newUnpacker(t, fileutil.ModeTrash, true)
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "Movie.2001.zip")
	writeZip(t, zipPath, "Movie.2001.mkv", "frames")

	out, err := u.Execute(context.Background(), mediaitem.New(zipPath))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.HasTag(mediaitem.TagExtract) || out.Path != filepath.Join(dir, "Movie.2001.mkv") {
		t.Fatalf("simulation should report the extraction: %+v", out)
	}
	if !fileutil.Exists(zipPath) || fileutil.Exists(out.Path) {
		t.Fatal("simulation must not touch the filesystem")
	}
	if fileutil.Exists(trash) {
		t.Fatal("simulation must not create the trash")
	}
}

func TestInsufficientSpaceFailsItem(t *testing.T) {
	for _, simulate := range []bool{false, true} {
		u, _ := newUnpacker(t, fileutil.ModeTrash, simulate)
		u.checkSpace = func(dir string, size, _, _ int64) error {
			return services.Wrap(services.ErrValidation, "fileutil", "free space", "not enough free space in "+dir, nil)
		}
		var logs bytes.Buffer
		u.logger = slog.New(slog.NewTextHandler(&logs, nil))
		dir := t.TempDir()
		zipPath := filepath.Join(dir, "big.zip")
		writeZip(t, zipPath, "big.mkv", "frames")

		out, err := u.Execute(context.Background(), mediaitem.New(zipPath))
		if err != nil {
			t.Fatalf("simulate=%v: Execute: %v", simulate, err)
		}
		if !out.Failed() || out.HasTag(mediaitem.TagExtract) || out.Path != zipPath {
			t.Fatalf("simulate=%v: expected failure without extraction: %+v", simulate, out)
		}
		if fileutil.Exists(filepath.Join(dir, "big.mkv")) || !fileutil.Exists(zipPath) {
			t.Fatalf("simulate=%v: filesystem changed", simulate)
		}
		reported := strings.Contains(logs.String(), "would extract archive") && strings.Contains(logs.String(), "enough_space=false")
		if reported != simulate {
			t.Fatalf("simulate=%v: extraction report mismatch in logs:\n%s", simulate, logs.String())
		}
	}
}

func TestIgnoresNonArchives(t *testing.T) {
	u, _ := newUnpacker(t, fileutil.ModeTrash, false)
	item := mediaitem.New("/lib/movie.mkv")
	out, err := u.Execute(context.Background(), item)
	if err != nil || out.Modified {
		t.Fatalf("non-archive should pass through: %+v %v", out, err)
	}
}
