package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nwaples/rardecode/v2"

	"mediatool/internal/services"
	"mediatool/internal/textutil"
)

// ErrNoEntries reports an archive without a single file entry.
var ErrNoEntries = errors.New("archive has no file entries")

// Kind identifies an archive container format.
type Kind string

const (
	KindRAR   Kind = "rar"
	KindZIP   Kind = "zip"
	KindTar   Kind = "tar"
	KindTarGz Kind = "tar.gz"
)

// Entry is one member of an archive.
type Entry struct {
	Name  string
	Size  int64
	IsDir bool
}

// KindOf infers the archive kind from the file name.
func KindOf(path string) (Kind, bool) {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return KindTarGz, true
	case strings.HasSuffix(name, ".tar"):
		return KindTar, true
	case strings.HasSuffix(name, ".zip"):
		return KindZIP, true
	case strings.HasSuffix(name, ".rar"):
		return KindRAR, true
	}
	return "", false
}

// First returns the first file entry, skipping directories.
func First(path string) (Entry, error) {
	var first Entry
	found := false
	err := walk(path, func(e Entry, _ io.Reader) (bool, error) {
		if e.IsDir {
			return true, nil
		}
		first, found = e, true
		return false, nil
	})
	if err != nil {
		return Entry{}, err
	}
	if !found {
		return Entry{}, services.Wrap(services.ErrValidation, "archive", "list", filepath.Base(path), ErrNoEntries)
	}
	return first, nil
}

// Extract writes entry into destDir under its base name and returns the
// written path. An existing file is replaced only when overwrite is set.
func Extract(path string, entry Entry, destDir string, overwrite bool) (string, error) {
	name := textutil.EntryBaseName(entry.Name)
	if name == "" || entry.IsDir {
		return "", services.Wrap(services.ErrValidation, "archive", "extract", fmt.Sprintf("entry %q is not a file", entry.Name), nil)
	}
	dest := filepath.Join(destDir, name)
	if _, err := os.Stat(dest); err == nil && !overwrite {
		return "", services.Wrap(services.ErrValidation, "archive", "extract", fmt.Sprintf("%s already exists", dest), nil)
	}

	written := false
	err := walk(path, func(e Entry, r io.Reader) (bool, error) {
		if e.Name != entry.Name || e.IsDir {
			return true, nil
		}
		if err := writeFile(dest, r); err != nil {
			return false, err
		}
		written = true
		return false, nil
	})
	if err != nil {
		return "", err
	}
	if !written {
		return "", services.Wrap(services.ErrNotFound, "archive", "extract", fmt.Sprintf("entry %q not found", entry.Name), nil)
	}
	return dest, nil
}

// ExtractAll writes every entry of the archive beneath destDir, keeping the
// stored directory layout, and returns the distinct top-level names it wrote.
// Entries that would escape destDir are rejected.
func ExtractAll(path, destDir string) ([]string, error) {
	seen := make(map[string]bool)
	var roots []string
	err := walk(path, func(e Entry, r io.Reader) (bool, error) {
		rel := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(e.Name, "./")))
		if !filepath.IsLocal(rel) {
			return false, services.Wrap(services.ErrValidation, "archive", "extract", fmt.Sprintf("entry %q escapes destination", e.Name), nil)
		}
		target := filepath.Join(destDir, rel)
		if e.IsDir {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return false, fmt.Errorf("create %s: %w", target, err)
			}
		} else {
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return false, fmt.Errorf("create %s: %w", filepath.Dir(target), err)
			}
			if err := writeFile(target, r); err != nil {
				return false, err
			}
		}
		root := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
		if !seen[root] {
			seen[root] = true
			roots = append(roots, root)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, services.Wrap(services.ErrValidation, "archive", "extract", filepath.Base(path), ErrNoEntries)
	}
	return roots, nil
}

func writeFile(dest string, r io.Reader) error {
	tmp := dest + ".partial"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrValidation, "archive", "extract", "read entry", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	return os.Rename(tmp, dest)
}

// visitFunc receives each entry with a reader positioned at its content.
// Returning false stops the walk.
type visitFunc func(Entry, io.Reader) (bool, error)

func walk(path string, visit visitFunc) error {
	kind, ok := KindOf(path)
	if !ok {
		return services.Wrap(services.ErrValidation, "archive", "open", fmt.Sprintf("unsupported archive %s", filepath.Base(path)), nil)
	}
	var err error
	switch kind {
	case KindRAR:
		err = walkRAR(path, visit)
	case KindZIP:
		err = walkZIP(path, visit)
	default:
		err = walkTar(path, kind == KindTarGz, visit)
	}
	return err
}

func openErr(path string, err error) error {
	return services.Wrap(services.ErrValidation, "archive", "open", "could not open "+filepath.Base(path), err)
}

func walkRAR(path string, visit visitFunc) error {
	rc, err := rardecode.OpenReader(path)
	if err != nil {
		return openErr(path, err)
	}
	defer rc.Close()
	for {
		hdr, err := rc.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return services.Wrap(services.ErrValidation, "archive", "read", "no further archive part", err)
		}
		more, err := visit(Entry{Name: hdr.Name, Size: hdr.UnPackedSize, IsDir: hdr.IsDir}, rc)
		if err != nil || !more {
			return err
		}
	}
}

func walkZIP(path string, visit visitFunc) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return openErr(path, err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		entry := Entry{Name: f.Name, Size: int64(f.UncompressedSize64), IsDir: f.FileInfo().IsDir()}
		more, err := visitZIPEntry(f, entry, visit)
		if err != nil || !more {
			return err
		}
	}
	return nil
}

func visitZIPEntry(f *zip.File, entry Entry, visit visitFunc) (bool, error) {
	if entry.IsDir {
		return visit(entry, strings.NewReader(""))
	}
	rc, err := f.Open()
	if err != nil {
		return false, services.Wrap(services.ErrValidation, "archive", "read", f.Name, err)
	}
	defer rc.Close()
	return visit(entry, rc)
}

func walkTar(path string, gzipped bool, visit visitFunc) error {
	file, err := os.Open(path)
	if err != nil {
		return openErr(path, err)
	}
	defer file.Close()

	var r io.Reader = file
	if gzipped {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return openErr(path, err)
		}
		defer gz.Close()
		r = gz
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return services.Wrap(services.ErrValidation, "archive", "read", filepath.Base(path), err)
		}
		switch hdr.Typeflag {
		case tar.TypeReg, tar.TypeDir:
		default:
			continue
		}
		more, err := visit(Entry{Name: hdr.Name, Size: hdr.Size, IsDir: hdr.Typeflag == tar.TypeDir}, tr)
		if err != nil || !more {
			return err
		}
	}
}
