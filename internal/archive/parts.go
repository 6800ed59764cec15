package archive

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var volumePattern = regexp.MustCompile(`(?i)^(.*)part(\d{1,2})\.rar$`)

// Volume reports the volume number of a numbered multi-part RAR name and the
// prefix shared by its siblings.
func Volume(path string) (prefix string, number int, ok bool) {
	m := volumePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}

// IsArchive reports whether path has one of the given archive extensions.
// Extensions are compared without their leading dot; "tar.gz" and "tgz" are
// matched against the compound suffix.
func IsArchive(path string, extensions []string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" && strings.HasSuffix(name, "."+ext) {
			return true
		}
	}
	return false
}

// ShouldExtract reports whether path starts an extraction: any supported
// archive, except numbered RAR volumes other than the first.
func ShouldExtract(path string, extensions []string) bool {
	if !IsArchive(path, extensions) {
		return false
	}
	if _, n, ok := Volume(path); ok {
		return n == 1
	}
	return true
}

// Volumes returns every file belonging to the archive at path: the sibling
// numbered volumes for a multi-part set, otherwise path itself.
func Volumes(path string) ([]string, error) {
	prefix, _, ok := Volume(path)
	if !ok {
		return []string{path}, nil
	}
	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var parts []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		p, _, ok := Volume(entry.Name())
		if ok && strings.EqualFold(p, prefix) {
			parts = append(parts, filepath.Join(dir, entry.Name()))
		}
	}
	slices.Sort(parts)
	return parts, nil
}
