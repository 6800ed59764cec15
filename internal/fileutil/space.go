package fileutil

import (
	"fmt"

	"golang.org/x/sys/unix"

	"mediatool/internal/services"
)

const mib = 1024 * 1024

// AvailableBytes reports the space available to unprivileged users on the
// filesystem holding path.
func AvailableBytes(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}

// RequiredBytes is size times multiplier plus a fixed headroom.
func RequiredBytes(size, multiplier, headroom int64) int64 {
	if multiplier < 1 {
		multiplier = 1
	}
	return size*multiplier + headroom
}

// EnsureFreeSpace returns a services.ErrValidation error when the filesystem
// holding dir cannot fit RequiredBytes(size, multiplier, headroom).
func EnsureFreeSpace(dir string, size, multiplier, headroom int64) error {
	available, err := AvailableBytes(dir)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "fileutil", "free space", "", err)
	}
	required := RequiredBytes(size, multiplier, headroom)
	if available < required {
		return services.Wrap(services.ErrValidation, "fileutil", "free space",
			fmt.Sprintf("not enough free space in %s: required %d MB, available %d MB", dir, required/mib, available/mib), nil)
	}
	return nil
}
