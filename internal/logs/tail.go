package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const defaultPoll = 250 * time.Millisecond

// Options selects which lines Tail emits.
type Options struct {
	// Limit keeps only the last Limit matching lines of the existing file.
	// Zero keeps all of them.
	Limit int
	// RunID, when set, keeps only lines that mention the run.
	RunID  string
	Follow bool
	Poll   time.Duration
}

func (o Options) matches(line string) bool {
	return o.RunID == "" || strings.Contains(line, o.RunID)
}

// Tail emits the matching lines of path. With Follow it keeps polling for
// appended lines until ctx is done, which is not reported as an error.
func Tail(ctx context.Context, path string, opts Options, emit func(string) error) error {
	lines, offset, err := readMatching(path, 0, opts)
	if err != nil {
		return err
	}
	if opts.Limit > 0 && len(lines) > opts.Limit {
		lines = lines[len(lines)-opts.Limit:]
	}
	for _, line := range lines {
		if err := emit(line); err != nil {
			return err
		}
	}
	if !opts.Follow {
		return nil
	}

	poll := opts.Poll
	if poll <= 0 {
		poll = defaultPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		more, next, err := readMatching(path, offset, opts)
		if err != nil {
			return err
		}
		if next < offset {
			// truncated or rotated; start over from the top
			more, next, err = readMatching(path, 0, opts)
			if err != nil {
				return err
			}
		}
		offset = next
		for _, line := range more {
			if err := emit(line); err != nil {
				return err
			}
		}
	}
}

// readMatching returns the complete matching lines after offset and the
// offset just past the last complete line. A missing file reads as empty.
func readMatching(path string, offset int64, opts Options) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, offset, fmt.Errorf("log path %q is a directory", path)
	}
	if info.Size() < offset {
		return nil, info.Size(), nil
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	var lines []string
	for {
		chunk, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			// a partial last line is picked up on the next read
			break
		}
		if err != nil {
			return nil, offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(chunk))
		line := strings.TrimRight(chunk, "\r\n")
		if opts.matches(line) {
			lines = append(lines, line)
		}
	}
	return lines, offset, nil
}
