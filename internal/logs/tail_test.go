package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mediatool/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mediatool.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func collect(t *testing.T, path string, opts logs.Options) []string {
	t.Helper()
	var got []string
	err := logs.Tail(context.Background(), path, opts, func(line string) error {
		got = append(got, line)
		return nil
	})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	return got
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")
	if diff := cmp.Diff([]string{"b", "c"}, collect(t, path, logs.Options{Limit: 2})); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestTailFiltersByRun(t *testing.T) {
	path := writeLog(t, "run_id=r1 stage start\nrun_id=r2 stage start\nrun_id=r1 item failed\npartial r1")
	want := []string{"run_id=r1 stage start", "run_id=r1 item failed"}
	if diff := cmp.Diff(want, collect(t, path, logs.Options{RunID: "r1"})); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestTailMissingFileIsEmpty(t *testing.T) {
	got := collect(t, filepath.Join(t.TempDir(), "absent.log"), logs.Options{})
	if len(got) != 0 {
		t.Fatalf("expected no lines, got %#v", got)
	}
}

func TestTailFollowPicksUpAppends(t *testing.T) {
	path := writeLog(t, "start\n")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan error, 1)
	go func() {
		done <- logs.Tail(ctx, path, logs.Options{Follow: true, Poll: 10 * time.Millisecond}, func(line string) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, line)
			if line == "later" {
				cancel()
			}
			return nil
		})
	}()

	time.Sleep(50 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	if err := <-done; err != nil {
		t.Fatalf("Tail: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]string{"start", "later"}, got); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
}
