package stageexec

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"mediatool/internal/mediaitem"
	"mediatool/internal/services"
	"mediatool/internal/stage"
)

func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestRunSkipsFailedItem(t *testing.T) {
	called := false
	handler := stage.Func{StageName: "rename", Fn: func(_ context.Context, item mediaitem.Item) (mediaitem.Item, error) {
		called = true
		return item, nil
	}}
	item := mediaitem.New("/lib/a.mkv").WithFailure("earlier")
	out, err := Run(context.Background(), newLogger(&bytes.Buffer{}), handler, item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Fatal("handler ran on a failed item")
	}
	if out.Failure != "earlier" {
		t.Fatalf("failure changed: %q", out.Failure)
	}
}

func TestRunConvertsItemErrors(t *testing.T) {
	var buf bytes.Buffer
	handler := stage.Func{StageName: "extract-media", Fn: func(_ context.Context, item mediaitem.Item) (mediaitem.Item, error) {
		return item, services.Wrap(services.ErrTimeout, "ffprobe", "run", "timed out after 10s", nil)
	}}
	out, err := Run(context.Background(), newLogger(&buf), handler, mediaitem.New("/lib/a.mkv"))
	if err != nil {
		t.Fatalf("item-level errors must not abort: %v", err)
	}
	if out.Failure != "ffprobe: run: timed out after 10s" {
		t.Fatalf("unexpected failure %q", out.Failure)
	}
	if !strings.Contains(buf.String(), `"event_type":"item_failed"`) {
		t.Fatalf("expected item_failed event, got %s", buf.String())
	}
}

func TestRunReturnsFatalErrors(t *testing.T) {
	var buf bytes.Buffer
	handler := stage.Func{StageName: "rename", Fn: func(_ context.Context, item mediaitem.Item) (mediaitem.Item, error) {
		return item, services.Wrap(services.ErrInvariant, "naming", "simplify path", "separator", nil)
	}}
	_, err := Run(context.Background(), newLogger(&buf), handler, mediaitem.New("/lib/a.mkv"))
	if !errors.Is(err, services.ErrInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
	if !strings.Contains(buf.String(), `"event_type":"stage_failure"`) {
		t.Fatalf("expected stage_failure event, got %s", buf.String())
	}
}

func TestRunLogsCompletion(t *testing.T) {
	var buf bytes.Buffer
	handler := stage.Func{StageName: "rename", Fn: func(_ context.Context, item mediaitem.Item) (mediaitem.Item, error) {
		return item.WithTag(mediaitem.TagRename).WithPath("/lib/B (2001).mkv"), nil
	}}
	out, err := Run(context.Background(), newLogger(&buf), handler, mediaitem.New("/lib/b.2001.mkv"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Modified || out.Path != "/lib/B (2001).mkv" {
		t.Fatalf("unexpected item %+v", out)
	}
	logs := buf.String()
	for _, want := range []string{`"event_type":"stage_start"`, `"event_type":"stage_complete"`, `"stage":"rename"`, `"item_path":"/lib/b.2001.mkv"`} {
		if !strings.Contains(logs, want) {
			t.Fatalf("missing %s in %s", want, logs)
		}
	}
}
