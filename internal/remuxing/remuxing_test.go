package remuxing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mediatool/internal/fileutil"
	"mediatool/internal/logging"
	"mediatool/internal/media/ffprobe"
	"mediatool/internal/mediaitem"
	"mediatool/internal/services"
	"mediatool/internal/testsupport"
)

type fakeProber struct {
	result ffprobe.Result
	err    error
	calls  int
}

func (f *fakeProber) Inspect(context.Context, string) (ffprobe.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeTranscoder struct {
	subtitleBytes int64
	remuxBytes    int64
	remuxErr      error
	calls         []string
}

func (f *fakeTranscoder) ExtractSubtitle(_ context.Context, _ string, _ int, out string, _ time.Duration) error {
	f.calls = append(f.calls, "subtitle")
	return writeBytes(out, f.subtitleBytes)
}

func (f *fakeTranscoder) Remux(_ context.Context, _ string, _ int, out string, _ time.Duration) error {
	f.calls = append(f.calls, "remux")
	if f.remuxErr != nil {
		return f.remuxErr
	}
	return writeBytes(out, f.remuxBytes)
}

func (f *fakeTranscoder) Merge(_ context.Context, _, _ string, out string, _ time.Duration) error {
	f.calls = append(f.calls, "merge")
	return writeBytes(out, 64)
}

type fakeVerifier struct{ err error }

func (f fakeVerifier) Verify(context.Context, string) error { return f.err }

func writeBytes(path string, n int64) error {
	return os.WriteFile(path, make([]byte, n), 0o644)
}

func stream(index int, codecType, codec, lang string) ffprobe.Stream {
	s := ffprobe.Stream{Index: index, CodecType: codecType, CodecName: codec}
	if lang != "" {
		s.Tags = map[string]string{"language": lang}
	}
	return s
}

type fixture struct {
	extractor  *Extractor
	prober     *fakeProber
	transcoder *fakeTranscoder
	dir        string
	input      string
}

func newFixture(t *testing.T, simulate bool, streams ...ffprobe.Stream) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Media.MinSubtitleBytes = 100
	cfg.Media.MaxRemuxShrinkBytes = 1000
	dir := t.TempDir()
	input := filepath.Join(dir, "Movie (2001).mkv")
	testsupport.WriteFile(t, input, 4000)

	f := &fixture{
		prober:     &fakeProber{result: ffprobe.Result{Streams: streams}},
		transcoder: &fakeTranscoder{subtitleBytes: 500, remuxBytes: 3900},
		dir:        dir,
		input:      input,
	}
	f.extractor = NewExtractor(cfg, logging.NewNop(), Tools{
		Prober:     f.prober,
		Transcoder: f.transcoder,
		Verifier:   fakeVerifier{},
		Remover:    fileutil.NewRemover(fileutil.ModeDelete, cfg.Paths.TrashDir, "run"),
	}, simulate)
	f.extractor.checkSpace = func(string, int64, int64, int64) error { return nil }
	return f
}

func (f *fixture) item() mediaitem.Item {
	return mediaitem.New(f.input).WithRipper("PSA")
}

var safeStreams = []ffprobe.Stream{
	stream(0, "video", "hevc", ""),
	stream(1, "audio", "aac", "eng"),
	stream(2, "subtitle", "subrip", "eng"),
	stream(3, "audio", "aac", "und"),
}

func TestExtractAndRemux(t *testing.T) {
	f := newFixture(t, false, safeStreams...)
	out, err := f.extractor.Execute(context.Background(), f.item())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := filepath.Join(f.dir, "Movie (2001).mp4")
	if out.Path != want || out.Failed() {
		t.Fatalf("unexpected item %+v", out)
	}
	if diff := cmp.Diff([]string{mediaitem.TagSubtitle, mediaitem.TagConvert}, out.Tags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
	if !fileutil.Exists(filepath.Join(f.dir, "Movie (2001).srt")) {
		t.Fatal("sidecar missing")
	}
	if fileutil.Exists(f.input) {
		t.Fatal("input should be removed after a verified remux")
	}
}

func TestAmbiguousAudioSkipsRemux(t *testing.T) {
	f := newFixture(t, false,
		stream(0, "video", "hevc", ""),
		stream(1, "audio", "ac3", "und"),
		stream(2, "audio", "aac", "und"),
	)
	out, err := f.extractor.Execute(context.Background(), f.item())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Modified || out.Path != f.input {
		t.Fatalf("unsafe container change must leave the file: %+v", out)
	}
	if len(f.transcoder.calls) != 0 {
		t.Fatalf("unexpected ffmpeg calls %v", f.transcoder.calls)
	}
}

func TestShrunkOutputFailsItem(t *testing.T) {
	f := newFixture(t, false, safeStreams...)
	f.transcoder.remuxBytes = 10
	out, err := f.extractor.Execute(context.Background(), f.item())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.Failed() {
		t.Fatal("expected failure")
	}
	if !fileutil.Exists(f.input) || fileutil.Exists(filepath.Join(f.dir, "Movie (2001).mp4")) {
		t.Fatal("input must be kept and output discarded")
	}
}

func TestVerificationFailureKeepsInput(t *testing.T) {
	f := newFixture(t, false, safeStreams...)
	f.extractor.tools.Verifier = fakeVerifier{err: services.Wrap(services.ErrValidation, "ffprobe", "verify", "no video", nil)}
	_, err := f.extractor.Execute(context.Background(), f.item())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !fileutil.Exists(f.input) {
		t.Fatal("input must be kept")
	}
}

func TestSimulationDoesNotWrite(t *testing.T) {
	f := newFixture(t, true, safeStreams...)
	out, err := f.extractor.Execute(context.Background(), f.item())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if diff := cmp.Diff([]string{mediaitem.TagSubtitle, mediaitem.TagConvert}, out.Tags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
	if out.Path != f.input || len(f.transcoder.calls) != 0 {
		t.Fatalf("simulation must not run ffmpeg: %v", f.transcoder.calls)
	}
	entries, _ := os.ReadDir(f.dir)
	if len(entries) != 1 {
		t.Fatalf("simulation wrote files: %v", entries)
	}
}

func TestSimulatedExtractionSkipsProbe(t *testing.T) {
	f := newFixture(t, true, safeStreams...)
	item := mediaitem.New(filepath.Join(f.dir, "absent.mkv")).WithTag(mediaitem.TagExtract)
	if _, err := f.extractor.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if f.prober.calls != 0 {
		t.Fatal("probe should be skipped")
	}
}

func TestNonRemuxContainerIsOnlyClassified(t *testing.T) {
	f := newFixture(t, false, safeStreams...)
	mp4 := filepath.Join(f.dir, "Clip.mp4")
	testsupport.WriteFile(t, mp4, 10)
	out, err := f.extractor.Execute(context.Background(), mediaitem.New(mp4))
	if err != nil || out.Modified {
		t.Fatalf("mp4 should be probed only: %+v %v", out, err)
	}
	if f.prober.calls != 1 {
		t.Fatalf("expected one probe, got %d", f.prober.calls)
	}
}

func TestEmptyProbeIsFatal(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.extractor.Execute(context.Background(), f.item())
	if !services.IsFatal(err) {
		t.Fatalf("expected invariant error, got %v", err)
	}
}

func TestMergeReplacesInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "Movie (2001).mp4")
	sidecar := filepath.Join(dir, "Movie (2001).srt")
	testsupport.WriteFile(t, input, 32)
	testsupport.WriteFile(t, sidecar, 8)

	transcoder := &fakeTranscoder{}
	m := NewMerger(cfg, logging.NewNop(), Tools{
		Transcoder: transcoder,
		Remover:    fileutil.NewRemover(fileutil.ModeDelete, cfg.Paths.TrashDir, "run"),
	}, false)

	out, err := m.Execute(context.Background(), mediaitem.New(input))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.HasTag(mediaitem.TagMerge) || out.Path != input {
		t.Fatalf("unexpected item %+v", out)
	}
	info, err := os.Stat(input)
	if err != nil || info.Size() != 64 {
		t.Fatalf("input should hold the merged container: %v %v", info, err)
	}
	if fileutil.Exists(sidecar) {
		t.Fatal("sidecar should be removed after merging")
	}
}

func TestMergeWithoutSidecarIsNoOp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	input := filepath.Join(t.TempDir(), "Movie (2001).mp4")
	testsupport.WriteFile(t, input, 32)
	transcoder := &fakeTranscoder{}
	m := NewMerger(cfg, logging.NewNop(), Tools{Transcoder: transcoder}, false)
	out, err := m.Execute(context.Background(), mediaitem.New(input))
	if err != nil || out.Modified || len(transcoder.calls) != 0 {
		t.Fatalf("expected no-op: %+v %v %v", out, err, transcoder.calls)
	}
}
