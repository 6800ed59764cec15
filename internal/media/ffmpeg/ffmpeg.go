package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mediatool/internal/procrun"
	"mediatool/internal/services"
)

// Tool runs ffmpeg.
type Tool struct {
	runner *procrun.Runner
	binary string
}

// New constructs a Tool for binary.
func New(runner *procrun.Runner, binary string) *Tool {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Tool{runner: runner, binary: binary}
}

// Binary returns the configured executable.
func (t *Tool) Binary() string {
	return t.binary
}

// SubtitleArgs converts stream index of in to an SRT file at out.
func SubtitleArgs(in string, index int, out string) []string {
	return []string{"-loglevel", "fatal", "-i", in, "-codec:s", "srt", "-map", streamRef(index), out}
}

// RemuxArgs copies all video and the chosen audio stream into out, dropping
// subtitles and chapters.
func RemuxArgs(in string, audioIndex int, out string) []string {
	return []string{
		"-loglevel", "fatal", "-i", in,
		"-map", "0:v", "-map", streamRef(audioIndex),
		"-sn", "-map_chapters", "-1",
		"-codec:v", "copy", "-codec:a", "copy",
		out,
	}
}

// MergeArgs muxes an SRT sidecar into the container as mov_text while copying
// every other stream.
func MergeArgs(in, subtitle, out string) []string {
	return []string{
		"-loglevel", "fatal", "-i", in, "-i", subtitle,
		"-map", "0", "-map", "1:s",
		"-codec", "copy", "-codec:s", "mov_text",
		out,
	}
}

func streamRef(index int) string {
	return "0:" + strconv.Itoa(index)
}

// ExtractSubtitle writes stream index of in to out.
func (t *Tool) ExtractSubtitle(ctx context.Context, in string, index int, out string, timeout time.Duration) error {
	if index < 0 {
		return services.Wrap(services.ErrValidation, "ffmpeg", "extract subtitle", "no subtitle stream selected", nil)
	}
	return t.run(ctx, "extract subtitle", SubtitleArgs(in, index, out), timeout)
}

// Remux writes the selected streams of in to out.
func (t *Tool) Remux(ctx context.Context, in string, audioIndex int, out string, timeout time.Duration) error {
	if audioIndex < 0 {
		return services.Wrap(services.ErrValidation, "ffmpeg", "remux", "no audio stream selected", nil)
	}
	return t.run(ctx, "remux", RemuxArgs(in, audioIndex, out), timeout)
}

// Merge writes in plus the subtitle sidecar to out.
func (t *Tool) Merge(ctx context.Context, in, subtitle, out string, timeout time.Duration) error {
	return t.run(ctx, "merge subtitle", MergeArgs(in, subtitle, out), timeout)
}

func (t *Tool) run(ctx context.Context, operation string, args []string, timeout time.Duration) error {
	res, err := t.runner.Run(ctx, procrun.Command{
		Binary:  t.binary,
		Args:    args,
		Capture: procrun.Stderr,
		Timeout: timeout,
	})
	if err != nil {
		return err
	}
	if !res.Success() {
		detail := fmt.Sprintf("exit code %d", res.ExitCode)
		if msg := strings.TrimSpace(string(res.Output)); msg != "" {
			detail += ": " + firstLine(msg)
		}
		return services.Wrap(services.ErrExternalTool, "ffmpeg", operation, detail, nil)
	}
	return nil
}

// Version runs `ffmpeg -version` and returns the parsed release string.
func (t *Tool) Version(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := t.runner.Run(ctx, procrun.Command{
		Binary:        t.binary,
		Args:          []string{"-version"},
		Capture:       procrun.Stdout,
		Timeout:       timeout,
		RequireOutput: true,
	})
	if err != nil {
		return "", err
	}
	if !res.Success() {
		return "", services.Wrap(services.ErrExternalTool, "ffmpeg", "version", fmt.Sprintf("exit code %d", res.ExitCode), nil)
	}
	version := ParseVersion(string(res.Output))
	if version == "" {
		return "", services.Wrap(services.ErrExternalTool, "ffmpeg", "version", "version banner not recognised", nil)
	}
	return version, nil
}

// ParseVersion extracts the text between "ffmpeg version " and " Copyright".
func ParseVersion(output string) string {
	const (
		startNeedle = "ffmpeg version "
		endNeedle   = " Copyright"
	)
	start := strings.Index(output, startNeedle)
	if start < 0 {
		return ""
	}
	rest := output[start+len(startNeedle):]
	end := strings.Index(rest, endNeedle)
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}
