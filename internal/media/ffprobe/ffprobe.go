package ffprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"mediatool/internal/procrun"
	"mediatool/internal/services"
)

// Codec types reported by ffprobe.
const (
	CodecVideo    = "video"
	CodecAudio    = "audio"
	CodecSubtitle = "subtitle"
	CodecData     = "data"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream
	Format  Format
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index     int               `json:"index"`
	CodecName string            `json:"codec_name"`
	CodecType string            `json:"codec_type"`
	Tags      map[string]string `json:"tags"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

type payload struct {
	Streams *[]Stream `json:"streams"`
	Format  Format    `json:"format"`
}

// Args returns the ffprobe arguments used to list streams of path.
func Args(path string) []string {
	return []string{"-loglevel", "warning", "-print_format", "json", "-show_format", "-show_streams", "-i", path}
}

// Parse decodes ffprobe JSON. Invalid JSON, an absent streams field, or an
// empty stream list return services.ErrInvariant.
func Parse(data []byte) (Result, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Result{}, services.Wrap(services.ErrInvariant, "ffprobe", "parse", "invalid probe json", err)
	}
	if p.Streams == nil {
		return Result{}, services.Wrap(services.ErrInvariant, "ffprobe", "parse", "probe response has no streams field", nil)
	}
	if len(*p.Streams) == 0 {
		return Result{}, services.Wrap(services.ErrInvariant, "ffprobe", "parse", "probe response lists zero streams", nil)
	}
	return Result{Streams: *p.Streams, Format: p.Format}, nil
}

// Prober runs ffprobe through a bounded process runner.
type Prober struct {
	runner  *procrun.Runner
	binary  string
	timeout time.Duration
}

// NewProber constructs a Prober.
func NewProber(runner *procrun.Runner, binary string, timeout time.Duration) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{runner: runner, binary: binary, timeout: timeout}
}

// Inspect probes path. Launch failures, timeouts, non-zero exits and empty
// output are item-level errors; undecodable output is an invariant error.
func (p *Prober) Inspect(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, services.Wrap(services.ErrValidation, "ffprobe", "inspect", "empty path", nil)
	}
	res, err := p.runner.Run(ctx, procrun.Command{
		Binary:        p.binary,
		Args:          Args(path),
		Capture:       procrun.Stdout,
		Timeout:       p.timeout,
		RequireOutput: true,
	})
	if err != nil {
		return Result{}, err
	}
	if !res.Success() {
		return Result{}, services.Wrap(services.ErrExternalTool, "ffprobe", "inspect",
			fmt.Sprintf("exit code %d", res.ExitCode), nil)
	}
	return Parse(res.Output)
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
