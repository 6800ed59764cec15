package ffprobe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goffprobe "gopkg.in/vansante/go-ffprobe.v2"

	"mediatool/internal/services"
)

// probeFunc defines the function signature used to execute ffprobe.
type probeFunc func(ctx context.Context, path string, extraOpts ...string) (*goffprobe.ProbeData, error)

// Verifier confirms that a remuxed container holds a video stream and no
// subtitle streams.
type Verifier struct {
	probe   probeFunc
	timeout time.Duration
}

// NewVerifier points go-ffprobe at binary and returns a Verifier whose probes
// are cancelled after timeout. A zero timeout waits for the probe to exit.
func NewVerifier(binary string, timeout time.Duration) *Verifier {
	if binary = strings.TrimSpace(binary); binary != "" {
		goffprobe.SetFFProbeBinPath(binary)
	}
	return &Verifier{probe: goffprobe.ProbeURL, timeout: timeout}
}

// Verify probes path and checks the remux output shape.
func (v *Verifier) Verify(ctx context.Context, path string) error {
	probeCtx := ctx
	if v.timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}
	data, err := v.probe(probeCtx, path)
	if err != nil {
		if ctx.Err() == nil && errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "ffprobe", "verify",
				fmt.Sprintf("no exit within %s", v.timeout), err)
		}
		return services.Wrap(services.ErrExternalTool, "ffprobe", "verify", "probe remux output", err)
	}
	if data == nil || data.FirstVideoStream() == nil {
		return services.Wrap(services.ErrValidation, "ffprobe", "verify", "remux output has no video stream", nil)
	}
	if data.FirstSubtitleStream() != nil {
		return services.Wrap(services.ErrValidation, "ffprobe", "verify", "remux output still carries subtitles", nil)
	}
	return nil
}
