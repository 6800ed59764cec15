package procrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"mediatool/internal/logging"
	"mediatool/internal/services"
)

// ErrEmptyOutput reports a successful exit that produced no output when
// output was required.
var ErrEmptyOutput = errors.New("empty output")

// Stream selects which process output the runner captures.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Command describes a single invocation.
type Command struct {
	Binary  string
	Args    []string
	Dir     string
	Capture Stream
	// Timeout bounds the wait. Zero waits until exit or cancellation.
	Timeout time.Duration
	// RequireOutput turns an empty capture after exit code 0 into ErrEmptyOutput.
	RequireOutput bool
}

// Result reports how the process finished.
type Result struct {
	ExitCode int
	Output   []byte
	Duration time.Duration
}

// Success reports a zero exit code.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner executes Commands.
type Runner struct {
	logger        *slog.Logger
	killOnTimeout bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithKillOnTimeout terminates children that outlive their timeout.
func WithKillOnTimeout(enabled bool) Option {
	return func(r *Runner) {
		r.killOnTimeout = enabled
	}
}

// New constructs a Runner.
func New(logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{logger: logging.NewComponentLogger(logger, "procrun")}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Run starts cmd and waits for exit, timeout, or cancellation, whichever
// comes first. Launch failures return services.ErrExternalTool and an
// expired wait returns services.ErrTimeout. A non-zero exit is reported
// through Result.ExitCode with a nil error.
func (r *Runner) Run(ctx context.Context, cmd Command) (Result, error) {
	binary := strings.TrimSpace(cmd.Binary)
	if binary == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "procrun", "run", "binary not configured", nil)
	}
	tool := filepath.Base(binary)
	logger := logging.WithContext(ctx, r.logger).With(logging.String("tool", tool))

	proc := exec.Command(binary, cmd.Args...)
	proc.Dir = cmd.Dir
	var out lockedBuffer
	if cmd.Capture == Stderr {
		proc.Stderr = &out
	} else {
		proc.Stdout = &out
	}

	start := time.Now()
	if err := proc.Start(); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "procrun", "start "+tool, "", err)
	}
	logger.Debug("process started",
		logging.Int("pid", proc.Process.Pid),
		logging.Strings("args", cmd.Args),
		logging.Duration("timeout", cmd.Timeout),
	)

	done := make(chan error, 1)
	go func() {
		done <- proc.Wait()
	}()

	var expired <-chan time.Time
	if cmd.Timeout > 0 {
		timer := time.NewTimer(cmd.Timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case waitErr := <-done:
		res := Result{Output: out.Bytes(), Duration: time.Since(start)}
		if waitErr != nil {
			var exitErr *exec.ExitError
			if !errors.As(waitErr, &exitErr) {
				return res, services.Wrap(services.ErrExternalTool, "procrun", "wait "+tool, "", waitErr)
			}
			res.ExitCode = exitErr.ExitCode()
			logger.Debug("process exited with failure", logging.Int("exit_code", res.ExitCode))
			return res, nil
		}
		if cmd.RequireOutput && len(bytes.TrimSpace(res.Output)) == 0 {
			return res, services.Wrap(services.ErrExternalTool, "procrun", tool,
				fmt.Sprintf("no %s captured", cmd.Capture), ErrEmptyOutput)
		}
		return res, nil
	case <-expired:
		r.abandon(logger, proc, "timeout")
		return Result{Output: out.Bytes(), Duration: time.Since(start)},
			services.Wrap(services.ErrTimeout, "procrun", tool, fmt.Sprintf("no exit within %s", cmd.Timeout), nil)
	case <-ctx.Done():
		r.abandon(logger, proc, "cancelled")
		return Result{Output: out.Bytes(), Duration: time.Since(start)}, ctx.Err()
	}
}

func (r *Runner) abandon(logger *slog.Logger, proc *exec.Cmd, reason string) {
	if !r.killOnTimeout {
		logging.WarnWithContext(logger, "process abandoned while still running", "process_abandoned",
			logging.String("reason", reason),
			logging.Int("pid", proc.Process.Pid),
			logging.String(logging.FieldImpact, "child process may keep running in the background"),
			logging.String(logging.FieldErrorHint, "set tools.kill_on_timeout = true to terminate stalled tools"),
		)
		return
	}
	if err := proc.Process.Kill(); err != nil {
		logger.Debug("kill stalled process failed", logging.Error(err))
		return
	}
	logger.Info("stalled process killed", logging.String("reason", reason), logging.Int("pid", proc.Process.Pid))
}

// lockedBuffer lets the wait goroutine keep writing after Run has returned.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}
