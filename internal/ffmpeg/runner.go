// Package ffmpeg wraps the external media engine behind three narrow
// operations: per-clip normalization, manifest concatenation, and HLS
// segmentation. Each call is one process invocation with no partial
// progress; outputs are committed by rename so a failed call never leaves
// an artifact a later stage could mistake for complete.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var invocationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "kiosk_ffmpeg_invocations_total",
	Help: "Total ffmpeg invocations by operation and result",
}, []string{"op", "result"})

var invocationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "kiosk_ffmpeg_duration_seconds",
	Help:    "Wall-clock duration of ffmpeg invocations",
	Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
}, []string{"op"})

// stderrTail bounds how many engine log lines an Error carries.
const stderrTail = 25

// Runner invokes the ffmpeg binary. It holds no per-invocation state, so a
// single Runner is safe for use by consecutive pipeline runs.
type Runner struct {
	bin string
	log zerolog.Logger
}

// NewRunner creates a Runner for the given ffmpeg binary path.
func NewRunner(bin string, logger zerolog.Logger) *Runner {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Runner{bin: bin, log: logger}
}

// Normalize transcodes one clip to the canonical kiosk encoding.
func (r *Runner) Normalize(ctx context.Context, inputPath, outputPath string) error {
	return r.runToFile(ctx, "normalize", outputPath, func(tmp string) []string {
		return normalizeArgs(inputPath, tmp)
	})
}

// Concat joins the clips listed in the manifest into one file. With
// reencode=false it stream-copies, which is fast but fails when the source
// streams are not parameter-identical; reencode=true performs a full
// re-encode with the canonical codecs.
func (r *Runner) Concat(ctx context.Context, manifestPath, outputPath string, reencode bool) error {
	return r.runToFile(ctx, "concat", outputPath, func(tmp string) []string {
		return concatArgs(manifestPath, tmp, reencode)
	})
}

// Segment slices the input into fixed-duration HLS segments plus a VOD
// playlist, written directly into outputDir. Callers that need atomicity
// should point outputDir at a staging directory and swap it in on success.
func (r *Runner) Segment(ctx context.Context, inputPath, outputDir string, segmentSeconds int) error {
	if segmentSeconds <= 0 {
		return fmt.Errorf("segment duration must be positive, got %d", segmentSeconds)
	}
	return r.run(ctx, "segment", segmentArgs(inputPath, outputDir, segmentSeconds))
}

// runToFile executes one invocation that produces a single output file,
// writing to a temporary sibling and renaming on success.
func (r *Runner) runToFile(ctx context.Context, op, outputPath string, buildArgs func(tmp string) []string) error {
	tmp := outputPath + ".part.mp4"
	if err := r.run(ctx, op, buildArgs(tmp)); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit %s output: %w", op, err)
	}
	return nil
}

func (r *Runner) run(ctx context.Context, op string, args []string) error {
	ring := NewLineRing(256)
	fullArgs := append([]string{"-nostdin", "-hide_banner", "-y"}, args...)

	cmd := exec.CommandContext(ctx, r.bin, fullArgs...) // #nosec G204 -- binary path from operator config
	cmd.Stderr = ring
	cmd.Stdout = ring

	start := time.Now()
	r.log.Debug().Str("op", op).Str("command", cmd.String()).Msg("starting ffmpeg")

	err := cmd.Run()
	invocationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err == nil {
		invocationTotal.WithLabelValues(op, "ok").Inc()
		return nil
	}

	invocationTotal.WithLabelValues(op, "error").Inc()

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %v", ErrTimeout, ctxErr)
	}

	tail := ring.LastN(stderrTail)
	r.log.Error().
		Str("op", op).
		Int("exit_code", exitCode).
		Strs("stderr", tail).
		Msg("ffmpeg invocation failed")

	return &Error{Op: op, ExitCode: exitCode, Stderr: tail, Err: err}
}
