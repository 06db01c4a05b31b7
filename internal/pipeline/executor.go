// Package pipeline turns an unordered directory of heterogeneous video
// clips into one normalized file and republishes it as an HLS asset. The
// run is a fixed nine-stage sequence; any stage failure aborts the rest,
// cleans up scratch state, and leaves the previously published stream
// untouched.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/KaTsUAfk/Admin-Panel/internal/config"
)

var stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "kiosk_pipeline_stage_duration_seconds",
	Help:    "Wall-clock duration per pipeline stage",
	Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
}, []string{"stage"})

// Engine is the external transcoding boundary. Implementations must report
// each invocation as a single final result and must not leave partial
// outputs behind on failure.
type Engine interface {
	Normalize(ctx context.Context, inputPath, outputPath string) error
	Concat(ctx context.Context, manifestPath, outputPath string, reencode bool) error
	Segment(ctx context.Context, inputPath, outputDir string, segmentSeconds int) error
}

// Options tune executor behavior per process.
type Options struct {
	SegmentSeconds int
	// StrictEmpty makes an empty source directory a hard ErrNoInputClips
	// failure instead of a silent successful no-op.
	StrictEmpty bool
	// NormalizeWorkers bounds parallelism of the per-clip normalization
	// stage. Values below 1 mean sequential execution. Output ordering is
	// index-based and unaffected by execution order.
	NormalizeWorkers int
}

// Executor runs the pipeline for one city at a time. It holds no run state
// of its own; single-flight admission is the guard's job.
type Executor struct {
	eng  Engine
	opts Options
	log  zerolog.Logger
}

// New creates an Executor.
func New(eng Engine, opts Options, logger zerolog.Logger) *Executor {
	if opts.SegmentSeconds <= 0 {
		opts.SegmentSeconds = 5
	}
	if opts.NormalizeWorkers < 1 {
		opts.NormalizeWorkers = 1
	}
	return &Executor{eng: eng, opts: opts, log: logger}
}

// layout collects every path a run may create.
type layout struct {
	videoDir   string
	publishDir string
	scratchDir string
	manifest   string
	merged     string
	staging    string
	runLog     string
}

func newLayout(city config.City) layout {
	return layout{
		videoDir:   city.VideoDir,
		publishDir: city.PublishDir,
		scratchDir: filepath.Join(city.VideoDir, scratchDirName),
		manifest:   filepath.Join(city.VideoDir, manifestName),
		merged:     filepath.Join(city.VideoDir, mergedName),
		staging:    filepath.Join(city.PublishDir, ".staging"),
		runLog:     filepath.Join(city.VideoDir, runLogName),
	}
}

// Run executes all stages for the given city, invoking report after each
// completed stage. The returned error is nil only when every stage finished
// (or the source directory was empty in lenient mode).
func (e *Executor) Run(ctx context.Context, city config.City, report func(Event)) (err error) {
	paths := newLayout(city)
	completed := 0

	defer func() {
		if err != nil {
			e.cleanupArtifacts(paths)
		}
	}()

	step := func(s Stage) {
		completed++
		ev := Event{
			Stage:     s,
			Completed: completed,
			Progress:  ProgressPercent(completed),
			Label:     s.Label(),
		}
		e.appendRunLog(paths.runLog, fmt.Sprintf("%d%% - %s", ev.Progress, ev.Label))
		e.log.Info().
			Str("stage", ev.Label).
			Int("progress", ev.Progress).
			Msg("stage complete")
		if report != nil {
			report(ev)
		}
	}

	runStage := func(s Stage, fn func() error) error {
		start := time.Now()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &StageError{Stage: s, Err: ctxErr}
		}
		if stageErr := fn(); stageErr != nil {
			return &StageError{Stage: s, Err: stageErr}
		}
		stageDuration.WithLabelValues(s.Label()).Observe(time.Since(start).Seconds())
		step(s)
		return nil
	}

	// 1. Resetting: drop any stale merged output from a previous run.
	if err = runStage(StageResetting, func() error {
		return removeIfExists(paths.merged)
	}); err != nil {
		return err
	}

	// 2. Preparing: the scratch workspace must exist before normalization.
	if err = runStage(StagePreparing, func() error {
		return os.MkdirAll(paths.scratchDir, 0o755)
	}); err != nil {
		return err
	}

	// 3. Enumerating: fixed lexicographic order defines playback order.
	var clips []string
	if err = runStage(StageEnumerating, func() error {
		var listErr error
		clips, listErr = enumerateClips(paths.videoDir)
		return listErr
	}); err != nil {
		return err
	}

	if len(clips) == 0 {
		if e.opts.StrictEmpty {
			err = &StageError{Stage: StageEnumerating, Err: ErrNoInputClips}
			return err
		}
		e.log.Warn().Str("dir", paths.videoDir).Msg("no input clips, nothing to publish")
		e.cleanupArtifacts(paths)
		return nil
	}

	// 4. Normalizing: every clip gets the canonical encoding. Output names
	// are indexed by discovery position so execution order cannot reorder
	// playback.
	normalized := make([]string, len(clips))
	if err = runStage(StageNormalizing, func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.opts.NormalizeWorkers)
		for i, clip := range clips {
			clip := clip
			out := filepath.Join(paths.scratchDir, fmt.Sprintf("normalized_%03d.mp4", i+1))
			normalized[i] = out
			in := filepath.Join(paths.videoDir, clip)
			g.Go(func() error {
				e.log.Debug().Str("clip", clip).Str("out", out).Msg("normalizing clip")
				return e.eng.Normalize(gctx, in, out)
			})
		}
		return g.Wait()
	}); err != nil {
		return err
	}

	// 5. ManifestBuilding.
	if err = runStage(StageManifestBuilding, func() error {
		return writeManifest(paths.manifest, normalized)
	}); err != nil {
		return err
	}

	// 6. Concatenating: stream copy first; on failure fall back to a full
	// re-encode. Only the fallback's error is fatal.
	if err = runStage(StageConcatenating, func() error {
		fastErr := e.eng.Concat(ctx, paths.manifest, paths.merged, false)
		if fastErr == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fastErr
		}
		e.log.Warn().Err(fastErr).Msg("stream-copy concat failed, re-encoding")
		return e.eng.Concat(ctx, paths.manifest, paths.merged, true)
	}); err != nil {
		return err
	}

	// 7. Publishing: copy the merged file into a staging area inside the
	// serving directory. The live playlist stays untouched until the new
	// stream is fully segmented. A hard-crashed run can leave a populated
	// staging directory behind, so it is reset before use; swapPublished
	// promotes every staging entry and must never see stale segments.
	if err = runStage(StagePublishing, func() error {
		if mkErr := os.MkdirAll(paths.publishDir, 0o755); mkErr != nil {
			return mkErr
		}
		if rmErr := os.RemoveAll(paths.staging); rmErr != nil {
			return rmErr
		}
		if mkErr := os.MkdirAll(paths.staging, 0o755); mkErr != nil {
			return mkErr
		}
		return copyFile(paths.merged, filepath.Join(paths.staging, mergedName))
	}); err != nil {
		return err
	}

	// 8. Segmenting: build playlist + segments in staging, drop the
	// intermediate whole-file copy, then swap the new stream in.
	if err = runStage(StageSegmenting, func() error {
		stagedMerged := filepath.Join(paths.staging, mergedName)
		if segErr := e.eng.Segment(ctx, stagedMerged, paths.staging, e.opts.SegmentSeconds); segErr != nil {
			return segErr
		}
		if rmErr := os.Remove(stagedMerged); rmErr != nil {
			return rmErr
		}
		return swapPublished(paths.staging, paths.publishDir)
	}); err != nil {
		return err
	}

	// 9. CleaningUp: only the playlist and segments persist.
	if err = runStage(StageCleaningUp, func() error {
		return e.removeScratch(paths)
	}); err != nil {
		return err
	}

	return nil
}

// removeScratch deletes every intermediate artifact in the video directory.
func (e *Executor) removeScratch(paths layout) error {
	if err := os.RemoveAll(paths.scratchDir); err != nil {
		return err
	}
	if err := removeIfExists(paths.manifest); err != nil {
		return err
	}
	return removeIfExists(paths.merged)
}

// cleanupArtifacts is the best-effort failure path: whatever scratch state
// exists gets removed, the published stream is left alone.
func (e *Executor) cleanupArtifacts(paths layout) {
	if err := e.removeScratch(paths); err != nil {
		e.log.Warn().Err(err).Msg("scratch cleanup failed")
	}
	if err := os.RemoveAll(paths.staging); err != nil {
		e.log.Warn().Err(err).Msg("staging cleanup failed")
	}
}

// swapPublished replaces the served playlist and segments with the staged
// ones. Renames stay within one directory tree so they do not cross
// filesystems.
func swapPublished(staging, publishDir string) error {
	old, err := filepath.Glob(filepath.Join(publishDir, "stream*"))
	if err != nil {
		return err
	}
	for _, f := range old {
		if rmErr := os.Remove(f); rmErr != nil {
			return rmErr
		}
	}

	entries, err := os.ReadDir(staging)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		from := filepath.Join(staging, entry.Name())
		to := filepath.Join(publishDir, entry.Name())
		if mvErr := os.Rename(from, to); mvErr != nil {
			return mvErr
		}
	}
	return os.RemoveAll(staging)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 -- paths derive from operator config
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644) // #nosec G304
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// appendRunLog leaves a human-readable breadcrumb next to the source clips.
// Kiosk operators without log aggregation read this file over SFTP.
func (e *Executor) appendRunLog(path, line string) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) // #nosec G304
	if err != nil {
		e.log.Debug().Err(err).Msg("run log unavailable")
		return
	}
	defer func() { _ = f.Close() }()
	_, _ = fmt.Fprintf(f, "[%s] %s\n", time.Now().Format(time.RFC3339), line)
}
