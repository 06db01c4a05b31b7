// Package guard enforces single-flight execution of the publishing pipeline
// and exposes a lock-free status snapshot for high-frequency polling.
//
// Exactly one pipeline run may be in flight per process, regardless of which
// city it targets. Terminal states stay visible for a short grace window so
// a client polling every second or two observes completion or failure at
// least once before the guard resets to idle.
package guard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/KaTsUAfk/Admin-Panel/internal/config"
	"github.com/KaTsUAfk/Admin-Panel/internal/pipeline"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_pipeline_runs_total",
		Help: "Completed pipeline runs by result",
	}, []string{"result"})

	runsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kiosk_pipeline_runs_in_flight",
		Help: "Whether a pipeline run is currently executing (0 or 1)",
	})

	rejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kiosk_pipeline_start_rejected_total",
		Help: "Start requests rejected because a run was already in flight",
	})
)

// ErrAlreadyRunning is returned when a start request arrives while a run is
// in flight. Requests are rejected, never queued.
var ErrAlreadyRunning = errors.New("pipeline already running")

// Snapshot is the poller-facing view of the current (or just-finished) run.
// Values are immutable once published.
type Snapshot struct {
	IsRunning   bool
	Progress    int
	CurrentStep string
	City        string
	RunID       string
	StartedAt   time.Time
	LastError   string
}

// RunFunc executes one pipeline run, reporting stage completions.
type RunFunc func(ctx context.Context, city config.City, report func(pipeline.Event)) error

// Guard owns the process-wide run flag and status snapshot.
type Guard struct {
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	snap    atomic.Pointer[Snapshot]

	run      RunFunc
	registry *config.Registry
	timeout  time.Duration
	grace    time.Duration
	log      zerolog.Logger

	wg           sync.WaitGroup
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// New creates a Guard. timeout bounds one run's total wall-clock time; grace
// is how long terminal status stays visible before the guard resets to idle.
func New(run RunFunc, registry *config.Registry, timeout, grace time.Duration, logger zerolog.Logger) *Guard {
	g := &Guard{
		run:        run,
		registry:   registry,
		timeout:    timeout,
		grace:      grace,
		log:        logger,
		shutdownCh: make(chan struct{}),
	}
	g.snap.Store(&Snapshot{})
	return g
}

// Start begins a run for the given city and returns immediately. The run
// itself executes on a background goroutine; completion is observable only
// through Status.
func (g *Guard) Start(cityID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		rejectedTotal.Inc()
		g.log.Warn().Str("city", cityID).Msg("start rejected, run already in flight")
		return ErrAlreadyRunning
	}

	city, err := g.registry.Lookup(cityID)
	if err != nil {
		return err
	}

	var runCtx context.Context
	var cancel context.CancelFunc
	if g.timeout > 0 {
		runCtx, cancel = context.WithTimeout(context.Background(), g.timeout)
	} else {
		runCtx, cancel = context.WithCancel(context.Background())
	}

	runID := uuid.NewString()
	g.running = true
	g.cancel = cancel
	runsInFlight.Set(1)
	g.snap.Store(&Snapshot{
		IsRunning:   true,
		Progress:    0,
		CurrentStep: "starting",
		City:        cityID,
		RunID:       runID,
		StartedAt:   time.Now(),
	})

	g.log.Info().Str("city", cityID).Str("run_id", runID).Msg("pipeline run started")

	g.wg.Add(1)
	go g.execute(runCtx, cancel, cityID, runID, city)

	return nil
}

// Status returns the current snapshot. It never blocks on the run and is
// safe for concurrent use by many pollers.
func (g *Guard) Status() Snapshot {
	return *g.snap.Load()
}

// Wait blocks until any in-flight run and its grace reset have finished.
// Used by tests and after Shutdown.
func (g *Guard) Wait() {
	g.wg.Wait()
}

// Shutdown cancels any in-flight run and waits for its bookkeeping to
// finish. The cancelled run ends in the error terminal state.
func (g *Guard) Shutdown() {
	g.shutdownOnce.Do(func() { close(g.shutdownCh) })
	g.mu.Lock()
	if g.cancel != nil {
		g.cancel()
	}
	g.mu.Unlock()
	g.wg.Wait()
}

func (g *Guard) execute(ctx context.Context, cancel context.CancelFunc, cityID, runID string, city config.City) {
	defer g.wg.Done()
	defer cancel()

	report := func(ev pipeline.Event) {
		cur := g.snap.Load()
		next := *cur
		next.Progress = ev.Progress
		next.CurrentStep = ev.Label
		g.snap.Store(&next)
	}

	err := g.run(ctx, city, report)

	cur := g.snap.Load()
	next := *cur
	switch {
	case err == nil:
		next.Progress = 100
		next.CurrentStep = "done"
		next.LastError = ""
		runsTotal.WithLabelValues("ok").Inc()
		g.log.Info().Str("city", cityID).Str("run_id", runID).Msg("pipeline run completed")
	case ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		next.Progress = 0
		next.CurrentStep = "error"
		next.LastError = "run exceeded the " + g.timeout.String() + " deadline"
		runsTotal.WithLabelValues("timeout").Inc()
		g.log.Error().Str("city", cityID).Str("run_id", runID).Err(err).Msg("pipeline run timed out")
	default:
		next.Progress = 0
		next.CurrentStep = "error"
		next.LastError = err.Error()
		runsTotal.WithLabelValues("error").Inc()
		g.log.Error().Str("city", cityID).Str("run_id", runID).Err(err).Msg("pipeline run failed")
	}
	g.snap.Store(&next)

	// Terminal state grace window, then reset to idle. Shutdown skips the
	// wait so the process can exit without serving the terminal snapshot.
	if g.grace > 0 {
		timer := time.NewTimer(g.grace)
		select {
		case <-timer.C:
		case <-g.shutdownCh:
			timer.Stop()
		}
	}

	g.mu.Lock()
	g.running = false
	g.cancel = nil
	runsInFlight.Set(0)
	g.snap.Store(&Snapshot{LastError: next.LastError})
	g.mu.Unlock()
}
