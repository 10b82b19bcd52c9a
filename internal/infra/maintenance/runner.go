// Package maintenance runs the recurring upkeep jobs: result-cache
// sweeps, stats snapshot logging, and the vector-store health probe.
// The runner is owned by the application lifecycle; Stop waits for
// in-flight jobs rather than abandoning them.
package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/registry"
	"webmcpd/internal/infra/telemetry"
	"webmcpd/internal/infra/vectorstore"
)

const (
	statsLogInterval    = time.Minute
	vectorProbeInterval = 30 * time.Second
	probeTimeout        = 5 * time.Second
	stopWait            = 5 * time.Second
)

// Options wires the runner's collaborators. Vector may be nil, which
// skips the probe job; Health may be nil, which skips beats.
type Options struct {
	Cache        domain.ResultCache
	CacheBackend string
	Registry     *registry.Registry
	Vector       *vectorstore.Client
	Health       *telemetry.HealthTracker
	Metrics      domain.Metrics
	Logger       *zap.Logger

	// SweepInterval controls the cache sweep cadence.
	SweepInterval time.Duration
}

// Runner schedules and supervises the maintenance jobs.
type Runner struct {
	cache         domain.ResultCache
	cacheBackend  string
	registry      *registry.Registry
	vector        *vectorstore.Client
	health        *telemetry.HealthTracker
	metrics       domain.Metrics
	logger        *zap.Logger
	sweepInterval time.Duration

	cron     *cron.Cron
	cancel   context.CancelFunc
	stopOnce sync.Once

	cacheBeat  *telemetry.Beat
	statsBeat  *telemetry.Beat
	vectorBeat *telemetry.Beat
}

func NewRunner(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	sweep := opts.SweepInterval
	if sweep <= 0 {
		sweep = domain.DefaultCacheSweepSeconds * time.Second
	}
	backend := opts.CacheBackend
	if backend == "" {
		backend = domain.CacheBackendMemory
	}
	return &Runner{
		cache:         opts.Cache,
		cacheBackend:  backend,
		registry:      opts.Registry,
		vector:        opts.Vector,
		health:        opts.Health,
		metrics:       metrics,
		logger:        logger.Named("maintenance"),
		sweepInterval: sweep,
	}
}

// Start schedules the jobs and begins running them. Safe to call once.
func (r *Runner) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.cron = cron.New(cron.WithSeconds())

	r.cacheBeat = r.registerBeat("cache_sweep", 3*r.sweepInterval)
	r.statsBeat = r.registerBeat("stats_snapshot", 3*statsLogInterval)

	if err := r.schedule("cache_sweep", r.sweepInterval, r.sweepCache); err != nil {
		cancel()
		return err
	}
	if err := r.schedule("stats_snapshot", statsLogInterval, r.logSnapshots); err != nil {
		cancel()
		return err
	}
	if r.vector != nil {
		r.vectorBeat = r.registerBeat("vectorstore_probe", 3*vectorProbeInterval)
		if err := r.schedule("vectorstore_probe", vectorProbeInterval, func() {
			r.probeVector(runCtx)
		}); err != nil {
			cancel()
			return err
		}
	}

	r.cron.Start()
	r.logger.Info("maintenance runner started",
		zap.Duration("sweep_interval", r.sweepInterval))

	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	return nil
}

// Stop cancels the jobs and waits for any in flight to finish.
// Idempotent.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
		if r.cron == nil {
			return
		}
		stopCtx := r.cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(stopWait):
			r.logger.Warn("timeout waiting for maintenance jobs to finish")
		}
		r.logger.Info("maintenance runner stopped")
	})
}

func (r *Runner) registerBeat(name string, ttl time.Duration) *telemetry.Beat {
	if r.health == nil {
		return nil
	}
	return r.health.Register(name, ttl)
}

func (r *Runner) schedule(name string, every time.Duration, job func()) error {
	if _, err := r.cron.AddFunc(fmt.Sprintf("@every %s", every), job); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

func (r *Runner) sweepCache() {
	removed := r.cache.Sweep()
	entries := r.cache.Len()
	r.metrics.SetCacheEntries(r.cacheBackend, entries)
	if removed > 0 {
		r.logger.Debug("cache sweep complete",
			telemetry.EventField(telemetry.EventCacheSweep),
			zap.Int("removed", removed),
			zap.Int("entries", entries),
		)
	}
	if r.cacheBeat != nil {
		r.cacheBeat.Beat()
	}
}

func (r *Runner) logSnapshots() {
	snapshot := r.registry.Stats()
	r.metrics.SetRegisteredTools(snapshot.Tools)
	for _, tool := range r.registry.Tools() {
		breaker := tool.BreakerSnapshot()
		r.metrics.SetBreakerState(tool.Name(), breaker.State)
		stats := tool.Stats()
		r.logger.Info("tool snapshot",
			telemetry.ToolField(tool.Name()),
			telemetry.StateField(string(breaker.State)),
			zap.Uint64("total", stats.TotalExecutions),
			zap.Uint64("successful", stats.SuccessfulExecutions),
			zap.Uint64("failed", stats.FailedExecutions),
			zap.Uint64("cache_hits", stats.CacheHits),
			zap.Duration("average_execution_time", stats.AverageExecutionTime),
		)
	}
	r.logger.Info("registry snapshot",
		zap.Int("tools", snapshot.Tools),
		zap.Int("operations", snapshot.Operations),
		zap.Uint64("total", snapshot.TotalExecutions),
		zap.Uint64("cache_hits", snapshot.CacheHits),
	)
	if r.statsBeat != nil {
		r.statsBeat.Beat()
	}
}

// probeVector beats its health entry only on success, so a collaborator
// outage shows up as a degraded component once the TTL lapses.
func (r *Runner) probeVector(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := r.vector.Health(probeCtx); err != nil {
		r.logger.Warn("vector store probe failed", zap.Error(err))
		return
	}
	if r.vectorBeat != nil {
		r.vectorBeat.Beat()
	}
}
