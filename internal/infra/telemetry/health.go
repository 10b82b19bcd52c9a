package telemetry

import (
	"sort"
	"sync"
	"time"
)

// HealthTracker aggregates liveness beats from long-running loops. Each
// loop registers once with a TTL and calls Beat from its body; a loop
// whose last beat is older than its TTL marks the whole report degraded.
type HealthTracker struct {
	mu    sync.Mutex
	now   func() time.Time
	loops map[string]*loopState
}

type loopState struct {
	ttl      time.Duration
	lastBeat time.Time
}

// Beat is the per-loop handle returned by Register.
type Beat struct {
	tracker *HealthTracker
	name    string
}

// ComponentReport is the health of one registered loop.
type ComponentReport struct {
	Name     string    `json:"name"`
	Alive    bool      `json:"alive"`
	LastBeat time.Time `json:"last_beat,omitempty"`
}

// HealthReport is the aggregate served on /healthz. Status is "ok" when
// every registered loop has beaten within its TTL.
type HealthReport struct {
	Status     string            `json:"status"`
	Components []ComponentReport `json:"components,omitempty"`
}

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{
		now:   time.Now,
		loops: make(map[string]*loopState),
	}
}

// Register adds a loop under name. Until its first Beat the loop reports
// as not alive. Re-registering a name replaces the previous entry.
func (t *HealthTracker) Register(name string, ttl time.Duration) *Beat {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loops[name] = &loopState{ttl: ttl}
	return &Beat{tracker: t, name: name}
}

// Beat records that the loop is alive now.
func (b *Beat) Beat() {
	if b == nil || b.tracker == nil {
		return
	}
	b.tracker.mu.Lock()
	defer b.tracker.mu.Unlock()
	if loop, ok := b.tracker.loops[b.name]; ok {
		loop.lastBeat = b.tracker.now()
	}
}

// Report returns the current aggregate health. Components are sorted by
// name so the output is stable.
func (t *HealthTracker) Report() HealthReport {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	report := HealthReport{Status: "ok"}
	names := make([]string, 0, len(t.loops))
	for name := range t.loops {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		loop := t.loops[name]
		alive := !loop.lastBeat.IsZero() && now.Sub(loop.lastBeat) <= loop.ttl
		if !alive {
			report.Status = "degraded"
		}
		report.Components = append(report.Components, ComponentReport{
			Name:     name,
			Alive:    alive,
			LastBeat: loop.lastBeat,
		})
	}
	return report
}
