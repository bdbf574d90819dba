package monitor

import (
	"sync"
	"time"

	"github.com/argussec/argus/internal/logger"
	"github.com/argussec/argus/internal/models"
)

// Monitor is one periodic detection loop.
type Monitor interface {
	Name() string
	Interval() time.Duration
	Tick(now time.Time) []models.SecurityEvent
}

// Executor receives every monitor-emitted event; the response engine
// implements it, so monitor events go through the same pipeline as
// gatekeeper events.
type Executor interface {
	Execute(event models.SecurityEvent)
}

// Runner drives each monitor on its own goroutine. Stop finishes any
// in-flight tick and never starts a new one; response actions triggered by
// that tick are allowed to complete.
type Runner struct {
	executor Executor
	monitors []Monitor

	mu      sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// NewRunner builds a runner over the given monitors.
func NewRunner(executor Executor, monitors ...Monitor) *Runner {
	return &Runner{executor: executor, monitors: monitors}
}

// Start launches one worker per monitor. Safe to call once.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.stop = make(chan struct{})

	for _, m := range r.monitors {
		r.wg.Add(1)
		go r.loop(m)
	}
	logger.WithComponent("monitor").WithField("count", len(r.monitors)).Info("Monitors started")
}

// Stop signals every worker and waits for in-flight ticks to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	close(r.stop)
	r.mu.Unlock()

	r.wg.Wait()
	logger.WithComponent("monitor").Info("Monitors stopped")
}

func (r *Runner) loop(m Monitor) {
	defer r.wg.Done()

	ticker := time.NewTicker(m.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			for _, event := range m.Tick(now) {
				r.executor.Execute(event)
			}
		}
	}
}
