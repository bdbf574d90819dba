package monitor

import (
	"sync"
	"time"

	"github.com/argussec/argus/internal/logger"
	"github.com/argussec/argus/internal/models"
	"github.com/argussec/argus/internal/ratelimit"
)

// RequestCounter exposes the running total of admitted admission checks.
// The gatekeeper implements it.
type RequestCounter interface {
	TotalRequests() uint64
}

// DDoSMonitor compares the global request rate and the concurrent
// connection count against thresholds. On detection it raises a DDoS event
// and engages emergency throttling on the limiter directly, without waiting
// for the response engine's escalation table.
type DDoSMonitor struct {
	counter       RequestCounter
	observer      ConnectionObserver
	limiter       *ratelimit.Limiter
	rateThreshold float64
	connThreshold int
	interval      time.Duration
	resetAfter    time.Duration

	mu        sync.Mutex
	lastTotal uint64
	lastTick  time.Time
}

// NewDDoSMonitor builds the monitor; rateThreshold is requests/second and
// resetAfter bounds the emergency throttling it engages (zero means until an
// admin clears it).
func NewDDoSMonitor(counter RequestCounter, observer ConnectionObserver, limiter *ratelimit.Limiter, rateThreshold float64, connThreshold int, interval, resetAfter time.Duration) *DDoSMonitor {
	if rateThreshold <= 0 {
		rateThreshold = 50
	}
	if connThreshold <= 0 {
		connThreshold = 100
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &DDoSMonitor{
		counter:       counter,
		observer:      observer,
		limiter:       limiter,
		rateThreshold: rateThreshold,
		connThreshold: connThreshold,
		interval:      interval,
		resetAfter:    resetAfter,
	}
}

func (m *DDoSMonitor) Name() string { return "ddos_monitor" }

func (m *DDoSMonitor) Interval() time.Duration { return m.interval }

func (m *DDoSMonitor) Tick(now time.Time) []models.SecurityEvent {
	total := m.counter.TotalRequests()

	m.mu.Lock()
	var rate float64
	if !m.lastTick.IsZero() {
		elapsed := now.Sub(m.lastTick).Seconds()
		if elapsed > 0 {
			rate = float64(total-m.lastTotal) / elapsed
		}
	}
	m.lastTotal = total
	m.lastTick = now
	m.mu.Unlock()

	concurrent := 0
	if m.observer != nil {
		if _, n, err := m.observer.ConnectionCounts(); err == nil {
			concurrent = n
		} else {
			logger.WithComponent(m.Name()).WithField("error", err.Error()).
				Warn("Connection observation failed")
		}
	}

	var out []models.SecurityEvent

	if concurrent >= m.connThreshold {
		event := models.NewSecurityEvent("", models.AttackDDoS, models.ThreatCritical, 0.9).
			WithDetail("source", m.Name()).
			WithDetail("concurrent_connections", concurrent).
			WithDetail("threshold", m.connThreshold)
		event.Timestamp = now
		out = append(out, event)
	} else if rate >= m.rateThreshold {
		event := models.NewSecurityEvent("", models.AttackDDoS, models.ThreatHigh, 0.85).
			WithDetail("source", m.Name()).
			WithDetail("requests_per_second", rate).
			WithDetail("threshold", m.rateThreshold)
		event.Timestamp = now
		out = append(out, event)
	}

	if len(out) > 0 {
		m.limiter.SetEmergency(m.resetAfter)
		logger.WithComponent(m.Name()).WithFields(map[string]interface{}{
			"rate":       rate,
			"concurrent": concurrent,
		}).Warn("DDoS conditions detected, emergency throttling engaged")
	}
	return out
}
