package monitor

import (
	"sync"
	"time"

	"github.com/argussec/argus/internal/events"
	"github.com/argussec/argus/internal/models"
)

// TrafficAnalyzer mines the recent event log for repeating signatures:
// one IP showing up in several security events within the lookback window.
type TrafficAnalyzer struct {
	log       *events.Log
	lookback  time.Duration
	threshold int
	interval  time.Duration

	mu    sync.Mutex
	fired map[string]time.Time
}

// NewTrafficAnalyzer flags IPs with at least threshold events inside
// lookback.
func NewTrafficAnalyzer(log *events.Log, lookback time.Duration, threshold int, interval time.Duration) *TrafficAnalyzer {
	if lookback <= 0 {
		lookback = 10 * time.Minute
	}
	if threshold <= 0 {
		threshold = 5
	}
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &TrafficAnalyzer{log: log, lookback: lookback, threshold: threshold, interval: interval, fired: make(map[string]time.Time)}
}

func (m *TrafficAnalyzer) Name() string { return "traffic_analyzer" }

func (m *TrafficAnalyzer) Interval() time.Duration { return m.interval }

func (m *TrafficAnalyzer) Tick(now time.Time) []models.SecurityEvent {
	recent := m.log.Since(now.Add(-m.lookback))

	perIP := make(map[string]int)
	for _, e := range recent {
		if e.SourceIP == "" {
			continue
		}
		// Skip our own output or one hit would echo forever.
		if src, ok := e.Details["source"].(string); ok && src == m.Name() {
			continue
		}
		perIP[e.SourceIP]++
	}

	var out []models.SecurityEvent
	m.mu.Lock()
	defer m.mu.Unlock()
	for ip, at := range m.fired {
		if now.Sub(at) > m.lookback {
			delete(m.fired, ip)
		}
	}
	for ip, count := range perIP {
		if count < m.threshold {
			continue
		}
		// Flag each IP at most once per lookback window.
		if _, seen := m.fired[ip]; seen {
			continue
		}
		m.fired[ip] = now
		event := models.NewSecurityEvent(ip, models.AttackSuspicious, models.ThreatMedium, 0.7).
			WithDetail("source", m.Name()).
			WithDetail("repeated_events", count).
			WithDetail("lookback", m.lookback.String())
		event.Timestamp = now
		out = append(out, event)
	}
	return out
}
