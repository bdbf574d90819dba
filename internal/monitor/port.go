package monitor

import (
	"time"

	"github.com/argussec/argus/internal/logger"
	"github.com/argussec/argus/internal/models"
)

// PortMonitor flags connection anomalies on a fixed watch-set of ports.
type PortMonitor struct {
	observer  ConnectionObserver
	watched   []int
	threshold int
	interval  time.Duration
}

// NewPortMonitor watches the given ports and raises a PortScan event when a
// port's established-connection count exceeds threshold.
func NewPortMonitor(observer ConnectionObserver, watched []int, threshold int, interval time.Duration) *PortMonitor {
	if threshold <= 0 {
		threshold = 50
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &PortMonitor{observer: observer, watched: watched, threshold: threshold, interval: interval}
}

func (m *PortMonitor) Name() string { return "port_monitor" }

func (m *PortMonitor) Interval() time.Duration { return m.interval }

// Tick inspects the connection table once. Observer failures are logged and
// produce no events; the loop keeps running.
func (m *PortMonitor) Tick(now time.Time) []models.SecurityEvent {
	perPort, _, err := m.observer.ConnectionCounts()
	if err != nil {
		logger.WithComponent(m.Name()).WithField("error", err.Error()).
			Warn("Connection observation failed")
		return nil
	}

	var out []models.SecurityEvent
	for _, port := range m.watched {
		count := perPort[port]
		if count <= m.threshold {
			continue
		}
		event := models.NewSecurityEvent("", models.AttackPortScan, models.ThreatHigh, 0.8).
			WithDetail("source", m.Name()).
			WithDetail("port", port).
			WithDetail("connections", count).
			WithDetail("threshold", m.threshold)
		event.Timestamp = now
		out = append(out, event)
	}
	return out
}
