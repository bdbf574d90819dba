package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsChecked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "argus_requests_checked_total",
		Help: "Total number of requests evaluated by the gatekeeper",
	})
	requestsDenied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "argus_requests_denied_total",
		Help: "Total number of requests denied by the gatekeeper, by reason",
	}, []string{"reason"})
	blocksIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "argus_ip_blocks_total",
		Help: "Total number of temporary IP blocks issued",
	})
	eventsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "argus_security_events_total",
		Help: "Total number of security events recorded, by threat level",
	}, []string{"level"})
	emergencyMode = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "argus_emergency_rate_limit_active",
		Help: "1 when emergency rate limiting is in effect, 0 otherwise",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(requestsChecked, requestsDenied, blocksIssued, eventsEmitted, emergencyMode)
}

// IncChecked increments the evaluated requests counter.
func IncChecked() { requestsChecked.Inc() }

// IncDenied increments the denied requests counter for a deny reason.
func IncDenied(reason string) { requestsDenied.WithLabelValues(reason).Inc() }

// IncBlocked increments the issued IP blocks counter.
func IncBlocked() { blocksIssued.Inc() }

// IncEvent increments the recorded events counter for a threat level.
func IncEvent(level string) { eventsEmitted.WithLabelValues(level).Inc() }

// SetEmergency flips the emergency rate limiting gauge.
func SetEmergency(active bool) {
	if active {
		emergencyMode.Set(1)
		return
	}
	emergencyMode.Set(0)
}
