// Package gatekeeper is the single admission entry point: it composes the
// rate limiter, the intel store, the threat assessor and the response
// engine, and owns the background monitors' lifecycle.
package gatekeeper

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/argussec/argus/internal/assess"
	"github.com/argussec/argus/internal/config"
	"github.com/argussec/argus/internal/events"
	"github.com/argussec/argus/internal/intel"
	"github.com/argussec/argus/internal/logger"
	"github.com/argussec/argus/internal/metrics"
	"github.com/argussec/argus/internal/models"
	"github.com/argussec/argus/internal/monitor"
	"github.com/argussec/argus/internal/notify"
	"github.com/argussec/argus/internal/ratelimit"
	"github.com/argussec/argus/internal/response"
)

// Options carries the optional collaborators. Nil fields fall back to the
// in-process defaults; a nil DB runs memory-only.
type Options struct {
	DB       *gorm.DB
	Notifier notify.Notifier
	Assessor assess.ThreatAssessor
	Observer monitor.ConnectionObserver
}

// Gatekeeper decides per-request admission and escalates autonomously.
type Gatekeeper struct {
	cfg config.GatekeeperConfig

	limiter  *ratelimit.Limiter
	store    *intel.Store
	log      *events.Log
	engine   *response.Engine
	assessor assess.ThreatAssessor
	repo     *intel.Repository

	runner *monitor.Runner
	cron   *cron.Cron

	total atomic.Uint64
}

// New assembles a gatekeeper from configuration. Lifecycle is explicit:
// callers run Start and Shutdown; nothing initializes lazily.
func New(cfg config.GatekeeperConfig, opts Options) *Gatekeeper {
	limiter := ratelimit.New(map[string]ratelimit.Policy{
		ratelimit.ScopeGlobal:   {Limit: cfg.GlobalLimit, Window: cfg.GlobalWindow},
		ratelimit.ScopeIP:       {Limit: cfg.IPLimit, Window: cfg.IPWindow},
		ratelimit.ScopeEndpoint: {Limit: cfg.EndpointLimit, Window: cfg.EndpointWindow},
		ratelimit.ScopeLogin:    {Limit: cfg.LoginLimit, Window: cfg.LoginWindow},
	}, cfg.EmergencyFactor, cfg.EmergencyFloor)

	store := intel.NewStore()
	log := events.NewLog(cfg.EventLogCapacity)

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	assessor := opts.Assessor
	if assessor == nil {
		assessor = assess.NewHeuristicAssessor()
	}
	observer := opts.Observer
	if observer == nil {
		observer = monitor.NewSystemObserver()
	}

	var repo *intel.Repository
	if opts.DB != nil {
		repo = intel.NewRepository(opts.DB)
	}

	engine := response.NewEngine(response.Config{
		BlockDuration:      cfg.BlockDuration,
		RateLimitBlockTime: cfg.RateLimitBlockTime,
		EmergencyReset:     cfg.EmergencyReset,
	}, limiter, store, log, notifier, repo, opts.DB)

	g := &Gatekeeper{
		cfg:      cfg,
		limiter:  limiter,
		store:    store,
		log:      log,
		engine:   engine,
		assessor: assessor,
		repo:     repo,
	}

	g.runner = monitor.NewRunner(engine,
		monitor.NewPortMonitor(observer, cfg.WatchedPorts, cfg.PortScanThreshold, cfg.PortInterval),
		monitor.NewDDoSMonitor(g, observer, limiter, cfg.DDoSRateThreshold, cfg.DDoSConnThreshold, cfg.DDoSInterval, cfg.EmergencyReset),
		monitor.NewTrafficAnalyzer(log, 10*time.Minute, 5, cfg.TrafficInterval),
	)

	g.cron = cron.New()
	g.cron.Schedule(cron.Every(5*time.Minute), cron.FuncJob(limiter.Purge))
	g.cron.Schedule(cron.Every(10*time.Minute), cron.FuncJob(func() { store.Decay(0.05) }))
	g.cron.Schedule(cron.Every(time.Hour), cron.FuncJob(func() {
		if removed := store.Prune(cfg.RetentionWindow); removed > 0 {
			logger.WithComponent("gatekeeper").WithField("removed", removed).Debug("Pruned idle intelligence records")
		}
	}))
	if repo != nil {
		g.cron.Schedule(cron.Every(15*time.Minute), cron.FuncJob(g.persistBlocked))
	}

	return g
}

// persistBlocked refreshes snapshots for every actively blocked IP so a
// restart between block and expiry cannot lose the block.
func (g *Gatekeeper) persistBlocked() {
	for _, rec := range g.store.Blocked() {
		g.persist(rec)
	}
}

// Start loads persisted intelligence and launches the monitors and the
// maintenance scheduler.
func (g *Gatekeeper) Start() {
	if g.repo != nil {
		if records, err := g.repo.Load(); err != nil {
			logger.WithComponent("gatekeeper").WithField("error", err.Error()).
				Warn("Continuing memory-only, intelligence load failed")
		} else {
			g.store.Restore(records)
			logger.WithComponent("gatekeeper").WithField("records", len(records)).Info("Intelligence restored")
		}
	}
	g.runner.Start()
	g.cron.Start()
}

// Shutdown stops the monitors and the scheduler, letting in-flight ticks
// and their response actions complete.
func (g *Gatekeeper) Shutdown() {
	g.runner.Stop()
	ctx := g.cron.Stop()
	<-ctx.Done()
}

// Deny reasons returned by CheckRequest. The web layer maps them to a
// generic status code and leaks nothing else.
const (
	DenyBlocked   = "blocked"
	DenyRateLimit = "rate_limit"
	DenyThreat    = "threat"
)

// CheckRequest is the sole per-request entry point. When the request is
// denied the second return names the deny category and nothing more.
func (g *Gatekeeper) CheckRequest(ctx context.Context, ip, endpoint, method, userAgent string) (bool, string) {
	metrics.IncChecked()
	g.total.Add(1)
	g.store.Touch(ip, userAgent)

	if g.store.IsBlocked(ip) {
		metrics.IncDenied(DenyBlocked)
		event := models.NewSecurityEvent(ip, models.AttackSuspicious, models.ThreatHigh, 0.9).
			WithRequest(endpoint, method, userAgent).
			WithDetail("reason", "request from blocked ip")
		g.log.Append(event)
		return false, DenyBlocked
	}

	if res := g.limiter.AllowRequest(ip, endpoint, isAuthEndpoint(endpoint)); !res.Allowed {
		metrics.IncDenied(DenyRateLimit)
		event := models.NewSecurityEvent(ip, models.AttackSuspicious, models.ThreatMedium, 0.8).
			WithRequest(endpoint, method, userAgent).
			WithDetail("reason", "rate limit exceeded").
			WithDetail("scope", res.Scope)
		g.engine.Execute(event)
		return false, DenyRateLimit
	}

	verdict := assess.WithTimeout(ctx, g.assessor, g.cfg.AssessTimeout, assess.RequestContext{
		IP:        ip,
		Endpoint:  endpoint,
		Method:    method,
		UserAgent: userAgent,
		Timestamp: time.Now(),
	}, g.store.Get(ip))

	if verdict.Level >= models.ThreatHigh {
		metrics.IncDenied(DenyThreat)
		event := models.NewSecurityEvent(ip, models.AttackSuspicious, verdict.Level, verdict.Confidence).
			WithRequest(endpoint, method, userAgent).
			WithDetail("reason", verdict.Reasoning)
		g.engine.Execute(event)
		return false, DenyThreat
	}

	return true, ""
}

// TotalRequests implements monitor.RequestCounter.
func (g *Gatekeeper) TotalRequests() uint64 {
	return g.total.Load()
}

// Block issues a manual block.
func (g *Gatekeeper) Block(ip string, duration time.Duration, reason string) {
	rec := g.store.Block(ip, duration, reason)
	g.persist(rec)
}

// Unblock lifts a block immediately.
func (g *Gatekeeper) Unblock(ip string) {
	rec := g.store.Unblock(ip)
	g.persist(rec)
}

func (g *Gatekeeper) persist(rec models.IPIntelligence) {
	if g.repo == nil {
		return
	}
	if err := g.repo.Save(rec); err != nil {
		logger.WithComponent("gatekeeper").WithFields(map[string]interface{}{
			"ip": rec.IP, "error": err.Error(),
		}).Warn("Failed to persist intelligence snapshot")
	}
}

// Store exposes the intel store for the admin surface.
func (g *Gatekeeper) Store() *intel.Store { return g.store }

// EventLog exposes the event log for the admin surface.
func (g *Gatekeeper) EventLog() *events.Log { return g.log }

// Limiter exposes the rate limiter for the admin surface.
func (g *Gatekeeper) Limiter() *ratelimit.Limiter { return g.limiter }

// Engine exposes the response engine for monitor wiring and tests.
func (g *Gatekeeper) Engine() *response.Engine { return g.engine }

// Dashboard summarizes live state for the admin UI.
type Dashboard struct {
	Status            string                  `json:"status"`
	ActiveThreats     int                     `json:"active_threats"`
	BlockedIPs        []models.IPIntelligence `json:"blocked_ips"`
	RecentEvents      []models.SecurityEvent  `json:"recent_events"`
	ThreatLevelCounts map[string]int          `json:"threat_level_counts"`
	EffectiveLimits   map[string]int          `json:"effective_limits"`
	TotalRequests     uint64                  `json:"total_requests"`
}

// GetDashboard builds the summary.
func (g *Gatekeeper) GetDashboard() Dashboard {
	status := "normal"
	if g.limiter.EmergencyActive() {
		status = "emergency"
	}
	return Dashboard{
		Status:            status,
		ActiveThreats:     g.log.ActiveThreats(time.Hour, time.Now()),
		BlockedIPs:        g.store.Blocked(),
		RecentEvents:      g.log.Recent(50),
		ThreatLevelCounts: g.log.CountsByLevel(),
		EffectiveLimits:   g.limiter.EffectiveLimits(),
		TotalRequests:     g.total.Load(),
	}
}

func isAuthEndpoint(endpoint string) bool {
	return strings.Contains(endpoint, "/auth/") || strings.HasSuffix(endpoint, "/login")
}
