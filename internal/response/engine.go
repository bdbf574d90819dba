// Package response maps threat levels to ordered action lists and executes
// them against the intel store and the rate limiter.
package response

import (
	"time"

	"gorm.io/gorm"

	"github.com/argussec/argus/internal/events"
	"github.com/argussec/argus/internal/intel"
	"github.com/argussec/argus/internal/logger"
	"github.com/argussec/argus/internal/models"
	"github.com/argussec/argus/internal/notify"
	"github.com/argussec/argus/internal/ratelimit"
)

// ActionsFor returns the ordered action list for a threat level. Pure; the
// default escalation table lives here and nowhere else.
func ActionsFor(level models.ThreatLevel) []models.Action {
	switch level {
	case models.ThreatLow:
		return []models.Action{models.ActionLog}
	case models.ThreatMedium:
		return []models.Action{models.ActionLog, models.ActionRateLimit}
	case models.ThreatHigh:
		return []models.Action{models.ActionLog, models.ActionBlockIP, models.ActionAlertAdmin, models.ActionRateLimit}
	case models.ThreatCritical:
		return []models.Action{models.ActionLog, models.ActionBlockIP, models.ActionEmergencyRateLimit, models.ActionAlertAdmin}
	}
	return []models.Action{models.ActionLog}
}

// Config tunes the engine's block and emergency behavior.
type Config struct {
	// BlockDuration applies to BlockIP on High/Critical events.
	BlockDuration time.Duration
	// RateLimitBlockTime is the short block imposed by the RateLimit
	// action. Coupling "too many requests" with a short block follows the
	// default policy; tune it down via configuration if a graduated
	// response is wanted.
	RateLimitBlockTime time.Duration
	// EmergencyReset auto-clears emergency throttling after this long;
	// zero keeps it until an admin clears it.
	EmergencyReset time.Duration
}

// Engine executes response actions. Actions are independent and
// best-effort: a failure in one is logged and the rest still run.
type Engine struct {
	cfg      Config
	limiter  *ratelimit.Limiter
	store    *intel.Store
	log      *events.Log
	notifier notify.Notifier

	// repo and db are optional; nil means memory-only mode.
	repo *intel.Repository
	db   *gorm.DB
}

// NewEngine wires the engine to its collaborators.
func NewEngine(cfg Config, limiter *ratelimit.Limiter, store *intel.Store, log *events.Log, notifier notify.Notifier, repo *intel.Repository, db *gorm.DB) *Engine {
	if cfg.BlockDuration <= 0 {
		cfg.BlockDuration = 60 * time.Minute
	}
	if cfg.RateLimitBlockTime <= 0 {
		cfg.RateLimitBlockTime = 15 * time.Minute
	}
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	return &Engine{cfg: cfg, limiter: limiter, store: store, log: log, notifier: notifier, repo: repo, db: db}
}

// Execute appends the event to the log and runs the action list for its
// level in order. The event is marked mitigated once every action has
// completed; a failed action leaves it unmitigated so a later pass can
// retry, without stopping the remaining actions.
func (e *Engine) Execute(event models.SecurityEvent) {
	e.log.Append(event)

	actions := ActionsFor(event.Level)
	executed := make([]models.Action, 0, len(actions))
	allOK := true

	for _, action := range actions {
		if err := e.run(action, event); err != nil {
			logger.WithFields(map[string]interface{}{
				"action": string(action),
				"event":  event.ID,
				"error":  err.Error(),
			}).Warn("Response action failed")
			allOK = false
			continue
		}
		executed = append(executed, action)
	}

	e.log.MarkMitigated(event.ID, allOK, executed)
}

func (e *Engine) run(action models.Action, event models.SecurityEvent) error {
	switch action {
	case models.ActionLog:
		logger.WithFields(map[string]interface{}{
			"ip":         event.SourceIP,
			"type":       string(event.Type),
			"level":      event.Level.String(),
			"confidence": event.Confidence,
			"endpoint":   event.Endpoint,
		}).Warn("Security event")
		return nil

	case models.ActionRateLimit:
		if event.SourceIP == "" {
			// Monitor-wide events have no single offender to throttle.
			return nil
		}
		e.store.RecordViolation(event.SourceIP, event.Type, 0.1)
		// Never shorten a block issued earlier in the same action list.
		if !e.store.IsBlocked(event.SourceIP) {
			rec := e.store.Block(event.SourceIP, e.cfg.RateLimitBlockTime, "rate limit exceeded")
			e.persist(rec, "rate_limit", event)
		}
		return nil

	case models.ActionBlockIP:
		if event.SourceIP == "" {
			return nil
		}
		e.store.RecordViolation(event.SourceIP, event.Type, 0.2)
		rec := e.store.Block(event.SourceIP, e.cfg.BlockDuration, string(event.Type))
		e.persist(rec, "block", event)
		return nil

	case models.ActionEmergencyRateLimit:
		e.limiter.SetEmergency(e.cfg.EmergencyReset)
		logger.WithComponent("response").Warn("Emergency rate limiting engaged")
		return nil

	case models.ActionAlertAdmin:
		return e.notifier.Alert(map[string]interface{}{
			"ip":         event.SourceIP,
			"type":       string(event.Type),
			"level":      event.Level.String(),
			"confidence": event.Confidence,
			"endpoint":   event.Endpoint,
			"details":    event.Details,
		})
	}
	return nil
}

// persist saves the intelligence snapshot and a decision audit row.
// Both are best-effort; memory-only mode just skips them.
func (e *Engine) persist(rec models.IPIntelligence, action string, event models.SecurityEvent) {
	if e.repo != nil {
		if err := e.repo.Save(rec); err != nil {
			logger.WithFields(map[string]interface{}{"ip": rec.IP, "error": err.Error()}).
				Warn("Failed to persist intelligence snapshot")
		}
	}
	if e.db != nil {
		decision := models.SecurityDecision{
			Source:    sourceOf(event),
			Action:    action,
			IP:        rec.IP,
			Reason:    rec.BlockReason,
			ExpiresAt: rec.BlockExpiresAt,
		}
		if err := e.db.Create(&decision).Error; err != nil {
			logger.WithFields(map[string]interface{}{"ip": rec.IP, "error": err.Error()}).
				Warn("Failed to record security decision")
		}
	}
}

func sourceOf(event models.SecurityEvent) string {
	if src, ok := event.Details["source"].(string); ok && src != "" {
		return src
	}
	return "gatekeeper"
}
