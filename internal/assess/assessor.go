// Package assess defines the threat classifier contract and the timeout
// policy that keeps a slow classifier off the admission path.
package assess

import (
	"context"
	"time"

	"github.com/argussec/argus/internal/logger"
	"github.com/argussec/argus/internal/models"
)

// RequestContext describes one inbound request for assessment.
type RequestContext struct {
	IP        string
	Endpoint  string
	Method    string
	UserAgent string
	Timestamp time.Time
}

// Verdict is the classifier output. It is advisory: the gatekeeper never
// lets a verdict bypass the block and rate-limit checks that already ran.
type Verdict struct {
	Level              models.ThreatLevel
	Confidence         float64
	Reasoning          string
	RecommendedActions []models.Action
}

// ThreatAssessor classifies a request given the current IP intelligence.
// Implementations may call out over the network and must honor ctx.
type ThreatAssessor interface {
	Assess(ctx context.Context, req RequestContext, intel models.IPIntelligence) (Verdict, error)
}

// FallbackVerdict is returned when the assessor errors or times out.
// Degrading to a low-severity verdict keeps the request path available;
// the local rate-limit and block checks still apply.
func FallbackVerdict(reason string) Verdict {
	return Verdict{
		Level:              models.ThreatLow,
		Confidence:         0.1,
		Reasoning:          "assessor unavailable: " + reason,
		RecommendedActions: []models.Action{models.ActionLog},
	}
}

// WithTimeout runs the assessor under a deadline. A slow or failing
// assessor yields the fallback verdict within timeout plus scheduling
// slack, never an error.
func WithTimeout(ctx context.Context, assessor ThreatAssessor, timeout time.Duration, req RequestContext, intel models.IPIntelligence) Verdict {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		verdict Verdict
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := assessor.Assess(ctx, req, intel)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			logger.WithFields(map[string]interface{}{"ip": req.IP, "error": r.err.Error()}).
				Warn("Threat assessment failed")
			return FallbackVerdict(r.err.Error())
		}
		if !r.verdict.Level.Valid() {
			return FallbackVerdict("malformed verdict level")
		}
		return r.verdict
	case <-ctx.Done():
		logger.WithFields(map[string]interface{}{"ip": req.IP}).
			Warn("Threat assessment timed out")
		return FallbackVerdict(ctx.Err().Error())
	}
}
