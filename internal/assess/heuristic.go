package assess

import (
	"context"
	"fmt"
	"strings"

	"github.com/argussec/argus/internal/models"
)

// scanner tooling and probe payloads seen in request paths and user agents.
var (
	scannerAgents = []string{"sqlmap", "nikto", "masscan", "nmap", "zgrab", "dirbuster", "gobuster", "hydra"}

	injectionMarkers = []string{"union select", "' or '1'='1", "'; drop table", "../..", "%00", "etc/passwd"}
	xssMarkers       = []string{"<script", "javascript:", "onerror="}
)

// HeuristicAssessor is the in-process default classifier. It scores a
// request on IP reputation, attack history, and request signals so the
// gatekeeper works without an external classifier deployment.
type HeuristicAssessor struct{}

// NewHeuristicAssessor returns the default local assessor.
func NewHeuristicAssessor() *HeuristicAssessor {
	return &HeuristicAssessor{}
}

// Assess never blocks on I/O and never returns an error.
func (a *HeuristicAssessor) Assess(_ context.Context, req RequestContext, intel models.IPIntelligence) (Verdict, error) {
	score := 0.0
	var reasons []string

	if intel.Reputation < models.DefaultReputation {
		score += (models.DefaultReputation - intel.Reputation) * 1.2
		reasons = append(reasons, fmt.Sprintf("reputation %.2f", intel.Reputation))
	}

	if prior := totalAttacks(intel); prior > 0 {
		score += 0.1 * float64(prior)
		if score > 1.0 {
			score = 1.0
		}
		reasons = append(reasons, fmt.Sprintf("%d prior attack patterns", prior))
	}

	ua := strings.ToLower(req.UserAgent)
	if ua == "" {
		score += 0.1
		reasons = append(reasons, "empty user agent")
	}
	for _, tool := range scannerAgents {
		if strings.Contains(ua, tool) {
			score += 0.4
			reasons = append(reasons, "scanner user agent "+tool)
			break
		}
	}

	target := strings.ToLower(req.Endpoint)
	for _, marker := range injectionMarkers {
		if strings.Contains(target, marker) {
			score += 0.5
			reasons = append(reasons, "injection marker in path")
			break
		}
	}
	for _, marker := range xssMarkers {
		if strings.Contains(target, marker) {
			score += 0.5
			reasons = append(reasons, "xss marker in path")
			break
		}
	}

	level := levelForScore(score)
	return Verdict{
		Level:              level,
		Confidence:         confidence(score),
		Reasoning:          strings.Join(reasons, "; "),
		RecommendedActions: recommended(level),
	}, nil
}

func totalAttacks(intel models.IPIntelligence) int {
	total := 0
	for _, n := range intel.AttackPatterns {
		total += n
	}
	return total
}

func levelForScore(score float64) models.ThreatLevel {
	switch {
	case score >= 0.9:
		return models.ThreatCritical
	case score >= 0.6:
		return models.ThreatHigh
	case score >= 0.3:
		return models.ThreatMedium
	}
	return models.ThreatLow
}

func confidence(score float64) float64 {
	c := 0.3 + score*0.7
	if c > 1.0 {
		c = 1.0
	}
	return c
}

func recommended(level models.ThreatLevel) []models.Action {
	actions := []models.Action{models.ActionLog}
	if level >= models.ThreatMedium {
		actions = append(actions, models.ActionRateLimit)
	}
	if level >= models.ThreatHigh {
		actions = append(actions, models.ActionBlockIP)
	}
	return actions
}
