package models

import "fmt"

// ThreatLevel is an ordered severity. Higher values are worse.
type ThreatLevel int

const (
	ThreatLow ThreatLevel = iota
	ThreatMedium
	ThreatHigh
	ThreatCritical
)

func (l ThreatLevel) String() string {
	switch l {
	case ThreatLow:
		return "low"
	case ThreatMedium:
		return "medium"
	case ThreatHigh:
		return "high"
	case ThreatCritical:
		return "critical"
	}
	return fmt.Sprintf("threatlevel(%d)", int(l))
}

// Valid reports whether l is one of the four defined levels.
func (l ThreatLevel) Valid() bool {
	return l >= ThreatLow && l <= ThreatCritical
}

// ParseThreatLevel maps a stored level name back to its enum value.
func ParseThreatLevel(s string) (ThreatLevel, error) {
	switch s {
	case "low":
		return ThreatLow, nil
	case "medium":
		return ThreatMedium, nil
	case "high":
		return ThreatHigh, nil
	case "critical":
		return ThreatCritical, nil
	}
	return ThreatLow, fmt.Errorf("unknown threat level %q", s)
}

// AttackType classifies what a security event looks like.
type AttackType string

const (
	AttackDDoS       AttackType = "ddos"
	AttackBruteForce AttackType = "brute_force"
	AttackPortScan   AttackType = "port_scan"
	AttackInjection  AttackType = "injection"
	AttackXSS        AttackType = "xss"
	AttackCSRF       AttackType = "csrf"
	AttackMalware    AttackType = "malware"
	AttackSuspicious AttackType = "suspicious"
)

// Action is a single response step the engine can take.
type Action string

const (
	ActionLog                Action = "log"
	ActionRateLimit          Action = "rate_limit"
	ActionBlockIP            Action = "block_ip"
	ActionAlertAdmin         Action = "alert_admin"
	ActionEmergencyRateLimit Action = "emergency_rate_limit"
)
