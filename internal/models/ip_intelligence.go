package models

import (
	"time"
)

// DefaultReputation is the score assigned to an IP the first time it is seen.
const DefaultReputation = 0.5

// IPIntelligence is the live reputation record for one IP. The intel store
// owns mutation; callers only ever see copies.
type IPIntelligence struct {
	IP              string             `json:"ip"`
	Reputation      float64            `json:"reputation"`
	TotalRequests   int64              `json:"total_requests"`
	BlockedRequests int64              `json:"blocked_requests"`
	FirstSeen       time.Time          `json:"first_seen"`
	LastSeen        time.Time          `json:"last_seen"`
	Countries       map[string]bool    `json:"countries,omitempty"`
	UserAgents      map[string]bool    `json:"user_agents,omitempty"`
	AttackPatterns  map[AttackType]int `json:"attack_patterns,omitempty"`
	Level           ThreatLevel        `json:"level"`
	IsBlocked       bool               `json:"is_blocked"`
	BlockExpiresAt  time.Time          `json:"block_expires_at,omitempty"`
	BlockReason     string             `json:"block_reason,omitempty"`
}

// NewIPIntelligence returns a neutral record for a first-seen IP.
func NewIPIntelligence(ip string, now time.Time) *IPIntelligence {
	return &IPIntelligence{
		IP:             ip,
		Reputation:     DefaultReputation,
		FirstSeen:      now,
		LastSeen:       now,
		Countries:      make(map[string]bool),
		UserAgents:     make(map[string]bool),
		AttackPatterns: make(map[AttackType]int),
		Level:          ThreatLow,
	}
}

// Clone returns a deep copy safe to hand outside the store's lock.
func (i *IPIntelligence) Clone() IPIntelligence {
	out := *i
	out.Countries = make(map[string]bool, len(i.Countries))
	for k, v := range i.Countries {
		out.Countries[k] = v
	}
	out.UserAgents = make(map[string]bool, len(i.UserAgents))
	for k, v := range i.UserAgents {
		out.UserAgents[k] = v
	}
	out.AttackPatterns = make(map[AttackType]int, len(i.AttackPatterns))
	for k, v := range i.AttackPatterns {
		out.AttackPatterns[k] = v
	}
	return out
}

// IPIntelligenceRecord is the persisted snapshot of an IPIntelligence,
// written opportunistically on block/unblock and loaded at startup.
type IPIntelligenceRecord struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	IP              string    `json:"ip" gorm:"uniqueIndex;not null"`
	Reputation      float64   `json:"reputation"`
	TotalRequests   int64     `json:"total_requests"`
	BlockedRequests int64     `json:"blocked_requests"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen" gorm:"index"`
	Level           string    `json:"level"`
	IsBlocked       bool      `json:"is_blocked" gorm:"index"`
	BlockExpiresAt  time.Time `json:"block_expires_at"`
	BlockReason     string    `json:"block_reason"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (IPIntelligenceRecord) TableName() string {
	return "ip_intelligence"
}
