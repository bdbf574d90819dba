package models

import (
	"time"

	"github.com/google/uuid"
)

// SecurityEvent is one observed or mitigated incident. Events are appended
// to the event log once and never mutated afterwards except for the
// Mitigated flip performed by the response engine.
type SecurityEvent struct {
	ID         string                 `json:"id"`
	Timestamp  time.Time              `json:"timestamp"`
	SourceIP   string                 `json:"source_ip"`
	UserAgent  string                 `json:"user_agent,omitempty"`
	Endpoint   string                 `json:"endpoint,omitempty"`
	Method     string                 `json:"method,omitempty"`
	Level      ThreatLevel            `json:"level"`
	Type       AttackType             `json:"type"`
	Confidence float64                `json:"confidence"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Mitigated  bool                   `json:"mitigated"`
	Actions    []Action               `json:"actions,omitempty"`
}

// NewSecurityEvent builds an event with a fresh ID and timestamp.
func NewSecurityEvent(ip string, attack AttackType, level ThreatLevel, confidence float64) SecurityEvent {
	return SecurityEvent{
		ID:         uuid.New().String(),
		Timestamp:  time.Now(),
		SourceIP:   ip,
		Level:      level,
		Type:       attack,
		Confidence: confidence,
		Details:    make(map[string]interface{}),
	}
}

// WithRequest attaches the originating request descriptor.
func (e SecurityEvent) WithRequest(endpoint, method, userAgent string) SecurityEvent {
	e.Endpoint = endpoint
	e.Method = method
	e.UserAgent = userAgent
	return e
}

// WithDetail adds one key to the free-form details map.
func (e SecurityEvent) WithDetail(key string, value interface{}) SecurityEvent {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}
