package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SecurityDecision stores a block/unblock decision taken by the response
// engine or a manual override so it can be audited and surfaced in the UI.
type SecurityDecision struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UUID      string    `json:"uuid" gorm:"uniqueIndex"`
	Source    string    `json:"source"` // e.g., gatekeeper, monitor, manual
	Action    string    `json:"action"` // block, unblock, emergency
	IP        string    `json:"ip" gorm:"index"`
	Reason    string    `json:"reason"`
	ExpiresAt time.Time `json:"expires_at"`
	Details   string    `json:"details" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

func (d *SecurityDecision) BeforeCreate(tx *gorm.DB) (err error) {
	if d.UUID == "" {
		d.UUID = uuid.New().String()
	}
	return
}
