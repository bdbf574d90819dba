package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SecurityAudit records admin actions against the gatekeeper (manual blocks,
// unblocks, emergency resets).
type SecurityAudit struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UUID      string    `json:"uuid" gorm:"uniqueIndex"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Details   string    `json:"details" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *SecurityAudit) BeforeCreate(tx *gorm.DB) (err error) {
	if a.UUID == "" {
		a.UUID = uuid.New().String()
	}
	return
}
