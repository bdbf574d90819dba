package handlers

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/argussec/argus/internal/api/middleware"
	"github.com/argussec/argus/internal/gatekeeper"
	"github.com/argussec/argus/internal/models"
	"github.com/argussec/argus/internal/util"
)

// SecurityHandler exposes the gatekeeper's state to operators: the live
// dashboard, the event log, and manual block management.
type SecurityHandler struct {
	gk *gatekeeper.Gatekeeper
	db *gorm.DB
}

// NewSecurityHandler creates a new SecurityHandler. db may be nil when
// running memory-only; audit rows are then skipped.
func NewSecurityHandler(gk *gatekeeper.Gatekeeper, db *gorm.DB) *SecurityHandler {
	return &SecurityHandler{gk: gk, db: db}
}

// GetDashboard returns the live admission summary.
func (h *SecurityHandler) GetDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.gk.GetDashboard())
}

// GetEvents returns the most recent security events, newest first. The
// limit query parameter caps the result, defaulting to 100.
func (h *SecurityHandler) GetEvents(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, gin.H{"events": h.gk.EventLog().Recent(limit)})
}

// GetBlocked lists IPs with an active block.
func (h *SecurityHandler) GetBlocked(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"blocked": h.gk.Store().Blocked()})
}

type blockRequest struct {
	IP              string `json:"ip" binding:"required"`
	DurationMinutes int    `json:"duration_minutes"`
	Reason          string `json:"reason"`
}

// Block issues a manual block against an IP.
func (h *SecurityHandler) Block(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ip is required"})
		return
	}
	if net.ParseIP(req.IP) == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ip address"})
		return
	}
	duration := time.Duration(req.DurationMinutes) * time.Minute
	if duration <= 0 {
		duration = time.Hour
	}
	reason := req.Reason
	if reason == "" {
		reason = "manual block"
	}

	h.gk.Block(req.IP, duration, reason)
	h.audit(c, "block_ip", fmt.Sprintf("ip=%s duration=%s reason=%s", req.IP, duration, util.SanitizeForLog(reason)))

	middleware.GetRequestLogger(c).WithFields(map[string]interface{}{
		"ip": req.IP, "duration": duration.String(),
	}).Info("Manual block issued")
	c.JSON(http.StatusOK, gin.H{"message": "ip blocked", "ip": req.IP, "expires_in": duration.String()})
}

type unblockRequest struct {
	IP string `json:"ip" binding:"required"`
}

// Unblock lifts a block immediately.
func (h *SecurityHandler) Unblock(c *gin.Context) {
	var req unblockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ip is required"})
		return
	}
	if net.ParseIP(req.IP) == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ip address"})
		return
	}

	h.gk.Unblock(req.IP)
	h.audit(c, "unblock_ip", "ip="+req.IP)

	middleware.GetRequestLogger(c).WithField("ip", req.IP).Info("Manual unblock")
	c.JSON(http.StatusOK, gin.H{"message": "ip unblocked", "ip": req.IP})
}

// ResetEmergency lifts emergency rate limiting ahead of its timer.
func (h *SecurityHandler) ResetEmergency(c *gin.Context) {
	h.gk.Limiter().ClearEmergency()
	h.audit(c, "emergency_reset", "")
	c.JSON(http.StatusOK, gin.H{"message": "emergency rate limiting cleared"})
}

func (h *SecurityHandler) audit(c *gin.Context, action, details string) {
	if h.db == nil {
		return
	}
	row := models.SecurityAudit{
		Actor:   c.ClientIP(),
		Action:  action,
		Details: details,
	}
	if err := h.db.Create(&row).Error; err != nil {
		middleware.GetRequestLogger(c).WithField("error", err.Error()).
			Warn("Failed to write audit record")
	}
}
