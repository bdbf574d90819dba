package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/argussec/argus/internal/config"
	"github.com/argussec/argus/internal/gatekeeper"
	"github.com/argussec/argus/internal/models"
)

func setupSecurityRouter(t *testing.T) (*gin.Engine, *gatekeeper.Gatekeeper, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := OpenTestDB(t)
	require.NoError(t, db.AutoMigrate(
		&models.IPIntelligenceRecord{},
		&models.SecurityDecision{},
		&models.SecurityAudit{},
	))

	gk := gatekeeper.New(config.GatekeeperConfig{
		GlobalLimit:        10000,
		GlobalWindow:       time.Minute,
		IPLimit:            100,
		IPWindow:           time.Minute,
		EndpointLimit:      10000,
		EndpointWindow:     time.Minute,
		LoginLimit:         5,
		LoginWindow:        5 * time.Minute,
		AssessTimeout:      100 * time.Millisecond,
		BlockDuration:      time.Hour,
		RateLimitBlockTime: 15 * time.Minute,
		EmergencyFactor:    2,
		EmergencyFloor:     10,
		EventLogCapacity:   100,
		RetentionWindow:    24 * time.Hour,
		PortScanThreshold:  50,
		DDoSRateThreshold:  50,
		DDoSConnThreshold:  100,
		PortInterval:       time.Hour,
		DDoSInterval:       time.Hour,
		TrafficInterval:    time.Hour,
	}, gatekeeper.Options{DB: db})

	h := NewSecurityHandler(gk, db)
	r := gin.New()
	r.GET("/security/dashboard", h.GetDashboard)
	r.GET("/security/events", h.GetEvents)
	r.GET("/security/blocked", h.GetBlocked)
	r.POST("/security/block", h.Block)
	r.POST("/security/unblock", h.Unblock)
	r.POST("/security/emergency/reset", h.ResetEmergency)
	return r, gk, db
}

func TestSecurityHandler_Dashboard(t *testing.T) {
	r, gk, _ := setupSecurityRouter(t)
	gk.Block("203.0.113.5", time.Hour, "test")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/security/dashboard", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body gatekeeper.Dashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "normal", body.Status)
	require.Len(t, body.BlockedIPs, 1)
	assert.Equal(t, "203.0.113.5", body.BlockedIPs[0].IP)
}

func TestSecurityHandler_BlockAndUnblock(t *testing.T) {
	r, gk, db := setupSecurityRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/security/block",
		strings.NewReader(`{"ip":"198.51.100.4","duration_minutes":30,"reason":"abuse report"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gk.Store().IsBlocked("198.51.100.4"))

	rec := gk.Store().Get("198.51.100.4")
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), rec.BlockExpiresAt, 5*time.Second)

	var audits []models.SecurityAudit
	require.NoError(t, db.Find(&audits).Error)
	require.Len(t, audits, 1)
	assert.Equal(t, "block_ip", audits[0].Action)
	assert.Contains(t, audits[0].Details, "198.51.100.4")

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/security/unblock",
		strings.NewReader(`{"ip":"198.51.100.4"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, gk.Store().IsBlocked("198.51.100.4"))

	require.NoError(t, db.Find(&audits).Error)
	require.Len(t, audits, 2)
	assert.Equal(t, "unblock_ip", audits[1].Action)
}

func TestSecurityHandler_BlockRejectsBadInput(t *testing.T) {
	r, _, _ := setupSecurityRouter(t)

	for name, body := range map[string]string{
		"missing ip": `{"reason":"x"}`,
		"invalid ip": `{"ip":"not-an-ip"}`,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/security/block", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
}

func TestSecurityHandler_Events(t *testing.T) {
	r, gk, _ := setupSecurityRouter(t)
	for i := 0; i < 5; i++ {
		gk.EventLog().Append(models.NewSecurityEvent("192.0.2.1", models.AttackSuspicious, models.ThreatLow, 0.5))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/security/events?limit=3", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Events []models.SecurityEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Events, 3)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/security/events?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSecurityHandler_EmergencyReset(t *testing.T) {
	r, gk, db := setupSecurityRouter(t)
	gk.Limiter().SetEmergency(0)
	require.True(t, gk.Limiter().EmergencyActive())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/security/emergency/reset", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, gk.Limiter().EmergencyActive())

	var audits []models.SecurityAudit
	require.NoError(t, db.Find(&audits).Error)
	require.Len(t, audits, 1)
	assert.Equal(t, "emergency_reset", audits[0].Action)
}
