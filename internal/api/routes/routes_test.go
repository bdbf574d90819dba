package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/argussec/argus/internal/config"
	"github.com/argussec/argus/internal/gatekeeper"
)

func setupRouter(t *testing.T) (*gin.Engine, *gatekeeper.Gatekeeper) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := config.Config{
		Environment:    "test",
		AdminTokenHash: string(hash),
		Gatekeeper: config.GatekeeperConfig{
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
		},
	}

	gk := gatekeeper.New(cfg.Gatekeeper, gatekeeper.Options{DB: db})
	router := gin.New()
	require.NoError(t, Register(router, db, cfg, gk))
	return router, gk
}

func TestRegister_HealthOutsideAdmission(t *testing.T) {
	router, gk := setupRouter(t)
	gk.Block("192.0.2.44", time.Hour, "test")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.RemoteAddr = "192.0.2.44:9999"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, "health stays reachable for blocked clients")
}

func TestRegister_MetricsEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "argus_requests_checked_total")
}

func TestRegister_AdminRequiresToken(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/security/dashboard", nil)
	req.RemoteAddr = "192.0.2.2:4000"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/security/dashboard", nil)
	req.RemoteAddr = "192.0.2.2:4000"
	req.Header.Set("Authorization", "Bearer open-sesame")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegister_AdmissionGuardsAPI(t *testing.T) {
	router, gk := setupRouter(t)
	gk.Block("192.0.2.44", time.Hour, "test")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/security/dashboard", nil)
	req.RemoteAddr = "192.0.2.44:9999"
	req.Header.Set("Authorization", "Bearer open-sesame")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code, "blocked clients are denied before auth")
}
