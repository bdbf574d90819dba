package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validGatekeeper() GatekeeperConfig {
	return GatekeeperConfig{
		GlobalLimit:        1000,
		GlobalWindow:       time.Minute,
		IPLimit:            100,
		IPWindow:           time.Minute,
		EndpointLimit:      50,
		EndpointWindow:     time.Minute,
		LoginLimit:         5,
		LoginWindow:        5 * time.Minute,
		AssessTimeout:      500 * time.Millisecond,
		BlockDuration:      time.Hour,
		RateLimitBlockTime: 15 * time.Minute,
		EmergencyFactor:    2,
		EmergencyFloor:     10,
		EmergencyReset:     30 * time.Minute,
		EventLogCapacity:   1000,
		RetentionWindow:    24 * time.Hour,
	}
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validGatekeeper().Validate())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GatekeeperConfig)
	}{
		{"zero ip limit", func(g *GatekeeperConfig) { g.IPLimit = 0 }},
		{"negative global limit", func(g *GatekeeperConfig) { g.GlobalLimit = -1 }},
		{"zero window", func(g *GatekeeperConfig) { g.LoginWindow = 0 }},
		{"zero assess timeout", func(g *GatekeeperConfig) { g.AssessTimeout = 0 }},
		{"emergency factor below 2", func(g *GatekeeperConfig) { g.EmergencyFactor = 1 }},
		{"zero emergency floor", func(g *GatekeeperConfig) { g.EmergencyFloor = 0 }},
		{"zero event log capacity", func(g *GatekeeperConfig) { g.EventLogCapacity = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := validGatekeeper()
			tt.mutate(&g)
			err := g.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("ARGUS_DB_PATH", filepath.Join(t.TempDir(), "argus.db"))
	t.Setenv("ARGUS_IP_LIMIT", "250")
	t.Setenv("ARGUS_LOGIN_WINDOW", "10m")
	t.Setenv("ARGUS_ALERT_URLS", "discord://token@channel, slack://hook")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.Gatekeeper.IPLimit)
	assert.Equal(t, 10*time.Minute, cfg.Gatekeeper.LoginWindow)
	assert.Equal(t, 1000, cfg.Gatekeeper.GlobalLimit, "untouched values keep defaults")
	assert.Equal(t, []string{"discord://token@channel", "slack://hook"}, cfg.AlertURLs)
	assert.Equal(t, []int{22, 80, 443, 3306, 5432, 8080}, cfg.Gatekeeper.WatchedPorts)
}

func TestLoad_FailsFastOnBadThreshold(t *testing.T) {
	t.Setenv("ARGUS_DB_PATH", filepath.Join(t.TempDir(), "argus.db"))
	t.Setenv("ARGUS_IP_LIMIT", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ip limit")
}
