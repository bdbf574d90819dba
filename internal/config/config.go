package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment  string
	HTTPPort     string
	DatabasePath string

	// AdminTokenHash is the bcrypt hash of the static admin API token.
	// Empty disables the administrative surface.
	AdminTokenHash string

	// AlertURLs are shoutrrr service URLs for admin alerts.
	AlertURLs []string

	Gatekeeper GatekeeperConfig
}

// GatekeeperConfig holds the admission thresholds. Bad values are a fatal
// startup error, never a runtime fallback.
type GatekeeperConfig struct {
	GlobalLimit     int
	GlobalWindow    time.Duration
	IPLimit         int
	IPWindow        time.Duration
	EndpointLimit   int
	EndpointWindow  time.Duration
	LoginLimit      int
	LoginWindow     time.Duration

	AssessTimeout      time.Duration
	BlockDuration      time.Duration
	RateLimitBlockTime time.Duration
	EmergencyFactor    int
	EmergencyFloor     int
	EmergencyReset     time.Duration

	EventLogCapacity int
	RetentionWindow  time.Duration

	WatchedPorts      []int
	PortScanThreshold int
	DDoSRateThreshold float64
	DDoSConnThreshold int

	PortInterval    time.Duration
	DDoSInterval    time.Duration
	TrafficInterval time.Duration
}

// Load reads env vars and falls back to defaults so the server can boot with zero configuration.
func Load() (Config, error) {
	cfg := Config{
		Environment:    getEnv("ARGUS_ENV", "development"),
		HTTPPort:       getEnv("ARGUS_HTTP_PORT", "8080"),
		DatabasePath:   getEnv("ARGUS_DB_PATH", filepath.Join("data", "argus.db")),
		AdminTokenHash: getEnv("ARGUS_ADMIN_TOKEN_HASH", ""),
		AlertURLs:      splitList(getEnv("ARGUS_ALERT_URLS", "")),
		Gatekeeper: GatekeeperConfig{
			GlobalLimit:        getEnvInt("ARGUS_GLOBAL_LIMIT", 1000),
			GlobalWindow:       getEnvDuration("ARGUS_GLOBAL_WINDOW", 60*time.Second),
			IPLimit:            getEnvInt("ARGUS_IP_LIMIT", 100),
			IPWindow:           getEnvDuration("ARGUS_IP_WINDOW", 60*time.Second),
			EndpointLimit:      getEnvInt("ARGUS_ENDPOINT_LIMIT", 50),
			EndpointWindow:     getEnvDuration("ARGUS_ENDPOINT_WINDOW", 60*time.Second),
			LoginLimit:         getEnvInt("ARGUS_LOGIN_LIMIT", 5),
			LoginWindow:        getEnvDuration("ARGUS_LOGIN_WINDOW", 300*time.Second),
			AssessTimeout:      getEnvDuration("ARGUS_ASSESS_TIMEOUT", 500*time.Millisecond),
			BlockDuration:      getEnvDuration("ARGUS_BLOCK_DURATION", 60*time.Minute),
			RateLimitBlockTime: getEnvDuration("ARGUS_RATELIMIT_BLOCK_DURATION", 15*time.Minute),
			EmergencyFactor:    getEnvInt("ARGUS_EMERGENCY_FACTOR", 2),
			EmergencyFloor:     getEnvInt("ARGUS_EMERGENCY_FLOOR", 10),
			EmergencyReset:     getEnvDuration("ARGUS_EMERGENCY_RESET", 30*time.Minute),
			EventLogCapacity:   getEnvInt("ARGUS_EVENT_LOG_CAPACITY", 1000),
			RetentionWindow:    getEnvDuration("ARGUS_INTEL_RETENTION", 24*time.Hour),
			WatchedPorts:       splitPorts(getEnv("ARGUS_WATCHED_PORTS", "22,80,443,3306,5432,8080")),
			PortScanThreshold:  getEnvInt("ARGUS_PORTSCAN_THRESHOLD", 50),
			DDoSRateThreshold:  float64(getEnvInt("ARGUS_DDOS_RATE_THRESHOLD", 50)),
			DDoSConnThreshold:  getEnvInt("ARGUS_DDOS_CONN_THRESHOLD", 100),
			PortInterval:       getEnvDuration("ARGUS_PORT_INTERVAL", 30*time.Second),
			DDoSInterval:       getEnvDuration("ARGUS_DDOS_INTERVAL", 10*time.Second),
			TrafficInterval:    getEnvDuration("ARGUS_TRAFFIC_INTERVAL", 60*time.Second),
		},
	}

	if err := cfg.Gatekeeper.Validate(); err != nil {
		return Config{}, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

// Validate rejects thresholds that would make the gatekeeper admit nothing
// or count nothing.
func (g GatekeeperConfig) Validate() error {
	for name, v := range map[string]int{
		"global limit":   g.GlobalLimit,
		"ip limit":       g.IPLimit,
		"endpoint limit": g.EndpointLimit,
		"login limit":    g.LoginLimit,
	} {
		if v <= 0 {
			return fmt.Errorf("invalid configuration: %s must be positive, got %d", name, v)
		}
	}
	for name, d := range map[string]time.Duration{
		"global window":   g.GlobalWindow,
		"ip window":       g.IPWindow,
		"endpoint window": g.EndpointWindow,
		"login window":    g.LoginWindow,
		"assess timeout":  g.AssessTimeout,
		"block duration":  g.BlockDuration,
	} {
		if d <= 0 {
			return fmt.Errorf("invalid configuration: %s must be positive, got %s", name, d)
		}
	}
	if g.EmergencyFactor < 2 {
		return fmt.Errorf("invalid configuration: emergency factor must be at least 2, got %d", g.EmergencyFactor)
	}
	if g.EmergencyFloor <= 0 {
		return fmt.Errorf("invalid configuration: emergency floor must be positive, got %d", g.EmergencyFloor)
	}
	if g.EventLogCapacity <= 0 {
		return fmt.Errorf("invalid configuration: event log capacity must be positive, got %d", g.EventLogCapacity)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitPorts(raw string) []int {
	var out []int
	for _, p := range splitList(raw) {
		if n, err := strconv.Atoi(p); err == nil && n > 0 && n < 65536 {
			out = append(out, n)
		}
	}
	return out
}
