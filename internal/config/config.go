// Package config provides environment-and-flag-aware configuration loading
// for the server, adapted from the teacher's infrastructure/config package:
// the same getEnv/getIntEnv/getDurationEnv helper shape, a
// flag.FlagSet layered over the environment, and a Validate pass.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every CLI/env-configurable setting (spec §6).
type Config struct {
	Host string
	Port int

	DataDir string

	SessionTTL    time.Duration
	QueryTimeout  time.Duration
	BlockingPoolSize int

	RateLimitRequests int
	RateLimitWindow   time.Duration

	CORSOrigins []string

	LogLevel  string
	LogFormat string

	TLSCert string
	TLSKey  string

	AuthToken    string
	AuthUser     string
	AuthPassword string

	GWPPort         int
	GWPMaxSessions  int
	BoltPort        int
	BoltMaxSessions int

	MetricsBatchSize int
}

// Load parses CLI flags (falling back to environment variables, falling
// back to defaults) into a Config. args is normally os.Args[1:].
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("grafeo-server", flag.ContinueOnError)

	host := fs.String("host", getEnv("GRAFEO_HOST", "0.0.0.0"), "bind host")
	port := fs.Int("port", getIntEnv("GRAFEO_PORT", 8080), "bind port")
	dataDir := fs.String("data-dir", getEnv("GRAFEO_DATA_DIR", ""), "persistent database directory (empty: in-memory only)")

	sessionTTL := fs.Duration("session-ttl", getDurationEnv("GRAFEO_SESSION_TTL", 5*time.Minute), "transaction session TTL")
	queryTimeout := fs.Duration("query-timeout", getDurationEnv("GRAFEO_QUERY_TIMEOUT", 30*time.Second), "per-query timeout (0 disables)")
	blockingPoolSize := fs.Int("blocking-pool-size", getIntEnv("GRAFEO_BLOCKING_POOL_SIZE", 64), "size of the dedicated blocking-query worker pool")

	rateLimitRequests := fs.Int("rate-limit", getIntEnv("GRAFEO_RATE_LIMIT", 0), "max requests per client per window (0 disables)")
	rateLimitWindow := fs.Duration("rate-limit-window", getDurationEnv("GRAFEO_RATE_LIMIT_WINDOW", time.Minute), "rate limit window")

	corsOrigins := fs.String("cors-origins", getEnv("GRAFEO_CORS_ORIGINS", "*"), "comma-separated allowed CORS origins")

	logLevel := fs.String("log-level", getEnv("LOG_LEVEL", "info"), "log level")
	logFormat := fs.String("log-format", getEnv("LOG_FORMAT", "json"), "log format (json|text)")

	tlsCert := fs.String("tls-cert", getEnv("GRAFEO_TLS_CERT", ""), "TLS certificate path (empty disables TLS)")
	tlsKey := fs.String("tls-key", getEnv("GRAFEO_TLS_KEY", ""), "TLS key path")

	authToken := fs.String("auth-token", getEnv("GRAFEO_AUTH_TOKEN", ""), "static bearer token (empty disables bearer auth)")
	authUser := fs.String("auth-user", getEnv("GRAFEO_AUTH_USER", ""), "static basic-auth username")
	authPassword := fs.String("auth-password", getEnv("GRAFEO_AUTH_PASSWORD", ""), "static basic-auth password")

	gwpPort := fs.Int("gwp-port", getIntEnv("GRAFEO_GWP_PORT", 0), "streaming-protocol (gRPC-framed) port (0 disables)")
	gwpMaxSessions := fs.Int("gwp-max-sessions", getIntEnv("GRAFEO_GWP_MAX_SESSIONS", 100), "max concurrent streaming-protocol sessions")
	boltPort := fs.Int("bolt-port", getIntEnv("GRAFEO_BOLT_PORT", 0), "driver-protocol port (0 disables)")
	boltMaxSessions := fs.Int("bolt-max-sessions", getIntEnv("GRAFEO_BOLT_MAX_SESSIONS", 100), "max concurrent driver-protocol sessions")

	metricsBatchSize := fs.Int("metrics-batch-size", getIntEnv("GRAFEO_METRICS_BATCH_SIZE", 1000), "number of result rows per streamed batch")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &Config{
		Host:              *host,
		Port:              *port,
		DataDir:           *dataDir,
		SessionTTL:        *sessionTTL,
		QueryTimeout:      *queryTimeout,
		BlockingPoolSize:  *blockingPoolSize,
		RateLimitRequests: *rateLimitRequests,
		RateLimitWindow:   *rateLimitWindow,
		CORSOrigins:       splitCSV(*corsOrigins),
		LogLevel:          *logLevel,
		LogFormat:         *logFormat,
		TLSCert:           *tlsCert,
		TLSKey:            *tlsKey,
		AuthToken:         *authToken,
		AuthUser:          *authUser,
		AuthPassword:      *authPassword,
		GWPPort:           *gwpPort,
		GWPMaxSessions:    *gwpMaxSessions,
		BoltPort:          *boltPort,
		BoltMaxSessions:   *boltMaxSessions,
		MetricsBatchSize:  *metricsBatchSize,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that individual flag parsing
// cannot: TLS requires both cert and key, and ports must be between 1 and
// 65535 unless explicitly 0 (meaning "disabled").
func (c *Config) Validate() error {
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("tls-cert and tls-key must be set together")
	}
	for _, port := range []int{c.Port, c.GWPPort, c.BoltPort} {
		if port == 0 {
			continue
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid port number: %d", port)
		}
	}
	if c.BlockingPoolSize < 1 {
		return fmt.Errorf("blocking-pool-size must be >= 1")
	}
	return nil
}

// TLSEnabled reports whether both TLS materials are configured.
func (c *Config) TLSEnabled() bool { return c.TLSCert != "" && c.TLSKey != "" }

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if iv, err := strconv.Atoi(v); err == nil {
			return iv
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if dv, err := time.ParseDuration(v); err == nil {
			return dv
		}
	}
	return defaultValue
}
