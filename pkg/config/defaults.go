// Package config provides centralized default values for the consent banner server
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Info("Loading configuration overrides from .env file")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			key, value, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			key = strings.TrimSpace(key)
			value = strings.Trim(strings.TrimSpace(value), `"`)

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Debug("Config override", "key", key, "value", val, "default", defaultValue)
			}
			return val
		}
		log.Warn("Ignoring malformed integer", "key", key, "value", valStr)
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Debug("Config override", "key", key, "value", val, "default", defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Debug("Config override", "key", key, "value", val, "default", defaultValue)
			}
			return val
		}
		log.Warn("Ignoring malformed boolean", "key", key, "value", valStr)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Debug("Config override", "key", key, "value", val, "default", defaultValue)
			}
			return val
		}
		log.Warn("Ignoring malformed duration", "key", key, "value", valStr)
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	ShutdownTimeout    time.Duration

	// PublicBaseURL is the origin embedded in hosted snippets. Empty means the request host.
	PublicBaseURL string
	// RuntimeDir holds wasm_exec.js and consent-runtime.wasm.
	RuntimeDir string
	// DashboardOrigins is the CORS allow-list for the authenticated API.
	DashboardOrigins []string

	// Storage
	DataDir           string
	LogDir            string
	LogJSONConsole    bool
	EnableMultiTenant bool

	// Database Pool
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	DBConnMaxIdleMinutes     int
	SlowQueryThreshold       time.Duration

	// Cache
	RedisURL       string
	WidgetCacheTTL time.Duration

	// Auth
	JWTTTL time.Duration

	// Analytics ingestion
	MaxEventBodyBytes  int64
	StreamPingInterval time.Duration

	// Cleanup Intervals
	CleanupInterval       time.Duration
	DBPoolCleanupInterval time.Duration
)

func init() {
	loadEnvFile()
	Load()
}

// Load (re)reads every value from the environment.
func Load() {
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)

	PublicBaseURL = strings.TrimRight(getEnvString("PUBLIC_BASE_URL", ""), "/")
	DashboardOrigins = splitList(getEnvString("DASHBOARD_ORIGINS", "http://localhost:4321"))

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	DataDir = getEnvString("DATA_DIR", filepath.Join(home, "consent-banner"))
	LogDir = getEnvString("LOG_DIR", filepath.Join(DataDir, "logs"))
	RuntimeDir = getEnvString("RUNTIME_DIR", filepath.Join(DataDir, "runtime"))
	LogJSONConsole = getEnvBool("LOG_JSON_CONSOLE", false)
	EnableMultiTenant = getEnvBool("ENABLE_MULTI_TENANT", false)

	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	DBConnMaxIdleMinutes = getEnvInt("DB_CONN_MAX_IDLE_MINUTES", 3)
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 200*time.Millisecond)

	RedisURL = getEnvString("REDIS_URL", "")
	WidgetCacheTTL = time.Duration(getEnvInt("WIDGET_CACHE_TTL_MINUTES", 10)) * time.Minute

	JWTTTL = time.Duration(getEnvInt("JWT_TTL_HOURS", 24)) * time.Hour

	MaxEventBodyBytes = int64(getEnvInt("MAX_EVENT_BODY_BYTES", 16<<10))
	StreamPingInterval = time.Duration(getEnvInt("STREAM_PING_INTERVAL_SECONDS", 30)) * time.Second

	CleanupInterval = time.Duration(getEnvInt("CACHE_CLEANUP_INTERVAL_MINUTES", 5)) * time.Minute
	DBPoolCleanupInterval = time.Duration(getEnvInt("DB_POOL_CLEANUP_INTERVAL_MINUTES", 5)) * time.Minute
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
