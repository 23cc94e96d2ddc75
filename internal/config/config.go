// Package config provides centralized configuration management.
// Every tunable of the server lives here; other packages receive the
// sections they need instead of reading the environment themselves.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	TicksPerSecond int      // Match simulation rate
	AllowedOrigins []string // CORS and websocket origin allow-list; "*" allows all
	ShutdownGrace  time.Duration
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           1155,
		TicksPerSecond: 20,
		AllowedOrigins: []string{"*"},
		ShutdownGrace:  5 * time.Second,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if tps := getEnvInt("TICKS_PER_SECOND", 0); tps > 0 {
		cfg.TicksPerSecond = tps
	}
	if origins := getEnvList("ALLOWED_ORIGINS"); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}
	if d := getEnvDuration("SHUTDOWN_GRACE", 0); d > 0 {
		cfg.ShutdownGrace = d
	}

	return cfg
}

// TickInterval is the wall-clock time between two simulation ticks.
func (c ServerConfig) TickInterval() time.Duration {
	if c.TicksPerSecond <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(c.TicksPerSecond)
}

// =============================================================================
// MATCH CONFIGURATION
// =============================================================================

// MatchConfig describes the arena generated for a new match.
type MatchConfig struct {
	MapWidth  int
	MapHeight int
	Walls     int   // Walls placed at random when the match is created
	Seed      int64 // 0 seeds from the clock
}

// DefaultMatch returns the default match configuration.
func DefaultMatch() MatchConfig {
	return MatchConfig{
		MapWidth:  11,
		MapHeight: 11,
		Walls:     12,
	}
}

// MatchFromEnv returns match configuration with environment variable overrides.
func MatchFromEnv() MatchConfig {
	cfg := DefaultMatch()

	if w := getEnvInt("MAP_WIDTH", 0); w > 0 {
		cfg.MapWidth = w
	}
	if h := getEnvInt("MAP_HEIGHT", 0); h > 0 {
		cfg.MapHeight = h
	}
	if n := getEnvInt("MAP_WALLS", -1); n >= 0 {
		cfg.Walls = n
	}
	if v := os.Getenv("MATCH_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = seed
		}
	}

	return cfg
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls DoS protection.
type ResourceLimits struct {
	MaxPlayers          int     // Players beyond this join as spectators
	MaxConnections      int     // Total websocket connections
	MaxConnectionsPerIP int     // Websocket connections per remote IP
	HTTPRequestsPerSec  float64 // Per-IP HTTP rate
	HTTPBurst           int
	WSMessagesPerSec    float64 // Per-connection inbound message rate
	WSBurst             int
	MaxMessageBytes     int64
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxPlayers:          16,
		MaxConnections:      256,
		MaxConnectionsPerIP: 8,
		HTTPRequestsPerSec:  10,
		HTTPBurst:           20,
		WSMessagesPerSec:    20,
		WSBurst:             40,
		MaxMessageBytes:     16 * 1024,
	}
}

// LimitsFromEnv returns resource limits with environment variable overrides.
func LimitsFromEnv() ResourceLimits {
	cfg := DefaultLimits()

	if n := getEnvInt("MAX_PLAYERS", 0); n > 0 {
		cfg.MaxPlayers = n
	}
	if n := getEnvInt("MAX_CONNECTIONS", 0); n > 0 {
		cfg.MaxConnections = n
	}
	if n := getEnvInt("MAX_CONNECTIONS_PER_IP", 0); n > 0 {
		cfg.MaxConnectionsPerIP = n
	}
	if r := getEnvFloat("HTTP_RATE", 0); r > 0 {
		cfg.HTTPRequestsPerSec = r
	}
	if r := getEnvFloat("WS_RATE", 0); r > 0 {
		cfg.WSMessagesPerSec = r
	}

	return cfg
}

// =============================================================================
// LOGGING
// =============================================================================

// LogConfig controls the process logger.
type LogConfig struct {
	Level      string // debug, info, warn, error
	File       string // Empty disables the file sink
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultLog returns the default logging configuration.
func DefaultLog() LogConfig {
	return LogConfig{
		Level:      "info",
		File:       "logs/server.log",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 7,
	}
}

// LogFromEnv returns logging configuration with environment variable overrides.
func LogFromEnv() LogConfig {
	cfg := DefaultLog()

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Level = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv("LOG_FILE"); ok {
		cfg.File = v
	}
	if n := getEnvInt("LOG_MAX_SIZE_MB", 0); n > 0 {
		cfg.MaxSizeMB = n
	}

	return cfg
}

// =============================================================================
// EVENT JOURNAL
// =============================================================================

// JournalConfig controls the game event journal.
type JournalConfig struct {
	Enabled            bool
	File               string
	BufferSize         int // Ring buffer capacity, in events
	FlushInterval      time.Duration
	EventsPerSec       float64 // Global cap on journaled events
	PlayerEventsPerSec float64 // Per-player cap
	MaxSizeMB          int
	MaxBackups         int
}

// DefaultJournal returns the default journal configuration.
func DefaultJournal() JournalConfig {
	return JournalConfig{
		Enabled:            true,
		File:               "logs/events.ndjson",
		BufferSize:         4096,
		FlushInterval:      time.Second,
		EventsPerSec:       500,
		PlayerEventsPerSec: 50,
		MaxSizeMB:          50,
		MaxBackups:         5,
	}
}

// JournalFromEnv returns journal configuration with environment variable overrides.
func JournalFromEnv() JournalConfig {
	cfg := DefaultJournal()

	if os.Getenv("JOURNAL_ENABLED") == "false" {
		cfg.Enabled = false
	}
	if v := os.Getenv("JOURNAL_FILE"); v != "" {
		cfg.File = v
	}
	if d := getEnvDuration("JOURNAL_FLUSH", 0); d > 0 {
		cfg.FlushInterval = d
	}

	return cfg
}

// =============================================================================
// DEBUG ENDPOINTS
// =============================================================================

// DebugConfig controls the pprof and metrics listener.
type DebugConfig struct {
	Enabled bool
	Addr    string // Bind to localhost only
}

// DefaultDebug returns the default debug configuration.
func DefaultDebug() DebugConfig {
	return DebugConfig{
		Enabled: true,
		Addr:    "127.0.0.1:6060",
	}
}

// DebugFromEnv returns debug configuration with environment variable overrides.
func DebugFromEnv() DebugConfig {
	cfg := DefaultDebug()

	if os.Getenv("DEBUG_SERVER") == "false" {
		cfg.Enabled = false
	}
	if v := os.Getenv("DEBUG_ADDR"); v != "" {
		cfg.Addr = v
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server  ServerConfig
	Match   MatchConfig
	Limits  ResourceLimits
	Log     LogConfig
	Journal JournalConfig
	Debug   DebugConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Server:  ServerFromEnv(),
		Match:   MatchFromEnv(),
		Limits:  LimitsFromEnv(),
		Log:     LogFromEnv(),
		Journal: JournalFromEnv(),
		Debug:   DebugFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
