package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != 1155 {
		t.Errorf("Expected port 1155, got %d", cfg.Server.Port)
	}
	if cfg.Server.TickInterval() != 50*time.Millisecond {
		t.Errorf("Expected 50ms ticks, got %v", cfg.Server.TickInterval())
	}
	if cfg.Match.MapWidth != 11 || cfg.Match.MapHeight != 11 {
		t.Errorf("Unexpected map size %dx%d", cfg.Match.MapWidth, cfg.Match.MapHeight)
	}
	if !cfg.Journal.Enabled || !cfg.Debug.Enabled {
		t.Error("Journal and debug server should be on by default")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("TICKS_PER_SECOND", "40")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("MAP_WALLS", "0")
	t.Setenv("MATCH_SEED", "99")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FILE", "")
	t.Setenv("JOURNAL_ENABLED", "false")
	t.Setenv("JOURNAL_FLUSH", "250ms")
	t.Setenv("DEBUG_ADDR", "127.0.0.1:7070")

	cfg := Load()

	if cfg.Server.Port != 8080 {
		t.Errorf("PORT not applied: %d", cfg.Server.Port)
	}
	if cfg.Server.TickInterval() != 25*time.Millisecond {
		t.Errorf("TICKS_PER_SECOND not applied: %v", cfg.Server.TickInterval())
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("ALLOWED_ORIGINS not parsed: %q", cfg.Server.AllowedOrigins)
	}
	if cfg.Match.Walls != 0 || cfg.Match.Seed != 99 {
		t.Errorf("Match overrides not applied: %+v", cfg.Match)
	}
	if cfg.Log.Level != "debug" || cfg.Log.File != "" {
		t.Errorf("Log overrides not applied: %+v", cfg.Log)
	}
	if cfg.Journal.Enabled || cfg.Journal.FlushInterval != 250*time.Millisecond {
		t.Errorf("Journal overrides not applied: %+v", cfg.Journal)
	}
	if cfg.Debug.Addr != "127.0.0.1:7070" {
		t.Errorf("DEBUG_ADDR not applied: %s", cfg.Debug.Addr)
	}
}

func TestInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("HTTP_RATE", "-3")
	t.Setenv("SHUTDOWN_GRACE", "soon")

	cfg := Load()

	if cfg.Server.Port != DefaultServer().Port {
		t.Errorf("Invalid PORT should be ignored, got %d", cfg.Server.Port)
	}
	if cfg.Limits.HTTPRequestsPerSec != DefaultLimits().HTTPRequestsPerSec {
		t.Errorf("Negative HTTP_RATE should be ignored, got %v", cfg.Limits.HTTPRequestsPerSec)
	}
	if cfg.Server.ShutdownGrace != DefaultServer().ShutdownGrace {
		t.Errorf("Invalid SHUTDOWN_GRACE should be ignored, got %v", cfg.Server.ShutdownGrace)
	}
}
