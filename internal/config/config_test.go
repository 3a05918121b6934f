package config

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "test-passphrase")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %s, want 8080", cfg.Server.Port)
	}
	if cfg.Lifecycle.SubmissionCap != 1000 {
		t.Errorf("SubmissionCap = %d, want 1000", cfg.Lifecycle.SubmissionCap)
	}
	if cfg.Lifecycle.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %v, want 1h", cfg.Lifecycle.SessionTTL)
	}
	if cfg.Lifecycle.DataTTL != 24*time.Hour {
		t.Errorf("DataTTL = %v, want 24h", cfg.Lifecycle.DataTTL)
	}
	if cfg.Lifecycle.StatusTTL != 0 {
		t.Errorf("StatusTTL = %v, want 0 (no expiry)", cfg.Lifecycle.StatusTTL)
	}
	if cfg.Provider.Simulate {
		t.Error("Simulate = true, want false by default")
	}
	if cfg.Redis.Host != "" {
		t.Errorf("Redis.Host = %s, want empty (disabled)", cfg.Redis.Host)
	}
}

func TestLoadConfig_RequiresEncryptionKey(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "")

	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig() without ENCRYPTION_KEY expected error")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "test-passphrase")
	t.Setenv("PORT", "9090")
	t.Setenv("SUBMISSION_CAP", "50")
	t.Setenv("STATUS_TTL", "30m")
	t.Setenv("SIMULATE_PROVIDER", "true")
	t.Setenv("RATE_LIMIT_RPS", "5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Port = %s, want 9090", cfg.Server.Port)
	}
	if cfg.Lifecycle.SubmissionCap != 50 {
		t.Errorf("SubmissionCap = %d, want 50", cfg.Lifecycle.SubmissionCap)
	}
	if cfg.Lifecycle.StatusTTL != 30*time.Minute {
		t.Errorf("StatusTTL = %v, want 30m", cfg.Lifecycle.StatusTTL)
	}
	if !cfg.Provider.Simulate {
		t.Error("Simulate = false, want true")
	}
	if cfg.RateLimit.RequestsPerSecond != 5 {
		t.Errorf("RequestsPerSecond = %d, want 5", cfg.RateLimit.RequestsPerSecond)
	}
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "test-passphrase")
	t.Setenv("STATUS_TTL", "not-a-duration")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Lifecycle.StatusTTL != 0 {
		t.Errorf("StatusTTL = %v, want default 0", cfg.Lifecycle.StatusTTL)
	}
	if cfg.Redis.DB != 0 {
		t.Errorf("Redis.DB = %d, want default 0", cfg.Redis.DB)
	}
}

func TestLoadConfig_RejectsNonPositiveCap(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "test-passphrase")
	t.Setenv("SUBMISSION_CAP", "-1")

	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig() with negative cap expected error")
	}
}
