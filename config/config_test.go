package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "DEFAULT_OVERS", "FREE_HIT_ON_NO_BALL", "PENDING_COMMAND_TTL", "REDIS_ENABLED", "ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Scoring.DefaultOvers != 20 || !cfg.Scoring.FreeHitOnNoBall || cfg.Redis.Enabled {
		t.Errorf("scoring/redis defaults = %+v / %+v", cfg.Scoring, cfg.Redis)
	}
	if cfg.Scoring.PendingCommandTTL != 2*time.Minute {
		t.Errorf("pending ttl = %v", cfg.Scoring.PendingCommandTTL)
	}
	if len(cfg.App.AllowedOrigins) != 1 || cfg.App.AllowedOrigins[0] != "*" {
		t.Errorf("origins = %v", cfg.App.AllowedOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DEFAULT_OVERS", "10")
	t.Setenv("FREE_HIT_ON_BOUNDARY_NO_BALL", "false")
	t.Setenv("PENDING_COMMAND_TTL", "45s")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_STREAM_MAXLEN", "500")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("DB_NAME", "scores")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Scoring.DefaultOvers != 10 || cfg.Scoring.FreeHitOnBoundaryNoBall {
		t.Errorf("scoring = %+v", cfg.Scoring)
	}
	if cfg.Scoring.PendingCommandTTL != 45*time.Second {
		t.Errorf("pending ttl = %v", cfg.Scoring.PendingCommandTTL)
	}
	if !cfg.Redis.Enabled || cfg.Redis.StreamMaxLen != 500 {
		t.Errorf("redis = %+v", cfg.Redis)
	}
	if len(cfg.App.AllowedOrigins) != 2 || cfg.App.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("origins = %v", cfg.App.AllowedOrigins)
	}
	if !strings.Contains(cfg.DSN(), "dbname=scores") {
		t.Errorf("dsn = %q", cfg.DSN())
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"DEFAULT_OVERS", "twenty"},
		{"DEFAULT_OVERS", "0"},
		{"DEFAULT_OVERS", "51"},
		{"FREE_HIT_ON_NO_BALL", "maybe"},
		{"PENDING_COMMAND_TTL", "5"},
		{"REDIS_DB", "one"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadConfig(); err == nil {
				t.Errorf("LoadConfig accepted %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestGormConfigTranslatesErrors(t *testing.T) {
	for _, env := range []string{"development", "production", "test"} {
		c := gormConfig(env)
		if !c.TranslateError {
			t.Errorf("%s: TranslateError is off, duplicate keys would not map to gorm.ErrDuplicatedKey", env)
		}
		if c.Logger == nil {
			t.Errorf("%s: no logger", env)
		}
	}
}
