package config

import (
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.JWTExpirationMinutes != 15 {
		t.Errorf("expected default access TTL of 15 minutes, got %d", cfg.JWTExpirationMinutes)
	}
	if cfg.JWTRefreshExpirationHours != 168 {
		t.Errorf("expected default refresh TTL of 168 hours, got %d", cfg.JWTRefreshExpirationHours)
	}
	if cfg.Database.DSN == "" {
		t.Error("DSN should be composed from database settings")
	}
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_USERNAME", "svc")
	t.Setenv("DB_PASSWORD", "hunter2")
	t.Setenv("DB_NAME", "fleet")
	t.Setenv("JWT_EXPIRATION_MINUTES", "5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("expected port 9000, got %s", cfg.Port)
	}
	if cfg.JWTExpirationMinutes != 5 {
		t.Errorf("expected access TTL of 5 minutes, got %d", cfg.JWTExpirationMinutes)
	}
	want := "svc:hunter2@tcp(db.internal:3307)/fleet?charset=utf8mb4&parseTime=True&loc=Local"
	if cfg.Database.DSN != want {
		t.Errorf("unexpected DSN:\n got %s\nwant %s", cfg.Database.DSN, want)
	}
}

func TestLoadConfigRejectsBadTTL(t *testing.T) {
	t.Setenv("JWT_EXPIRATION_MINUTES", "fifteen")

	if _, err := LoadConfig(); err == nil {
		t.Error("non-numeric TTL should be rejected")
	}
}
