package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SOLMERCADO_GATEWAY_BASE_URL", "https://api.solmercado.test")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if !cfg.App.IsDev() {
		t.Fatalf("expected dev env by default, got %q", cfg.App.Env)
	}
	if cfg.Storage.NormalizedBackend() != StorageBackendSQLite {
		t.Fatalf("expected sqlite backend default, got %q", cfg.Storage.Backend)
	}
	if cfg.Gateway.Timeout != 10*time.Second {
		t.Fatalf("expected 10s gateway timeout, got %s", cfg.Gateway.Timeout)
	}
	if cfg.Gateway.SessionHeader != "X-Session-Id" {
		t.Fatalf("unexpected session header %q", cfg.Gateway.SessionHeader)
	}
	if cfg.JWT.ClockSkew != 30*time.Second {
		t.Fatalf("expected 30s clock skew, got %s", cfg.JWT.ClockSkew)
	}
}

func TestLoadRequiresGatewayBaseURL(t *testing.T) {
	t.Setenv("SOLMERCADO_GATEWAY_BASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without gateway base url")
	}
}

func TestLoadRejectsUnknownStorageBackend(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SOLMERCADO_STORAGE_BACKEND", "punchcards")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown storage backend")
	}
}

func TestLoadRejectsSQLiteWithoutPath(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SOLMERCADO_STORAGE_BACKEND", "sqlite")
	t.Setenv(EnvStorageSQLitePath, " ")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for blank sqlite path")
	}
}
