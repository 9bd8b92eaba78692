package config

import (
	"testing"
	"time"

	"PartsStore/internal/catalog"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("CATALOG_REMOTE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8082" || cfg.RemoteTimeout != 3*time.Second || cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.IsServer() {
		t.Fatalf("empty APP_ENV must not be a server")
	}

	cc := cfg.Catalog()
	if cc.FreshnessWindow != catalog.DevFreshnessWindow || !cc.Verbose {
		t.Fatalf("catalog=%+v", cc)
	}
	if cfg.WritesEnabled() {
		t.Fatalf("writes enabled without secrets")
	}
}

func TestLoad_Production(t *testing.T) {
	t.Setenv("APP_ENV", " Production ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.IsServer() {
		t.Fatalf("env=%q", cfg.Env)
	}

	cc := cfg.Catalog()
	if cc.FreshnessWindow != catalog.ServerFreshnessWindow || cc.Verbose {
		t.Fatalf("catalog=%+v", cc)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("CATALOG_CACHE_TTL", "90s")
	t.Setenv("CATALOG_VERBOSE", "true")
	t.Setenv("CATALOG_REMOTE_URL", "https://db.example.test")
	t.Setenv("CATALOG_REMOTE_KEY", "anon")
	t.Setenv("CATALOG_REMOTE_TIMEOUT", "750ms")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("ADMIN_PASSWORD_HASH", "$2a$10$abc")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cc := cfg.Catalog()
	if cc.FreshnessWindow != 90*time.Second || !cc.Verbose {
		t.Fatalf("catalog=%+v", cc)
	}

	rc := cfg.Remote()
	if rc.Endpoint != "https://db.example.test" || rc.AccessKey != "anon" || rc.Timeout != 750*time.Millisecond {
		t.Fatalf("remote=%+v", rc)
	}
	if !cfg.WritesEnabled() {
		t.Fatalf("writes should be enabled")
	}
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("CATALOG_CACHE_TTL", "soon")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error")
	}
}
