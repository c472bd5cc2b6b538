package config

import (
	"os"
	"reflect"
	"testing"
)

func TestEnvOr(t *testing.T) {
	// Unset key returns fallback
	os.Unsetenv("TEST_ENVOR_KEY")
	if got := envOr("TEST_ENVOR_KEY", "default"); got != "default" {
		t.Errorf("envOr unset key = %q, want %q", got, "default")
	}

	// Set key returns value
	os.Setenv("TEST_ENVOR_KEY", "custom")
	defer os.Unsetenv("TEST_ENVOR_KEY")
	if got := envOr("TEST_ENVOR_KEY", "default"); got != "custom" {
		t.Errorf("envOr set key = %q, want %q", got, "custom")
	}

	// Empty string returns fallback
	os.Setenv("TEST_ENVOR_KEY", "")
	if got := envOr("TEST_ENVOR_KEY", "fallback"); got != "fallback" {
		t.Errorf("envOr empty key = %q, want %q", got, "fallback")
	}
}

func TestLoadDefaults(t *testing.T) {
	// Clear all relevant env vars
	for _, k := range []string{"PORT", "FRONTEND_ORIGIN", "ZAPPER_API_KEY", "THECELO_HOSTS", "INFISICAL_CLIENT_ID", "INFISICAL_CLIENT_SECRET"} {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.FrontendOrigin != "*" {
		t.Errorf("FrontendOrigin = %q, want %q", cfg.FrontendOrigin, "*")
	}
	if cfg.ZapperAPIKey != "" {
		t.Errorf("ZapperAPIKey = %q, want empty", cfg.ZapperAPIKey)
	}
	if !reflect.DeepEqual(cfg.TheCeloHosts, []string{"https://thecelo.com"}) {
		t.Errorf("TheCeloHosts = %v, want default host", cfg.TheCeloHosts)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("PORT", "9090")
	os.Setenv("ZAPPER_API_KEY", "test-key")
	os.Setenv("FRONTEND_ORIGIN", "http://localhost:3000")
	os.Setenv("THECELO_HOSTS", "https://a.example, https://b.example")
	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("ZAPPER_API_KEY")
		os.Unsetenv("FRONTEND_ORIGIN")
		os.Unsetenv("THECELO_HOSTS")
	}()

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.ZapperAPIKey != "test-key" {
		t.Errorf("ZapperAPIKey = %q, want %q", cfg.ZapperAPIKey, "test-key")
	}
	if cfg.FrontendOrigin != "http://localhost:3000" {
		t.Errorf("FrontendOrigin = %q, want %q", cfg.FrontendOrigin, "http://localhost:3000")
	}
	if !reflect.DeepEqual(cfg.TheCeloHosts, []string{"https://a.example", "https://b.example"}) {
		t.Errorf("TheCeloHosts = %v, want two hosts", cfg.TheCeloHosts)
	}
}
