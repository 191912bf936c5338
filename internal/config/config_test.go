package config

import (
	"strings"
	"testing"
	"time"
)

func validDashboard() Config {
	return Config{
		App: AppConfig{Env: "local", Port: 3000},
		API: APIConfig{BaseURL: "http://localhost:5000"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"APP_ENV", "API_BASE_URL"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %q", want, err)
		}
	}
}

func TestValidate_LocalDefaultsToMemoryStore(t *testing.T) {
	c := validDashboard()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Store.Backend != StoreMemory {
		t.Fatalf("expected memory store default, got %q", c.Store.Backend)
	}
	if c.Store.Namespace != defaultNamespace {
		t.Fatalf("expected default namespace, got %q", c.Store.Namespace)
	}
	if c.API.Timeout != defaultAPITimeout {
		t.Fatalf("expected default timeout, got %v", c.API.Timeout)
	}
}

func TestValidate_ProductionRequiresDurableStoreAndHTTPS(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "production", Port: 443},
		API:   APIConfig{BaseURL: "http://api.example.edu"},
		Store: StoreConfig{Backend: StoreMemory},
	}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "https") || !strings.Contains(err.Error(), "TOKEN_STORE=memory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_PostgresStoreDefaultsSSLMode(t *testing.T) {
	c := validDashboard()
	c.Store.Backend = StorePostgres
	c.DB = DBConfig{Host: "localhost", Port: 5432, User: "postgres", Name: "portal"}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_RedisStoreRequiresHost(t *testing.T) {
	c := validDashboard()
	c.Store.Backend = StoreRedis
	c.Redis = RedisConfig{Port: 6379}
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "REDIS_HOST") {
		t.Fatalf("expected REDIS_HOST error, got %v", err)
	}
}

func TestValidate_UnknownStore(t *testing.T) {
	c := validDashboard()
	c.Store.Backend = "sqlite"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateMockAPI_DefaultsTTLs(t *testing.T) {
	c := Config{
		App:     AppConfig{Env: "dev"},
		MockAPI: MockAPIConfig{Port: 5000},
		Auth:    AuthConfig{JWTSecret: "secret"},
	}
	if err := c.ValidateMockAPI(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Auth.AccessTokenTTL != 5*time.Minute || c.Auth.RefreshTokenTTL != 7*24*time.Hour {
		t.Fatalf("unexpected ttl defaults: %+v", c.Auth)
	}
}

func TestValidateMockAPI_RefusesProduction(t *testing.T) {
	c := Config{
		App:     AppConfig{Env: "production"},
		MockAPI: MockAPIConfig{Port: 5000},
		Auth:    AuthConfig{JWTSecret: "secret"},
	}
	if err := c.ValidateMockAPI(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadDashboard_ReadsEnv(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("APP_PORT", "3100")
	t.Setenv("API_BASE_URL", "http://localhost:5000")
	t.Setenv("API_LOGOUT_PATH", "off")
	t.Setenv("API_TIMEOUT", "3s")

	c, err := LoadDashboard()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.App.Port != 3100 || c.API.Timeout != 3*time.Second {
		t.Fatalf("unexpected config: %+v", c)
	}
	if c.API.LogoutPath != "" {
		t.Fatalf("expected logout notification disabled, got %q", c.API.LogoutPath)
	}
}

func TestLoadDashboard_ReportsBadNumbers(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("APP_PORT", "web")
	t.Setenv("API_BASE_URL", "http://localhost:5000")

	if _, err := LoadDashboard(); err == nil || !strings.Contains(err.Error(), "APP_PORT") {
		t.Fatalf("expected APP_PORT error, got %v", err)
	}
}
