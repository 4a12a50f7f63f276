package config

import (
	"strings"
	"testing"
	"time"
)

func baseConfig() Config {
	return Config{
		App: AppConfig{Env: "local", Port: 8080},
		API: APIConfig{BaseURL: "http://localhost:8000"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"APP_ENV", "APP_PORT", "API_BASE_URL"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in error, got %v", want, err)
		}
	}
}

func TestValidate_DefaultsFileStore(t *testing.T) {
	c := baseConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Session.Store != StoreFile || c.Session.FilePath != "session.json" {
		t.Fatalf("unexpected session defaults: %+v", c.Session)
	}
	if c.Session.Profile != "default" {
		t.Fatalf("expected default profile, got %q", c.Session.Profile)
	}
	if c.Session.CheckInterval != 5*time.Minute || c.Session.ExpiryMargin != 30*time.Second {
		t.Fatalf("unexpected timing defaults: %+v", c.Session)
	}
	if c.API.Timeout != 15*time.Second {
		t.Fatalf("expected default API timeout, got %v", c.API.Timeout)
	}
}

func TestValidate_RejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"not a url", "ftp://x", "localhost:8000"} {
		c := baseConfig()
		c.API.BaseURL = raw
		if err := c.Validate(); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestValidate_RedisStoreRequiresRedis(t *testing.T) {
	c := baseConfig()
	c.Session.Store = StoreRedis
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for redis store without REDIS_HOST")
	}

	c = baseConfig()
	c.Session.Store = StoreRedis
	c.Redis = RedisConfig{Host: "localhost", Port: 6379}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.RedisAddr() != "localhost:6379" {
		t.Fatalf("unexpected redis addr %q", c.RedisAddr())
	}
}

func TestValidate_PostgresStoreProductionRequiresSSLMode(t *testing.T) {
	c := baseConfig()
	c.App.Env = "production"
	c.Session.Store = StorePostgres
	c.DB = DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "pos"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_PostgresStoreLocalDefaultsSSLMode(t *testing.T) {
	c := baseConfig()
	c.Session.Store = StorePostgres
	c.DB = DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "pos"}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_RejectsUnknownStore(t *testing.T) {
	c := baseConfig()
	c.Session.Store = "etcd"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for unknown store")
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("API_BASE_URL", "https://pos.example.com")
	t.Setenv("SESSION_STORE", "file")
	t.Setenv("SESSION_FILE", "/tmp/pos-session.json")
	t.Setenv("SESSION_CHECK_INTERVAL", "1m")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.App.Port != 9090 || c.API.BaseURL != "https://pos.example.com" {
		t.Fatalf("unexpected config: %+v", c)
	}
	if c.Session.FilePath != "/tmp/pos-session.json" || c.Session.CheckInterval != time.Minute {
		t.Fatalf("unexpected session config: %+v", c.Session)
	}
	if c.HTTPAddr() != ":9090" {
		t.Fatalf("unexpected addr %q", c.HTTPAddr())
	}
}
