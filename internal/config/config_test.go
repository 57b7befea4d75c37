package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_SQLiteDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/leads.db")
	t.Setenv("ADMIN_IDS", "10,20")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://example.cz,https://www.example.cz")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.DSN() != "/tmp/leads.db" {
		t.Fatalf("DSN=%q, want %q", cfg.Database.DSN(), "/tmp/leads.db")
	}
	if len(cfg.Admin.IDs) != 2 || cfg.Admin.IDs[1] != 20 {
		t.Fatalf("Admin.IDs=%v, want [10 20]", cfg.Admin.IDs)
	}
	if len(cfg.HTTP.AllowedOrigins) != 2 {
		t.Fatalf("AllowedOrigins=%v", cfg.HTTP.AllowedOrigins)
	}
	if cfg.RateLimit.Window != 10*time.Minute {
		t.Fatalf("RateLimit.Window=%v, want 10m", cfg.RateLimit.Window)
	}
	if cfg.Redis.Enabled() {
		t.Fatal("redis should be disabled without REDIS_ADDR")
	}
}

func TestPostgresDSN(t *testing.T) {
	c := DatabaseConfig{
		Driver:   "postgres",
		Host:     "db",
		Port:     5433,
		User:     "calc",
		Password: "p@ss",
		Name:     "leads",
		SSLMode:  "require",
	}

	dsn := c.DSN()
	if !strings.HasPrefix(dsn, "postgres://calc:p%40ss@db:5433/leads") {
		t.Fatalf("unexpected dsn %q", dsn)
	}
	if !strings.HasSuffix(dsn, "sslmode=require") {
		t.Fatalf("dsn %q should carry sslmode", dsn)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "postgres without user",
			cfg: Config{
				Database:  DatabaseConfig{Driver: "postgres"},
				RateLimit: RateLimitConfig{Limit: 1},
			},
			wantErr: true,
		},
		{
			name: "unknown driver",
			cfg: Config{
				Database:  DatabaseConfig{Driver: "mysql"},
				RateLimit: RateLimitConfig{Limit: 1},
			},
			wantErr: true,
		},
		{
			name: "production without jwt secret",
			cfg: Config{
				Env:       "production",
				Database:  DatabaseConfig{Driver: "sqlite"},
				RateLimit: RateLimitConfig{Limit: 1},
			},
			wantErr: true,
		},
		{
			name: "telegram without recipients",
			cfg: Config{
				Database:  DatabaseConfig{Driver: "sqlite"},
				Telegram:  TelegramConfig{Token: "t"},
				RateLimit: RateLimitConfig{Limit: 1},
			},
			wantErr: true,
		},
		{
			name: "valid pgx",
			cfg: Config{
				Database:  DatabaseConfig{Driver: "pgx", User: "calc"},
				RateLimit: RateLimitConfig{Limit: 5},
			},
		},
		{
			name: "valid sqlite",
			cfg: Config{
				Database:  DatabaseConfig{Driver: "sqlite"},
				RateLimit: RateLimitConfig{Limit: 5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
