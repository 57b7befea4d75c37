package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	HTTP       HTTPConfig       `envPrefix:"HTTP_"`
	Database   DatabaseConfig   `envPrefix:"DB_"`
	Redis      RedisConfig      `envPrefix:"REDIS_"`
	Telegram   TelegramConfig   `envPrefix:"TELEGRAM_"`
	Admin      AdminConfig      `envPrefix:"ADMIN_"`
	RateLimit  RateLimitConfig  `envPrefix:"RATE_LIMIT_"`
	Calculator CalculatorConfig `envPrefix:"CALCULATOR_"`
	Archive    ArchiveConfig    `envPrefix:"R2_"`
}

type HTTPConfig struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	SecureCookies   bool          `env:"SECURE_COOKIES" envDefault:"false"`
	// Hosts allowed to set X-Forwarded-For, including wizard hosts that
	// submit through CALCULATOR_API_URL.
	TrustedProxies  []string      `env:"TRUSTED_PROXIES" envSeparator:","`
}

type DatabaseConfig struct {
	Driver          string        `env:"DRIVER" envDefault:"postgres"`
	Host            string        `env:"HOST" envDefault:"localhost"`
	Port            int           `env:"PORT" envDefault:"5432"`
	User            string        `env:"USER"`
	Password        string        `env:"PASSWORD"`
	Name            string        `env:"NAME" envDefault:"webcalc"`
	SSLMode         string        `env:"SSLMODE" envDefault:"disable"`
	Path            string        `env:"PATH" envDefault:"./webcalc.db"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME" envDefault:"2m"`
	ConnectTimeout  time.Duration `env:"CONNECT_TIMEOUT" envDefault:"2m"`
}

// DSN returns the driver specific data source name.
func (c DatabaseConfig) DSN() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

type RedisConfig struct {
	Addr     string        `env:"ADDR"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	TTL      time.Duration `env:"TTL" envDefault:"24h"`
}

// Enabled reports whether Redis is configured. Without it the service falls
// back to in-memory stores.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type TelegramConfig struct {
	Token     string        `env:"TOKEN"`
	ChannelID int64         `env:"CHANNEL_ID"`
	Debug     bool          `env:"DEBUG" envDefault:"false"`
	SendRetry time.Duration `env:"SEND_RETRY" envDefault:"30s"`
}

type AdminConfig struct {
	IDs          []int64       `env:"IDS" envSeparator:","`
	JWTSecret    string        `env:"JWT_SECRET"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	Email        string        `env:"EMAIL"`
	PasswordHash string        `env:"PASSWORD_HASH"`
}

// LoginEnabled reports whether the back-office password login is configured.
func (c AdminConfig) LoginEnabled() bool {
	return c.Email != "" && c.PasswordHash != "" && c.JWTSecret != ""
}

type RateLimitConfig struct {
	Limit  int64         `env:"LIMIT" envDefault:"5"`
	Window time.Duration `env:"WINDOW" envDefault:"10m"`
}

type CalculatorConfig struct {
	CatalogPath string        `env:"CATALOG_PATH"`
	APIURL      string        `env:"API_URL"`
	MinFillTime time.Duration `env:"MIN_FILL_TIME" envDefault:"3s"`
	SessionTTL  time.Duration `env:"SESSION_TTL" envDefault:"2h"`
}

type ArchiveConfig struct {
	Endpoint      string `env:"ENDPOINT"`
	AccessKey     string `env:"ACCESS_KEY"`
	SecretKey     string `env:"SECRET_KEY"`
	Bucket        string `env:"BUCKET_NAME"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`
}

// Enabled reports whether report archiving to object storage is configured.
func (c ArchiveConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// Load reads the environment (and a local .env outside production) into Config.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "pgx":
		if c.Database.User == "" {
			return fmt.Errorf("DB_USER is required for the postgres driver")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.Admin.JWTSecret == "" && c.Env == "production" {
		return fmt.Errorf("ADMIN_JWT_SECRET is required in production")
	}
	if c.Telegram.Token != "" && len(c.Admin.IDs) == 0 && c.Telegram.ChannelID == 0 {
		return fmt.Errorf("at least one admin ID or a channel ID is required when the Telegram bot is enabled")
	}
	if c.RateLimit.Limit <= 0 {
		return fmt.Errorf("RATE_LIMIT_LIMIT must be positive")
	}
	return nil
}
