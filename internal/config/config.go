// Package config loads soundstack configuration from a YAML file, a .env file
// and the process environment, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvProduction is the only environment name that switches production behaviour on.
const EnvProduction = "production"

// Config is the root configuration object.
type Config struct {
	Environment string         `yaml:"environment" env:"APP_ENV"`
	Server      ServerConfig   `yaml:"server"`
	Database    DatabaseConfig `yaml:"database"`
	Redis       RedisConfig    `yaml:"redis"`
	Logging     LoggingConfig  `yaml:"logging"`
	Auth        AuthConfig     `yaml:"auth"`
	CSRF        CSRFConfig     `yaml:"csrf"`
	Upload      UploadConfig   `yaml:"upload"`
	Static      StaticConfig   `yaml:"static"`

	// Security is derived from Environment by Load; it is not read from file.
	Security Security `yaml:"-"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host         string        `yaml:"host" env:"HOST"`
	Port         int           `yaml:"port" env:"PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the relational store. An empty DSN selects the
// in-memory store.
type DatabaseConfig struct {
	Driver          string `yaml:"driver" env:"DATABASE_DRIVER"`
	DSN             string `yaml:"dsn" env:"DATABASE_URL"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"`
}

// RedisConfig configures the song catalog cache. An empty Addr disables it.
type RedisConfig struct {
	Addr       string        `yaml:"addr" env:"REDIS_ADDR"`
	Password   string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB         int           `yaml:"db" env:"REDIS_DB"`
	CatalogTTL time.Duration `yaml:"catalog_ttl"`
}

// LoggingConfig configures pkg/logger.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
	Output string `yaml:"output" env:"LOG_OUTPUT"`
}

// AuthConfig configures session tokens and login throttling.
type AuthConfig struct {
	JWTSecret          string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	SessionTTL         time.Duration `yaml:"session_ttl"`
	LoginRatePerSecond int           `yaml:"login_rate_per_second"`
	LoginBurst         int           `yaml:"login_burst"`
}

// CSRFConfig configures the CSRF cookie and the header clients echo it in.
type CSRFConfig struct {
	Secret     string `yaml:"secret" env:"CSRF_SECRET"`
	CookieName string `yaml:"cookie_name"`
}

// UploadConfig configures song uploads.
type UploadConfig struct {
	Dir       string `yaml:"dir" env:"UPLOAD_DIR"`
	MaxBytes  int64  `yaml:"max_bytes"`
	FieldName string `yaml:"field_name"`
}

// StaticConfig points at a built frontend bundle to serve. Empty disables it.
type StaticConfig struct {
	Dir string `yaml:"dir" env:"STATIC_DIR"`
}

// Security holds every environment-dependent switch, resolved once at startup
// and passed explicitly to the components that need it.
type Security struct {
	CORSEnabled       bool
	CookieSecure      bool
	CookieSameSite    http.SameSite
	ExposeStackTraces bool
}

// ResolveSecurity maps an environment name onto its security switches.
// Outside production no SameSite attribute is set at all.
func ResolveSecurity(environment string) Security {
	if IsProduction(environment) {
		return Security{
			CORSEnabled:       false,
			CookieSecure:      true,
			CookieSameSite:    http.SameSiteLaxMode,
			ExposeStackTraces: false,
		}
	}
	return Security{
		CORSEnabled:       true,
		CookieSecure:      false,
		CookieSameSite:    http.SameSiteDefaultMode,
		ExposeStackTraces: true,
	}
}

// IsProduction reports whether environment names production.
func IsProduction(environment string) bool {
	return strings.EqualFold(strings.TrimSpace(environment), EnvProduction)
}

// IsProduction reports whether the loaded config runs in production.
func (c *Config) IsProduction() bool {
	return IsProduction(c.Environment)
}

// Default returns a development configuration.
func Default() *Config {
	cfg := &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Redis: RedisConfig{
			CatalogTTL: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Auth: AuthConfig{
			JWTSecret:          "dev-jwt-secret",
			SessionTTL:         7 * 24 * time.Hour,
			LoginRatePerSecond: 5,
			LoginBurst:         10,
		},
		CSRF: CSRFConfig{
			Secret:     "dev-csrf-secret",
			CookieName: "_csrf",
		},
		Upload: UploadConfig{
			Dir:       "uploads",
			MaxBytes:  10 << 20,
			FieldName: "trackFile",
		},
	}
	cfg.Security = ResolveSecurity(cfg.Environment)
	return cfg
}

// Load reads path (optional), then .env (optional), then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	// APP_ENV wins; NODE_ENV overrides the file and the default.
	if os.Getenv("APP_ENV") == "" {
		if nodeEnv := strings.TrimSpace(os.Getenv("NODE_ENV")); nodeEnv != "" {
			cfg.Environment = nodeEnv
		}
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.Security = ResolveSecurity(cfg.Environment)
	if cfg.IsProduction() && cfg.Logging.Format == "text" {
		cfg.Logging.Format = "json"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot run safely.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive")
	}
	if c.Upload.FieldName == "" {
		return fmt.Errorf("upload.field_name is required")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be positive")
	}
	if c.CSRF.CookieName == "" {
		return fmt.Errorf("csrf.cookie_name is required")
	}
	if c.IsProduction() {
		if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == Default().Auth.JWTSecret {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.CSRF.Secret == "" || c.CSRF.Secret == Default().CSRF.Secret {
			return fmt.Errorf("CSRF_SECRET must be set in production")
		}
	}
	return nil
}
