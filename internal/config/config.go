package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const devJWTSecret = "default_super_secret_key"

// Config holds process-wide, read-only settings.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	GinMode  string `env:"GIN_MODE" envDefault:"debug"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://127.0.0.1:5173"`

	DB  DBConfig
	JWT JWTConfig
}

type DBConfig struct {
	Host           string        `env:"DB_HOST" envDefault:"localhost"`
	Port           string        `env:"DB_PORT" envDefault:"5432"`
	User           string        `env:"DB_USER" envDefault:"postgres"`
	Password       string        `env:"DB_PASSWORD" envDefault:"postgres"`
	Name           string        `env:"DB_NAME" envDefault:"tenurix"`
	SSLMode        string        `env:"DB_SSLMODE" envDefault:"disable"`
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"5s"`
	MaxOpenConns   int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns   int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLife    time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
}

type JWTConfig struct {
	Secret string        `env:"JWT_SECRET"`
	Issuer string        `env:"JWT_ISSUER" envDefault:"Tenurix.Api"`
	TTL    time.Duration `env:"JWT_TTL" envDefault:"6h"`
}

// Load reads an optional dotenv file and then the process environment.
func Load(dotenvPaths ...string) (*Config, error) {
	for _, p := range dotenvPaths {
		// missing files are fine; the environment may already be populated
		_ = godotenv.Load(p)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.JWT.Secret == "" {
		if cfg.IsRelease() {
			return nil, errors.New("JWT_SECRET environment variable is required in release mode")
		}
		cfg.JWT.Secret = devJWTSecret
	}
	if cfg.DB.ConnectTimeout <= 0 {
		return nil, errors.New("DB_CONNECT_TIMEOUT must be positive")
	}

	return &cfg, nil
}

func (c *Config) IsRelease() bool { return c.GinMode == "release" }

// DSN builds the postgres connection string, including the connect timeout.
func (c DBConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.Name,
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	q.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Round(time.Second)/time.Second)))
	u.RawQuery = q.Encode()
	return u.String()
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
