package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Seats    SeatsConfig
	Invite   InviteConfig
	Auth     AuthConfig
	Stripe   StripeConfig
	SMTP     SMTPConfig
}

type AppConfig struct {
	Env      string `env:"APP_ENV"   envDefault:"production"`
	LogLevel string `env:"LOG_LEVEL"`
}

type ServerConfig struct {
	Addr            string        `env:"SERVER_ADDR"      envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

type DatabaseConfig struct {
	Driver   string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	Host     string `env:"DB_HOST"        envDefault:"localhost"`
	Port     string `env:"DB_PORT"        envDefault:"5432"`
	User     string `env:"DB_USER"        envDefault:"seatkeeper"`
	Password string `env:"DB_PASSWORD"    envDefault:"seatkeeper"`
	DBName   string `env:"DB_NAME"        envDefault:"seatkeeper"`
	SSLMode  string `env:"DB_SSLMODE"     envDefault:"disable"`
}

type SeatsConfig struct {
	Individual int `env:"SEAT_CAPACITY_INDIVIDUAL" envDefault:"1"`
	Team       int `env:"SEAT_CAPACITY_TEAM"       envDefault:"5"`
}

// Policy - соответствие класса лицензии и числа мест для обработчика платежей.
func (c SeatsConfig) Policy() domain.SeatPolicy {
	return domain.SeatPolicy{
		domain.LicenseClassIndividual: c.Individual,
		domain.LicenseClassTeam:       c.Team,
	}
}

type InviteConfig struct {
	TTL       time.Duration `env:"INVITE_TTL"        envDefault:"168h"`
	BaseURL   string        `env:"APP_BASE_URL"      envDefault:"http://localhost:3000"`
	RateLimit int           `env:"INVITE_RATE_LIMIT" envDefault:"20"`
}

type AuthConfig struct {
	JWTSecret string `env:"SESSION_JWT_SECRET"`
	JWTIssuer string `env:"SESSION_JWT_ISSUER"`
}

type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT"      envDefault:"587"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"      envDefault:"noreply@localhost"`
	FromName string `env:"SMTP_FROM_NAME"`
}

// Enabled - без SMTP_HOST письма только логируются.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// Load читает .env (если есть) и переменные окружения.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q",
			StorageDriverPostgres, StorageDriverMemory, c.Database.Driver))
	}

	if err := c.Seats.Policy().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Invite.TTL <= 0 {
		errs = append(errs, errors.New("INVITE_TTL must be positive"))
	}
	if c.Invite.RateLimit <= 0 {
		errs = append(errs, errors.New("INVITE_RATE_LIMIT must be positive"))
	}
	if u, err := url.Parse(c.Invite.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("APP_BASE_URL must be an absolute URL, got %q", c.Invite.BaseURL))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("SESSION_JWT_SECRET is required"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}
