package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"langlearn-server/pkg/database"
)

type Config struct {
	Env            string
	Addr           string
	LogMode        string
	DB             database.Config
	RedisAddr      string
	AllowedOrigins []string

	SessionTTL   time.Duration
	CookieDomain string
	BaseURL      string

	AdminPassword string
	JWTSecret     string
	AdminTokenTTL time.Duration

	SendGridAPIKey string
	EmailFrom      string
	EmailFromName  string
}

func (c *Config) Production() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Load reads .env (if present) and the process environment. The returned bool
// reports whether a .env file was found.
func Load() (*Config, bool, error) {
	dotenv := godotenv.Load() == nil

	cfg := &Config{
		Env:     env("APP_ENV", "development"),
		Addr:    env("HTTP_ADDR", ":8080"),
		LogMode: env("LOG_MODE", "dev"),
		DB: database.Config{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			User:     env("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   env("DB_NAME", "langlearn"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		RedisAddr:      strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		AllowedOrigins: list("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		SessionTTL:     time.Duration(intEnv("SESSION_TTL_DAYS", 36500)) * 24 * time.Hour,
		CookieDomain:   strings.TrimSpace(os.Getenv("AUTH_COOKIE_DOMAIN")),
		BaseURL:        strings.TrimRight(env("AUTH_BASE_URL", "http://localhost:3000"), "/"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AdminTokenTTL:  time.Duration(intEnv("ADMIN_TOKEN_TTL_HOURS", 12)) * time.Hour,
		SendGridAPIKey: strings.TrimSpace(os.Getenv("SENDGRID_API_KEY")),
		EmailFrom:      env("EMAIL_FROM", "info@aprenderinglesfull.com"),
		EmailFromName:  env("EMAIL_FROM_NAME", "AprenderInglesFull"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, dotenv, err
	}
	return cfg, dotenv, nil
}

func (c *Config) Validate() error {
	if c.AdminPassword != "" && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required when ADMIN_PASSWORD is set")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL_DAYS must be positive")
	}
	if c.AdminTokenTTL <= 0 {
		return errors.New("ADMIN_TOKEN_TTL_HOURS must be positive")
	}
	return nil
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func list(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
