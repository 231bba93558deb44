package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultSessionSecret is only acceptable outside production.
const DefaultSessionSecret = "dev-session-secret-change-me"

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	// Server
	Port           int    `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"` // development | production | test
	WorkerPoolSize int    `mapstructure:"WORKER_POOL_SIZE"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	LogFormat      string `mapstructure:"LOG_FORMAT"` // console | json

	// Storage. A bare path is a SQLite file; postgres:// and mysql:// select those drivers.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisURL    string `mapstructure:"REDIS_URL"`

	// Sessions
	SessionSecret       string `mapstructure:"SESSION_SECRET"`
	SessionTTLHours     int    `mapstructure:"SESSION_TTL_HOURS"`
	SessionCookieName   string `mapstructure:"SESSION_COOKIE_NAME"`
	SessionCookieSecure bool   `mapstructure:"SESSION_COOKIE_SECURE"`
	BcryptCost          int    `mapstructure:"BCRYPT_COST"`

	// HTTP surface
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"` // comma separated
	LoginRedirect      string `mapstructure:"LOGIN_REDIRECT"`
	AdminResetEnabled  bool   `mapstructure:"ADMIN_RESET_ENABLED"`

	// SMTP / notifications
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	NotifyEmail  string `mapstructure:"NOTIFY_EMAIL"`
}

// Load reads configuration from environment variables. Files passed in (or
// ".env" when none are given) are loaded into the environment first; a missing
// file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 5000)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("WORKER_POOL_SIZE", 2)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("DATABASE_URL", "crm_database.db")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SESSION_SECRET", DefaultSessionSecret)
	v.SetDefault("SESSION_TTL_HOURS", 24)
	v.SetDefault("SESSION_COOKIE_NAME", "crm_session")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5000")
	v.SetDefault("LOGIN_REDIRECT", "/retrieve_data")
	v.SetDefault("ADMIN_RESET_ENABLED", false)
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("NOTIFY_EMAIL", "")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the server cannot run safely with.
func (c *Config) Validate() error {
	if c.SessionTTLHours <= 0 {
		return errors.New("config: SESSION_TTL_HOURS must be positive")
	}
	if c.WorkerPoolSize <= 0 {
		return errors.New("config: WORKER_POOL_SIZE must be positive")
	}
	if c.SessionSecret == "" {
		return errors.New("config: SESSION_SECRET is required")
	}
	if c.IsProduction() && c.SessionSecret == DefaultSessionSecret {
		return errors.New("config: SESSION_SECRET must be set in production")
	}
	if c.SessionCookieName == "" {
		return errors.New("config: SESSION_COOKIE_NAME is required")
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

// SessionTTL is the lifetime of a login session.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS, dropping blanks and "*".
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		o = strings.TrimSpace(o)
		if o == "" || o == "*" {
			continue
		}
		out = append(out, o)
	}
	return out
}

// NotificationsEnabled reports whether new entries should be mailed out.
func (c *Config) NotificationsEnabled() bool {
	return c.NotifyEmail != "" && c.SMTPHost != "" && c.RedisURL != ""
}
