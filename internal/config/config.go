package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"smsledger"`
		Env  string `envconfig:"APP_ENV" default:"development"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"smsledger"`
		SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	}

	Server struct {
		Timeout      time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
		WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
		CORSOrigins  []string      `envconfig:"CORS_ORIGINS" default:"*"`
	}

	Log struct {
		Level  string `envconfig:"LOG_LEVEL" default:"info"`
		Format string `envconfig:"LOG_FORMAT" default:"json"`
	}

	Auth struct {
		JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
		TokenTTL  time.Duration `envconfig:"JWT_TTL" default:"24h"`
	}

	SMS struct {
		DefaultMinConfidence float64 `envconfig:"SMS_DEFAULT_MIN_CONFIDENCE" default:"0.7"`
		Timezone             string  `envconfig:"SMS_TIMEZONE" default:"Asia/Kolkata"`
		WebhookBaseURL       string  `envconfig:"SMS_WEBHOOK_BASE_URL" default:"http://localhost:8080"`
		WebhookSecret        string  `envconfig:"SMS_WEBHOOK_SECRET"`
		BackupMaxMessages    int     `envconfig:"SMS_BACKUP_MAX_MESSAGES" default:"5000"`
		ParseWorkers         int     `envconfig:"SMS_PARSE_WORKERS" default:"8"`
	}
}

// IsDevelopment reports whether APP_ENV names a local development setup.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development" || c.App.Env == "dev"
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

// Location resolves SMS_TIMEZONE. Hosts without tzdata fall back to a fixed
// IST offset since every modelled bank sends Indian local time.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SMS.Timezone)
	if err != nil {
		return time.FixedZone("IST", 5*60*60+30*60)
	}

	return loc
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.SMS.DefaultMinConfidence < 0 || cfg.SMS.DefaultMinConfidence > 1 {
		return nil, fmt.Errorf("SMS_DEFAULT_MIN_CONFIDENCE must be within [0,1], got %v", cfg.SMS.DefaultMinConfidence)
	}

	if cfg.SMS.WebhookSecret == "" && !cfg.IsDevelopment() {
		return nil, fmt.Errorf("SMS_WEBHOOK_SECRET is required when APP_ENV is %q", cfg.App.Env)
	}

	return &cfg, nil
}
