package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Sweeper    SweeperConfig    `yaml:"sweeper"`
	Claims     ClaimsConfig     `yaml:"claims"`
	Queue      QueueConfig      `yaml:"queue"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are present.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
	EnableExclusion        bool   `yaml:"enable_exclusion_constraint"`
}

// AuthConfig holds the access token settings.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	TokenTTLMinutes int           `yaml:"token_ttl_minutes"`
	BcryptCost      int           `yaml:"bcrypt_cost"`
	TokenTTL        time.Duration `yaml:"-"`
}

// SweeperConfig controls the periodic completion of expired bookings.
type SweeperConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// ClaimsConfig holds the values applied when a parking claim is approved.
type ClaimsConfig struct {
	ApprovalBonusPoints int64           `yaml:"approval_bonus_points"`
	DefaultBuildingName string          `yaml:"default_building_name"`
	HourlyRate          string          `yaml:"default_hourly_rate"`
	DailyRate           string          `yaml:"default_daily_rate"`
	DefaultHourlyRate   decimal.Decimal `yaml:"-"`
	DefaultDailyRate    decimal.Decimal `yaml:"-"`
}

// QueueConfig configures the optional AMQP event publisher.
type QueueConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// Load reads the configuration from the given path. Values from a .env file
// and the process environment override secrets in the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := []struct {
		key    string
		target *string
	}{
		{"DATABASE_DSN", &cfg.Database.DSN},
		{"JWT_SECRET", &cfg.Auth.JWTSecret},
		{"VAPID_PUBLIC_KEY", &cfg.Push.PublicKey},
		{"VAPID_PRIVATE_KEY", &cfg.Push.PrivateKey},
		{"AMQP_URL", &cfg.Queue.URL},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.target = v
		}
	}
}

func applyDefaults(cfg *Config) error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}
	cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Auth.TokenTTLMinutes <= 0 {
		cfg.Auth.TokenTTLMinutes = 60 * 24
	}
	cfg.Auth.TokenTTL = time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute
	if cfg.Auth.BcryptCost <= 0 {
		cfg.Auth.BcryptCost = 10
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (or JWT_SECRET) must be set")
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Sweeper.IntervalSeconds <= 0 {
		cfg.Sweeper.IntervalSeconds = 300
	}
	cfg.Sweeper.Interval = time.Duration(cfg.Sweeper.IntervalSeconds) * time.Second

	if cfg.Claims.ApprovalBonusPoints <= 0 {
		cfg.Claims.ApprovalBonusPoints = 100
	}
	if cfg.Claims.DefaultBuildingName == "" {
		cfg.Claims.DefaultBuildingName = "Main Building"
	}
	if cfg.Claims.HourlyRate == "" {
		cfg.Claims.HourlyRate = "15"
	}
	if cfg.Claims.DailyRate == "" {
		cfg.Claims.DailyRate = "80"
	}
	var err error
	if cfg.Claims.DefaultHourlyRate, err = decimal.NewFromString(cfg.Claims.HourlyRate); err != nil {
		return errors.New("claims.default_hourly_rate is not a decimal")
	}
	if cfg.Claims.DefaultDailyRate, err = decimal.NewFromString(cfg.Claims.DailyRate); err != nil {
		return errors.New("claims.default_daily_rate is not a decimal")
	}

	if cfg.Queue.Exchange == "" {
		cfg.Queue.Exchange = "parking.events"
	}
	return nil
}
