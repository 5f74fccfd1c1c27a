// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Config holds every setting of the service.
type Config struct {
	// --- HTTP ---
	Port           string        `envconfig:"PORT" default:"3001"`
	AppEnv         string        `envconfig:"APP_ENV" default:"development"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	AllowedOrigins string        `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
	BodyLimitMB    int           `envconfig:"BODY_LIMIT_MB" default:"10"`
	ShutdownGrace  time.Duration `envconfig:"SHUTDOWN_GRACE" default:"30s"`

	// --- Database ---
	DatabaseURL     string        `envconfig:"DATABASE_URL" required:"true"`
	DBMaxOpenConns  int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	DBMaxIdleConns  int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	DBConnLifetime  time.Duration `envconfig:"DB_CONN_LIFETIME" default:"30m"`
	DBSlowThreshold time.Duration `envconfig:"DB_SLOW_THRESHOLD" default:"200ms"`

	// --- Auth ---
	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"168h"`

	// --- Rate limiting ---
	RateLimitBackend string `envconfig:"RATE_LIMIT_BACKEND" default:"memory"`
	RedisAddr        string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword    string `envconfig:"REDIS_PASSWORD"`
	RedisDB          int    `envconfig:"REDIS_DB" default:"0"`

	// --- Game ---
	BetStakePerGame    string        `envconfig:"BET_STAKE_PER_GAME" default:"1"`
	PointsPerHit       int           `envconfig:"POINTS_PER_HIT" default:"10"`
	RoundCloseInterval time.Duration `envconfig:"ROUND_CLOSE_INTERVAL" default:"1m"`

	// --- Audit log archive (Cloudflare R2 / S3) ---
	ArchiveAccountID    string `envconfig:"CLOUDFLARE_ACCOUNT_ID"`
	ArchiveAccessKey    string `envconfig:"R2_ACCESS_KEY_ID"`
	ArchiveAccessSecret string `envconfig:"R2_ACCESS_KEY_SECRET"`
	ArchiveBucket       string `envconfig:"R2_BUCKET_NAME"`
	ArchiveEndpoint     string `envconfig:"R2_ENDPOINT"`
}

// IsProduction reports whether internals must be hidden from clients.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Origins returns the CORS allow-list with blanks removed.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// StakePerGame is the chip cost of one selection.
func (c *Config) StakePerGame() decimal.Decimal {
	return decimal.RequireFromString(c.BetStakePerGame)
}

// ArchiveEnabled reports whether audit logs are shipped to object storage.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveBucket != ""
}

func (c *Config) Validate() error {
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	switch c.RateLimitBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND must be memory or redis, got %q", c.RateLimitBackend)
	}
	stake, err := decimal.NewFromString(c.BetStakePerGame)
	if err != nil || !stake.IsPositive() {
		return fmt.Errorf("BET_STAKE_PER_GAME must be a positive number, got %q", c.BetStakePerGame)
	}
	if c.PointsPerHit <= 0 {
		return fmt.Errorf("POINTS_PER_HIT must be > 0")
	}
	if c.RoundCloseInterval <= 0 {
		return fmt.Errorf("ROUND_CLOSE_INTERVAL must be > 0")
	}
	if c.BodyLimitMB <= 0 {
		return fmt.Errorf("BODY_LIMIT_MB must be > 0")
	}
	if c.ArchiveEnabled() && c.ArchiveAccountID == "" && c.ArchiveEndpoint == "" {
		return fmt.Errorf("R2_BUCKET_NAME needs CLOUDFLARE_ACCOUNT_ID or R2_ENDPOINT")
	}
	return nil
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, reading environment variables directly")
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
