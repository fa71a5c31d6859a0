package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Seed sources accepted by SEED_SOURCE.
const (
	SeedFile     = "file"
	SeedPostgres = "postgres"
	SeedSQLite   = "sqlite"
	SeedS3       = "s3"
	SeedNone     = "none"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	LogLevel    string   `mapstructure:"LOG_LEVEL"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	SeedSource  string `mapstructure:"SEED_SOURCE"`
	SeedFile    string `mapstructure:"SEED_FILE"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	SQLitePath  string `mapstructure:"SQLITE_PATH"`

	S3Bucket          string `mapstructure:"SEED_S3_BUCKET"`
	S3Key             string `mapstructure:"SEED_S3_KEY"`
	S3Region          string `mapstructure:"SEED_S3_REGION"`
	S3Endpoint        string `mapstructure:"SEED_S3_ENDPOINT"`
	S3PathStyle       bool   `mapstructure:"SEED_S3_PATH_STYLE"`
	S3AccessKeyID     string `mapstructure:"SEED_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `mapstructure:"SEED_S3_SECRET_ACCESS_KEY"`

	DefaultPageSize int     `mapstructure:"DEFAULT_PAGE_SIZE"`
	MaxPageSize     int     `mapstructure:"MAX_PAGE_SIZE"`
	BodyLimit       string  `mapstructure:"BODY_LIMIT"`
	ImportBodyLimit string  `mapstructure:"IMPORT_BODY_LIMIT"`
	RateLimitRPS    float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int     `mapstructure:"RATE_LIMIT_BURST"`

	SessionIdleTimeout time.Duration `mapstructure:"SESSION_IDLE_TIMEOUT"`
	MaxSessions        int           `mapstructure:"MAX_SESSIONS"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "CORS_ORIGINS",
	"SEED_SOURCE", "SEED_FILE", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "SQLITE_PATH",
	"SEED_S3_BUCKET", "SEED_S3_KEY", "SEED_S3_REGION", "SEED_S3_ENDPOINT", "SEED_S3_PATH_STYLE",
	"SEED_S3_ACCESS_KEY_ID", "SEED_S3_SECRET_ACCESS_KEY",
	"DEFAULT_PAGE_SIZE", "MAX_PAGE_SIZE", "BODY_LIMIT", "IMPORT_BODY_LIMIT",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"SESSION_IDLE_TIMEOUT", "MAX_SESSIONS",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SEED_SOURCE", SeedFile)
	v.SetDefault("SEED_FILE", "./data/patients.json")
	v.SetDefault("DB_MAX_CONNS", 4)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("SEED_S3_REGION", "us-east-1")
	v.SetDefault("DEFAULT_PAGE_SIZE", 10)
	v.SetDefault("MAX_PAGE_SIZE", 100)
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("IMPORT_BODY_LIMIT", "10M")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("SESSION_IDLE_TIMEOUT", "30m")
	v.SetDefault("MAX_SESSIONS", 1000)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}
	cfg.SeedSource = strings.ToLower(strings.TrimSpace(cfg.SeedSource))

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Level parses LOG_LEVEL, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Validate checks the settings the selected seed source needs and the
// paging bounds.
func (c *Config) Validate() error {
	switch c.SeedSource {
	case SeedFile:
		if c.SeedFile == "" {
			return fmt.Errorf("SEED_FILE is required when SEED_SOURCE is %q", SeedFile)
		}
	case SeedPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when SEED_SOURCE is %q", SeedPostgres)
		}
	case SeedSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when SEED_SOURCE is %q", SeedSQLite)
		}
	case SeedS3:
		if c.S3Bucket == "" || c.S3Key == "" {
			return fmt.Errorf("SEED_S3_BUCKET and SEED_S3_KEY are required when SEED_SOURCE is %q", SeedS3)
		}
		if (c.S3AccessKeyID == "") != (c.S3SecretAccessKey == "") {
			return fmt.Errorf("SEED_S3_ACCESS_KEY_ID and SEED_S3_SECRET_ACCESS_KEY must be set together")
		}
	case SeedNone:
	default:
		return fmt.Errorf("SEED_SOURCE must be one of file, postgres, sqlite, s3, none; got %q", c.SeedSource)
	}

	if c.DefaultPageSize <= 0 {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be positive, got %d", c.DefaultPageSize)
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("MAX_PAGE_SIZE (%d) must be at least DEFAULT_PAGE_SIZE (%d)", c.MaxPageSize, c.DefaultPageSize)
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("MAX_SESSIONS must not be negative")
	}
	return nil
}
