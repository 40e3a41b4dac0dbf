package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL string `yaml:"database_url"`

	MaxOpenConns    int           `yaml:"db_max_open"`
	MaxIdleConns    int           `yaml:"db_max_idle"`
	ConnMaxLifetime time.Duration `yaml:"db_conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"db_conn_max_idle_time"`

	HTTPAddr string `yaml:"http_addr"`

	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`

	// FeedBuffer is the per-subscription event buffer; a subscriber
	// that falls further behind than this is marked lagged.
	FeedBuffer int `yaml:"feed_buffer"`
}

// Load reads configuration from the environment. If NOTESD_CONFIG points
// at a YAML file, values from the file are applied first and environment
// variables override them.
func Load() Config {
	cfg := Config{
		MaxOpenConns:    20,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		HTTPAddr:        ":8080",
		TokenTTL:        24 * time.Hour,
		FeedBuffer:      64,
	}

	if path := os.Getenv("NOTESD_CONFIG"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			// A malformed file leaves the defaults in place.
			_ = yaml.Unmarshal(data, &cfg)
		}
	}

	cfg.DatabaseURL = getenv("DATABASE_URL", cfg.DatabaseURL)
	cfg.MaxOpenConns = getenvInt("DB_MAX_OPEN", cfg.MaxOpenConns)
	cfg.MaxIdleConns = getenvInt("DB_MAX_IDLE", cfg.MaxIdleConns)
	cfg.ConnMaxLifetime = getenvDuration("DB_CONN_MAX_LIFETIME", cfg.ConnMaxLifetime)
	cfg.ConnMaxIdleTime = getenvDuration("DB_CONN_MAX_IDLE_TIME", cfg.ConnMaxIdleTime)
	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.JWTSecret = getenv("JWT_SECRET", cfg.JWTSecret)
	cfg.TokenTTL = getenvDuration("TOKEN_TTL", cfg.TokenTTL)
	cfg.FeedBuffer = getenvInt("FEED_BUFFER", cfg.FeedBuffer)

	return cfg
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
