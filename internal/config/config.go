package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	HTTP struct {
		Host string
		Port string
	}

	JWT struct {
		Secret    string
		ExpiryMin int
	}

	Match struct {
		// PendingTTL is how long a match may sit in pending before the
		// sweeper marks it expired.
		PendingTTL time.Duration
		// SweepInterval is how often the expiry sweeper runs.
		SweepInterval time.Duration
		// EditWindow is how long after creation a text message stays editable.
		EditWindow time.Duration
	}
}

// New loads configuration from environment variables (and an optional .env
// file) via viper. Missing keys fall back to development defaults.
func New() *Config {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	// .env is optional; plain env vars are enough
	_ = v.ReadInConfig()

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_COMPONENT", "dogmatch_server")
	v.SetDefault("LOG_SOURCE", false)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USER", "root")
	v.SetDefault("DB_PASSWORD", "root")
	v.SetDefault("DB_NAME", "dogmatch")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", "8080")

	v.SetDefault("JWT_SECRET", "dev-secret-change-me")
	v.SetDefault("JWT_EXPIRY_MIN", 60*24)

	v.SetDefault("MATCH_PENDING_TTL", "720h") // 30 days
	v.SetDefault("MATCH_SWEEP_INTERVAL", "1h")
	v.SetDefault("MESSAGE_EDIT_WINDOW", "5m")

	cfg := &Config{}

	cfg.Log.Level = v.GetString("LOG_LEVEL")
	cfg.Log.Format = v.GetString("LOG_FORMAT")
	cfg.Log.Component = v.GetString("LOG_COMPONENT")
	cfg.Log.Source = v.GetBool("LOG_SOURCE")

	cfg.DB.DSN = v.GetString("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = v.GetString("DB_HOST")
		cfg.DB.Port = v.GetString("DB_PORT")
		cfg.DB.User = v.GetString("DB_USER")
		cfg.DB.Password = v.GetString("DB_PASSWORD")
		cfg.DB.Name = v.GetString("DB_NAME")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	cfg.Redis.Addr = v.GetString("REDIS_ADDR")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")

	cfg.HTTP.Host = v.GetString("HTTP_HOST")
	cfg.HTTP.Port = v.GetString("HTTP_PORT")

	cfg.JWT.Secret = v.GetString("JWT_SECRET")
	cfg.JWT.ExpiryMin = v.GetInt("JWT_EXPIRY_MIN")

	cfg.Match.PendingTTL = v.GetDuration("MATCH_PENDING_TTL")
	cfg.Match.SweepInterval = v.GetDuration("MATCH_SWEEP_INTERVAL")
	cfg.Match.EditWindow = v.GetDuration("MESSAGE_EDIT_WINDOW")

	return cfg
}
