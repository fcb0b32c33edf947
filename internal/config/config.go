package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	DBDriver            string // postgres, mysql or sqlite
	DatabaseURL         string
	RedisURL            string
	SessionSecret       string
	JWTSecret           string // HS256 secret shared with the identity provider
	AMQPURL             string // empty disables inventory event publishing
	CacheTTL            time.Duration
	PersistenceTimeout  time.Duration
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
	AutoMigrate         bool
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("CACHE_TTL", "60s")
	v.SetDefault("PERSISTENCE_TIMEOUT", "5s")
	v.SetDefault("AUTO_MIGRATE", true)

	driver := strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER")))
	switch driver {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("config: unsupported DB_DRIVER %q", driver)
	}

	timeout := v.GetDuration("PERSISTENCE_TIMEOUT")
	if timeout <= 0 {
		return nil, fmt.Errorf("config: PERSISTENCE_TIMEOUT must be positive")
	}
	ttl := v.GetDuration("CACHE_TTL")
	if ttl < 0 {
		return nil, fmt.Errorf("config: CACHE_TTL must not be negative")
	}

	return &Config{
		Env:                 v.GetString("APP_ENV"),
		Port:                v.GetString("PORT"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		DBDriver:            driver,
		DatabaseURL:         v.GetString("DATABASE_URL"),
		RedisURL:            v.GetString("REDIS_URL"),
		SessionSecret:       v.GetString("SESSION_SECRET"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		AMQPURL:             v.GetString("AMQP_URL"),
		CacheTTL:            ttl,
		PersistenceTimeout:  timeout,
		FrontendURLEndsWith: v.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         v.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   v.GetBool("ALLOW_CROSS_SITE_DEV"),
		HealthAdminKey:      v.GetString("HEALTH_ADMIN_KEY"),
		AutoMigrate:         v.GetBool("AUTO_MIGRATE"),
	}, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
