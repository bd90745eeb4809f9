package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	ShopAPI ShopAPIConfig
	Cart    CartConfig
	Redis   RedisConfig
	DB      DBConfig
	CORS    CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PHONELIFE_APP_ENV" required:"true"`
	Port         string `envconfig:"PHONELIFE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PHONELIFE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PHONELIFE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ShopAPIConfig struct {
	BaseURL string        `envconfig:"PHONELIFE_SHOP_API_URL" default:"http://localhost:5001"`
	Timeout time.Duration `envconfig:"PHONELIFE_SHOP_API_TIMEOUT" default:"10s"`
}

type CartConfig struct {
	Backend      string        `envconfig:"PHONELIFE_CART_BACKEND" default:"redis"`
	WriteTimeout time.Duration `envconfig:"PHONELIFE_CART_WRITE_TIMEOUT" default:"2s"`
	SessionIdle  time.Duration `envconfig:"PHONELIFE_CART_SESSION_IDLE" default:"30m"`
	SweepEvery   time.Duration `envconfig:"PHONELIFE_CART_SWEEP_INTERVAL" default:"1m"`
	PersistTTL   time.Duration `envconfig:"PHONELIFE_CART_PERSIST_TTL" default:"720h"`
	CookieName   string        `envconfig:"PHONELIFE_CART_COOKIE" default:"pl_session"`
	CookieSecure bool          `envconfig:"PHONELIFE_CART_COOKIE_SECURE" default:"false"`
}

// NormalizedBackend returns the lower-cased cart storage backend name.
func (c CartConfig) NormalizedBackend() string {
	return strings.ToLower(strings.TrimSpace(c.Backend))
}

type RedisConfig struct {
	URL          string        `envconfig:"PHONELIFE_REDIS_URL"`
	Address      string        `envconfig:"PHONELIFE_REDIS_ADDR"`
	Password     string        `envconfig:"PHONELIFE_REDIS_PASSWORD"`
	DB           int           `envconfig:"PHONELIFE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PHONELIFE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PHONELIFE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PHONELIFE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PHONELIFE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PHONELIFE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type DBConfig struct {
	Driver      string `envconfig:"PHONELIFE_DB_DRIVER" default:"postgres"`
	DSN         string `envconfig:"PHONELIFE_DB_DSN"`
	AutoMigrate bool   `envconfig:"PHONELIFE_DB_AUTO_MIGRATE" default:"false"`

	MaxOpenConns    int           `envconfig:"PHONELIFE_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"PHONELIFE_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"PHONELIFE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PHONELIFE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is sqlite.
func (d DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(d.Driver), DBDriverSQLite)
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"PHONELIFE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (c *Config) validate() error {
	switch c.Cart.NormalizedBackend() {
	case CartBackendRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("%s=redis requires %s or %s", EnvCartBackend, EnvRedisURL, EnvRedisAddr)
		}
	case CartBackendDB:
		if c.DB.DSN == "" {
			return fmt.Errorf("%s=db requires %s", EnvCartBackend, EnvDBDSN)
		}
		if !c.DB.IsSQLite() && !strings.EqualFold(c.DB.Driver, DBDriverPostgres) {
			return fmt.Errorf("unsupported %s %q", EnvDBDriver, c.DB.Driver)
		}
	case CartBackendMemory:
	default:
		return fmt.Errorf("unsupported %s %q", EnvCartBackend, c.Cart.Backend)
	}
	if c.Cart.WriteTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvCartWriteTimeout)
	}
	return nil
}
