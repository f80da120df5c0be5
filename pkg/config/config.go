package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	Storage StorageConfig
	Redis   RedisConfig
	Gateway GatewayConfig
	JWT     JWTConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SOLMERCADO_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"SOLMERCADO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOLMERCADO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StorageConfig selects the durable key-value backend holding the
// device-resident cart and session token.
type StorageConfig struct {
	Backend    string `envconfig:"SOLMERCADO_STORAGE_BACKEND" default:"sqlite"`
	SQLitePath string `envconfig:"SOLMERCADO_STORAGE_SQLITE_PATH" default:"solmercado.db"`
}

func (s StorageConfig) validate() error {
	switch s.NormalizedBackend() {
	case StorageBackendMemory, StorageBackendRedis:
		return nil
	case StorageBackendSQLite:
		if strings.TrimSpace(s.SQLitePath) == "" {
			return fmt.Errorf("%s is required for the sqlite storage backend", EnvStorageSQLitePath)
		}
		return nil
	default:
		return fmt.Errorf("unknown storage backend %q", s.Backend)
	}
}

// NormalizedBackend returns the lowercase backend name.
func (s StorageConfig) NormalizedBackend() string {
	return strings.ToLower(strings.TrimSpace(s.Backend))
}

// GatewayConfig points the core at the remote commerce API.
type GatewayConfig struct {
	BaseURL       string        `envconfig:"SOLMERCADO_GATEWAY_BASE_URL" required:"true"`
	Timeout       time.Duration `envconfig:"SOLMERCADO_GATEWAY_TIMEOUT" default:"10s"`
	SessionHeader string        `envconfig:"SOLMERCADO_GATEWAY_SESSION_HEADER" default:"X-Session-Id"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SOLMERCADO_REDIS_URL"`
	Address      string        `envconfig:"SOLMERCADO_REDIS_ADDR"`
	Password     string        `envconfig:"SOLMERCADO_REDIS_PASSWORD"`
	DB           int           `envconfig:"SOLMERCADO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SOLMERCADO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SOLMERCADO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SOLMERCADO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SOLMERCADO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SOLMERCADO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	// ClockSkew is tolerated when deciding whether an access token has
	// already expired client-side.
	ClockSkew time.Duration `envconfig:"SOLMERCADO_JWT_CLOCK_SKEW" default:"30s"`
}
