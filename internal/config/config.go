// Package config resolves process-wide settings for the propagation service:
// control-database coordinates, the pooled endpoint, concurrency and retry
// limits, and the versions directory.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds the control database's connection coordinates.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// PoolerConfig holds the pooled (PgBouncer) endpoint used for applies.
type PoolerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Enabled bool   `mapstructure:"enabled"`
	// AllowDirectFallback permits falling back to the direct endpoint when
	// the pooled endpoint cannot be reached. Off by default: a silent
	// fallback defeats the purpose of fronting peers with a pooler.
	AllowDirectFallback bool `mapstructure:"allow_direct_fallback"`
}

// PropagationConfig holds the Propagation Engine's tunables.
type PropagationConfig struct {
	MaxConcurrentConnections int     `mapstructure:"max_concurrent_connections"`
	ErrorThresholdPercent    float64 `mapstructure:"error_threshold_percent"`
	MaxRetries               int     `mapstructure:"max_retries"`
	// StatementTimeout is passed through to peer connections as
	// statement_timeout; zero means "use the peer's own default."
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// RedisConfig holds the L2 tier of the Tenant Directory's cache. Redis is
// optional: when Enabled is false, the cache runs L1-only.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// LogConfig mirrors pkg/logger.Config's shape so it can be loaded from the
// same settings tree.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Settings is the fully resolved configuration for the propagation service (component A).
type Settings struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Pooler      PoolerConfig      `mapstructure:"pooler"`
	Propagation PropagationConfig `mapstructure:"propagation"`
	Redis       RedisConfig       `mapstructure:"redis"`
	VersionsDir string            `mapstructure:"versions_dir"`
	Log         LogConfig         `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("pooler.host", "pgbouncer")
	v.SetDefault("pooler.port", 6432)
	v.SetDefault("pooler.enabled", true)
	v.SetDefault("pooler.allow_direct_fallback", false)

	v.SetDefault("propagation.max_concurrent_connections", 100)
	v.SetDefault("propagation.error_threshold_percent", 10.0)
	v.SetDefault("propagation.max_retries", 3)
	v.SetDefault("propagation.statement_timeout", 0)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("versions_dir", "sql_versions")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
}

// Load resolves Settings from (in precedence order) environment variables,
// an optional config file at configPath, and defaults.
//
// Environment variables are uppercased and dot-separated keys become
// underscore-separated, e.g. PROPAGATION_MAX_RETRIES overrides
// propagation.max_retries.
func Load(configPath string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return &settings, nil
}

// Validate checks that Settings describe a usable configuration.
func (s *Settings) Validate() error {
	if s.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if s.Database.Port <= 0 || s.Database.Port > 65535 {
		return fmt.Errorf("database.port must be between 1 and 65535")
	}
	if s.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if s.Propagation.MaxConcurrentConnections <= 0 {
		return fmt.Errorf("propagation.max_concurrent_connections must be greater than 0")
	}
	if s.Propagation.ErrorThresholdPercent <= 0 || s.Propagation.ErrorThresholdPercent > 100 {
		return fmt.Errorf("propagation.error_threshold_percent must be between 0 and 100")
	}
	if s.Propagation.MaxRetries < 0 {
		return fmt.Errorf("propagation.max_retries cannot be negative")
	}
	if s.VersionsDir == "" {
		return fmt.Errorf("versions_dir is required")
	}
	if s.Redis.Enabled && s.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis.enabled is true")
	}
	return nil
}

// DirectDSN returns the connection string for the control database's direct endpoint.
func (s *Settings) DirectDSN(database string) string {
	if database == "" {
		database = s.Database.Name
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.Database.User, s.Database.Password, s.Database.Host, s.Database.Port, database, s.Database.SSLMode)
}

// PooledDSN returns the connection string for the pooled (PgBouncer) endpoint,
// falling back to the direct endpoint if pooling is disabled.
func (s *Settings) PooledDSN(database string) string {
	if !s.Pooler.Enabled {
		return s.DirectDSN(database)
	}
	if database == "" {
		database = s.Database.Name
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.Database.User, s.Database.Password, s.Pooler.Host, s.Pooler.Port, database, s.Database.SSLMode)
}
