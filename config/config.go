package config

import "time"

type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Auth        AuthConfig     `mapstructure:"auth"`
	AI          AIConfig       `mapstructure:"ai"`
	Matching    MatchingConfig `mapstructure:"matching"`
	Logging     LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MaxIdle         int           `mapstructure:"max_idle"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig is optional. An empty Address disables the compatibility cache.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	JWTSecretFile string        `mapstructure:"jwt_secret_file"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
}

type AIConfig struct {
	// Provider is "gemini" or "none". With "none" every compatibility call
	// degrades to the zero result.
	Provider string       `mapstructure:"provider"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api_key"`
	APIKeyFile   string `mapstructure:"api_key_file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max_retries"`
	MaxLogLength int    `mapstructure:"max_log_length"`
}

type MatchingConfig struct {
	DefaultLimit     int           `mapstructure:"default_limit"`
	TopProfilesLimit int           `mapstructure:"top_profiles_limit"`
	Concurrency      int           `mapstructure:"concurrency"`
	CandidateTimeout time.Duration `mapstructure:"candidate_timeout"`
	// CacheTTL of zero keeps recompute-always behavior.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
