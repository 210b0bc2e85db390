package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "CUPID"

// Load reads config.yaml (or the file at path), merges config.<env>.yaml on
// top, then applies CUPID_* environment overrides and defaults. A missing
// config file is not an error.
func Load(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = v.GetString("environment")
	}
	if env == "" {
		env = "development"
	}
	if path == "" {
		v.SetConfigName("config." + env)
		_ = v.MergeInConfig()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Environment = env

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	for _, p := range []string{".env", "../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// bindEnv registers every key so AutomaticEnv overrides also apply to keys
// that are absent from the config file.
func bindEnv(v *viper.Viper) {
	keys := []string{
		"server.addr",
		"database.postgres.url",
		"database.postgres.auto_migrate",
		"database.redis.address",
		"database.redis.password",
		"database.redis.db",
		"auth.jwt_secret",
		"auth.jwt_secret_file",
		"auth.token_ttl",
		"ai.provider",
		"ai.gemini.api_key",
		"ai.gemini.api_key_file",
		"ai.gemini.model",
		"matching.default_limit",
		"matching.top_profiles_limit",
		"matching.concurrency",
		"matching.candidate_timeout",
		"matching.cache_ttl",
		"logging.level",
		"logging.format",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
	// Unprefixed names used by the docker setup.
	_ = v.BindEnv("database.postgres.url", "CUPID_DATABASE_POSTGRES_URL", "DATABASE_URL")
	_ = v.BindEnv("auth.jwt_secret", "CUPID_AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("ai.gemini.api_key", "CUPID_AI_GEMINI_API_KEY", "GEMINI_API_KEY")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3001"}
	}

	if cfg.Database.Postgres.URL == "" {
		cfg.Database.Postgres.URL = "user=admin password=password dbname=cupiddb sslmode=disable"
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.ConnMaxLifetime == 0 {
		cfg.Database.Postgres.ConnMaxLifetime = 30 * time.Minute
	}

	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}

	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "gemini"
	}
	if cfg.AI.Gemini.MaxRetries == 0 {
		cfg.AI.Gemini.MaxRetries = 3
	}
	if cfg.AI.Gemini.MaxLogLength == 0 {
		cfg.AI.Gemini.MaxLogLength = 200
	}

	if cfg.Matching.DefaultLimit == 0 {
		cfg.Matching.DefaultLimit = 20
	}
	if cfg.Matching.TopProfilesLimit == 0 {
		cfg.Matching.TopProfilesLimit = 10
	}
	if cfg.Matching.Concurrency == 0 {
		cfg.Matching.Concurrency = 8
	}
	if cfg.Matching.CandidateTimeout == 0 {
		cfg.Matching.CandidateTimeout = 20 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.AI.Provider {
	case "gemini", "none":
	default:
		return fmt.Errorf("ai.provider must be gemini or none, got %q", cfg.AI.Provider)
	}
	if cfg.Matching.DefaultLimit < 0 || cfg.Matching.TopProfilesLimit < 0 {
		return fmt.Errorf("matching limits must not be negative")
	}
	if cfg.Matching.Concurrency < 0 {
		return fmt.Errorf("matching.concurrency must not be negative")
	}
	if cfg.Matching.CacheTTL < 0 {
		return fmt.Errorf("matching.cache_ttl must not be negative")
	}
	if cfg.Matching.CacheTTL > 0 && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when matching.cache_ttl is set")
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", cfg.Logging.Format)
	}
	return nil
}
