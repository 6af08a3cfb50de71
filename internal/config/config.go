package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Gateway drivers.
const (
	DriverSupabase = "supabase"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Local storage backends.
const (
	BackendBadger = "badger"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendS3     = "s3"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	S3        S3Config        `mapstructure:"s3"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// LoginPath is where signed-out visitors of guarded pages are sent.
	LoginPath string `mapstructure:"login_path"`
}

// GatewayConfig selects and configures the remote data backend.
type GatewayConfig struct {
	Driver   string         `mapstructure:"driver"`
	URL      string         `mapstructure:"url"`
	APIKey   string         `mapstructure:"api_key"`
	Database DatabaseConfig `mapstructure:"database"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

// IsConfigured reports whether a gateway handle can be built. It is the only
// check callers make before talking to the backend.
func (g GatewayConfig) IsConfigured() bool {
	switch g.Driver {
	case DriverSupabase:
		return strings.TrimSpace(g.URL) != "" && strings.TrimSpace(g.APIKey) != ""
	case DriverMongo, DriverPostgres:
		return strings.TrimSpace(g.Database.URI) != ""
	case DriverMemory:
		return true
	default:
		return false
	}
}

// StorageConfig configures the local key-value store that holds settings,
// theme, week plan and the persisted auth session.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	Path      string `mapstructure:"path"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig configures tokens issued by the self-hosted auth drivers.
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// RateLimitConfig limits auth requests per client IP.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from config.yaml in path and from the
// environment. A missing file is not an error.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Handling ---
	// server.address -> SERVER_ADDRESS, jwt.expiration -> JWT_EXPIRATION
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	// The gateway accepts the names used by the hosted dashboard as well.
	if err = v.BindEnv("gateway.url", "GATEWAY_URL", "SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL"); err != nil {
		return
	}
	if err = v.BindEnv("gateway.api_key", "GATEWAY_API_KEY", "SUPABASE_ANON_KEY", "NEXT_PUBLIC_SUPABASE_ANON_KEY"); err != nil {
		return
	}

	// --- Defaults ---
	// Every key needs a default (or a binding) for Unmarshal to see its env var.
	v.SetDefault("server.address", "127.0.0.1:8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.login_path", "/login")
	v.SetDefault("gateway.driver", DriverSupabase)
	v.SetDefault("gateway.database.uri", "")
	v.SetDefault("gateway.database.name", "fitness_dashboard")
	v.SetDefault("storage.backend", BackendBadger)
	v.SetDefault("storage.path", "data/local")
	v.SetDefault("storage.key_prefix", "fitness")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration", "1h")
	v.SetDefault("rate_limit.rps", 1.0)
	v.SetDefault("rate_limit.burst", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// --- Read Config File ---
	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		err = nil
	} else if err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}

	config.Gateway.Driver = strings.ToLower(strings.TrimSpace(config.Gateway.Driver))
	config.Storage.Backend = strings.ToLower(strings.TrimSpace(config.Storage.Backend))
	// Self-hosted drivers sign their tokens with the API key unless a secret is set.
	if config.JWT.Secret == "" {
		config.JWT.Secret = config.Gateway.APIKey
	}
	return config, nil
}
