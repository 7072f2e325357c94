package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration for the seeder CLI and the sync service.
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Keycloak  KeycloakConfig
	Seed      SeedConfig
	Sync      SyncConfig
	Archive   ArchiveConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// KeycloakConfig configures the identity-store admin client. The adapter is
// enabled when URL is non-empty; ClientSecret is then a required credential.
type KeycloakConfig struct {
	URL          string
	Realm        string
	ClientID     string
	ClientSecret string
	// AdminRPS bounds calls against the admin API (token bucket).
	AdminRPS   float64
	AdminBurst int
}

type SeedConfig struct {
	File string // optional JSON seed file; the built-in bootstrap list is used when empty
}

type SyncConfig struct {
	Workers       int
	MaxBatchOps   int
	RetryAttempts int
	RetryBackoff  time.Duration
}

// ArchiveConfig configures optional report archival to object storage.
type ArchiveConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// CredentialError reports a missing required backend credential. It is fatal
// at startup, before any store call is made.
type CredentialError struct {
	Key string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("missing required credential %s", e.Key)
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5020")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_DATABASE", "shulebook")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("KEYCLOAK_REALM", "shulebook")
	viper.SetDefault("KEYCLOAK_CLIENT_ID", "shulebook-seeder")
	viper.SetDefault("KEYCLOAK_ADMIN_RPS", 20)
	viper.SetDefault("KEYCLOAK_ADMIN_BURST", 10)
	viper.SetDefault("SYNC_WORKERS", 4)
	viper.SetDefault("SYNC_MAX_BATCH_OPS", 500)
	viper.SetDefault("SYNC_RETRY_ATTEMPTS", 3)
	viper.SetDefault("SYNC_RETRY_BACKOFF_MS", 200)
	viper.SetDefault("RATE_LIMIT_RPS", 1)
	viper.SetDefault("RATE_LIMIT_BURST", 3)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("ARCHIVE_BUCKET", "shulebook-sync-reports")

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       0,
		},
		Keycloak: KeycloakConfig{
			URL:          viper.GetString("KEYCLOAK_URL"),
			Realm:        viper.GetString("KEYCLOAK_REALM"),
			ClientID:     viper.GetString("KEYCLOAK_CLIENT_ID"),
			ClientSecret: viper.GetString("KEYCLOAK_CLIENT_SECRET"),
			AdminRPS:     viper.GetFloat64("KEYCLOAK_ADMIN_RPS"),
			AdminBurst:   viper.GetInt("KEYCLOAK_ADMIN_BURST"),
		},
		Seed: SeedConfig{
			File: viper.GetString("SEED_FILE"),
		},
		Sync: SyncConfig{
			Workers:       viper.GetInt("SYNC_WORKERS"),
			MaxBatchOps:   viper.GetInt("SYNC_MAX_BATCH_OPS"),
			RetryAttempts: viper.GetInt("SYNC_RETRY_ATTEMPTS"),
			RetryBackoff:  time.Duration(viper.GetInt("SYNC_RETRY_BACKOFF_MS")) * time.Millisecond,
		},
		Archive: ArchiveConfig{
			Endpoint:  viper.GetString("ARCHIVE_ENDPOINT"),
			AccessKey: viper.GetString("ARCHIVE_ACCESS_KEY"),
			SecretKey: viper.GetString("ARCHIVE_SECRET_KEY"),
			UseSSL:    viper.GetBool("ARCHIVE_USE_SSL"),
			Bucket:    viper.GetString("ARCHIVE_BUCKET"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	return cfg, nil
}

// CheckCredentials verifies that credentials required to reach the backing
// stores are present. Callers treat a failure here as fatal (non-zero exit)
// before any per-entry work starts.
func (c *Config) CheckCredentials() error {
	if c.MongoDB.URI == "" {
		return &CredentialError{Key: "MONGODB_URI"}
	}
	if c.Keycloak.URL != "" && c.Keycloak.ClientSecret == "" {
		return &CredentialError{Key: "KEYCLOAK_CLIENT_SECRET"}
	}
	return nil
}
