package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const devJWTSecret = "dev-secret-change-me"

// DefaultSeedRooms is the catalog used when storage holds no rooms and
// SEED_ROOMS is unset.
const DefaultSeedRooms = "1:2,2:2,3:4,4:4,5:6"

type Config struct {
	Port       string        `env:"PORT,        default=8080"`
	Env        string        `env:"ENV,         default=development"`
	LogLevel   string        `env:"LOG_LEVEL,   default=info"`
	JWTSecret  string        `env:"JWT_SECRET,  default=dev-secret-change-me"`
	TokenTTL   time.Duration `env:"TOKEN_TTL,   default=24h"`
	AdminEmail string        `env:"ADMIN_EMAIL"`

	Storage StorageConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	Audit   AuditConfig

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=15s"`
}

type StorageConfig struct {
	// Driver selects the persistence backend: "csv" or "mongo".
	Driver  string `env:"STORAGE_DRIVER, default=csv"`
	DataDir string `env:"DATA_DIR,       default=./data"`
	// SeedRooms populates an empty catalog, as comma separated
	// "room_id:max_guests" pairs. Defaults to DefaultSeedRooms.
	SeedRooms string `env:"SEED_ROOMS"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=hotel_reservations"`
}

type RedisConfig struct {
	// Addr is empty by default, which disables idempotency keys.
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads configuration through the given lookuper and validates it.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	if cfg.Storage.SeedRooms == "" {
		cfg.Storage.SeedRooms = DefaultSeedRooms
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "csv", "mongo":
	default:
		return fmt.Errorf("STORAGE_DRIVER must be csv or mongo, got %q", c.Storage.Driver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if !c.IsDevelopment() && c.JWTSecret == devJWTSecret {
		return errors.New("JWT_SECRET must be set outside development")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	return nil
}

// IsDevelopment reports whether ENV is "development".
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
