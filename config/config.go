package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"

	UserStoreRedis    = "redis"
	UserStorePostgres = "postgres"
	UserStoreMemory   = "memory"
)

type Config struct {
	Port           string
	Environment    string
	AllowedOrigins []string
	JWTSecret      string
	TokenTTL       time.Duration
	PublicURL      string
	LogLevel       string

	Store     string
	UserStore string
	Redis     RedisConfig
	Postgres  PostgresConfig

	SweepInterval   time.Duration
	CleanupInterval time.Duration
	RoomMaxIdle     time.Duration
	CodeRetention   time.Duration

	Admin AdminConfig
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Timeout  time.Duration
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns a lib/pq connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Name, p.SSLMode)
}

// AdminConfig is the account seeded at startup
type AdminConfig struct {
	Username string
	Email    string
	Password string
}

// LoadEnvFile loads a .env file into the process environment. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Flags registers every setting on fs. Each flag can also be set through the
// environment variable of the same name upper-cased with underscores.
func Flags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringP("port", "p", "8080", "port to listen on (env: PORT)")
	fs.String("environment", "development", "development or production (env: ENVIRONMENT)")
	fs.String("allowed-origins", "http://localhost:3000,http://localhost:5173", "comma-separated CORS origins (env: ALLOWED_ORIGINS)")
	fs.String("jwt-secret", "change-me-in-production", "HMAC secret for bearer tokens (env: JWT_SECRET)")
	fs.Duration("token-ttl", 24*time.Hour, "bearer token lifetime (env: TOKEN_TTL)")
	fs.String("public-url", "http://localhost:8080", "base URL used in join links (env: PUBLIC_URL)")
	fs.String("log-level", "info", "debug, info, warn or error (env: LOG_LEVEL)")

	fs.String("store", StoreRedis, "room store: redis or memory (env: STORE)")
	fs.String("user-store", UserStoreRedis, "user store: redis, postgres or memory (env: USER_STORE)")
	fs.String("redis-host", "localhost", "(env: REDIS_HOST)")
	fs.String("redis-port", "6379", "(env: REDIS_PORT)")
	fs.String("redis-password", "", "(env: REDIS_PASSWORD)")
	fs.Int("redis-db", 0, "(env: REDIS_DB)")
	fs.Duration("redis-timeout", 3*time.Second, "per-call Redis timeout (env: REDIS_TIMEOUT)")
	fs.String("db-host", "localhost", "(env: DB_HOST)")
	fs.String("db-port", "5432", "(env: DB_PORT)")
	fs.String("db-user", "postgres", "(env: DB_USER)")
	fs.String("db-password", "", "(env: DB_PASSWORD)")
	fs.String("db-name", "lobby", "(env: DB_NAME)")
	fs.String("db-sslmode", "disable", "(env: DB_SSLMODE)")

	fs.Duration("sweep-interval", time.Second, "auto-start sweep period (env: SWEEP_INTERVAL)")
	fs.Duration("cleanup-interval", time.Hour, "stale room cleanup period (env: CLEANUP_INTERVAL)")
	fs.Duration("room-max-idle", time.Hour, "idle time before a waiting room is removed (env: ROOM_MAX_IDLE)")
	fs.Duration("code-retention", 24*time.Hour, "how long a room code stays reserved (env: CODE_RETENTION)")

	fs.String("admin-username", "admin", "(env: ADMIN_USERNAME)")
	fs.String("admin-email", "admin@example.com", "(env: ADMIN_EMAIL)")
	fs.String("admin-password", "admin123", "(env: ADMIN_PASSWORD)")
}

// Load resolves settings from flags, environment and defaults, in that order
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		bindErr = errors.Join(bindErr, v.BindPFlag(f.Name, f))
	})
	if bindErr != nil {
		return nil, bindErr
	}

	// Parse allowed origins (comma-separated)
	var origins []string
	for _, o := range strings.Split(v.GetString("allowed-origins"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	cfg := &Config{
		Port:           v.GetString("port"),
		Environment:    v.GetString("environment"),
		AllowedOrigins: origins,
		JWTSecret:      v.GetString("jwt-secret"),
		TokenTTL:       v.GetDuration("token-ttl"),
		PublicURL:      strings.TrimRight(v.GetString("public-url"), "/"),
		LogLevel:       v.GetString("log-level"),
		Store:          v.GetString("store"),
		UserStore:      v.GetString("user-store"),
		Redis: RedisConfig{
			Host:     v.GetString("redis-host"),
			Port:     v.GetString("redis-port"),
			Password: v.GetString("redis-password"),
			DB:       v.GetInt("redis-db"),
			Timeout:  v.GetDuration("redis-timeout"),
		},
		Postgres: PostgresConfig{
			Host:     v.GetString("db-host"),
			Port:     v.GetString("db-port"),
			User:     v.GetString("db-user"),
			Password: v.GetString("db-password"),
			Name:     v.GetString("db-name"),
			SSLMode:  v.GetString("db-sslmode"),
		},
		SweepInterval:   v.GetDuration("sweep-interval"),
		CleanupInterval: v.GetDuration("cleanup-interval"),
		RoomMaxIdle:     v.GetDuration("room-max-idle"),
		CodeRetention:   v.GetDuration("code-retention"),
		Admin: AdminConfig{
			Username: v.GetString("admin-username"),
			Email:    v.GetString("admin-email"),
			Password: v.GetString("admin-password"),
		},
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Store {
	case StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("invalid store %q (must be %s or %s)", c.Store, StoreRedis, StoreMemory)
	}
	switch c.UserStore {
	case UserStoreRedis, UserStorePostgres, UserStoreMemory:
	default:
		return fmt.Errorf("invalid user store %q (must be %s, %s or %s)", c.UserStore, UserStoreRedis, UserStorePostgres, UserStoreMemory)
	}
	if c.SweepInterval <= 0 || c.CleanupInterval <= 0 {
		return errors.New("sweep and cleanup intervals must be positive")
	}
	if c.Environment == "production" && c.JWTSecret == "change-me-in-production" {
		return errors.New("JWT_SECRET must be set in production")
	}
	return nil
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
