package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the API server reads from the environment.
type Config struct {
	Port   string
	AppEnv string

	DBDriver          string // postgres, mysql or sqlite
	DatabaseURL       string
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBLogLevel        string

	MutationTimeout   time.Duration
	LowStockThreshold int

	RateLimitMax    int // 0 disables the limiter
	RateLimitWindow time.Duration
	RedisAddr       string

	CORSOrigins string

	SeedAdminUsername string
	SeedAdminPassword string
}

// Load reads .env (if present) and the process environment.
// A missing .env file is not an error; a malformed value is.
func Load() (*Config, bool, error) {
	envLoaded := godotenv.Load() == nil

	cfg := &Config{
		Port:              getEnv("PORT", "8081"),
		AppEnv:            getEnv("APP_ENV", "development"),
		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            os.Getenv("DB_PORT"),
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBName:            getEnv("DB_NAME", "inventory"),
		DBLogLevel:        strings.ToLower(getEnv("DB_LOG_LEVEL", "warn")),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		CORSOrigins:       getEnv("CORS_ORIGINS", "*"),
		SeedAdminUsername: os.Getenv("SEED_ADMIN_USERNAME"),
		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
	}

	var err error
	if cfg.DBMaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", 25); err != nil {
		return nil, envLoaded, err
	}
	if cfg.DBMaxIdleConns, err = getInt("DB_MAX_IDLE_CONNS", 10); err != nil {
		return nil, envLoaded, err
	}
	if cfg.DBConnMaxLifetime, err = getDuration("DB_CONN_MAX_LIFETIME", time.Hour); err != nil {
		return nil, envLoaded, err
	}
	if cfg.MutationTimeout, err = getDuration("MUTATION_TIMEOUT", 5*time.Second); err != nil {
		return nil, envLoaded, err
	}
	if cfg.LowStockThreshold, err = getInt("LOW_STOCK_THRESHOLD", 10); err != nil {
		return nil, envLoaded, err
	}
	if cfg.RateLimitMax, err = getInt("RATE_LIMIT_MAX", 120); err != nil {
		return nil, envLoaded, err
	}
	if cfg.RateLimitWindow, err = getDuration("RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return nil, envLoaded, err
	}

	switch cfg.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, envLoaded, fmt.Errorf("unsupported DB_DRIVER %q (use postgres, mysql or sqlite)", cfg.DBDriver)
	}
	if cfg.MutationTimeout <= 0 {
		return nil, envLoaded, fmt.Errorf("MUTATION_TIMEOUT must be positive, got %s", cfg.MutationTimeout)
	}

	return cfg, envLoaded, nil
}

// IsProduction reports whether APP_ENV selects production behaviour.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// DSN builds the driver specific connection string unless DATABASE_URL is set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		if c.DBDriver == "sqlite" {
			return withSQLiteLocking(c.DatabaseURL)
		}
		return c.DatabaseURL
	}

	switch c.DBDriver {
	case "mysql":
		port := c.DBPort
		if port == "" {
			port = "3306"
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			c.DBUser, c.DBPassword, c.DBHost, port, c.DBName)
	case "sqlite":
		return withSQLiteLocking(c.DBName + ".db")
	default:
		port := c.DBPort
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			c.DBHost, c.DBUser, c.DBPassword, c.DBName, port)
	}
}

// withSQLiteLocking adds the parameters a sqlite DSN needs so writers take
// the lock at BEGIN and concurrent mutations queue instead of failing.
// Parameters already present in dsn are kept as given.
func withSQLiteLocking(dsn string) string {
	for _, param := range []string{"_txlock=immediate", "_busy_timeout=5000"} {
		key := param[:strings.IndexByte(param, '=')+1]
		if strings.Contains(dsn, key) {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + param
	}
	return dsn
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: want a non-negative integer", key, raw)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
