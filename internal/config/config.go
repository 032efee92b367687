package config // package config loads application configuration from environment variables

import (
	"fmt"     // fmt formats the missing-variable error
	"os"      // os provides access to environment variables
	"strings" // strings normalizes driver names and joins missing keys
	"time"    // time parses the token lifetime

	"github.com/joho/godotenv" // godotenv loads a local .env file into the process environment
)

// Supported values for DB_DRIVER.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Redis, rate limiting, caching and the message
// queue have their own loaders because they are optional.
type Config struct {
	Env         string // application environment (e.g. "development", "production")
	Port        string // HTTP port to listen on
	FrontendURL string // origin allowed by the CORS policy; empty allows all
	LogLevel    string // zap level name

	DBDriver      string // mysql | postgres | sqlite
	DBUser        string // database username
	DBPass        string // database password (optional)
	DBHost        string // database host address
	DBPort        string // database port number
	DBName        string // database name
	DBSSLMode     string // postgres sslmode
	DBPath        string // sqlite file path
	DBAutoMigrate bool   // run gorm AutoMigrate on startup
	DBLogMode     bool   // log every SQL statement

	JWTSecret       string        // secret used to sign JWTs
	TokenTTL        time.Duration // access token lifetime
	BcryptCost      int           // bcrypt cost for password hashing
	RevocationStore string        // memory | redis
	RevocationKey   string        // redis set holding revoked tokens
}

// IsProduction reports whether the process runs with production settings.
func (c Config) IsProduction() bool { return strings.EqualFold(c.Env, "production") }

// Load reads configuration values from the environment, after merging an
// optional .env file from the working directory.  Every missing required
// variable is reported in a single error so operators can fix them at once.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env file is not an error; real env vars win

	var missing []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:         envStr("APP_ENV", "development"),
		Port:        envStr("APP_PORT", "8080"),
		FrontendURL: os.Getenv("FRONTEND_URL"),
		LogLevel:    envStr("LOG_LEVEL", "info"),

		DBDriver:      strings.ToLower(envStr("DB_DRIVER", DriverMySQL)),
		DBPass:        os.Getenv("DB_PASS"),
		DBSSLMode:     envStr("DB_SSLMODE", "disable"),
		DBAutoMigrate: envBool("DB_AUTO_MIGRATE", true),
		DBLogMode:     envBool("DB_LOG_MODE", false),

		JWTSecret:       must("JWT_SECRET"),
		TokenTTL:        envDur("TOKEN_TTL", time.Hour),
		BcryptCost:      envInt("BCRYPT_COST", 10),
		RevocationStore: strings.ToLower(envStr("REVOCATION_STORE", "memory")),
		RevocationKey:   envStr("REVOCATION_KEY", "auth:revoked"),
	}

	switch cfg.DBDriver {
	case DriverMySQL, DriverPostgres:
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBName = must("DB_NAME")
		def := "3306"
		if cfg.DBDriver == DriverPostgres {
			def = "5432"
		}
		cfg.DBPort = envStr("DB_PORT", def)
	case DriverSQLite:
		cfg.DBPath = envStr("DB_PATH", "blog.db")
	default:
		return Config{}, fmt.Errorf("config: unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("config: missing required env vars: %s", strings.Join(missing, ", "))
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("config: TOKEN_TTL must be positive, got %s", cfg.TokenTTL)
	}
	if cfg.RevocationStore != "memory" && cfg.RevocationStore != "redis" {
		return Config{}, fmt.Errorf("config: unsupported REVOCATION_STORE %q", cfg.RevocationStore)
	}
	return cfg, nil
}
