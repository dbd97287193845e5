package config

import (
	"fmt"  // Error wrapping
	"time" // Durations

	"github.com/joho/godotenv"              // For loading .env files
	"github.com/kelseyhightower/envconfig" // Environment decoding into the struct
	"github.com/shopspring/decimal"         // Starting wallet balance
)

// Config holds the application configuration
type Config struct {
	AppPort        string        `envconfig:"APP_PORT" default:"8080"`             // Application port
	DBUser         string        `envconfig:"DB_USER" default:"root"`              // Database user
	DBPassword     string        `envconfig:"DB_PASSWORD"`                         // Database password
	DBHost         string        `envconfig:"DB_HOST" default:"127.0.0.1"`         // Database host
	DBPort         string        `envconfig:"DB_PORT" default:"3306"`              // Database port
	DBName         string        `envconfig:"DB_NAME" default:"social"`            // Database name
	DBMaxOpenConns int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`      // Pool size
	DBMaxIdleConns int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`       // Idle connections kept
	JWTSecret      string        `envconfig:"JWT_SECRET" required:"true"`          // JWT secret key
	JWTTTL         time.Duration `envconfig:"JWT_TTL" default:"24h"`               // Token lifetime
	RedisAddr      string        `envconfig:"REDIS_ADDR"`                          // Redis server address, empty disables caching
	RedisPass      string        `envconfig:"REDIS_PASS"`                          // Redis password
	RedisDB        int           `envconfig:"REDIS_DB" default:"0"`                // Redis database number
	CacheTTL       time.Duration `envconfig:"CACHE_TTL" default:"60s"`             // Read cache TTL
	IsProd         bool          `envconfig:"IS_PROD" default:"false"`             // Is production environment
	InitialBalance string        `envconfig:"WALLET_INITIAL_BALANCE" default:"100"` // Balance of a new wallet
	LedgerTx       bool          `envconfig:"LEDGER_TRANSACTIONS" default:"true"`  // Wrap transfers in DB transactions
	RateLimitRPS   int           `envconfig:"RATE_LIMIT_RPS" default:"10"`         // Requests per second per client
	RateLimitBurst int           `envconfig:"RATE_LIMIT_BURST" default:"20"`       // Burst per client
	AdminUsername  string        `envconfig:"ADMIN_USERNAME"`                      // Seeded admin account
	AdminPassword  string        `envconfig:"ADMIN_PASSWORD"`                      // Seeded admin password
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	// Reject a malformed starting balance at boot rather than on first wallet
	if _, err := cfg.StartingBalance(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// StartingBalance parses WALLET_INITIAL_BALANCE
func (c *Config) StartingBalance() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.InitialBalance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: WALLET_INITIAL_BALANCE: %w", err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("config: WALLET_INITIAL_BALANCE must not be negative")
	}
	return d, nil
}

// DSN builds the MySQL data source name
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true&charset=utf8mb4"
}
