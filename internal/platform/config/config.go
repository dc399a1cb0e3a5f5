package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/SscSPs/bank_ledger/internal/core/policy"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Storage drivers selectable with STORAGE_DRIVER.
const (
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
	StorageMemory   = "memory"
)

// DefaultMigrationsPath is the migrate source URL used when MIGRATIONS_PATH is unset.
const DefaultMigrationsPath = "file://migrations"

// Config holds application configuration.
type Config struct {
	Port          string `validate:"required,numeric"`
	IsProduction  bool
	StorageDriver string `validate:"oneof=postgres mongo memory"`

	DatabaseURL    string `validate:"required_if=StorageDriver postgres"`
	MigrationsPath string `validate:"required_if=StorageDriver postgres"`
	MongoURL       string `validate:"required_if=StorageDriver mongo"`
	MongoDB        string `validate:"required_if=StorageDriver mongo"`

	// Redis backs the balance cache and the event stream. Empty RedisAddr disables both.
	RedisAddr       string
	RedisPassword   string
	RedisDB         int `validate:"min=0,max=15"`
	BalanceCacheTTL time.Duration
	EventStream     string `validate:"required_with=RedisAddr"`

	JWTSecret          string `validate:"required"`
	RateLimit          string
	CORSAllowedOrigins []string

	// Policy overrides; nil keeps the default.
	BaseFee         *decimal.Decimal
	FeeRate         *decimal.Decimal
	MinFee          *decimal.Decimal
	MaxFee          *decimal.Decimal
	MinimumBalances map[domain.AccountType]decimal.Decimal
}

var accountTypes = []domain.AccountType{domain.Savings, domain.Checking, domain.Loan, domain.Credit, domain.Investment}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("STORAGE_DRIVER", StoragePostgres)
	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("MIGRATIONS_PATH", DefaultMigrationsPath)
	viper.SetDefault("MONGO_URL", "mongodb://localhost:27017/?replicaSet=rs0")
	viper.SetDefault("MONGO_DB", "bank_ledger")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("BALANCE_CACHE_TTL", "30s")
	viper.SetDefault("EVENT_STREAM", "ledger-events")
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	viper.AutomaticEnv()

	cfg := &Config{
		Port:           viper.GetString("PORT"),
		IsProduction:   viper.GetBool("IS_PRODUCTION"),
		StorageDriver:  strings.ToLower(viper.GetString("STORAGE_DRIVER")),
		DatabaseURL:    viper.GetString("PGSQL_URL"),
		MigrationsPath: viper.GetString("MIGRATIONS_PATH"),
		MongoURL:       viper.GetString("MONGO_URL"),
		MongoDB:        viper.GetString("MONGO_DB"),
		RedisAddr:      viper.GetString("REDIS_ADDR"),
		RedisPassword:  viper.GetString("REDIS_PASSWORD"),
		RedisDB:        viper.GetInt("REDIS_DB"),
		EventStream:    viper.GetString("EVENT_STREAM"),
		JWTSecret:      viper.GetString("JWT_SECRET"),
		RateLimit:      viper.GetString("RATE_LIMIT"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080" // Default port
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	switch cfg.StorageDriver {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("PGSQL_URL must be set when STORAGE_DRIVER is %s", StoragePostgres)
		}
	case StorageMongo, StorageMemory:
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	ttlStr := viper.GetString("BALANCE_CACHE_TTL")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil || ttl <= 0 {
		ttl = 30 * time.Second
		log.Printf("Warning: Invalid value for BALANCE_CACHE_TTL ('%s'). Defaulting to %s.\n", ttlStr, ttl)
	}
	cfg.BalanceCacheTTL = ttl

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must not be empty")
	}
	if cfg.IsProduction && cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET is the built-in default. THIS IS NOT FOR PRODUCTION.")
	}

	for _, origin := range strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	if cfg.BaseFee, err = optionalDecimal("POLICY_BASE_FEE"); err != nil {
		return nil, err
	}
	if cfg.FeeRate, err = optionalDecimal("POLICY_FEE_RATE"); err != nil {
		return nil, err
	}
	if cfg.MinFee, err = optionalDecimal("POLICY_MIN_FEE"); err != nil {
		return nil, err
	}
	if cfg.MaxFee, err = optionalDecimal("POLICY_MAX_FEE"); err != nil {
		return nil, err
	}
	cfg.MinimumBalances = make(map[domain.AccountType]decimal.Decimal)
	for _, t := range accountTypes {
		v, err := optionalDecimal("POLICY_MIN_BALANCE_" + strings.ToUpper(string(t)))
		if err != nil {
			return nil, err
		}
		if v != nil {
			cfg.MinimumBalances[t] = *v
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func optionalDecimal(key string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(viper.GetString(key))
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid value for %s ('%s'): %w", key, raw, err)
	}
	if v.IsNegative() {
		return nil, fmt.Errorf("%s must not be negative", key)
	}
	return &v, nil
}

// Policy returns the default policy with every configured override applied.
func (c *Config) Policy() policy.Policy {
	p := policy.DefaultPolicy()
	if c.BaseFee != nil {
		p.BaseFee = *c.BaseFee
	}
	if c.FeeRate != nil {
		p.FeeRate = *c.FeeRate
	}
	if c.MinFee != nil {
		p.MinFee = *c.MinFee
	}
	if c.MaxFee != nil {
		p.MaxFee = *c.MaxFee
	}
	for t, floor := range c.MinimumBalances {
		p.MinimumBalances[t] = floor
	}
	return p
}
