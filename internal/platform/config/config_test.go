package config_test

import (
	"testing"
	"time"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/SscSPs/bank_ledger/internal/platform/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("PORT", "")
	t.Setenv("BALANCE_CACHE_TTL", "")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, config.StorageMemory, cfg.StorageDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.BalanceCacheTTL)
	assert.Equal(t, "100-M", cfg.RateLimit)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.Nil(t, cfg.BaseFee)
	assert.Empty(t, cfg.MinimumBalances)
}

func TestLoadConfig_PostgresRequiresURL(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("PGSQL_URL", "")

	_, err := config.LoadConfig()
	assert.ErrorContains(t, err, "PGSQL_URL")
}

func TestLoadConfig_UnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "sqlite")

	_, err := config.LoadConfig()
	assert.ErrorContains(t, err, "unknown STORAGE_DRIVER")
}

func TestLoadConfig_PolicyOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("POLICY_BASE_FEE", "5")
	t.Setenv("POLICY_MAX_FEE", "20.50")
	t.Setenv("POLICY_MIN_BALANCE_SAVINGS", "250")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	p := cfg.Policy()
	assert.True(t, decimal.NewFromInt(5).Equal(p.BaseFee))
	assert.True(t, decimal.RequireFromString("20.5").Equal(p.MaxFee))
	assert.True(t, decimal.NewFromInt(250).Equal(p.MinimumBalance(domain.Savings)))
	assert.True(t, decimal.NewFromInt(25).Equal(p.MinimumBalance(domain.Checking)), "untouched floors keep defaults")
	assert.True(t, decimal.RequireFromString("0.001").Equal(p.FeeRate))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfig_InvalidPolicyValue(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("POLICY_FEE_RATE", "lots")

	_, err := config.LoadConfig()
	assert.ErrorContains(t, err, "POLICY_FEE_RATE")
}

func TestLoadConfig_InvalidRedisDB(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("REDIS_DB", "42")

	_, err := config.LoadConfig()
	assert.ErrorContains(t, err, "RedisDB")
}
