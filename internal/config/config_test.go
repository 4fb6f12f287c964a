package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "hyper", cfg.Exec.PrimaryVenue)
	assert.ElementsMatch(t, []string{"ETH", "BTC"}, cfg.Exec.AllowedSymbols)
	assert.ElementsMatch(t, []string{"hyper", "mock_gold"}, cfg.Exec.AllowedVenues)
	assert.False(t, cfg.Exec.EnableLive)
	assert.True(t, cfg.Exec.ApplyDryRunToPositions)
	assert.True(t, cfg.Exec.ReduceOnlyFallback)
	assert.Equal(t, 2, cfg.Exec.RetryAttempts)
	assert.Equal(t, 5*time.Second, cfg.Price.CacheTTL)
	assert.Equal(t, 2400.0, cfg.Price.MockGoldPrice)
	assert.Equal(t, "file", cfg.Ledger.Backend)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("VAULTCRAFT_ENABLE_LIVE", "true")
	t.Setenv("VAULTCRAFT_EXEC_AGENT_URL", "http://localhost:4001")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Exec.EnableLive)
	assert.Equal(t, "http://localhost:4001", cfg.Hyper.ExecAgentURL)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Exec.MinLeverage = 0
	assert.Error(t, Validate(cfg))

	cfg = base()
	cfg.Exec.MaxLeverage = cfg.Exec.MinLeverage - 1
	assert.Error(t, Validate(cfg))

	cfg = base()
	cfg.Exec.MinNotionalUSD = 200_000
	assert.Error(t, Validate(cfg))

	cfg = base()
	cfg.Exec.RetryAttempts = -1
	assert.Error(t, Validate(cfg))

	cfg = base()
	cfg.Ledger.Backend = "etcd"
	assert.Error(t, Validate(cfg))

	cfg = base()
	cfg.Ledger.Backend = "pebble"
	assert.NoError(t, Validate(cfg))
}
