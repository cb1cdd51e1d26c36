package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "BTC_USDT", cfg.Trading.Symbol)
	assert.Equal(t, 100000.0, cfg.Trading.InitialBalance)
	assert.Equal(t, "sqlite", cfg.Journal.Type)
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
trading:
  symbol: ETH_USDT
  initial_balance: 50000
  fee_rate: 0.0002
  max_position_ratio: 0.25
  max_leverage: 10
  min_stop_loss_percent: 0.04
journal:
  type: csv
  trades_file: trades.csv
  equity_file: equity.csv
state:
  file: state.json
feed:
  price_steps:
    - price: 100
    - price: 105
      delay: 250ms
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ETH_USDT", cfg.Trading.Symbol)
	assert.Equal(t, 10, cfg.Trading.MaxLeverage)
	assert.Equal(t, "csv", cfg.Journal.Type)
	require.Len(t, cfg.Feed.PriceSteps, 2)

	d, err := cfg.Feed.PriceSteps[1].ParseDuration()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)
}

func TestLoadJSONFallback(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Trading, loaded.Trading)
	assert.Equal(t, cfg.Journal, loaded.Journal)
}

func TestSaveRoundTripYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Trading.Symbol = "SOL_USDT"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "SOL_USDT", loaded.Trading.Symbol)
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing symbol", func(c *Config) { c.Trading.Symbol = "" }},
		{"non-positive balance", func(c *Config) { c.Trading.InitialBalance = 0 }},
		{"negative fee", func(c *Config) { c.Trading.FeeRate = -0.1 }},
		{"ratio over one", func(c *Config) { c.Trading.MaxPositionRatio = 1.5 }},
		{"zero leverage", func(c *Config) { c.Trading.MaxLeverage = 0 }},
		{"stop percent too large", func(c *Config) { c.Trading.MinStopLossPercent = 1 }},
		{"unknown journal type", func(c *Config) { c.Journal.Type = "parquet" }},
		{"csv without files", func(c *Config) { c.Journal = JournalConfig{Type: "csv"} }},
		{"sqlite without path", func(c *Config) { c.Journal = JournalConfig{Type: "sqlite"} }},
		{"bad price step", func(c *Config) {
			c.Feed.PriceSteps = []PriceStep{{Price: -1}}
		}},
		{"bad delay", func(c *Config) {
			c.Feed.PriceSteps = []PriceStep{{Price: 100, Delay: "soon"}}
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
