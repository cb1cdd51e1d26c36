// Package config loads the trader configuration from a YAML or JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete trader configuration
type Config struct {
	Trading TradingConfig `json:"trading" yaml:"trading"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	State   StateConfig   `json:"state" yaml:"state"`
	Feed    FeedConfig    `json:"feed" yaml:"feed"`
}

// TradingConfig contains account initialization and risk limits
type TradingConfig struct {
	Symbol             string  `json:"symbol" yaml:"symbol"`
	InitialBalance     float64 `json:"initial_balance" yaml:"initial_balance"`
	FeeRate            float64 `json:"fee_rate" yaml:"fee_rate"`
	MaxPositionRatio   float64 `json:"max_position_ratio" yaml:"max_position_ratio"`
	MaxLeverage        int     `json:"max_leverage" yaml:"max_leverage"`
	MinStopLossPercent float64 `json:"min_stop_loss_percent" yaml:"min_stop_loss_percent"`
}

// JournalConfig contains audit-journal parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// StateConfig locates the persistence snapshot
type StateConfig struct {
	File string `json:"file" yaml:"file"`
}

// FeedConfig contains scripted price steps for replay runs
type FeedConfig struct {
	PriceSteps []PriceStep `json:"price_steps,omitempty" yaml:"price_steps,omitempty"`
}

// PriceStep represents one price update in a replay run
type PriceStep struct {
	Price float64 `json:"price" yaml:"price"`
	Delay string  `json:"delay,omitempty" yaml:"delay,omitempty"` // e.g. "1s", "500ms"
}

// ParseDuration converts the delay string to time.Duration
func (ps PriceStep) ParseDuration() (time.Duration, error) {
	if ps.Delay == "" {
		return 0, nil
	}
	return time.ParseDuration(ps.Delay)
}

// LoadFromFile loads configuration from a file (YAML or JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (format chosen by extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Trading.Symbol == "" {
		return fmt.Errorf("trading.symbol is required")
	}
	if c.Trading.InitialBalance <= 0 {
		return fmt.Errorf("trading.initial_balance must be positive")
	}
	if c.Trading.FeeRate < 0 {
		return fmt.Errorf("trading.fee_rate must not be negative")
	}
	if c.Trading.MaxPositionRatio <= 0 || c.Trading.MaxPositionRatio > 1 {
		return fmt.Errorf("trading.max_position_ratio must be in (0, 1]")
	}
	if c.Trading.MaxLeverage < 1 {
		return fmt.Errorf("trading.max_leverage must be at least 1")
	}
	if c.Trading.MinStopLossPercent <= 0 || c.Trading.MinStopLossPercent >= 1 {
		return fmt.Errorf("trading.min_stop_loss_percent must be in (0, 1)")
	}
	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}
	for i, ps := range c.Feed.PriceSteps {
		if ps.Price <= 0 {
			return fmt.Errorf("feed.price_steps[%d].price must be positive", i)
		}
		if _, err := ps.ParseDuration(); err != nil {
			return fmt.Errorf("feed.price_steps[%d].delay: %w", i, err)
		}
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Trading: TradingConfig{
			Symbol:             "BTC_USDT",
			InitialBalance:     100000,
			FeeRate:            0.0001,
			MaxPositionRatio:   0.3,
			MaxLeverage:        20,
			MinStopLossPercent: 0.05,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./papertrade.sqlite",
		},
		State: StateConfig{
			File: "data/state.json",
		},
	}
}
