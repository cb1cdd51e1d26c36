package cmd

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/alert"
	"github.com/rustyeddy/papertrade/config"
	"github.com/rustyeddy/papertrade/engine"
	"github.com/rustyeddy/papertrade/internal/logging"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/persist"
	"github.com/rustyeddy/papertrade/risk"
)

func newRunCmd(rc *RootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Restore the ledger and replay the configured price feed through the engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rc)
		},
	}
}

func run(rc *RootConfig) error {
	logger := logging.New(rc.LogLevel)
	slog.SetDefault(logger)

	cfg := config.Default()
	if rc.ConfigPath != "" {
		loaded, err := config.LoadFromFile(rc.ConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	var j journal.Journal
	if cfg.Journal.Type != "" && cfg.Journal.Type != "none" {
		opened, err := journal.Open(cfg.Journal.Type, cfg.Journal.DBPath, cfg.Journal.TradesFile, cfg.Journal.EquityFile)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		j = opened
		defer j.Close()
	}

	eng := engine.New(engine.Config{
		Symbol:         cfg.Trading.Symbol,
		InitialBalance: cfg.Trading.InitialBalance,
		FeeRate:        cfg.Trading.FeeRate,
		Policy: risk.Policy{
			MaxPositionRatio:   cfg.Trading.MaxPositionRatio,
			MaxLeverage:        cfg.Trading.MaxLeverage,
			MinStopLossPercent: cfg.Trading.MinStopLossPercent,
		},
	}, j, logger)
	alerts := alert.NewManager()

	statePath := cfg.State.File
	if rc.StateFile != "" {
		statePath = rc.StateFile
	}
	store, err := persist.NewFileStore(statePath)
	if err != nil {
		return err
	}

	var cycle atomic.Int64
	snap, err := store.Load()
	switch {
	case err != nil:
		logger.Warn("state snapshot unreadable, starting fresh", "file", store.Path(), "err", err)
	case snap != nil:
		eng.Restore(snap.EngineState())
		alerts.Restore(snap.AlertState())
		cycle.Store(int64(snap.CycleCount))
		logger.Info("state restored",
			"cycle", snap.CycleCount,
			"balance", snap.Account.TotalBalance,
			"positions", len(snap.Positions),
			"plans", len(snap.Plans))
	default:
		logger.Info("no saved state, starting fresh", "balance", cfg.Trading.InitialBalance)
	}

	// Autosave on every successful mutation. Failures are logged, never
	// propagated: the ledger keeps running in memory.
	eng.OnChange(func() {
		s := persist.Capture(eng.State(), alerts, int(cycle.Load()))
		if err := store.Save(s); err != nil {
			logger.Warn("state save failed", "err", err)
		}
	})

	if len(cfg.Feed.PriceSteps) == 0 {
		logger.Info("no price steps configured, nothing to replay")
		return nil
	}

	for _, step := range cfg.Feed.PriceSteps {
		if d, _ := step.ParseDuration(); d > 0 {
			time.Sleep(d)
		}
		cycle.Add(1)

		res := eng.UpdatePrice(step.Price)
		for _, trig := range res.TriggeredPlans {
			if trig.Err != nil {
				logger.Warn("plan triggered, open rejected", "plan", trig.PlanID, "price", step.Price, "err", trig.Err)
				continue
			}
			logger.Info("plan triggered", "plan", trig.PlanID, "position", trig.Open.PositionID, "price", step.Price)
		}
		for _, closed := range res.AutoClosed {
			if closed.Err != nil {
				logger.Warn("auto close failed", "position", closed.PositionID, "err", closed.Err)
				continue
			}
			logger.Info("position auto-closed",
				"position", closed.PositionID,
				"reason", closed.Reason,
				"price", step.Price,
				"realized_pnl", closed.Result.RealizedPnL)
		}
		for _, fired := range alerts.Check(step.Price) {
			logger.Info("price alert fired", "alert", fired.ID, "level", fired.Price, "condition", fired.Condition, "price", step.Price)
		}
	}

	acct := eng.Account()
	logger.Info("replay complete",
		"cycles", cycle.Load(),
		"balance", acct.TotalBalance,
		"equity", acct.Equity,
		"margin_used", acct.MarginUsed,
		"open_positions", len(eng.Positions()),
		"pending_plans", len(eng.Plans()))
	return nil
}
