// Package engine is the position/plan lifecycle engine: the single writer
// over the ledger. Commands from the command surface and price updates from
// the feed both enter through its synchronized entry points; interleaved
// mutation is impossible.
package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/risk"
)

// Config holds the engine's monetary parameters.
type Config struct {
	Symbol         string
	InitialBalance float64
	FeeRate        float64
	Policy         risk.Policy
}

type Engine struct {
	mu    sync.Mutex
	store *ledger.Store

	symbol  string
	feeRate float64
	policy  risk.Policy

	journal journal.Journal // optional audit sink
	log     *slog.Logger

	onChange []func() // observer list, invoked outside the lock
}

// New builds an engine over a fresh ledger. j may be nil (no audit journal);
// logger may be nil (default slog).
func New(cfg Config, j journal.Journal, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:   ledger.NewStore(cfg.InitialBalance),
		symbol:  cfg.Symbol,
		feeRate: cfg.FeeRate,
		policy:  cfg.Policy,
		journal: j,
		log:     logger,
	}
}

// OnChange registers an observer called after every successful mutation.
// Observers run synchronously after the lock is released, so a persistence
// hook may read a snapshot without deadlocking.
func (e *Engine) OnChange(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = append(e.onChange, fn)
}

func (e *Engine) notify() {
	e.mu.Lock()
	observers := e.onChange
	e.mu.Unlock()
	for _, fn := range observers {
		fn()
	}
}

// Account returns the derived account view as of the last completed mutation.
func (e *Engine) Account() ledger.Account {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Account()
}

// Positions returns copies of the open positions.
func (e *Engine) Positions() []ledger.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.OpenPositions()
}

// Plans returns copies of the pending plans.
func (e *Engine) Plans() []ledger.TradingPlan {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.PendingPlans()
}

// History returns a copy of the trailing trade-record window.
func (e *Engine) History() []ledger.TradeRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.History()
}

// LastPrice returns the price cursor, if seeded.
func (e *Engine) LastPrice() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.LastPrice()
}

// State is the full ledger state for the persistence gateway: an immutable
// copy taken inside the writer's critical section.
type State struct {
	Balance   float64
	LastPrice float64
	HasPrice  bool
	Positions []ledger.Position
	Plans     []ledger.TradingPlan
	History   []ledger.TradeRecord
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	last, has := e.store.LastPrice()
	return State{
		Balance:   e.store.Balance(),
		LastPrice: last,
		HasPrice:  has,
		Positions: e.store.AllPositions(),
		Plans:     e.store.AllPlans(),
		History:   e.store.History(),
	}
}

// Restore replaces the ledger with a persisted state. Called once at boot,
// before the feed or command surface are attached.
func (e *Engine) Restore(st State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := ledger.NewStore(st.Balance)
	if st.HasPrice {
		s.SetLastPrice(st.LastPrice)
	}
	for i := range st.Positions {
		p := st.Positions[i]
		s.AddPosition(&p)
	}
	for i := range st.Plans {
		pl := st.Plans[i]
		s.AddPlan(&pl)
	}
	for _, rec := range st.History {
		s.Append(rec)
	}
	e.store = s
}

func (e *Engine) recordEquityLocked(at time.Time) {
	if e.journal == nil {
		return
	}
	acct := e.store.Account()
	err := e.journal.RecordEquity(journal.EquitySnapshot{
		Time:          at,
		Balance:       acct.TotalBalance,
		Equity:        acct.Equity,
		MarginUsed:    acct.MarginUsed,
		Available:     acct.Available,
		UnrealizedPnL: acct.UnrealizedPnL,
	})
	if err != nil {
		e.log.Warn("journal equity record failed", "err", err)
	}
}
