package ledger

// HistoryLimit bounds the trailing trade-history window.
const HistoryLimit = 100

// Store is the in-memory ledger: balance, positions, plans, trade history,
// and the price cursor. It does no locking; the engine is its single writer
// and guards every access.
type Store struct {
	balance   float64
	positions map[string]*Position
	plans     map[string]*TradingPlan
	history   []TradeRecord

	lastPrice float64
	hasPrice  bool
}

func NewStore(balance float64) *Store {
	return &Store{
		balance:   balance,
		positions: make(map[string]*Position),
		plans:     make(map[string]*TradingPlan),
	}
}

func (s *Store) Balance() float64 { return s.balance }

// Credit adjusts total balance by delta (negative for debits).
func (s *Store) Credit(delta float64) { s.balance += delta }

func (s *Store) SetBalance(v float64) { s.balance = v }

// LastPrice returns the price cursor and whether it has been seeded.
func (s *Store) LastPrice() (float64, bool) { return s.lastPrice, s.hasPrice }

func (s *Store) SetLastPrice(p float64) {
	s.lastPrice = p
	s.hasPrice = true
}

func (s *Store) Position(id string) (*Position, bool) {
	p, ok := s.positions[id]
	return p, ok
}

func (s *Store) AddPosition(p *Position) { s.positions[p.ID] = p }

func (s *Store) Plan(id string) (*TradingPlan, bool) {
	pl, ok := s.plans[id]
	return pl, ok
}

func (s *Store) AddPlan(pl *TradingPlan) { s.plans[pl.ID] = pl }

// Append adds a trade record, trimming the window to HistoryLimit.
func (s *Store) Append(rec TradeRecord) {
	s.history = append(s.history, rec)
	if len(s.history) > HistoryLimit {
		s.history = s.history[len(s.history)-HistoryLimit:]
	}
}

// History returns a copy of the trailing trade-record window.
func (s *Store) History() []TradeRecord {
	out := make([]TradeRecord, len(s.history))
	copy(out, s.history)
	return out
}

// OpenPositions returns value copies of every open position.
func (s *Store) OpenPositions() []Position {
	out := make([]Position, 0, len(s.positions))
	for _, p := range s.positions {
		if p.Status == PositionOpen {
			out = append(out, *p)
		}
	}
	return out
}

// PendingPlans returns value copies of every pending plan.
func (s *Store) PendingPlans() []TradingPlan {
	out := make([]TradingPlan, 0, len(s.plans))
	for _, pl := range s.plans {
		if pl.Status == PlanPending {
			out = append(out, *pl)
		}
	}
	return out
}

// AllPositions returns value copies of every position, open or closed.
func (s *Store) AllPositions() []Position {
	out := make([]Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, *p)
	}
	return out
}

// AllPlans returns value copies of every plan regardless of status.
func (s *Store) AllPlans() []TradingPlan {
	out := make([]TradingPlan, 0, len(s.plans))
	for _, pl := range s.plans {
		out = append(out, *pl)
	}
	return out
}

// PositionRefs returns the live position pointers, for the engine's trigger
// passes. Callers must hold the engine lock.
func (s *Store) PositionRefs() []*Position {
	out := make([]*Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	return out
}

// PlanRefs returns the live plan pointers. Callers must hold the engine lock.
func (s *Store) PlanRefs() []*TradingPlan {
	out := make([]*TradingPlan, 0, len(s.plans))
	for _, pl := range s.plans {
		out = append(out, pl)
	}
	return out
}

// Account derives the account view from current holdings and the price
// cursor. Margin and unrealized PnL sum over open positions only.
func (s *Store) Account() Account {
	var margin, upnl float64
	for _, p := range s.positions {
		if p.Status != PositionOpen {
			continue
		}
		margin += p.Margin()
		if s.hasPrice {
			upnl += p.UnrealizedPnL(s.lastPrice)
		}
	}
	return Account{
		TotalBalance:  s.balance,
		Available:     s.balance - margin,
		MarginUsed:    margin,
		UnrealizedPnL: upnl,
		Equity:        s.balance + upnl,
	}
}
