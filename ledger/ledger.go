// Package ledger holds the entities of the simulated trading ledger:
// positions, conditional trading plans, the trade-history window, and the
// derived account view. It stores and computes; all mutation policy lives in
// the engine package.
package ledger

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy shared by the engine and command surface. All are
// recoverable; commands wrap them with the offending id.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidState   = errors.New("invalid state")
	ErrMalformedInput = errors.New("malformed input")
)

type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// ParseDirection maps the wire literal onto a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Long, Short:
		return Direction(s), nil
	default:
		return "", fmt.Errorf("%w: direction %q", ErrMalformedInput, s)
	}
}

// Sign is +1 for long, -1 for short.
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

type PlanStatus string

const (
	PlanPending   PlanStatus = "pending"
	PlanTriggered PlanStatus = "triggered"
	PlanCancelled PlanStatus = "cancelled"
)

// Position is a leveraged exposure in the quote currency. Amount is notional;
// margin reserved against it is Amount/Leverage.
type Position struct {
	ID          string
	Symbol      string
	Direction   Direction
	EntryPrice  float64
	Amount      float64
	Leverage    int
	StopLoss    float64
	TakeProfit  float64
	OpenTime    time.Time
	Status      PositionStatus
	CloseTime   time.Time
	ClosePrice  float64
	RealizedPnL float64
}

// Margin is the capital reserved against this position while it is open.
func (p *Position) Margin() float64 {
	if p.Status != PositionOpen || p.Leverage <= 0 {
		return 0
	}
	return p.Amount / float64(p.Leverage)
}

// UnrealizedPnL marks the open notional to price. Closed positions carry no
// unrealized component.
func (p *Position) UnrealizedPnL(price float64) float64 {
	if p.Status != PositionOpen || p.EntryPrice == 0 {
		return 0
	}
	return p.Direction.Sign() * (price - p.EntryPrice) * p.Amount / p.EntryPrice
}

// ExitTrigger reports whether price hits the stop-loss or take-profit level.
// Stop-loss is checked first; the two are mutually exclusive per evaluation.
func (p *Position) ExitTrigger(price float64) (reason string, hit bool) {
	if p.Status != PositionOpen {
		return "", false
	}
	if p.Direction == Long {
		if price <= p.StopLoss {
			return "stop_loss", true
		}
		if price >= p.TakeProfit {
			return "take_profit", true
		}
		return "", false
	}
	if price >= p.StopLoss {
		return "stop_loss", true
	}
	if price <= p.TakeProfit {
		return "take_profit", true
	}
	return "", false
}

// MarkClosed transitions the position to closed, setting the terminal fields.
// A position closes exactly once.
func (p *Position) MarkClosed(price, realized float64, at time.Time) error {
	if p.Status != PositionOpen {
		return fmt.Errorf("%w: position %s already closed", ErrInvalidState, p.ID)
	}
	p.Status = PositionClosed
	p.ClosePrice = price
	p.CloseTime = at
	p.RealizedPnL = realized
	return nil
}

// TradingPlan is a conditional order: once price crosses TriggerPrice it
// spawns a position with the stored parameters.
type TradingPlan struct {
	ID           string
	Symbol       string
	TriggerPrice float64
	Direction    Direction
	Amount       float64
	Leverage     int
	StopLoss     float64
	TakeProfit   float64
	CreateTime   time.Time
	Status       PlanStatus
}

// Crossed reports whether price moved across the trigger level between two
// consecutive observations. The interval is half-open: the trigger price
// counts as reached only on the arriving side, so exact equality cannot fire
// on both bounds.
func (pl *TradingPlan) Crossed(last, curr float64) bool {
	if pl.Status != PlanPending {
		return false
	}
	if pl.Direction == Long {
		return last < pl.TriggerPrice && pl.TriggerPrice <= curr
	}
	return last > pl.TriggerPrice && pl.TriggerPrice >= curr
}

// MarkTriggered transitions pending → triggered. Terminal.
func (pl *TradingPlan) MarkTriggered() error {
	if pl.Status != PlanPending {
		return fmt.Errorf("%w: plan %s is %s", ErrInvalidState, pl.ID, pl.Status)
	}
	pl.Status = PlanTriggered
	return nil
}

// Cancel transitions pending → cancelled. Terminal.
func (pl *TradingPlan) Cancel() error {
	if pl.Status != PlanPending {
		return fmt.Errorf("%w: plan %s is %s", ErrInvalidState, pl.ID, pl.Status)
	}
	pl.Status = PlanCancelled
	return nil
}

// TradeRecord is one append-only audit entry. Unused fields stay zero; Kind
// says which ones apply.
type TradeRecord struct {
	Time        time.Time
	Kind        string
	PositionID  string
	PlanID      string
	Direction   Direction
	Price       float64
	Amount      float64
	Leverage    int
	Ratio       float64
	Fee         float64
	RealizedPnL float64
	Error       string
}

// Record kinds.
const (
	KindOpenPosition  = "open_position"
	KindClosePosition = "close_position"
	KindPlanTriggered = "plan_triggered"
)

// Account is the derived account view. It is recomputed on every read and
// never cached.
type Account struct {
	TotalBalance  float64
	Available     float64
	MarginUsed    float64
	UnrealizedPnL float64
	Equity        float64
}
