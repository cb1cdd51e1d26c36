// Package risk gates every new commitment (position open or plan creation)
// against account state and configured limits.
package risk

import (
	"fmt"
	"math"

	"github.com/rustyeddy/papertrade/ledger"
)

// Policy holds the configured risk limits.
type Policy struct {
	MaxPositionRatio   float64 // max amount as a fraction of total balance
	MaxLeverage        int
	MinStopLossPercent float64 // min |ref - stop| / ref
}

// Intent is a proposed commitment. ReferencePrice stands in for the entry
// price: the current price for an open, the trigger price for a plan.
type Intent struct {
	Amount         float64
	Leverage       int
	StopLoss       float64
	ReferencePrice float64
	Direction      ledger.Direction
}

// Violation is the validation error: Code names the violated rule, Msg
// carries the numbers.
type Violation struct {
	Code string
	Msg  string
}

func (v *Violation) Error() string { return v.Code + ": " + v.Msg }

func violate(code, format string, args ...any) *Violation {
	return &Violation{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Check evaluates the rules in order and returns the first violation, or nil.
// It is side-effect-free and safe to call concurrently with reads.
func Check(p Policy, acct ledger.Account, in Intent) error {
	margin := in.Amount / float64(in.Leverage)
	if margin > acct.Available {
		return violate("INSUFFICIENT_MARGIN",
			"required margin %.2f exceeds available %.2f", margin, acct.Available)
	}

	if in.Amount > acct.TotalBalance*p.MaxPositionRatio {
		return violate("POSITION_TOO_LARGE",
			"amount %.2f exceeds %.0f%% of balance %.2f",
			in.Amount, 100*p.MaxPositionRatio, acct.TotalBalance)
	}

	if in.Leverage > p.MaxLeverage {
		return violate("LEVERAGE_TOO_HIGH",
			"leverage %dx exceeds max %dx", in.Leverage, p.MaxLeverage)
	}

	dist := math.Abs(in.ReferencePrice-in.StopLoss) / in.ReferencePrice
	if dist < p.MinStopLossPercent {
		return violate("STOP_TOO_TIGHT",
			"stop distance %.2f%% below minimum %.2f%%", 100*dist, 100*p.MinStopLossPercent)
	}

	if in.Direction == ledger.Long && in.StopLoss >= in.ReferencePrice {
		return violate("STOP_WRONG_SIDE",
			"long stop loss %.2f must be below entry %.2f", in.StopLoss, in.ReferencePrice)
	}
	if in.Direction == ledger.Short && in.StopLoss <= in.ReferencePrice {
		return violate("STOP_WRONG_SIDE",
			"short stop loss %.2f must be above entry %.2f", in.StopLoss, in.ReferencePrice)
	}

	return nil
}
