package engine

import (
	"time"

	"github.com/rustyeddy/papertrade/ledger"
)

// PlanTrigger is one plan crossing within a tick. Open is nil and Err set
// when the spawned position failed risk validation; the plan is triggered
// either way and does not retry.
type PlanTrigger struct {
	PlanID string
	Open   *OpenResult
	Err    error
}

// AutoClose is one stop-loss/take-profit closure within a tick.
type AutoClose struct {
	PositionID string
	Reason     string // "stop_loss" or "take_profit"
	Result     CloseResult
	Err        error
}

// TickResult reports everything a price observation triggered.
type TickResult struct {
	TriggeredPlans []PlanTrigger
	AutoClosed     []AutoClose
}

func (r TickResult) empty() bool {
	return len(r.TriggeredPlans) == 0 && len(r.AutoClosed) == 0
}

// UpdatePrice is the single path by which market movement mutates the ledger.
// The very first call only seeds the price cursor: with no previous price
// there is no crossing interval. Subsequent calls run two passes, pending
// plan crossings first, then stop-loss/take-profit on open positions. The
// cursor moves only after both passes, so each observation is evaluated
// exactly once and a position opened by a fired plan can still be closed by
// its stop in the same tick.
func (e *Engine) UpdatePrice(price float64) TickResult {
	e.mu.Lock()

	last, seeded := e.store.LastPrice()
	if !seeded {
		e.store.SetLastPrice(price)
		e.mu.Unlock()
		return TickResult{}
	}

	var res TickResult
	now := time.Now().UTC()

	// Pass 1: plan triggers. A fired plan opens at the current price, not
	// the trigger price.
	for _, plan := range e.store.PlanRefs() {
		if !plan.Crossed(last, price) {
			continue
		}
		open, err := e.openLocked(OpenRequest{
			Symbol:     plan.Symbol,
			Direction:  plan.Direction,
			Amount:     plan.Amount,
			Leverage:   plan.Leverage,
			StopLoss:   plan.StopLoss,
			TakeProfit: plan.TakeProfit,
			Price:      price,
		}, now)

		_ = plan.MarkTriggered()

		rec := ledger.TradeRecord{
			Time:      now,
			Kind:      ledger.KindPlanTriggered,
			PlanID:    plan.ID,
			Direction: plan.Direction,
			Price:     price,
			Amount:    plan.Amount,
			Leverage:  plan.Leverage,
		}
		trigger := PlanTrigger{PlanID: plan.ID}
		if err != nil {
			rec.Error = err.Error()
			trigger.Err = err
		} else {
			rec.PositionID = open.PositionID
			o := open
			trigger.Open = &o
		}
		e.store.Append(rec)
		res.TriggeredPlans = append(res.TriggeredPlans, trigger)
	}

	// Pass 2: stop-loss / take-profit, independent of plan evaluation.
	for _, pos := range e.store.PositionRefs() {
		reason, hit := pos.ExitTrigger(price)
		if !hit {
			continue
		}
		closed, err := e.closeLocked(pos, 1.0, price, reason, now)
		res.AutoClosed = append(res.AutoClosed, AutoClose{
			PositionID: pos.ID,
			Reason:     reason,
			Result:     closed,
			Err:        err,
		})
	}

	if !res.empty() {
		e.recordEquityLocked(now)
	}

	e.store.SetLastPrice(price)
	e.mu.Unlock()

	if !res.empty() {
		e.notify()
	}
	return res
}
