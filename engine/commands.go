package engine

import (
	"fmt"
	"time"

	"github.com/rustyeddy/papertrade/internal/id"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/risk"
)

// fullCloseRatio: at or above this the position closes entirely rather than
// shrinking, absorbing float noise in "close everything" requests.
const fullCloseRatio = 0.9999

type OpenRequest struct {
	Symbol     string
	Direction  ledger.Direction
	Amount     float64
	Leverage   int
	StopLoss   float64
	TakeProfit float64
	Price      float64 // reference price used as entry
}

type OpenResult struct {
	PositionID string
	EntryPrice float64
	Fee        float64
}

type CloseResult struct {
	PositionID   string
	ClosedAmount float64
	RealizedPnL  float64
	Fee          float64
	Closed       bool // false for a partial close
}

type PlanRequest struct {
	Symbol       string
	TriggerPrice float64
	Direction    ledger.Direction
	Amount       float64
	Leverage     int
	StopLoss     float64
	TakeProfit   float64
}

// PlanUpdate carries the fields a modify_plan command supplies; nil means
// leave unchanged.
type PlanUpdate struct {
	TriggerPrice *float64
	Amount       *float64
	Leverage     *int
	StopLoss     *float64
	TakeProfit   *float64
}

// OpenPosition validates the commitment, debits the open fee, and creates an
// open position at the reference price.
func (e *Engine) OpenPosition(req OpenRequest) (OpenResult, error) {
	e.mu.Lock()
	res, err := e.openLocked(req, time.Now().UTC())
	if err != nil {
		e.mu.Unlock()
		return OpenResult{}, err
	}
	e.recordEquityLocked(time.Now().UTC())
	e.mu.Unlock()

	e.notify()
	return res, nil
}

func (e *Engine) openLocked(req OpenRequest, at time.Time) (OpenResult, error) {
	if req.Direction != ledger.Long && req.Direction != ledger.Short {
		return OpenResult{}, fmt.Errorf("%w: direction %q", ledger.ErrMalformedInput, req.Direction)
	}
	if req.Leverage < 1 {
		return OpenResult{}, fmt.Errorf("%w: leverage %d", ledger.ErrMalformedInput, req.Leverage)
	}

	err := risk.Check(e.policy, e.store.Account(), risk.Intent{
		Amount:         req.Amount,
		Leverage:       req.Leverage,
		StopLoss:       req.StopLoss,
		ReferencePrice: req.Price,
		Direction:      req.Direction,
	})
	if err != nil {
		return OpenResult{}, err
	}

	fee := req.Amount * e.feeRate
	e.store.Credit(-fee)

	pos := &ledger.Position{
		ID:         id.New(),
		Symbol:     req.Symbol,
		Direction:  req.Direction,
		EntryPrice: req.Price,
		Amount:     req.Amount,
		Leverage:   req.Leverage,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		OpenTime:   at,
		Status:     ledger.PositionOpen,
	}
	e.store.AddPosition(pos)

	e.store.Append(ledger.TradeRecord{
		Time:       at,
		Kind:       ledger.KindOpenPosition,
		PositionID: pos.ID,
		Direction:  pos.Direction,
		Price:      pos.EntryPrice,
		Amount:     pos.Amount,
		Leverage:   pos.Leverage,
		Fee:        fee,
	})

	return OpenResult{PositionID: pos.ID, EntryPrice: req.Price, Fee: fee}, nil
}

// ClosePosition realizes PnL on ratio of the position's notional at price.
// ratio ∈ (0,1]; at fullCloseRatio or above the position transitions to
// closed, otherwise its amount shrinks and it stays open.
func (e *Engine) ClosePosition(positionID string, ratio, price float64) (CloseResult, error) {
	e.mu.Lock()
	if ratio <= 0 || ratio > 1 {
		e.mu.Unlock()
		return CloseResult{}, fmt.Errorf("%w: close ratio %v outside (0,1]", ledger.ErrMalformedInput, ratio)
	}
	pos, ok := e.store.Position(positionID)
	if !ok {
		e.mu.Unlock()
		return CloseResult{}, fmt.Errorf("%w: position %s", ledger.ErrNotFound, positionID)
	}
	res, err := e.closeLocked(pos, ratio, price, "manual", time.Now().UTC())
	if err != nil {
		e.mu.Unlock()
		return CloseResult{}, err
	}
	e.recordEquityLocked(time.Now().UTC())
	e.mu.Unlock()

	e.notify()
	return res, nil
}

func (e *Engine) closeLocked(pos *ledger.Position, ratio, price float64, reason string, at time.Time) (CloseResult, error) {
	if pos.Status != ledger.PositionOpen {
		return CloseResult{}, fmt.Errorf("%w: position %s already closed", ledger.ErrInvalidState, pos.ID)
	}

	closeAmount := pos.Amount * ratio
	fee := closeAmount * e.feeRate
	pnl := pos.Direction.Sign() * (price - pos.EntryPrice) * closeAmount / pos.EntryPrice
	realized := pnl - fee
	e.store.Credit(realized)

	full := ratio >= fullCloseRatio
	if full {
		if err := pos.MarkClosed(price, realized, at); err != nil {
			return CloseResult{}, err
		}
	} else {
		pos.Amount -= closeAmount
	}

	e.store.Append(ledger.TradeRecord{
		Time:        at,
		Kind:        ledger.KindClosePosition,
		PositionID:  pos.ID,
		Direction:   pos.Direction,
		Price:       price,
		Amount:      closeAmount,
		Ratio:       ratio,
		Fee:         fee,
		RealizedPnL: realized,
	})

	if e.journal != nil {
		err := e.journal.RecordTrade(journal.TradeRecord{
			TradeID:     pos.ID,
			Symbol:      pos.Symbol,
			Direction:   string(pos.Direction),
			Amount:      closeAmount,
			Leverage:    pos.Leverage,
			EntryPrice:  pos.EntryPrice,
			ExitPrice:   price,
			OpenTime:    pos.OpenTime,
			CloseTime:   at,
			RealizedPnL: realized,
			Fee:         fee,
			Reason:      reason,
		})
		if err != nil {
			e.log.Warn("journal trade record failed", "position", pos.ID, "err", err)
		}
	}

	return CloseResult{
		PositionID:   pos.ID,
		ClosedAmount: closeAmount,
		RealizedPnL:  realized,
		Fee:          fee,
		Closed:       full,
	}, nil
}

// ModifyPosition updates stop-loss and/or take-profit in place. The existing
// position is grandfathered: no re-validation against risk limits.
func (e *Engine) ModifyPosition(positionID string, stopLoss, takeProfit *float64) error {
	e.mu.Lock()
	pos, ok := e.store.Position(positionID)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: position %s", ledger.ErrNotFound, positionID)
	}
	if stopLoss != nil {
		pos.StopLoss = *stopLoss
	}
	if takeProfit != nil {
		pos.TakeProfit = *takeProfit
	}
	e.mu.Unlock()

	e.notify()
	return nil
}

// CreatePlan validates the commitment against the trigger price standing in
// for the entry price, then stores a pending plan.
func (e *Engine) CreatePlan(req PlanRequest) (string, error) {
	e.mu.Lock()
	if req.Direction != ledger.Long && req.Direction != ledger.Short {
		e.mu.Unlock()
		return "", fmt.Errorf("%w: direction %q", ledger.ErrMalformedInput, req.Direction)
	}
	if req.Leverage < 1 {
		e.mu.Unlock()
		return "", fmt.Errorf("%w: leverage %d", ledger.ErrMalformedInput, req.Leverage)
	}

	err := risk.Check(e.policy, e.store.Account(), risk.Intent{
		Amount:         req.Amount,
		Leverage:       req.Leverage,
		StopLoss:       req.StopLoss,
		ReferencePrice: req.TriggerPrice,
		Direction:      req.Direction,
	})
	if err != nil {
		e.mu.Unlock()
		return "", err
	}

	plan := &ledger.TradingPlan{
		ID:           id.New(),
		Symbol:       req.Symbol,
		TriggerPrice: req.TriggerPrice,
		Direction:    req.Direction,
		Amount:       req.Amount,
		Leverage:     req.Leverage,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
		CreateTime:   time.Now().UTC(),
		Status:       ledger.PlanPending,
	}
	e.store.AddPlan(plan)
	e.mu.Unlock()

	e.notify()
	return plan.ID, nil
}

// ModifyPlan overwrites the supplied fields of a pending plan.
func (e *Engine) ModifyPlan(planID string, upd PlanUpdate) error {
	e.mu.Lock()
	plan, ok := e.store.Plan(planID)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: plan %s", ledger.ErrNotFound, planID)
	}
	if plan.Status != ledger.PlanPending {
		e.mu.Unlock()
		return fmt.Errorf("%w: plan %s is %s", ledger.ErrInvalidState, planID, plan.Status)
	}
	if upd.TriggerPrice != nil {
		plan.TriggerPrice = *upd.TriggerPrice
	}
	if upd.Amount != nil {
		plan.Amount = *upd.Amount
	}
	if upd.Leverage != nil {
		plan.Leverage = *upd.Leverage
	}
	if upd.StopLoss != nil {
		plan.StopLoss = *upd.StopLoss
	}
	if upd.TakeProfit != nil {
		plan.TakeProfit = *upd.TakeProfit
	}
	e.mu.Unlock()

	e.notify()
	return nil
}

// CancelPlan marks a pending plan cancelled. Cancelling a triggered or
// already-cancelled plan is an invalid transition.
func (e *Engine) CancelPlan(planID string) error {
	e.mu.Lock()
	plan, ok := e.store.Plan(planID)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: plan %s", ledger.ErrNotFound, planID)
	}
	if err := plan.Cancel(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	e.notify()
	return nil
}
