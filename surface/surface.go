// Package surface translates the decision process's structured calls into
// lifecycle-engine commands and exposes read-only ledger snapshots back to
// it. Every call returns a uniform success/error result; engine errors are
// reported, never propagated as failures of the surface itself.
package surface

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rustyeddy/papertrade/alert"
	"github.com/rustyeddy/papertrade/engine"
	"github.com/rustyeddy/papertrade/ledger"
)

// Result is the uniform command outcome.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func ok(data any) Result    { return Result{Success: true, Data: data} }
func fail(err error) Result { return Result{Success: false, Error: err.Error()} }
func failf(f string, a ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(f, a...)}
}

// Surface dispatches named commands onto the engine. alerts may be nil, in
// which case the alert commands report an error.
type Surface struct {
	engine *engine.Engine
	alerts *alert.Manager
}

func New(e *engine.Engine, alerts *alert.Manager) *Surface {
	return &Surface{engine: e, alerts: alerts}
}

// Dispatch runs one named command with JSON arguments.
func (s *Surface) Dispatch(name string, args json.RawMessage) Result {
	switch name {
	case "open_position":
		return s.openPosition(args)
	case "close_position":
		return s.closePosition(args)
	case "modify_position":
		return s.modifyPosition(args)
	case "create_plan":
		return s.createPlan(args)
	case "modify_plan":
		return s.modifyPlan(args)
	case "cancel_plan":
		return s.cancelPlan(args)
	case "get_account_info":
		return s.accountInfo()
	case "get_positions":
		return ok(s.positions())
	case "get_plans":
		return ok(s.plans())
	case "create_alert":
		return s.createAlert(args)
	case "cancel_alert":
		return s.cancelAlert(args)
	case "get_alerts":
		return s.activeAlerts()
	default:
		return failf("unknown command: %s", name)
	}
}

func decode(args json.RawMessage, into any) error {
	if len(args) == 0 {
		args = []byte("{}")
	}
	if err := json.Unmarshal(args, into); err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrMalformedInput, err)
	}
	return nil
}

func (s *Surface) openPosition(args json.RawMessage) Result {
	var in struct {
		Symbol       string  `json:"symbol"`
		Direction    string  `json:"direction"`
		Amount       float64 `json:"amount"`
		Leverage     int     `json:"leverage"`
		StopLoss     float64 `json:"stop_loss"`
		TakeProfit   float64 `json:"take_profit"`
		CurrentPrice float64 `json:"current_price"`
	}
	if err := decode(args, &in); err != nil {
		return fail(err)
	}
	if in.CurrentPrice <= 0 {
		return failf("missing current_price")
	}
	dir, err := ledger.ParseDirection(in.Direction)
	if err != nil {
		return fail(err)
	}
	res, err := s.engine.OpenPosition(engine.OpenRequest{
		Symbol:     in.Symbol,
		Direction:  dir,
		Amount:     in.Amount,
		Leverage:   in.Leverage,
		StopLoss:   in.StopLoss,
		TakeProfit: in.TakeProfit,
		Price:      in.CurrentPrice,
	})
	if err != nil {
		return fail(err)
	}
	return ok(map[string]any{
		"position_id": res.PositionID,
		"entry_price": res.EntryPrice,
		"fee":         res.Fee,
	})
}

func (s *Surface) closePosition(args json.RawMessage) Result {
	in := struct {
		PositionID   string  `json:"position_id"`
		Ratio        float64 `json:"ratio"`
		CurrentPrice float64 `json:"current_price"`
	}{Ratio: 1.0}
	if err := decode(args, &in); err != nil {
		return fail(err)
	}
	if in.CurrentPrice <= 0 {
		return failf("missing current_price")
	}
	res, err := s.engine.ClosePosition(in.PositionID, in.Ratio, in.CurrentPrice)
	if err != nil {
		return fail(err)
	}
	return ok(map[string]any{
		"closed_amount": res.ClosedAmount,
		"realized_pnl":  res.RealizedPnL,
		"fee":           res.Fee,
		"closed":        res.Closed,
	})
}

func (s *Surface) modifyPosition(args json.RawMessage) Result {
	var in struct {
		PositionID string   `json:"position_id"`
		StopLoss   *float64 `json:"stop_loss"`
		TakeProfit *float64 `json:"take_profit"`
	}
	if err := decode(args, &in); err != nil {
		return fail(err)
	}
	if err := s.engine.ModifyPosition(in.PositionID, in.StopLoss, in.TakeProfit); err != nil {
		return fail(err)
	}
	return ok(nil)
}

func (s *Surface) createPlan(args json.RawMessage) Result {
	var in struct {
		Symbol       string  `json:"symbol"`
		TriggerPrice float64 `json:"trigger_price"`
		Direction    string  `json:"direction"`
		Amount       float64 `json:"amount"`
		Leverage     int     `json:"leverage"`
		StopLoss     float64 `json:"stop_loss"`
		TakeProfit   float64 `json:"take_profit"`
	}
	if err := decode(args, &in); err != nil {
		return fail(err)
	}
	dir, err := ledger.ParseDirection(in.Direction)
	if err != nil {
		return fail(err)
	}
	planID, err := s.engine.CreatePlan(engine.PlanRequest{
		Symbol:       in.Symbol,
		TriggerPrice: in.TriggerPrice,
		Direction:    dir,
		Amount:       in.Amount,
		Leverage:     in.Leverage,
		StopLoss:     in.StopLoss,
		TakeProfit:   in.TakeProfit,
	})
	if err != nil {
		return fail(err)
	}
	return ok(map[string]any{"plan_id": planID})
}

func (s *Surface) modifyPlan(args json.RawMessage) Result {
	var in struct {
		PlanID       string   `json:"plan_id"`
		TriggerPrice *float64 `json:"trigger_price"`
		Amount       *float64 `json:"amount"`
		Leverage     *int     `json:"leverage"`
		StopLoss     *float64 `json:"stop_loss"`
		TakeProfit   *float64 `json:"take_profit"`
	}
	if err := decode(args, &in); err != nil {
		return fail(err)
	}
	err := s.engine.ModifyPlan(in.PlanID, engine.PlanUpdate{
		TriggerPrice: in.TriggerPrice,
		Amount:       in.Amount,
		Leverage:     in.Leverage,
		StopLoss:     in.StopLoss,
		TakeProfit:   in.TakeProfit,
	})
	if err != nil {
		return fail(err)
	}
	return ok(nil)
}

func (s *Surface) cancelPlan(args json.RawMessage) Result {
	var in struct {
		PlanID string `json:"plan_id"`
	}
	if err := decode(args, &in); err != nil {
		return fail(err)
	}
	if err := s.engine.CancelPlan(in.PlanID); err != nil {
		return fail(err)
	}
	return ok(nil)
}

func (s *Surface) accountInfo() Result {
	acct := s.engine.Account()
	return ok(map[string]any{
		"total_balance":  acct.TotalBalance,
		"available":      acct.Available,
		"margin_used":    acct.MarginUsed,
		"unrealized_pnl": acct.UnrealizedPnL,
		"equity":         acct.Equity,
	})
}

func (s *Surface) positions() []map[string]any {
	last, hasPrice := s.engine.LastPrice()
	now := time.Now().UTC()

	out := make([]map[string]any, 0)
	for _, pos := range s.engine.Positions() {
		var upnl, pnlPct float64
		if hasPrice {
			upnl = pos.UnrealizedPnL(last)
			if pos.Amount > 0 {
				pnlPct = upnl / pos.Amount * 100
			}
		}
		out = append(out, map[string]any{
			"position_id":       pos.ID,
			"symbol":            pos.Symbol,
			"direction":         string(pos.Direction),
			"entry_price":       pos.EntryPrice,
			"amount":            pos.Amount,
			"leverage":          pos.Leverage,
			"stop_loss":         pos.StopLoss,
			"take_profit":       pos.TakeProfit,
			"unrealized_pnl":    upnl,
			"pnl_percent":       pnlPct,
			"hold_time_seconds": now.Sub(pos.OpenTime).Seconds(),
		})
	}
	return out
}

func (s *Surface) plans() []map[string]any {
	out := make([]map[string]any, 0)
	for _, pl := range s.engine.Plans() {
		out = append(out, map[string]any{
			"plan_id":       pl.ID,
			"symbol":        pl.Symbol,
			"trigger_price": pl.TriggerPrice,
			"direction":     string(pl.Direction),
			"amount":        pl.Amount,
			"leverage":      pl.Leverage,
			"stop_loss":     pl.StopLoss,
			"take_profit":   pl.TakeProfit,
			"create_time":   pl.CreateTime.Format(time.RFC3339),
		})
	}
	return out
}

func (s *Surface) createAlert(args json.RawMessage) Result {
	if s.alerts == nil {
		return failf("alerts disabled")
	}
	var in struct {
		Price       float64 `json:"price"`
		Condition   string  `json:"condition"`
		Description string  `json:"description"`
	}
	if err := decode(args, &in); err != nil {
		return fail(err)
	}
	cond, err := alert.ParseCondition(in.Condition)
	if err != nil {
		return fail(err)
	}
	id, err := s.alerts.Create(in.Price, cond, in.Description)
	if err != nil {
		return fail(err)
	}
	return ok(map[string]any{"alert_id": id})
}

func (s *Surface) cancelAlert(args json.RawMessage) Result {
	if s.alerts == nil {
		return failf("alerts disabled")
	}
	var in struct {
		AlertID string `json:"alert_id"`
	}
	if err := decode(args, &in); err != nil {
		return fail(err)
	}
	if err := s.alerts.Cancel(in.AlertID); err != nil {
		return fail(err)
	}
	return ok(nil)
}

func (s *Surface) activeAlerts() Result {
	if s.alerts == nil {
		return failf("alerts disabled")
	}
	out := make([]map[string]any, 0)
	for _, a := range s.alerts.Active() {
		out = append(out, map[string]any{
			"alert_id":    a.ID,
			"price":       a.Price,
			"condition":   string(a.Condition),
			"description": a.Description,
			"create_time": a.CreateTime.Format(time.RFC3339),
		})
	}
	return ok(out)
}
