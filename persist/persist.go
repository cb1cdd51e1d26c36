// Package persist is the persistence gateway: it serializes the full ledger
// state to a single JSON document and restores it at boot. Saving is
// fire-and-forget relative to the engine; ledger correctness never depends
// on a write landing.
package persist

import (
	"time"

	"github.com/rustyeddy/papertrade/alert"
	"github.com/rustyeddy/papertrade/engine"
	"github.com/rustyeddy/papertrade/ledger"
)

// Snapshot is the on-disk schema. Timestamps round-trip as RFC 3339 and
// every enum is its string label.
type Snapshot struct {
	Timestamp    time.Time                `json:"timestamp"`
	CycleCount   int                      `json:"cycle_count"`
	Account      AccountState             `json:"account"`
	Positions    map[string]PositionState `json:"positions"`
	Plans        map[string]PlanState     `json:"plans"`
	TradeHistory []TradeRecordState       `json:"trade_history"`
	Alerts       *AlertState              `json:"price_alerts,omitempty"`
}

type AccountState struct {
	TotalBalance float64  `json:"total_balance"`
	LastPrice    *float64 `json:"last_price"`
}

type PositionState struct {
	ID          string     `json:"id"`
	Symbol      string     `json:"symbol"`
	Direction   string     `json:"direction"`
	EntryPrice  float64    `json:"entry_price"`
	Amount      float64    `json:"amount"`
	Leverage    int        `json:"leverage"`
	StopLoss    float64    `json:"stop_loss"`
	TakeProfit  float64    `json:"take_profit"`
	OpenTime    time.Time  `json:"open_time"`
	Status      string     `json:"status"`
	CloseTime   *time.Time `json:"close_time,omitempty"`
	ClosePrice  float64    `json:"close_price,omitempty"`
	RealizedPnL float64    `json:"realized_pnl,omitempty"`
}

type PlanState struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	TriggerPrice float64   `json:"trigger_price"`
	Direction    string    `json:"direction"`
	Amount       float64   `json:"amount"`
	Leverage     int       `json:"leverage"`
	StopLoss     float64   `json:"stop_loss"`
	TakeProfit   float64   `json:"take_profit"`
	CreateTime   time.Time `json:"create_time"`
	Status       string    `json:"status"`
}

type TradeRecordState struct {
	Time        time.Time `json:"timestamp"`
	Kind        string    `json:"kind"`
	PositionID  string    `json:"position_id,omitempty"`
	PlanID      string    `json:"plan_id,omitempty"`
	Direction   string    `json:"direction,omitempty"`
	Price       float64   `json:"price,omitempty"`
	Amount      float64   `json:"amount,omitempty"`
	Leverage    int       `json:"leverage,omitempty"`
	Ratio       float64   `json:"ratio,omitempty"`
	Fee         float64   `json:"fee,omitempty"`
	RealizedPnL float64   `json:"realized_pnl,omitempty"`
	Error       string    `json:"error,omitempty"`
}

type AlertState struct {
	Alerts    []AlertRecord `json:"alerts"`
	LastPrice *float64      `json:"last_price"`
}

type AlertRecord struct {
	ID          string    `json:"id"`
	Price       float64   `json:"price"`
	Condition   string    `json:"condition"`
	Description string    `json:"description,omitempty"`
	CreateTime  time.Time `json:"create_time"`
}

// Capture builds a snapshot from the engine's state copy, the alert manager
// (may be nil), and the run loop's cycle count.
func Capture(st engine.State, alerts *alert.Manager, cycle int) Snapshot {
	snap := Snapshot{
		Timestamp:  time.Now().UTC(),
		CycleCount: cycle,
		Account:    AccountState{TotalBalance: st.Balance},
		Positions:  make(map[string]PositionState, len(st.Positions)),
		Plans:      make(map[string]PlanState, len(st.Plans)),
	}
	if st.HasPrice {
		p := st.LastPrice
		snap.Account.LastPrice = &p
	}

	for _, pos := range st.Positions {
		ps := PositionState{
			ID:          pos.ID,
			Symbol:      pos.Symbol,
			Direction:   string(pos.Direction),
			EntryPrice:  pos.EntryPrice,
			Amount:      pos.Amount,
			Leverage:    pos.Leverage,
			StopLoss:    pos.StopLoss,
			TakeProfit:  pos.TakeProfit,
			OpenTime:    pos.OpenTime,
			Status:      string(pos.Status),
			ClosePrice:  pos.ClosePrice,
			RealizedPnL: pos.RealizedPnL,
		}
		if !pos.CloseTime.IsZero() {
			t := pos.CloseTime
			ps.CloseTime = &t
		}
		snap.Positions[pos.ID] = ps
	}

	for _, plan := range st.Plans {
		snap.Plans[plan.ID] = PlanState{
			ID:           plan.ID,
			Symbol:       plan.Symbol,
			TriggerPrice: plan.TriggerPrice,
			Direction:    string(plan.Direction),
			Amount:       plan.Amount,
			Leverage:     plan.Leverage,
			StopLoss:     plan.StopLoss,
			TakeProfit:   plan.TakeProfit,
			CreateTime:   plan.CreateTime,
			Status:       string(plan.Status),
		}
	}

	history := st.History
	if len(history) > ledger.HistoryLimit {
		history = history[len(history)-ledger.HistoryLimit:]
	}
	snap.TradeHistory = make([]TradeRecordState, 0, len(history))
	for _, rec := range history {
		snap.TradeHistory = append(snap.TradeHistory, TradeRecordState{
			Time:        rec.Time,
			Kind:        rec.Kind,
			PositionID:  rec.PositionID,
			PlanID:      rec.PlanID,
			Direction:   string(rec.Direction),
			Price:       rec.Price,
			Amount:      rec.Amount,
			Leverage:    rec.Leverage,
			Ratio:       rec.Ratio,
			Fee:         rec.Fee,
			RealizedPnL: rec.RealizedPnL,
			Error:       rec.Error,
		})
	}

	if alerts != nil {
		as := &AlertState{}
		if last, ok := alerts.Cursor(); ok {
			p := last
			as.LastPrice = &p
		}
		for _, a := range alerts.Active() {
			as.Alerts = append(as.Alerts, AlertRecord{
				ID:          a.ID,
				Price:       a.Price,
				Condition:   string(a.Condition),
				Description: a.Description,
				CreateTime:  a.CreateTime,
			})
		}
		snap.Alerts = as
	}

	return snap
}

// EngineState converts the snapshot back into a restorable engine state.
func (s *Snapshot) EngineState() engine.State {
	st := engine.State{Balance: s.Account.TotalBalance}
	if s.Account.LastPrice != nil {
		st.LastPrice = *s.Account.LastPrice
		st.HasPrice = true
	}

	for _, ps := range s.Positions {
		pos := ledger.Position{
			ID:          ps.ID,
			Symbol:      ps.Symbol,
			Direction:   ledger.Direction(ps.Direction),
			EntryPrice:  ps.EntryPrice,
			Amount:      ps.Amount,
			Leverage:    ps.Leverage,
			StopLoss:    ps.StopLoss,
			TakeProfit:  ps.TakeProfit,
			OpenTime:    ps.OpenTime,
			Status:      ledger.PositionStatus(ps.Status),
			ClosePrice:  ps.ClosePrice,
			RealizedPnL: ps.RealizedPnL,
		}
		if ps.CloseTime != nil {
			pos.CloseTime = *ps.CloseTime
		}
		st.Positions = append(st.Positions, pos)
	}

	for _, pl := range s.Plans {
		st.Plans = append(st.Plans, ledger.TradingPlan{
			ID:           pl.ID,
			Symbol:       pl.Symbol,
			TriggerPrice: pl.TriggerPrice,
			Direction:    ledger.Direction(pl.Direction),
			Amount:       pl.Amount,
			Leverage:     pl.Leverage,
			StopLoss:     pl.StopLoss,
			TakeProfit:   pl.TakeProfit,
			CreateTime:   pl.CreateTime,
			Status:       ledger.PlanStatus(pl.Status),
		})
	}

	for _, rec := range s.TradeHistory {
		st.History = append(st.History, ledger.TradeRecord{
			Time:        rec.Time,
			Kind:        rec.Kind,
			PositionID:  rec.PositionID,
			PlanID:      rec.PlanID,
			Direction:   ledger.Direction(rec.Direction),
			Price:       rec.Price,
			Amount:      rec.Amount,
			Leverage:    rec.Leverage,
			Ratio:       rec.Ratio,
			Fee:         rec.Fee,
			RealizedPnL: rec.RealizedPnL,
			Error:       rec.Error,
		})
	}

	return st
}

// AlertState converts the persisted alerts for Manager.Restore.
func (s *Snapshot) AlertState() (alerts []alert.Alert, lastPrice float64, hasPrice bool) {
	if s.Alerts == nil {
		return nil, 0, false
	}
	for _, ar := range s.Alerts.Alerts {
		alerts = append(alerts, alert.Alert{
			ID:          ar.ID,
			Price:       ar.Price,
			Condition:   alert.Condition(ar.Condition),
			Description: ar.Description,
			CreateTime:  ar.CreateTime,
		})
	}
	if s.Alerts.LastPrice != nil {
		lastPrice, hasPrice = *s.Alerts.LastPrice, true
	}
	return alerts, lastPrice, hasPrice
}
