// Package journal is the append-only trade and equity audit log. It is write
// only: nothing here is ever read back into ledger state.
package journal

import (
	"fmt"
	"time"
)

type TradeRecord struct {
	TradeID     string
	Symbol      string
	Direction   string
	Amount      float64
	Leverage    int
	EntryPrice  float64
	ExitPrice   float64
	OpenTime    time.Time
	CloseTime   time.Time
	RealizedPnL float64
	Fee         float64
	Reason      string
}

type EquitySnapshot struct {
	Time          time.Time
	Balance       float64
	Equity        float64
	MarginUsed    float64
	Available     float64
	UnrealizedPnL float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Open builds a journal backend by type name ("sqlite" or "csv").
func Open(typ, dbPath, tradesPath, equityPath string) (Journal, error) {
	switch typ {
	case "sqlite":
		return NewSQLite(dbPath)
	case "csv":
		return NewCSV(tradesPath, equityPath)
	default:
		return nil, fmt.Errorf("unknown journal type %q", typ)
	}
}
