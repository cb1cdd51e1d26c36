package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrade() TradeRecord {
	open := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return TradeRecord{
		TradeID:     "pos-1",
		Symbol:      "BTC_USDT",
		Direction:   "long",
		Amount:      1000,
		Leverage:    10,
		EntryPrice:  100,
		ExitPrice:   110,
		OpenTime:    open,
		CloseTime:   open.Add(time.Hour),
		RealizedPnL: 99,
		Fee:         1,
		Reason:      "take_profit",
	}
}

func TestSQLiteJournal(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.sqlite")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.RecordTrade(sampleTrade()))
	require.NoError(t, j.RecordEquity(EquitySnapshot{
		Time:       time.Now().UTC(),
		Balance:    100098,
		Equity:     100098,
		MarginUsed: 0,
		Available:  100098,
	}))

	var trades int
	require.NoError(t, j.db.QueryRow("SELECT COUNT(*) FROM trades").Scan(&trades))
	assert.Equal(t, 1, trades)

	var symbol, reason string
	var pnl float64
	require.NoError(t, j.db.QueryRow(
		"SELECT symbol, reason, realized_pnl FROM trades WHERE trade_id = ?", "pos-1",
	).Scan(&symbol, &reason, &pnl))
	assert.Equal(t, "BTC_USDT", symbol)
	assert.Equal(t, "take_profit", reason)
	assert.Equal(t, 99.0, pnl)

	var equity int
	require.NoError(t, j.db.QueryRow("SELECT COUNT(*) FROM equity").Scan(&equity))
	assert.Equal(t, 1, equity)
}

func TestSQLiteReopenKeepsRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.sqlite")

	j, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, j.RecordTrade(sampleTrade()))
	require.NoError(t, j.Close())

	j2, err := NewSQLite(path)
	require.NoError(t, err)
	defer j2.Close()

	var trades int
	require.NoError(t, j2.db.QueryRow("SELECT COUNT(*) FROM trades").Scan(&trades))
	assert.Equal(t, 1, trades)
}

func TestOpenByType(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	j, err := Open("sqlite", filepath.Join(dir, "j.sqlite"), "", "")
	require.NoError(t, err)
	assert.IsType(t, &SQLiteJournal{}, j)
	require.NoError(t, j.Close())

	j, err = Open("csv", "", filepath.Join(dir, "t.csv"), filepath.Join(dir, "e.csv"))
	require.NoError(t, err)
	assert.IsType(t, &CSVJournal{}, j)
	require.NoError(t, j.Close())

	_, err = Open("parquet", "", "", "")
	assert.Error(t, err)
}
