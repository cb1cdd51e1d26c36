package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/ledger"
)

func TestParseCondition(t *testing.T) {
	t.Parallel()

	c, err := ParseCondition("above")
	assert.NoError(t, err)
	assert.Equal(t, Above, c)

	c, err = ParseCondition("below")
	assert.NoError(t, err)
	assert.Equal(t, Below, c)

	_, err = ParseCondition("near")
	assert.ErrorIs(t, err, ledger.ErrMalformedInput)
}

func TestAlertFiresOnceOnCrossing(t *testing.T) {
	t.Parallel()

	m := NewManager()
	id, err := m.Create(105, Above, "breakout watch")
	require.NoError(t, err)

	// First price only seeds the cursor.
	assert.Empty(t, m.Check(100))
	assert.Empty(t, m.Check(104), "level not reached")

	fired := m.Check(106)
	require.Len(t, fired, 1)
	assert.Equal(t, id, fired[0].ID)
	assert.Equal(t, "breakout watch", fired[0].Description)

	// One-shot: the alert is gone, oscillating back does nothing.
	assert.Empty(t, m.Active())
	assert.Empty(t, m.Check(104))
	assert.Empty(t, m.Check(107))
}

func TestAlertBelowCrossing(t *testing.T) {
	t.Parallel()

	m := NewManager()
	_, err := m.Create(95, Below, "")
	require.NoError(t, err)

	m.Check(100)
	assert.Empty(t, m.Check(96))

	fired := m.Check(95) // arriving on the level counts
	require.Len(t, fired, 1)
	assert.Equal(t, Below, fired[0].Condition)
}

func TestAlertDeduplication(t *testing.T) {
	t.Parallel()

	m := NewManager()
	id1, err := m.Create(105, Above, "first")
	require.NoError(t, err)

	// Same level (within tolerance), same condition: existing id returned.
	id2, err := m.Create(105.005, Above, "duplicate")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Len(t, m.Active(), 1)

	// Same level, opposite condition is a distinct alert.
	id3, err := m.Create(105, Below, "other side")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
	assert.Len(t, m.Active(), 2)
}

func TestAlertCancel(t *testing.T) {
	t.Parallel()

	m := NewManager()
	id, err := m.Create(105, Above, "")
	require.NoError(t, err)

	require.NoError(t, m.Cancel(id))
	assert.Empty(t, m.Active())
	assert.ErrorIs(t, m.Cancel(id), ledger.ErrNotFound)
}

func TestManagerRestore(t *testing.T) {
	t.Parallel()

	saved := []Alert{
		{ID: "a-1", Price: 105, Condition: Above, CreateTime: time.Now().UTC()},
		{ID: "a-2", Price: 95, Condition: Below, CreateTime: time.Now().UTC()},
	}

	m := NewManager()
	m.Restore(saved, 100, true)

	last, ok := m.Cursor()
	require.True(t, ok)
	assert.Equal(t, 100.0, last)
	assert.Len(t, m.Active(), 2)

	// The restored cursor means the next tick can fire directly.
	fired := m.Check(106)
	require.Len(t, fired, 1)
	assert.Equal(t, "a-1", fired[0].ID)
	assert.Len(t, m.Active(), 1)
}
