// Package alert manages one-shot price alerts: crossing a level in the named
// direction fires the alert once and removes it. Alerts nudge the decision
// process; they never touch the ledger.
package alert

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rustyeddy/papertrade/internal/id"
	"github.com/rustyeddy/papertrade/ledger"
)

type Condition string

const (
	Above Condition = "above" // fires when price crosses the level upward
	Below Condition = "below" // fires when price crosses the level downward
)

func ParseCondition(s string) (Condition, error) {
	switch Condition(s) {
	case Above, Below:
		return Condition(s), nil
	default:
		return "", fmt.Errorf("%w: alert condition %q", ledger.ErrMalformedInput, s)
	}
}

type Alert struct {
	ID          string
	Price       float64
	Condition   Condition
	Description string
	CreateTime  time.Time
}

// dedupeTolerance: alerts within this price distance and same condition are
// considered the same alert.
const dedupeTolerance = 0.01

// Manager owns its alerts and its own price cursor; it is fed by the same
// price stream as the engine but independent of it.
type Manager struct {
	mu        sync.Mutex
	alerts    map[string]*Alert
	lastPrice float64
	hasPrice  bool
}

func NewManager() *Manager {
	return &Manager{alerts: make(map[string]*Alert)}
}

// Create registers an alert, deduplicating on (price, condition). Returns
// the id of the new or existing alert.
func (m *Manager) Create(price float64, cond Condition, description string) (string, error) {
	if cond != Above && cond != Below {
		return "", fmt.Errorf("%w: alert condition %q", ledger.ErrMalformedInput, cond)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.alerts {
		if a.Condition == cond && math.Abs(a.Price-price) < dedupeTolerance {
			return a.ID, nil
		}
	}

	a := &Alert{
		ID:          id.New(),
		Price:       price,
		Condition:   cond,
		Description: description,
		CreateTime:  time.Now().UTC(),
	}
	m.alerts[a.ID] = a
	return a.ID, nil
}

// Cancel removes an alert.
func (m *Manager) Cancel(alertID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.alerts[alertID]; !ok {
		return fmt.Errorf("%w: alert %s", ledger.ErrNotFound, alertID)
	}
	delete(m.alerts, alertID)
	return nil
}

// Check evaluates all alerts against a new price. The first call only seeds
// the cursor. Crossing uses the same half-open interval as plan triggers, so
// a level sat on exactly cannot fire twice. Fired alerts are returned and
// removed.
func (m *Manager) Check(price float64) []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasPrice {
		m.lastPrice = price
		m.hasPrice = true
		return nil
	}
	last := m.lastPrice

	var fired []Alert
	for aid, a := range m.alerts {
		crossed := false
		switch a.Condition {
		case Above:
			crossed = last < a.Price && a.Price <= price
		case Below:
			crossed = last > a.Price && a.Price >= price
		}
		if crossed {
			fired = append(fired, *a)
			delete(m.alerts, aid)
		}
	}

	m.lastPrice = price
	return fired
}

// Active returns copies of the not-yet-fired alerts.
func (m *Manager) Active() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		out = append(out, *a)
	}
	return out
}

// Cursor returns the manager's own price cursor, for persistence.
func (m *Manager) Cursor() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrice, m.hasPrice
}

// Restore reinstates persisted alerts and the cursor.
func (m *Manager) Restore(alerts []Alert, lastPrice float64, hasPrice bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = make(map[string]*Alert, len(alerts))
	for i := range alerts {
		a := alerts[i]
		m.alerts[a.ID] = &a
	}
	m.lastPrice = lastPrice
	m.hasPrice = hasPrice
}
