package surface

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/alert"
	"github.com/rustyeddy/papertrade/engine"
	"github.com/rustyeddy/papertrade/risk"
)

func newSurface(t *testing.T) *Surface {
	t.Helper()
	e := engine.New(engine.Config{
		Symbol:         "BTC_USDT",
		InitialBalance: 100000,
		FeeRate:        0.001,
		Policy: risk.Policy{
			MaxPositionRatio:   0.3,
			MaxLeverage:        20,
			MinStopLossPercent: 0.05,
		},
	}, nil, nil)
	return New(e, alert.NewManager())
}

func dispatch(t *testing.T, s *Surface, name, args string) Result {
	t.Helper()
	return s.Dispatch(name, json.RawMessage(args))
}

func mustData(t *testing.T, res Result) map[string]any {
	t.Helper()
	require.True(t, res.Success, "command failed: %s", res.Error)
	data, ok := res.Data.(map[string]any)
	require.True(t, ok, "data is %T", res.Data)
	return data
}

func openOne(t *testing.T, s *Surface) string {
	t.Helper()
	res := dispatch(t, s, "open_position",
		`{"symbol":"BTC_USDT","direction":"long","amount":1000,"leverage":10,"stop_loss":90,"take_profit":130,"current_price":100}`)
	data := mustData(t, res)
	id, _ := data["position_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestDispatchUnknownCommand(t *testing.T) {
	t.Parallel()

	res := dispatch(t, newSurface(t), "levitate", `{}`)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown command")
}

func TestOpenPositionCommand(t *testing.T) {
	t.Parallel()

	s := newSurface(t)
	res := dispatch(t, s, "open_position",
		`{"symbol":"BTC_USDT","direction":"long","amount":1000,"leverage":10,"stop_loss":90,"take_profit":130,"current_price":100}`)
	data := mustData(t, res)
	assert.Equal(t, 100.0, data["entry_price"])
	assert.InDelta(t, 1.0, data["fee"].(float64), 1e-9)

	// Engine rejections come back as result errors, not panics.
	res = dispatch(t, s, "open_position",
		`{"symbol":"BTC_USDT","direction":"long","amount":90000,"leverage":10,"stop_loss":90,"take_profit":130,"current_price":100}`)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "POSITION_TOO_LARGE")
}

func TestOpenPositionRequiresPrice(t *testing.T) {
	t.Parallel()

	res := dispatch(t, newSurface(t), "open_position",
		`{"symbol":"BTC_USDT","direction":"long","amount":1000,"leverage":10,"stop_loss":90,"take_profit":130}`)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "current_price")
}

func TestMalformedArguments(t *testing.T) {
	t.Parallel()

	s := newSurface(t)
	for _, cmd := range []string{"open_position", "close_position", "create_plan", "modify_plan"} {
		res := dispatch(t, s, cmd, `{"amount": "lots"`)
		assert.False(t, res.Success, cmd)
		assert.NotEmpty(t, res.Error, cmd)
	}
}

func TestClosePositionDefaultsToFullClose(t *testing.T) {
	t.Parallel()

	s := newSurface(t)
	id := openOne(t, s)

	res := dispatch(t, s, "close_position",
		fmt.Sprintf(`{"position_id":%q,"current_price":110}`, id))
	data := mustData(t, res)
	assert.Equal(t, true, data["closed"])
	assert.InDelta(t, 1000.0, data["closed_amount"].(float64), 1e-9)
}

func TestModifyPositionCommand(t *testing.T) {
	t.Parallel()

	s := newSurface(t)
	id := openOne(t, s)

	res := dispatch(t, s, "modify_position",
		fmt.Sprintf(`{"position_id":%q,"stop_loss":92}`, id))
	assert.True(t, res.Success)

	list, ok := dispatch(t, s, "get_positions", ``).Data.([]map[string]any)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, 92.0, list[0]["stop_loss"])
	assert.Equal(t, 130.0, list[0]["take_profit"], "unsupplied field untouched")
}

func TestPlanCommands(t *testing.T) {
	t.Parallel()

	s := newSurface(t)
	res := dispatch(t, s, "create_plan",
		`{"symbol":"BTC_USDT","trigger_price":120,"direction":"long","amount":500,"leverage":5,"stop_loss":110,"take_profit":150}`)
	data := mustData(t, res)
	planID, _ := data["plan_id"].(string)
	require.NotEmpty(t, planID)

	res = dispatch(t, s, "modify_plan",
		fmt.Sprintf(`{"plan_id":%q,"trigger_price":125}`, planID))
	assert.True(t, res.Success)

	list, ok := dispatch(t, s, "get_plans", ``).Data.([]map[string]any)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, 125.0, list[0]["trigger_price"])

	res = dispatch(t, s, "cancel_plan", fmt.Sprintf(`{"plan_id":%q}`, planID))
	assert.True(t, res.Success)

	res = dispatch(t, s, "cancel_plan", fmt.Sprintf(`{"plan_id":%q}`, planID))
	assert.False(t, res.Success, "cancel is not idempotent")
}

func TestAccountInfoCommand(t *testing.T) {
	t.Parallel()

	s := newSurface(t)
	openOne(t, s)

	data := mustData(t, dispatch(t, s, "get_account_info", ``))
	assert.InDelta(t, 99999.0, data["total_balance"].(float64), 1e-9)
	assert.InDelta(t, 100.0, data["margin_used"].(float64), 1e-9)
	assert.InDelta(t, 99899.0, data["available"].(float64), 1e-9)
}

func TestAlertCommands(t *testing.T) {
	t.Parallel()

	s := newSurface(t)
	res := dispatch(t, s, "create_alert", `{"price":110,"condition":"above","description":"resistance"}`)
	data := mustData(t, res)
	alertID, _ := data["alert_id"].(string)
	require.NotEmpty(t, alertID)

	list, ok := dispatch(t, s, "get_alerts", ``).Data.([]map[string]any)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, "above", list[0]["condition"])

	res = dispatch(t, s, "cancel_alert", fmt.Sprintf(`{"alert_id":%q}`, alertID))
	assert.True(t, res.Success)

	res = dispatch(t, s, "create_alert", `{"price":110,"condition":"sideways"}`)
	assert.False(t, res.Success)
}

func TestAlertCommandsDisabledWithoutManager(t *testing.T) {
	t.Parallel()

	s := New(newSurface(t).engine, nil)
	res := dispatch(t, s, "create_alert", `{"price":110,"condition":"above"}`)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "alerts disabled")
}

func TestToolDescriptorsCoverDispatch(t *testing.T) {
	t.Parallel()

	s := newSurface(t)
	for _, tool := range Tools() {
		res := s.Dispatch(tool.Name, json.RawMessage(`{}`))
		// Every advertised tool must be routable; arguments may still be
		// rejected, but never as an unknown command.
		assert.NotContains(t, res.Error, "unknown command", tool.Name)
	}
}
