package surface

// Tool describes one command for the decision client: its name and the
// argument fields it requires.
type Tool struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    []string `json:"required"`
}

// Tools returns the command descriptor table.
func Tools() []Tool {
	return []Tool{
		{
			Name:        "open_position",
			Description: "Open a new long or short position at the current price.",
			Required:    []string{"symbol", "direction", "amount", "leverage", "stop_loss", "take_profit", "current_price"},
		},
		{
			Name:        "close_position",
			Description: "Close an open position, fully or by ratio.",
			Required:    []string{"position_id", "current_price"},
		},
		{
			Name:        "modify_position",
			Description: "Update the stop-loss and/or take-profit of an open position.",
			Required:    []string{"position_id"},
		},
		{
			Name:        "create_plan",
			Description: "Create a conditional order that opens a position when price crosses the trigger level.",
			Required:    []string{"symbol", "trigger_price", "direction", "amount", "leverage", "stop_loss", "take_profit"},
		},
		{
			Name:        "modify_plan",
			Description: "Edit the parameters of a pending plan.",
			Required:    []string{"plan_id"},
		},
		{
			Name:        "cancel_plan",
			Description: "Cancel a pending plan.",
			Required:    []string{"plan_id"},
		},
		{
			Name:        "get_account_info",
			Description: "Read the derived account view: balance, available margin, unrealized PnL, equity.",
		},
		{
			Name:        "get_positions",
			Description: "List all open positions.",
		},
		{
			Name:        "get_plans",
			Description: "List all pending plans.",
		},
		{
			Name:        "create_alert",
			Description: "Register a one-shot price alert that fires when price crosses the level.",
			Required:    []string{"price", "condition"},
		},
		{
			Name:        "cancel_alert",
			Description: "Remove a price alert.",
			Required:    []string{"alert_id"},
		},
		{
			Name:        "get_alerts",
			Description: "List active price alerts.",
		},
	}
}
