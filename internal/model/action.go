package model

import (
	"encoding/json"
	"fmt"
)

// Action mirrors the on-chain MarketAction enum.
type Action uint8

const (
	ActionBuy Action = iota
	ActionSell
	ActionAddLiquidity
	ActionRemoveLiquidity
	ActionClaimWinnings
	ActionClaimLiquidity
	ActionClaimFees
	ActionClaimVoided

	// ActionUnknown marks a log whose action was missing or out of range.
	ActionUnknown Action = 0xff
)

// Flow classifies an action from the user's perspective.
type Flow int

const (
	FlowNeutral Flow = iota
	FlowInflow       // capital committed
	FlowOutflow      // capital returned
)

// Actions lists every defined action in enum order.
var Actions = []Action{
	ActionBuy,
	ActionSell,
	ActionAddLiquidity,
	ActionRemoveLiquidity,
	ActionClaimWinnings,
	ActionClaimLiquidity,
	ActionClaimFees,
	ActionClaimVoided,
}

// ParseAction converts a raw enum byte; out-of-range values yield ActionUnknown.
func ParseAction(raw uint8) Action {
	a := Action(raw)
	if !a.Valid() {
		return ActionUnknown
	}
	return a
}

// Valid reports whether a is a defined on-chain action.
func (a Action) Valid() bool {
	return a <= ActionClaimVoided
}

// Flow returns the inflow/outflow classification. Every consumer that
// distinguishes actions goes through this switch; a new action must be
// added here.
func (a Action) Flow() Flow {
	switch a {
	case ActionBuy, ActionAddLiquidity:
		return FlowInflow
	case ActionSell, ActionRemoveLiquidity, ActionClaimWinnings,
		ActionClaimLiquidity, ActionClaimFees, ActionClaimVoided:
		return FlowOutflow
	default:
		return FlowNeutral
	}
}

// Label returns the display label.
func (a Action) Label() string {
	switch a {
	case ActionBuy:
		return "Buy"
	case ActionSell:
		return "Sell"
	case ActionAddLiquidity:
		return "Add Liquidity"
	case ActionRemoveLiquidity:
		return "Remove Liquidity"
	case ActionClaimWinnings:
		return "Claim Winnings"
	case ActionClaimLiquidity:
		return "Claim Liquidity"
	case ActionClaimFees:
		return "Claim Fees"
	case ActionClaimVoided:
		return "Claim Voided"
	default:
		return "Unknown"
	}
}

func (a Action) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Unknown(%d)", uint8(a))
	}
	return a.Label()
}

// MarshalJSON encodes the action as its enum ordinal, or null when unknown.
func (a Action) MarshalJSON() ([]byte, error) {
	if !a.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(uint8(a))
}

func (a *Action) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = ActionUnknown
		return nil
	}
	var raw uint8
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = ParseAction(raw)
	return nil
}
