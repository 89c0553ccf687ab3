// Package rules derives the rule monitor panel from a position.
package rules

import (
	"neotrade/src/model"

	"github.com/shopspring/decimal"
)

type State string

const (
	StateActive     State = "ACTIVE"
	StateLocked     State = "LOCKED"
	StateMonitoring State = "MONITORING"
	StateFollowing  State = "FOLLOWING"
	StateIdle       State = "IDLE"
	StateWatching   State = "WATCHING"
	StateOff        State = "OFF"
)

// Config holds the two user-owned toggles of the panel.
type Config struct {
	ProfitLockArmed bool
	// nil until the user has exited a position.
	LastExitPrice *decimal.Decimal
}

type Status struct {
	Rule  string `json:"rule"`
	Label string `json:"label"`
	State State  `json:"state"`
}

// Highlighted reports whether the rule is currently enforcing something.
func (s Status) Highlighted() bool {
	return s.State == StateActive || s.State == StateLocked
}

// Evaluate returns the four rule statuses in panel order. position may be the
// zero value for a symbol with no open position.
func Evaluate(position model.Position, cfg Config) []Status {
	profitLock := StateMonitoring
	if cfg.ProfitLockArmed {
		profitLock = StateLocked
	}

	trend := StateIdle
	if !position.IsFlat() {
		trend = StateFollowing
	}

	reentry := StateOff
	if cfg.LastExitPrice != nil {
		reentry = StateWatching
	}

	return []Status{
		{Rule: "Rule 2", Label: "Break-even Protection", State: StateActive},
		{Rule: "Rule 4", Label: "10-pt Profit Lock", State: profitLock},
		{Rule: "Rule 1", Label: "Trend Continuation", State: trend},
		{Rule: "Rule 3/5", Label: "Re-entry Detection", State: reentry},
	}
}
