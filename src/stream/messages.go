package stream

import "neotrade/src/model"

const (
	TypeTicks    = "ticks"
	TypeLedger   = "ledger"
	TypeIdentity = "identity"
	TypeError    = "error"
)

type ticksMessage struct {
	Type  string       `json:"type"`
	Ticks []model.Tick `json:"ticks"`
}

type ledgerMessage struct {
	Type      string           `json:"type"`
	Orders    []model.Order    `json:"orders"`
	Positions []model.Position `json:"positions"`
}

type identityMessage struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	Anonymous bool   `json:"anonymous"`
	// Set when the connection signed in a new anonymous user.
	Token string `json:"token,omitempty"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
