package model

import "time"

// Action is a rate-limited kind of client action
type Action string

const (
	ActionCreateRoom Action = "create"
	ActionJoinRoom   Action = "join"
	ActionChat       Action = "chat"
	ActionGameplay   Action = "gameplay"
)

// RateWindow is a fixed-window counter
type RateWindow struct {
	Count   int       `json:"count"`
	ResetAt time.Time `json:"reset_at"`
}

// RateKey identifies one fixed-window counter
type RateKey struct {
	Conn   ConnID
	Action Action
}
