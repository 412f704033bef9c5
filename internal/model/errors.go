package model

import "errors"

// Common errors used across the application
var (
	// Room errors
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrGameAlreadyStarted  = errors.New("game already started")
	ErrAlreadyInRoom       = errors.New("already in this room")
	ErrNotInRoom           = errors.New("not in a room")
	ErrNotHost             = errors.New("only the host can do that")
	ErrInsufficientPlayers = errors.New("not enough players")
	ErrCodeExhausted       = errors.New("could not allocate a unique room code")

	// Session errors
	ErrInvalidPhase    = errors.New("action not allowed in this phase")
	ErrRoundResolved   = errors.New("round already resolved")
	ErrAlreadyResolved = errors.New("player already finished this round")

	// Catalog errors
	ErrEmptyRegion = errors.New("region has no entities")

	// Rate limiting
	ErrRateLimited = errors.New("too many requests")
)
