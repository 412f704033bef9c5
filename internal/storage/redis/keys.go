package redis

import (
	"fmt"

	"github.com/mcoot/geoduel/internal/model"
)

// Key prefix for all geoduel data
const keyPrefix = "geoduel"

// rateWindowKey returns the Redis key for one connection's window of an action
func rateWindowKey(key model.RateKey) string {
	return fmt.Sprintf("%s:rate:%s:%s", keyPrefix, key.Conn, key.Action)
}

// rateWindowConnPattern matches every window belonging to a connection
func rateWindowConnPattern(conn model.ConnID) string {
	return fmt.Sprintf("%s:rate:%s:*", keyPrefix, conn)
}

// rateWindowPattern matches every rate window
func rateWindowPattern() string {
	return fmt.Sprintf("%s:rate:*", keyPrefix)
}

// historyKey returns the Redis key for the LIST of finished games in a room
func historyKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:history:%s", keyPrefix, code)
}
