package chat

import (
	"github.com/mcoot/geoduel/internal/dependencies/clock"
	"github.com/mcoot/geoduel/internal/model"
	"github.com/mcoot/geoduel/internal/sanitize"
)

const (
	// MaxEntries is the number of messages a room keeps
	MaxEntries = 50
	// MaxMessageLength is the rune cap applied to message text
	MaxMessageLength = 200
	// timeLayout is the local hour:minute stamp shown next to a message
	timeLayout = "15:04"
)

// Log is a room's bounded chat history. Oldest entries are evicted first.
type Log struct {
	clock   clock.Clock
	entries []model.ChatEntry
}

// NewLog creates an empty chat log
func NewLog(clock clock.Clock) *Log {
	return &Log{clock: clock}
}

// Append sanitizes text and records it. Returns false, recording nothing,
// when no text survives sanitizing.
func (l *Log) Append(sender, text string) (model.ChatEntry, bool) {
	clean := sanitize.Text(text, MaxMessageLength)
	if clean == "" {
		return model.ChatEntry{}, false
	}

	entry := model.ChatEntry{
		Sender: sender,
		Text:   clean,
		Time:   l.clock.Now().Local().Format(timeLayout),
	}
	l.entries = append(l.entries, entry)
	if over := len(l.entries) - MaxEntries; over > 0 {
		l.entries = append(l.entries[:0:0], l.entries[over:]...)
	}
	return entry, true
}

// History returns a copy of the log in insertion order
func (l *Log) History() []model.ChatEntry {
	return append([]model.ChatEntry{}, l.entries...)
}

// Len returns the number of stored entries
func (l *Log) Len() int {
	return len(l.entries)
}
