package engine

import "time"

// Config holds the tunables for a running engine
type Config struct {
	// TotalRounds is the number of rounds in each game
	TotalRounds int
	// RoundDelay is the pause between a round's result and the next round
	RoundDelay time.Duration
	// QueueSize bounds the number of tasks waiting on the loop
	QueueSize int
	// ReclaimInterval is how often abandoned rooms are removed
	ReclaimInterval time.Duration
	// LimitsResetInterval is how often every rate-limit window is cleared
	LimitsResetInterval time.Duration
}

// DefaultConfig returns the standard game and sweep settings
func DefaultConfig() Config {
	return Config{
		TotalRounds:         5,
		RoundDelay:          5 * time.Second,
		QueueSize:           1024,
		ReclaimInterval:     5 * time.Minute,
		LimitsResetInterval: 60 * time.Second,
	}
}

// WithDefaults fills zero fields from DefaultConfig
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.TotalRounds <= 0 {
		c.TotalRounds = d.TotalRounds
	}
	if c.RoundDelay <= 0 {
		c.RoundDelay = d.RoundDelay
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.ReclaimInterval <= 0 {
		c.ReclaimInterval = d.ReclaimInterval
	}
	if c.LimitsResetInterval <= 0 {
		c.LimitsResetInterval = d.LimitsResetInterval
	}
	return c
}
