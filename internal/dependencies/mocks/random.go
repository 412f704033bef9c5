package mocks

import (
	"github.com/mcoot/geoduel/internal/dependencies/random"
)

// MockRandom replays queued values. Once a queue is drained Intn returns 0
// and String returns a code derived from a counter, so repeated room
// creation in tests still yields distinct codes.
type MockRandom struct {
	ints    []int
	strings []string
	counter int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Intn returns the next queued int clamped into [0, n)
func (r *MockRandom) Intn(n int) int {
	if len(r.ints) == 0 || n <= 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

// String returns the next queued string, or a generated fallback
func (r *MockRandom) String(length int, alphabet string) string {
	if len(r.strings) > 0 {
		v := r.strings[0]
		r.strings = r.strings[1:]
		return v
	}
	r.counter++
	out := make([]byte, length)
	n := r.counter
	for i := length - 1; i >= 0; i-- {
		out[i] = alphabet[n%len(alphabet)]
		n /= len(alphabet)
	}
	return string(out)
}

// QueueIntn adds values to the Intn queue
func (r *MockRandom) QueueIntn(values ...int) {
	r.ints = append(r.ints, values...)
}

// QueueString adds values to the String queue
func (r *MockRandom) QueueString(values ...string) {
	r.strings = append(r.strings, values...)
}
