package scriptrunner

import "sync"

// clock is a resettable monotonic logical clock stamping element order.
//
// Every element an st.* call emits gets the next sequence number. The runner
// resets the clock at the start of each pass, so two runs of the same script
// produce identical sequences - the property golden trace comparison relies on.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex,
// although execution is single-threaded today.
type clock struct {
	mu  sync.Mutex
	seq int64
}

// newClock creates a clock starting at 0. The first Next() returns 1.
func newClock() *clock {
	return &clock{}
}

// Next increments and returns the next sequence number.
func (c *clock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Reset resets the clock to 0. Called at the start of each pass.
func (c *clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
