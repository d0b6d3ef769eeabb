package sample

import "sync"

// Result describes the outcome of one timed write.
type Result struct {
	Index   int
	Name    string
	Latency int64 // milliseconds, truncated
	Err     error
}

// Set collects write latencies, in milliseconds, in completion order.
type Set struct {
	mu     sync.Mutex
	values []int64
}

// NewSet returns an empty Set sized for n samples.
func NewSet(n int) *Set {
	return &Set{values: make([]int64, 0, n)}
}

// Add appends one latency.
func (s *Set) Add(ms int64) {
	s.mu.Lock()
	s.values = append(s.values, ms)
	s.mu.Unlock()
}

// Len is the number of collected samples.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// Values returns a copy of the samples in insertion order.
func (s *Set) Values() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.values))
	copy(out, s.values)
	return out
}

// LaterHalf returns a copy of the samples from index len/2 onwards, in
// insertion order. For odd lengths the later half is the larger one.
func (s *Set) LaterHalf() []int64 {
	return LaterHalf(s.Values())
}

// LaterHalf returns vals[len(vals)/2:].
func LaterHalf(vals []int64) []int64 {
	return vals[len(vals)/2:]
}
