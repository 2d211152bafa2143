package pipeline

import (
	"strconv"
	"sync/atomic"
)

// RunIDGenerator derives server-generated run ids. Spec §3's Pipeline Run
// invariants require the id to be "server-generated, unique, monotonically
// increasing for the process" — so Next returns the counter itself,
// formatted, rather than a hash of it.
type RunIDGenerator struct {
	counter uint64
}

// NewRunIDGenerator creates a generator starting from zero.
func NewRunIDGenerator() (*RunIDGenerator, error) {
	return &RunIDGenerator{}, nil
}

// Next returns the next run id.
func (g *RunIDGenerator) Next() (string, error) {
	n := atomic.AddUint64(&g.counter, 1)
	return "run_" + strconv.FormatUint(n, 10), nil
}
