package testutil

import (
	"fmt"
	"sync"
)

// FixedRunIDGenerator returns predictable run ids for golden comparisons.
//
// With a non-empty base it returns base, base-2, base-3, ...; the first id is
// the base itself so single-run scenarios read naturally.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedRunIDGenerator struct {
	mu   sync.Mutex
	base string
	n    int
}

// NewFixedRunIDGenerator creates a generator. An empty base uses
// "test-run".
func NewFixedRunIDGenerator(base string) *FixedRunIDGenerator {
	if base == "" {
		base = "test-run"
	}
	return &FixedRunIDGenerator{base: base}
}

// Generate returns the next id.
//
// Implements store.RunIDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	if g.n == 1 {
		return g.base
	}
	return fmt.Sprintf("%s-%d", g.base, g.n)
}
