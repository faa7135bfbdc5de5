package sequence

import "sync/atomic"

// Allocator hands out strictly increasing submission IDs. It is safe for
// concurrent use and never blocks. IDs that are allocated but never committed
// are not reused.
type Allocator struct {
	last atomic.Int64
}

// New returns an allocator whose first Next returns last+1. Pass -1 for an
// empty ledger.
func New(last int) *Allocator {
	a := &Allocator{}
	a.last.Store(int64(last))
	return a
}

// Next reserves and returns the next ID.
func (a *Allocator) Next() int {
	return int(a.last.Add(1))
}

// Last returns the most recently allocated ID.
func (a *Allocator) Last() int {
	return int(a.last.Load())
}
