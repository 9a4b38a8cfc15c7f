// Package register provides the atomic memory word every lock in this module is
// built on. A Word offers exactly three operations: Load, Store and
// CompareAndSwap. All three are linearizable and sequentially consistent, and
// no algorithm in this module assumes anything stronger (no fetch-and-add, no
// swap, no explicit fences).
//
// Example usage:
//
//	var last register.Word
//
//	last.Store(1)
//	if last.CompareAndSwap(1, 2) {
//	    // last now holds 2
//	}
//
// Words are usually embedded by value in a lock structure, or allocated as a
// slice sized at construction time for locks with a per-thread capacity.
package register

import "go.uber.org/atomic"

// Word is a single machine word with sequentially consistent load, store and
// compare-and-swap. The zero value holds 0.
//
// A Word must not be copied after first use.
type Word struct {
	_ noCopy
	v atomic.Uint64
}

// Load atomically reads the word.
func (w *Word) Load() uint64 { return w.v.Load() }

// Store atomically writes val into the word.
func (w *Word) Store(val uint64) { w.v.Store(val) }

// CompareAndSwap writes new iff the word currently holds old, and reports
// whether the write happened.
func (w *Word) CompareAndSwap(old, new uint64) bool { return w.v.CompareAndSwap(old, new) }

// noCopy may be embedded into structs which must not be copied after first use.
// See go vet's copylocks check.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
