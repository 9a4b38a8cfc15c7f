// Package rmw emulates load-linked/store-conditional on top of a
// compare-and-swap word, and derives fetch-and-add, compare-and-exchange and
// exchange from that pair alone.
//
// A Register packs a 32-bit value together with a 32-bit write generation
// into one register.Word. Every successful write bumps the generation, so a
// StoreConditional fails after any intervening write, including one that
// wrote back the same value. The generation wraps after 2^32 writes; a
// reservation held across exactly that many writes would succeed wrongly.
//
// Example usage:
//
//	var r rmw.Register
//
//	old := rmw.FetchAndAdd(&r, 1) // 0
//
//	expected := uint32(1)
//	if !rmw.CompareAndExchange(&r, &expected, 10) {
//	    // expected now holds the value that was found
//	}
//
// A Link returned by LoadLinked is the reservation. It belongs to the
// goroutine that obtained it and must only be passed to StoreConditional on
// the same Register.
package rmw

import "github.com/ahrav/go-spinlocks/register"

// Register is a 32-bit word supporting load-linked/store-conditional.
// The zero value holds 0.
//
// A Register must not be copied after first use.
type Register struct {
	w register.Word
}

// Link is a reservation taken by LoadLinked.
type Link struct {
	word uint64
}

// Value returns the value observed when the reservation was taken.
func (l Link) Value() uint32 { return value(l.word) }

func value(word uint64) uint32 { return uint32(word) }

func generation(word uint64) uint32 { return uint32(word >> 32) }

func pack(val, gen uint32) uint64 { return uint64(gen)<<32 | uint64(val) }

// Load atomically reads the register's value.
func (r *Register) Load() uint32 { return value(r.w.Load()) }

// Store atomically writes val. It invalidates every outstanding reservation.
func (r *Register) Store(val uint32) {
	for {
		cur := r.w.Load()
		if r.w.CompareAndSwap(cur, pack(val, generation(cur)+1)) {
			return
		}
	}
}

// LoadLinked reads the register and returns a reservation for a later
// StoreConditional.
func (r *Register) LoadLinked() Link { return Link{word: r.w.Load()} }

// StoreConditional writes val iff no write to r has happened since l was
// taken, and reports whether the write happened.
func (r *Register) StoreConditional(l Link, val uint32) bool {
	return r.w.CompareAndSwap(l.word, pack(val, generation(l.word)+1))
}

// FetchAndAdd adds delta to r and returns the previous value. To subtract c,
// pass ^uint32(c-1).
func FetchAndAdd(r *Register, delta uint32) uint32 {
	for {
		l := r.LoadLinked()
		if r.StoreConditional(l, l.Value()+delta) {
			return l.Value()
		}
	}
}

// CompareAndExchange writes new iff r holds *expected and returns true.
// Otherwise it stores the value it found into *expected and returns false.
// A mismatch fails immediately; only a lost StoreConditional is retried.
func CompareAndExchange(r *Register, expected *uint32, new uint32) bool {
	return compareAndExchange(r, expected, new, nil)
}

// compareAndExchange calls linked, if set, between each LoadLinked and the
// comparison.
func compareAndExchange(r *Register, expected *uint32, new uint32, linked func()) bool {
	for {
		l := r.LoadLinked()
		if linked != nil {
			linked()
		}
		if l.Value() != *expected {
			*expected = l.Value()
			return false
		}
		if r.StoreConditional(l, new) {
			return true
		}
	}
}

// Exchange writes val into r and returns the previous value.
func Exchange(r *Register, val uint32) uint32 {
	for {
		l := r.LoadLinked()
		if r.StoreConditional(l, val) {
			return l.Value()
		}
	}
}
