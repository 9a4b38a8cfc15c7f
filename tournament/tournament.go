// Package tournament implements N-thread mutual exclusion as a chain of N-1
// filter levels. Every level lets through all but one of the threads trying
// to pass it, so after N-1 levels a single thread remains and holds the lock.
//
// Each level is Peterson's protocol generalized to N contenders: a thread
// raises its interest at the level, records itself as the level's last
// arrival, and waits while some other thread is interested at that level or
// beyond and it is still the last arrival.
//
// Two layouts with identical behavior are provided:
//   - Lock keeps one interest flag per thread per level: (N-1)*N flags plus
//     N-1 last words, O(N²) words.
//   - CompactLock notes that a thread's flags are always set for a prefix of
//     the levels and keeps only the length of that prefix: N level words plus
//     N-1 last words, O(N) words.
//
// Both guarantee mutual exclusion and starvation-freedom for up to N threads
// with identities in [0, N).
//
// Example usage:
//
//	lock := tournament.NewCompact(8)
//
//	// goroutine with identity id
//	lock.Lock(id)
//	// ... critical section ...
//	lock.Unlock(id)
package tournament

import (
	"fmt"
	"runtime"

	"github.com/ahrav/go-spinlocks/register"
)

const (
	down uint64 = 0
	up   uint64 = 1
)

func checkCapacity(n int) {
	if n < 1 {
		panic(fmt.Sprintf("tournament: capacity must be at least 1, got %d", n))
	}
}

// level is one filter stage of Lock.
type level struct {
	last  register.Word
	flags []register.Word
}

// Lock is the O(N²) tournament lock.
type Lock struct {
	levels []level
	n      int
}

// New returns a Lock for up to n threads. It panics if n < 1.
func New(n int) *Lock {
	checkCapacity(n)
	l := &Lock{levels: make([]level, n-1), n: n}
	for i := range l.levels {
		l.levels[i].flags = make([]register.Word, n)
	}
	return l
}

// Capacity returns the number of threads the lock was built for.
func (l *Lock) Capacity() int { return l.n }

// Lock passes every level in increasing order.
func (l *Lock) Lock(id int) {
	for lvl := range l.levels {
		l.announce(id, lvl)
		l.yield(id, lvl)
		for l.blocked(id, lvl) {
			runtime.Gosched()
		}
	}
}

// announce raises id's flag at lvl. It must be visible before yield.
func (l *Lock) announce(id, lvl int) { l.levels[lvl].flags[id].Store(up) }

// yield records id as the last arrival at lvl.
func (l *Lock) yield(id, lvl int) { l.levels[lvl].last.Store(uint64(id)) }

func (l *Lock) blocked(id, lvl int) bool {
	return l.contended(id, lvl) && l.isLast(id, lvl)
}

// contended reports whether any thread other than id is interested in lvl.
func (l *Lock) contended(id, lvl int) bool {
	for k := range l.n {
		if k != id && l.interested(k, lvl) {
			return true
		}
	}
	return false
}

func (l *Lock) interested(k, lvl int) bool { return l.levels[lvl].flags[k].Load() == up }

func (l *Lock) isLast(id, lvl int) bool { return l.levels[lvl].last.Load() == uint64(id) }

// Unlock lowers id's flag at every level.
func (l *Lock) Unlock(id int) {
	for lvl := range l.levels {
		l.levels[lvl].flags[id].Store(down)
	}
}

// CompactLock is the O(N) tournament lock.
type CompactLock struct {
	// reached[k] is the number of levels thread k has entered; 0 means k is
	// not trying to acquire the lock.
	reached []register.Word
	last    []register.Word
}

// NewCompact returns a CompactLock for up to n threads. It panics if n < 1.
func NewCompact(n int) *CompactLock {
	checkCapacity(n)
	return &CompactLock{
		reached: make([]register.Word, n),
		last:    make([]register.Word, n-1),
	}
}

// Capacity returns the number of threads the lock was built for.
func (l *CompactLock) Capacity() int { return len(l.reached) }

// Lock advances id one level at a time until it has passed all of them.
func (l *CompactLock) Lock(id int) {
	for lvl := range l.last {
		l.announce(id, lvl)
		l.yield(id, lvl)
		for l.blocked(id, lvl) {
			runtime.Gosched()
		}
	}
}

func (l *CompactLock) announce(id, lvl int) { l.reached[id].Store(uint64(lvl + 1)) }

func (l *CompactLock) yield(id, lvl int) { l.last[lvl].Store(uint64(id)) }

func (l *CompactLock) blocked(id, lvl int) bool {
	return l.contended(id, lvl) && l.isLast(id, lvl)
}

// contended reports whether any thread other than id has entered lvl or a
// later level.
func (l *CompactLock) contended(id, lvl int) bool {
	for k := range l.reached {
		if k != id && l.interested(k, lvl) {
			return true
		}
	}
	return false
}

func (l *CompactLock) interested(k, lvl int) bool { return l.reached[k].Load() > uint64(lvl) }

func (l *CompactLock) isLast(id, lvl int) bool { return l.last[lvl].Load() == uint64(id) }

// Unlock drops id back to level zero.
func (l *CompactLock) Unlock(id int) { l.reached[id].Store(0) }
