package rmw

import "runtime"

const (
	unlocked uint32 = 0
	locked   uint32 = 1
)

// SpinLock is a test-and-set lock built on Exchange. It guarantees mutual
// exclusion but not fairness: a waiter can lose every exchange to other
// goroutines and spin for an unbounded time.
//
// The zero value is an unlocked lock. A SpinLock must not be copied after
// first use.
type SpinLock struct {
	state Register
}

// Lock acquires the lock, spinning until it is available.
func (l *SpinLock) Lock() {
	for !l.TryLock() {
		runtime.Gosched()
	}
}

// TryLock attempts to acquire the lock without spinning.
func (l *SpinLock) TryLock() bool { return Exchange(&l.state, locked) == unlocked }

// Unlock releases the lock.
func (l *SpinLock) Unlock() { l.state.Store(unlocked) }
