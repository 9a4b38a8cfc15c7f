// Package twothread implements three mutual exclusion locks for exactly two
// threads, built only from loads and stores on register.Word. They share one
// contract: the caller passes its identity, 0 or 1, to Lock and Unlock, and
// every thread cycles want -> wait -> critical -> release.
//
// The three designs escalate:
//   - Alternation: the threads take strict turns. Mutual exclusion holds, but
//     a thread that wants the lock twice in a row waits forever unless the
//     other thread takes its turn.
//   - Flags: each thread raises its own intention flag and waits for the
//     other's to drop. Mutual exclusion holds, but if both raise their flags
//     before either checks, both wait forever.
//   - Peterson: raise the flag, then yield priority by recording itself as
//     last, then wait while the other is interested and this thread was last.
//     Mutual exclusion and starvation-freedom both hold.
//
// Only Peterson is safe for general use. Alternation and Flags exist to show
// why each half of Peterson's protocol is needed.
//
// Example usage:
//
//	lock := twothread.NewPeterson()
//
//	// goroutine with identity 0
//	lock.Lock(0)
//	// ... critical section ...
//	lock.Unlock(0)
//
// Calling with an identity other than 0 or 1, or from more than one goroutine
// per identity at a time, is undefined behavior.
package twothread

import (
	"runtime"

	"github.com/ahrav/go-spinlocks/register"
)

const (
	down uint64 = 0
	up   uint64 = 1
)

func other(id int) int { return 1 - id }

// Alternation hands the lock back and forth between the two threads.
//
// Initially last is 0, so thread 1 enters first and thread 0 waits until
// thread 1 has unlocked once. If thread 1 never calls Lock, thread 0 spins
// forever.
type Alternation struct {
	last register.Word
}

// NewAlternation returns an Alternation lock with last set to thread 0.
func NewAlternation() *Alternation {
	a := new(Alternation)
	a.last.Store(0)
	return a
}

// Lock spins while id was the last thread to leave the critical section.
func (a *Alternation) Lock(id int) {
	for a.blocked(id) {
		runtime.Gosched()
	}
}

func (a *Alternation) blocked(id int) bool { return a.last.Load() == uint64(id) }

// Unlock records id as the last thread to leave.
func (a *Alternation) Unlock(id int) { a.last.Store(uint64(id)) }

// Flags lets each thread announce its intention before entering. Both
// threads announcing before either checks deadlocks the pair.
type Flags struct {
	flag [2]register.Word
}

// NewFlags returns a Flags lock with both flags lowered.
func NewFlags() *Flags {
	f := new(Flags)
	f.flag[0].Store(down)
	f.flag[1].Store(down)
	return f
}

// Lock raises id's flag and spins while the other thread's flag is raised.
func (f *Flags) Lock(id int) {
	f.announce(id)
	for f.blocked(id) {
		runtime.Gosched()
	}
}

func (f *Flags) announce(id int) { f.flag[id].Store(up) }

func (f *Flags) blocked(id int) bool { return f.flag[other(id)].Load() == up }

// Unlock lowers id's flag.
func (f *Flags) Unlock(id int) { f.flag[id].Store(down) }

// Peterson is Peterson's two-thread lock: mutual exclusion and
// starvation-freedom under sequential consistency.
type Peterson struct {
	last register.Word
	flag [2]register.Word
}

// NewPeterson returns an unlocked Peterson lock.
func NewPeterson() *Peterson {
	p := new(Peterson)
	p.last.Store(0)
	p.flag[0].Store(down)
	p.flag[1].Store(down)
	return p
}

// Lock raises id's flag, then records id as last, then spins while the other
// thread is interested and id is still last. The flag must be raised before
// last is written: in the other order both threads can get in.
func (p *Peterson) Lock(id int) {
	p.announce(id)
	p.yield(id)
	for p.blocked(id) {
		runtime.Gosched()
	}
}

func (p *Peterson) announce(id int) { p.flag[id].Store(up) }

func (p *Peterson) yield(id int) { p.last.Store(uint64(id)) }

func (p *Peterson) blocked(id int) bool {
	return p.flag[other(id)].Load() == up && p.last.Load() == uint64(id)
}

// Unlock lowers id's flag.
func (p *Peterson) Unlock(id int) { p.flag[id].Store(down) }
