// Package ticket provides fair mutual exclusion locks using a ticket-based
// queuing system. Every acquirer draws a ticket from an issue counter and spins
// until a serve counter reaches it, so lock requests are served in the exact
// order they arrive.
//
// Both counters are rmw.Registers and tickets are drawn with rmw.FetchAndAdd,
// which is built from load-linked/store-conditional alone. FIFO order is only
// as fair as that fetch-and-add: a goroutine that keeps losing its
// store-conditional keeps retrying before it holds a ticket.
//
// Lock is the plain ticket mutex. RWLock shares one issue counter between
// readers and writers and keeps a serve counter per role, so consecutive
// readers hold the lock together while writers wait for everyone ahead of
// them.
package ticket

import (
	"runtime"

	"github.com/ahrav/go-spinlocks/rmw"
)

// Lock implements a fair mutual exclusion lock using a ticket-based queuing system.
//
// The internal implementation uses two counters:
// - ticket: the next ticket to be issued
// - serve: the ticket currently allowed to hold the lock
//
// The lock is free when ticket == serve, and locked otherwise. Both counters
// wrap around together, so only their equality matters.
type Lock struct {
	ticket rmw.Register // Next ticket to be issued
	serve  rmw.Register // Current ticket being served
}

// NewLock creates a new ticket Lock. The zero value is also an unlocked Lock.
func NewLock() *Lock {
	l := new(Lock)
	l.ticket.Store(0)
	l.serve.Store(0)
	return l
}

// TryLock attempts to acquire the lock without spinning. It only succeeds
// when nobody holds or waits for the lock, by drawing the ticket that is being
// served right now.
func (l *Lock) TryLock() bool {
	next := l.serve.Load()
	return rmw.CompareAndExchange(&l.ticket, &next, next+1)
}

// Lock draws a ticket and spins until it is served.
func (l *Lock) Lock() {
	my := l.take()
	for !l.served(my) {
		runtime.Gosched()
	}
}

func (l *Lock) take() uint32 { return rmw.FetchAndAdd(&l.ticket, 1) }

func (l *Lock) served(ticket uint32) bool { return l.serve.Load() == ticket }

// Unlock releases the lock to the next ticket.
func (l *Lock) Unlock() { rmw.FetchAndAdd(&l.serve, 1) }

// isFree checks if the lock is free.
func (l *Lock) isFree() bool { return l.ticket.Load() == l.serve.Load() }
