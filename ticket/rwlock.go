package ticket

import (
	"runtime"
	"sync"

	"github.com/ahrav/go-spinlocks/rmw"
)

// RWLock is a ticket-based reader/writer lock. Readers and writers draw from
// one ticket counter and are admitted strictly in ticket order:
//   - read is the next ticket a reader may be admitted on. An admitted reader
//     advances it straight away, so the readers queued right behind it are
//     admitted too.
//   - write is the next ticket a writer may be admitted on. It advances once
//     per release, so a writer waits for every reader and writer ahead of it.
//
// A writer therefore never waits behind readers that arrived after it, and a
// reader never waits behind more than the writers that arrived before it.
//
// The zero value is an unlocked RWLock. An RWLock must not be copied after
// first use.
type RWLock struct {
	ticket rmw.Register
	read   rmw.Register
	write  rmw.Register
}

// NewRWLock creates a new RWLock.
func NewRWLock() *RWLock {
	l := new(RWLock)
	l.ticket.Store(0)
	l.read.Store(0)
	l.write.Store(0)
	return l
}

// RLock acquires the lock for reading.
func (l *RWLock) RLock() {
	my := l.take()
	for !l.readable(my) {
		runtime.Gosched()
	}
	l.admitNext(my)
}

func (l *RWLock) take() uint32 { return rmw.FetchAndAdd(&l.ticket, 1) }

func (l *RWLock) readable(ticket uint32) bool { return l.read.Load() == ticket }

// admitNext lets the holder of the following ticket in if it is a reader.
// Only the admitted reader writes read at this point, so a plain store is
// enough.
func (l *RWLock) admitNext(ticket uint32) { l.read.Store(ticket + 1) }

// RUnlock releases a read lock.
func (l *RWLock) RUnlock() { rmw.FetchAndAdd(&l.write, 1) }

// Lock acquires the lock for writing.
func (l *RWLock) Lock() {
	my := l.take()
	for !l.writable(my) {
		runtime.Gosched()
	}
}

func (l *RWLock) writable(ticket uint32) bool { return l.write.Load() == ticket }

// Unlock releases a write lock, admitting the next reader and the next writer
// in ticket order.
func (l *RWLock) Unlock() {
	rmw.FetchAndAdd(&l.read, 1)
	rmw.FetchAndAdd(&l.write, 1)
}

// RLocker returns a sync.Locker that takes l for reading.
func (l *RWLock) RLocker() sync.Locker { return (*rlocker)(l) }

type rlocker RWLock

func (r *rlocker) Lock()   { (*RWLock)(r).RLock() }
func (r *rlocker) Unlock() { (*RWLock)(r).RUnlock() }
