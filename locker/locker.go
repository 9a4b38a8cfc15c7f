// Package locker adapts between locks that need the caller's thread identity
// and the standard sync.Locker interface.
//
// The two-thread and tournament locks index per-thread state by an identity
// in [0, N) that the caller supplies. This package does not allocate or
// recycle identities; the caller hands each goroutine a stable id and binds
// it once:
//
//	lock := tournament.NewCompact(4)
//	for id := 0; id < 4; id++ {
//	    mu := locker.Bind(lock, id)
//	    go func() {
//	        mu.Lock()
//	        // ... critical section ...
//	        mu.Unlock()
//	    }()
//	}
package locker

import "sync"

// Locker is a mutual exclusion lock whose callers identify themselves.
// Every id must be unique among goroutines concurrently using the lock and
// stable across a Lock/Unlock pair.
type Locker interface {
	Lock(id int)
	Unlock(id int)
}

// Bind returns a sync.Locker that acquires and releases l as id.
func Bind(l Locker, id int) sync.Locker { return bound{l: l, id: id} }

type bound struct {
	l  Locker
	id int
}

func (b bound) Lock()   { b.l.Lock(b.id) }
func (b bound) Unlock() { b.l.Unlock(b.id) }

// Anonymous adapts a lock that needs no identity to Locker. The id is
// ignored.
func Anonymous(l sync.Locker) Locker { return anonymous{l} }

type anonymous struct{ l sync.Locker }

func (a anonymous) Lock(int)   { a.l.Lock() }
func (a anonymous) Unlock(int) { a.l.Unlock() }
