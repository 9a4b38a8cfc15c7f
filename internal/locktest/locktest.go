// Package locktest holds goroutine stress helpers shared by the lock tests.
package locktest

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-spinlocks/locker"
)

// Counter runs numGoroutines goroutines that each increment a plain int
// iterations times under the lock returned by lockFor(id), then asserts that
// no update was lost.
func Counter(t testing.TB, numGoroutines, iterations int, lockFor func(id int) sync.Locker) {
	t.Helper()

	counter := 0
	var g errgroup.Group
	for id := 0; id < numGoroutines; id++ {
		mu := lockFor(id)
		g.Go(func() error {
			for range iterations {
				mu.Lock()
				counter++
				mu.Unlock()
			}
			return nil
		})
	}
	assert.NoError(t, g.Wait())

	expected := numGoroutines * iterations
	assert.Equal(t, expected, counter, "Expected counter to be %d, got %d", expected, counter)
}

// Shared returns a lockFor function that hands every goroutine the same
// identity-free lock.
func Shared(mu sync.Locker) func(int) sync.Locker {
	return func(int) sync.Locker { return mu }
}

// Bound returns a lockFor function that binds each goroutine's id to l.
func Bound(l locker.Locker) func(int) sync.Locker {
	return func(id int) sync.Locker { return locker.Bind(l, id) }
}
