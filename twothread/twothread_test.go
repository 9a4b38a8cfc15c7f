package twothread

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ahrav/go-spinlocks/internal/locktest"
	"github.com/ahrav/go-spinlocks/internal/schedule"
)

func alternationProgram(a *Alternation, id int) schedule.Program {
	return schedule.Program{
		schedule.Spin(func() bool { return a.blocked(id) }),
		schedule.Enter(),
		schedule.Exit(),
		schedule.Do(func() { a.Unlock(id) }),
	}
}

func flagsProgram(f *Flags, id int) schedule.Program {
	return schedule.Program{
		schedule.Do(func() { f.announce(id) }),
		schedule.Spin(func() bool { return f.blocked(id) }),
		schedule.Enter(),
		schedule.Exit(),
		schedule.Do(func() { f.Unlock(id) }),
	}
}

func petersonProgram(p *Peterson, id int) schedule.Program {
	return schedule.Program{
		schedule.Do(func() { p.announce(id) }),
		schedule.Do(func() { p.yield(id) }),
		schedule.Spin(func() bool { return p.blocked(id) }),
		schedule.Enter(),
		schedule.Exit(),
		schedule.Do(func() { p.Unlock(id) }),
	}
}

// reversedPetersonProgram writes last before raising the flag.
func reversedPetersonProgram(p *Peterson, id int) schedule.Program {
	return schedule.Program{
		schedule.Do(func() { p.yield(id) }),
		schedule.Do(func() { p.announce(id) }),
		schedule.Spin(func() bool { return p.blocked(id) }),
		schedule.Enter(),
		schedule.Exit(),
		schedule.Do(func() { p.Unlock(id) }),
	}
}

func TestAlternationConcurrentAccess(t *testing.T) {
	// Both goroutines run the same number of iterations, so strict turns
	// always let the pair finish.
	locktest.Counter(t, 2, 2000, locktest.Bound(NewAlternation()))
}

func TestAlternationTakesTurns(t *testing.T) {
	a := NewAlternation()
	r := schedule.New(alternationProgram(a, 0), alternationProgram(a, 1))
	r.Random(schedule.NewRand(1), 10000)

	tr := r.Trace()
	assert.Zero(t, tr.Violations)
	for i := 1; i < len(tr.Admissions); i++ {
		assert.NotEqual(t, tr.Admissions[i-1], tr.Admissions[i], "admissions must alternate: %v", tr.Admissions)
	}
	if assert.NotEmpty(t, tr.Admissions) {
		assert.Equal(t, 1, tr.Admissions[0], "thread 1 enters first")
	}
}

// Thread 1 takes one turn and then never asks again. Thread 0 gets exactly
// one turn and then waits forever for thread 1 to hand the lock back.
func TestAlternationStarvesWhenPeerStops(t *testing.T) {
	a := NewAlternation()
	r := schedule.New(alternationProgram(a, 0), alternationProgram(a, 1))

	r.Repeat(1, 4)
	r.Repeat(0, 4)
	r.Repeat(0, 10000)

	tr := r.Trace()
	assert.Equal(t, []int{1, 0}, tr.Admissions)
	assert.Equal(t, 1, tr.Completed[0])
	assert.False(t, r.Holding(0))
	assert.Equal(t, 10000, tr.Waiting[0])
}

// Without thread 1 ever running, thread 0 cannot get its first turn.
func TestAlternationBlocksAloneFromStart(t *testing.T) {
	a := NewAlternation()
	r := schedule.New(alternationProgram(a, 0), schedule.Program{})

	r.Repeat(0, 10000)

	tr := r.Trace()
	assert.Empty(t, tr.Admissions)
	assert.Equal(t, 10000, tr.Waiting[0])
}

// Both threads raise their flags before either checks, then both spin on the
// other's flag forever.
func TestFlagsDeadlockWhenBothAnnounce(t *testing.T) {
	f := NewFlags()
	r := schedule.New(flagsProgram(f, 0), flagsProgram(f, 1))

	r.Run(0, 1)
	r.Random(schedule.NewRand(2), 10000)

	tr := r.Trace()
	assert.Empty(t, tr.Admissions)
	assert.Equal(t, 10000, tr.Waiting[0]+tr.Waiting[1])
	assert.Positive(t, tr.Waiting[0])
	assert.Positive(t, tr.Waiting[1])
}

func TestFlagsSoloProgress(t *testing.T) {
	f := NewFlags()
	r := schedule.New(flagsProgram(f, 0), schedule.Program{})

	r.Repeat(0, 5*100)

	tr := r.Trace()
	assert.Equal(t, 100, tr.Completed[0])
	assert.Zero(t, tr.MaxWait[0])
}

func TestFlagsExclusiveUnderAllSchedules(t *testing.T) {
	schedule.Exhaust(2, 12, func(order []int) {
		f := NewFlags()
		r := schedule.New(flagsProgram(f, 0), flagsProgram(f, 1))
		r.Run(order...)
		if tr := r.Trace(); tr.Violations != 0 {
			t.Fatalf("schedule %v admitted both threads", order)
		}
	})
}

func TestPetersonConcurrentAccess(t *testing.T) {
	locktest.Counter(t, 2, 10000, locktest.Bound(NewPeterson()))
}

func TestPetersonExclusiveUnderAllSchedules(t *testing.T) {
	schedule.Exhaust(2, 14, func(order []int) {
		p := NewPeterson()
		r := schedule.New(petersonProgram(p, 0), petersonProgram(p, 1))
		r.Run(order...)
		if tr := r.Trace(); tr.Violations != 0 {
			t.Fatalf("schedule %v admitted both threads", order)
		}
	})
}

// Writing last before raising the flag lets both threads in:
//  1. thread 1 writes last = 1
//  2. thread 0 writes last = 0
//  3. thread 0 raises its flag, sees thread 1's flag down and enters
//  4. thread 1 raises its flag, sees last == 0 and enters too
func TestPetersonReversedStoresBreakExclusion(t *testing.T) {
	script := []int{1, 0, 0, 0, 0, 1, 1, 1}

	p := NewPeterson()
	r := schedule.New(reversedPetersonProgram(p, 0), reversedPetersonProgram(p, 1))
	r.Run(script...)

	tr := r.Trace()
	assert.Equal(t, 1, tr.Violations)
	assert.True(t, r.Holding(0))
	assert.True(t, r.Holding(1))

	// The same shape of schedule against the correct order keeps thread 1
	// out and eventually lets thread 0 in.
	p = NewPeterson()
	r = schedule.New(petersonProgram(p, 0), petersonProgram(p, 1))
	r.Run(script...)
	assert.Zero(t, r.Trace().Violations)
	assert.False(t, r.Holding(0))
	assert.False(t, r.Holding(1))

	r.Run(0, 0)
	assert.True(t, r.Holding(0))
	assert.False(t, r.Holding(1))
}

func TestPetersonReversedStoresFoundByExhaustion(t *testing.T) {
	found := false
	schedule.Exhaust(2, 10, func(order []int) {
		if found {
			return
		}
		p := NewPeterson()
		r := schedule.New(reversedPetersonProgram(p, 0), reversedPetersonProgram(p, 1))
		r.Run(order...)
		found = r.Trace().Violations > 0
	})
	assert.True(t, found)
}

func TestPetersonStarvationFree(t *testing.T) {
	const maxWait = 500

	for seed := uint64(0); seed < 20; seed++ {
		p := NewPeterson()
		r := schedule.New(petersonProgram(p, 0), petersonProgram(p, 1))
		r.Random(schedule.NewRand(seed), 20000)

		tr := r.Trace()
		assert.Zero(t, tr.Violations, "seed %d", seed)
		for id := range 2 {
			assert.Positive(t, tr.Completed[id], "seed %d: thread %d never completed", seed, id)
			assert.Less(t, tr.MaxWait[id], maxWait, "seed %d: thread %d waited too long", seed, id)
		}
	}
}

// A waiting thread is overtaken at most once: if the other thread leaves and
// immediately asks again, it records itself as last and lets the waiter in.
func TestPetersonBoundedBypass(t *testing.T) {
	p := NewPeterson()
	r := schedule.New(petersonProgram(p, 0), petersonProgram(p, 1))

	// Thread 1 gets in first; thread 0 announces and starts waiting.
	r.Repeat(1, 4)
	r.Repeat(0, 3)
	assert.True(t, r.Holding(1))
	assert.False(t, r.Holding(0))

	// Thread 1 leaves and immediately re-requests, then spins itself.
	r.Repeat(1, 2+2+3)
	assert.False(t, r.Holding(1))

	r.Run(0, 0)
	assert.True(t, r.Holding(0))
	assert.Equal(t, []int{1, 0}, r.Trace().Admissions)
}

func BenchmarkPetersonUncontended(b *testing.B) {
	p := NewPeterson()
	for i := 0; i < b.N; i++ {
		p.Lock(0)
		p.Unlock(0)
	}
}

func BenchmarkPetersonContended(b *testing.B) {
	p := NewPeterson()
	shared := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < b.N; i++ {
			p.Lock(1)
			shared++
			p.Unlock(1)
		}
	}()
	for i := 0; i < b.N; i++ {
		p.Lock(0)
		shared++
		p.Unlock(0)
	}
	<-done
}
