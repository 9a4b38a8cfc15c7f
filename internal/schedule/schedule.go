// Package schedule drives lock algorithms through explicit interleavings of
// their atomic steps. Each simulated thread is a cyclic Program of operations;
// a Runner executes one operation of one thread per step, either following a
// fixed script, a seeded random choice, or every interleaving up to a length.
//
// Spin loops are expressed as operations that fail while their condition
// holds. A failed operation is retried the next time its thread is scheduled,
// so a spinning thread never blocks the runner.
//
// Critical sections are bracketed with Enter/Exit (exclusive) or
// EnterShared/ExitShared (readers). The runner records admissions, every
// admission that overlaps an incompatible holder, and for every thread the
// longest run of failed polls within one acquisition.
package schedule

import "math/rand/v2"

type kind uint8

const (
	step kind = iota
	enter
	exit
	enterShared
	exitShared
)

// Op is one atomic step of a simulated thread.
type Op struct {
	kind kind
	do   func() bool
}

// Do returns an operation that runs f and always completes.
func Do(f func()) Op { return Op{do: func() bool { f(); return true }} }

// Try returns an operation that completes when f returns true.
func Try(f func() bool) Op { return Op{do: f} }

// Spin returns an operation that is retried for as long as cond holds.
func Spin(cond func() bool) Op { return Op{do: func() bool { return !cond() }} }

// Enter marks the start of an exclusive critical section.
func Enter() Op { return Op{kind: enter} }

// Exit marks the end of an exclusive critical section.
func Exit() Op { return Op{kind: exit} }

// EnterShared marks the start of a shared (reader) critical section.
func EnterShared() Op { return Op{kind: enterShared} }

// ExitShared marks the end of a shared (reader) critical section.
func ExitShared() Op { return Op{kind: exitShared} }

// Program is the sequence of operations one thread repeats forever.
type Program []Op

// Trace summarizes what a Runner observed.
type Trace struct {
	Steps      int   // operations executed, including failed polls
	Admissions []int // thread ids in critical section entry order
	Violations int   // admissions that overlapped an incompatible holder
	MaxShared  int   // largest number of simultaneous shared holders
	Completed  []int // critical sections finished, per thread
	MaxWait    []int // longest run of failed polls in one acquisition, per thread
	Waiting    []int // failed polls in the current acquisition, per thread
}

// Runner executes Programs one operation at a time.
type Runner struct {
	progs     []Program
	pc        []int
	inside    []bool
	exclusive int
	shared    int
	trace     Trace
}

// New returns a Runner for the given threads. Thread i runs progs[i]. An empty
// program models a thread that never calls into the lock.
func New(progs ...Program) *Runner {
	n := len(progs)
	return &Runner{
		progs:  progs,
		pc:     make([]int, n),
		inside: make([]bool, n),
		trace: Trace{
			Completed: make([]int, n),
			MaxWait:   make([]int, n),
			Waiting:   make([]int, n),
		},
	}
}

// Step executes the next operation of thread id and reports whether it
// completed. A thread whose operation failed stays on that operation.
func (r *Runner) Step(id int) bool {
	p := r.progs[id]
	if len(p) == 0 {
		return false
	}
	r.trace.Steps++

	switch op := p[r.pc[id]]; op.kind {
	case enter:
		if r.exclusive > 0 || r.shared > 0 {
			r.trace.Violations++
		}
		r.exclusive++
		r.admit(id)
	case enterShared:
		if r.exclusive > 0 {
			r.trace.Violations++
		}
		r.shared++
		r.trace.MaxShared = max(r.trace.MaxShared, r.shared)
		r.admit(id)
	case exit:
		r.exclusive--
		r.release(id)
	case exitShared:
		r.shared--
		r.release(id)
	default:
		if !op.do() {
			r.trace.Waiting[id]++
			r.trace.MaxWait[id] = max(r.trace.MaxWait[id], r.trace.Waiting[id])
			return false
		}
	}

	r.pc[id] = (r.pc[id] + 1) % len(p)
	return true
}

func (r *Runner) admit(id int) {
	r.inside[id] = true
	r.trace.Admissions = append(r.trace.Admissions, id)
	r.trace.Waiting[id] = 0
}

func (r *Runner) release(id int) {
	r.inside[id] = false
	r.trace.Completed[id]++
}

// Run executes one operation for each id in order.
func (r *Runner) Run(order ...int) {
	for _, id := range order {
		r.Step(id)
	}
}

// Repeat schedules thread id n times in a row.
func (r *Runner) Repeat(id, n int) {
	for range n {
		r.Step(id)
	}
}

// Random executes steps operations, picking a thread uniformly at random for
// each one.
func (r *Runner) Random(rng *rand.Rand, steps int) {
	for range steps {
		r.Step(rng.IntN(len(r.progs)))
	}
}

// Holding reports whether thread id is inside a critical section.
func (r *Runner) Holding(id int) bool { return r.inside[id] }

// Trace returns a snapshot of what the runner has observed so far.
func (r *Runner) Trace() Trace {
	t := r.trace
	t.Admissions = append([]int(nil), t.Admissions...)
	t.Completed = append([]int(nil), t.Completed...)
	t.MaxWait = append([]int(nil), t.MaxWait...)
	t.Waiting = append([]int(nil), t.Waiting...)
	return t
}

// Exhaust calls fn with every schedule of the given length over threads
// thread ids, in lexicographic order. fn must not retain order.
func Exhaust(threads, length int, fn func(order []int)) {
	order := make([]int, length)
	for {
		fn(order)

		i := length - 1
		for ; i >= 0; i-- {
			order[i]++
			if order[i] < threads {
				break
			}
			order[i] = 0
		}
		if i < 0 {
			return
		}
	}
}

// NewRand returns a deterministic source for Random.
func NewRand(seed uint64) *rand.Rand { return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
