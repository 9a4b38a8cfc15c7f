package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/ahrav/go-spinlocks/locker"
	"github.com/ahrav/go-spinlocks/rmw"
	"github.com/ahrav/go-spinlocks/ticket"
	"github.com/ahrav/go-spinlocks/tournament"
	"github.com/ahrav/go-spinlocks/twothread"
)

// variant describes a lock the harness can run.
type variant struct {
	name string
	help string
	// goroutines is the exact number of goroutines the lock needs, or
	// maxGoroutines the most it supports; zero means no limit.
	goroutines    int
	maxGoroutines int
	// mayHang marks locks that can spin forever under ordinary scheduling.
	mayHang bool
	// new builds a lock for n goroutines.
	new func(n int) locker.Locker
}

var variants = []variant{
	{
		name: "rmw",
		help: "test-and-set spinlock on an LL/SC exchange (no fairness)",
		new:  func(int) locker.Locker { return locker.Anonymous(new(rmw.SpinLock)) },
	},
	{
		name:       "alternation",
		help:       "two threads taking strict turns",
		goroutines: 2,
		new:        func(int) locker.Locker { return twothread.NewAlternation() },
	},
	{
		name:          "flags",
		help:          "two threads with intention flags (can deadlock)",
		maxGoroutines: 2,
		mayHang:       true,
		new:           func(int) locker.Locker { return twothread.NewFlags() },
	},
	{
		name:          "peterson",
		help:          "Peterson's two-thread lock",
		maxGoroutines: 2,
		new:           func(int) locker.Locker { return twothread.NewPeterson() },
	},
	{
		name: "tournament",
		help: "N-thread filter lock, O(N^2) words",
		new:  func(n int) locker.Locker { return tournament.New(n) },
	},
	{
		name: "compact",
		help: "N-thread filter lock, O(N) words",
		new:  func(n int) locker.Locker { return tournament.NewCompact(n) },
	},
	{
		name: "ticket",
		help: "FIFO ticket lock",
		new:  func(int) locker.Locker { return locker.Anonymous(ticket.NewLock()) },
	},
	{
		name: "rwlock",
		help: "ticket reader/writer lock, write side",
		new:  func(int) locker.Locker { return locker.Anonymous(ticket.NewRWLock()) },
	},
}

func lookup(name string) (variant, error) {
	for _, v := range variants {
		if v.name == name {
			return v, nil
		}
	}
	return variant{}, errors.Errorf("unknown lock %q", name)
}

func (v variant) check(goroutines int, force bool) error {
	if goroutines < 1 {
		return errors.Errorf("need at least one goroutine, got %d", goroutines)
	}
	if v.goroutines > 0 && goroutines != v.goroutines {
		return errors.Errorf("%s needs exactly %d goroutines, got %d", v.name, v.goroutines, goroutines)
	}
	if v.maxGoroutines > 0 && goroutines > v.maxGoroutines {
		return errors.Errorf("%s supports at most %d goroutines, got %d", v.name, v.maxGoroutines, goroutines)
	}
	if v.mayHang && goroutines > 1 && !force {
		return errors.Errorf("%s can spin forever with %d goroutines; pass --force to run it anyway", v.name, goroutines)
	}
	return nil
}

func printLocks(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "NAME\tGOROUTINES\tDESCRIPTION")
	for _, v := range variants {
		limit := "any"
		switch {
		case v.goroutines > 0:
			limit = fmt.Sprintf("%d", v.goroutines)
		case v.maxGoroutines > 0:
			limit = fmt.Sprintf("<=%d", v.maxGoroutines)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", v.name, limit, v.help)
	}
}
