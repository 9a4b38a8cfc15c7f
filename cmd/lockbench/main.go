// Command lockbench runs the spinlock algorithms under real contention: every
// goroutine increments a shared counter under the selected lock, and the run
// fails if any update was lost.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/ahrav/go-spinlocks/locker"
)

func main() {
	var (
		cli           = kingpin.New(filepath.Base(os.Args[0]), "Run spinlock algorithms under contention")
		logLevel      = cli.Flag("log.level", "log level").Default("info").Enum("debug", "info", "warn", "error")
		listCmd       = cli.Command("list", "list available locks")
		runCmd        = cli.Command("run", "increment a shared counter from several goroutines under a lock")
		runLock       = runCmd.Flag("lock", "lock to run (see list)").Default("ticket").String()
		runGoroutines = runCmd.Flag("goroutines", "number of goroutines").Default("4").Int()
		runIterations = runCmd.Flag("iterations", "increments per goroutine").Default("10000").Int()
		runForce      = runCmd.Flag("force", "run locks that can spin forever").Bool()
	)

	cmd := kingpin.MustParse(cli.Parse(os.Args[1:]))
	logger := newLogger(os.Stderr, *logLevel)

	switch cmd {
	case listCmd.FullCommand():
		printLocks(os.Stdout)
	case runCmd.FullCommand():
		res, err := run(logger, runConfig{
			lock:       *runLock,
			goroutines: *runGoroutines,
			iterations: *runIterations,
			force:      *runForce,
		})
		if err != nil {
			exitWithError(err)
		}
		printResult(os.Stdout, res)
	}
}

func newLogger(w io.Writer, lvl string) log.Logger {
	var allow level.Option
	switch lvl {
	case "debug":
		allow = level.AllowDebug()
	case "warn":
		allow = level.AllowWarn()
	case "error":
		allow = level.AllowError()
	default:
		allow = level.AllowInfo()
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	return level.NewFilter(logger, allow)
}

type runConfig struct {
	lock       string
	goroutines int
	iterations int
	force      bool
}

type result struct {
	lock     string
	counter  int
	expected int
	elapsed  time.Duration
}

func run(logger log.Logger, cfg runConfig) (result, error) {
	v, err := lookup(cfg.lock)
	if err != nil {
		return result{}, err
	}
	if err := v.check(cfg.goroutines, cfg.force); err != nil {
		return result{}, errors.Wrap(err, "invalid run")
	}
	if cfg.iterations < 0 {
		return result{}, errors.Errorf("iterations must not be negative, got %d", cfg.iterations)
	}

	lock := v.new(cfg.goroutines)
	level.Debug(logger).Log("msg", "starting run", "lock", v.name, "goroutines", cfg.goroutines, "iterations", cfg.iterations)

	counter := 0
	var g errgroup.Group
	start := time.Now()
	for id := 0; id < cfg.goroutines; id++ {
		mu := locker.Bind(lock, id)
		g.Go(func() error {
			for range cfg.iterations {
				mu.Lock()
				counter++
				mu.Unlock()
			}
			level.Debug(logger).Log("msg", "worker done", "id", id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result{}, errors.Wrap(err, "running workers")
	}

	res := result{
		lock:     v.name,
		counter:  counter,
		expected: cfg.goroutines * cfg.iterations,
		elapsed:  time.Since(start),
	}
	if res.counter != res.expected {
		level.Error(logger).Log("msg", "lost updates", "lock", v.name, "counter", res.counter, "expected", res.expected)
		return res, errors.Errorf("%s lost updates: counter is %d, expected %d", v.name, res.counter, res.expected)
	}

	level.Info(logger).Log("msg", "run complete", "lock", v.name, "counter", res.counter, "elapsed", res.elapsed)
	return res, nil
}

func printResult(w io.Writer, res result) {
	perOp := time.Duration(0)
	if res.expected > 0 {
		perOp = res.elapsed / time.Duration(res.expected)
	}
	fmt.Fprintf(w, "lock:     %s\n", res.lock)
	fmt.Fprintf(w, "counter:  %d/%d\n", res.counter, res.expected)
	fmt.Fprintf(w, "elapsed:  %v\n", res.elapsed)
	fmt.Fprintf(w, "per lock: %v\n", perOp)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
