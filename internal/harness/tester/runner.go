// Package tester implements the per-tester runner: the request/reply loop
// that serves a single WorkloadInterface (setup/start/check/metrics/stop) on
// behalf of one workload instance. It is the in-process core the RPC server
// adapter (internal/harness/harnessrpc) wraps to talk to a remote controller.
package tester

import (
	"context"
	"sync"
	"time"

	"github.com/dbtestharness/dbtestharness/pkg/harness/dbclient"
	"github.com/dbtestharness/dbtestharness/pkg/harness/harnesserr"
	"github.com/dbtestharness/dbtestharness/pkg/harness/metrics"
	"github.com/dbtestharness/dbtestharness/pkg/harness/workload"
)

// phaseMemo memoizes one phase's outcome. A reboot or cancellation result is
// deliberately never stored here: it must propagate to the host on every
// call, not just the first, so a phase whose classification says "don't
// memoize" leaves settled false.
type phaseMemo struct {
	mu      sync.Mutex
	settled bool
	err     error
	checkOK bool
}

// run returns the memoized result if settled, otherwise calls fn, stores the
// result if fn reports it should be memoized, and returns it either way.
func (m *phaseMemo) run(fn func() (ok bool, memoize bool, err error)) (bool, error) {
	m.mu.Lock()
	if m.settled {
		ok, err := m.checkOK, m.err
		m.mu.Unlock()
		return ok, err
	}
	m.mu.Unlock()

	ok, memoize, err := fn()

	m.mu.Lock()
	defer m.mu.Unlock()
	if memoize && !m.settled {
		m.settled = true
		m.checkOK = ok
		m.err = err
	}
	return ok, err
}

func (m *phaseMemo) settledErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Runner serves one WorkloadInterface for the lifetime of a single test.
type Runner struct {
	workload workload.Workload
	db       dbclient.Database
	useDB    bool

	// livenessFailed, if non-nil, is raced against every phase call: a
	// receive on this channel means the background liveness prober (C7)
	// detected the database was unresponsive during this phase.
	livenessFailed <-chan error

	setup   phaseMemo
	start   phaseMemo
	check   phaseMemo
	stopped bool
	mu      sync.Mutex
}

// New constructs a Runner for w. db may be nil if the spec does not use the
// database (useDB=false); livenessFailed may be nil to disable the liveness
// race.
func New(w workload.Workload, db dbclient.Database, useDB bool, livenessFailed <-chan error) *Runner {
	return &Runner{workload: w, db: db, useDB: useDB, livenessFailed: livenessFailed}
}

// race runs fn in a goroutine and returns its result, unless ctx is done or
// the liveness channel fires first, in which case it returns that error
// instead without waiting for fn (fn's goroutine is abandoned; callers must
// ensure fn respects ctx for its own cleanup).
func (r *Runner) race(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case livenessErr, ok := <-r.livenessFailed:
		if ok {
			return harnesserr.Failed(livenessErr, "liveness prober reported failure during phase")
		}
	default:
	}

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case livenessErr, ok := <-r.livenessFailed:
		if !ok {
			return nil
		}
		return harnesserr.Failed(livenessErr, "liveness prober reported failure during phase")
	}
}

// classify turns a raw phase error into (memoize, error): reboot and
// cancellation requests are never memoized and propagate unchanged; anything
// else becomes OperationFailed and is memoized.
func classify(err error) (memoize bool, out error) {
	if err == nil {
		return true, nil
	}
	if harnesserr.IsReboot(err) || harnesserr.IsCancelled(err) {
		return false, err
	}
	return true, harnesserr.Failed(err, "workload phase failed")
}

// Setup runs the workload's Setup phase at most once.
func (r *Runner) Setup(ctx context.Context) error {
	_, err := r.setup.run(func() (bool, bool, error) {
		raceErr := r.race(ctx, func() error {
			return r.workload.Setup(ctx, r.db)
		})
		memoize, out := classify(raceErr)
		return false, memoize, out
	})
	return err
}

// Start runs the workload's Start phase at most once.
func (r *Runner) Start(ctx context.Context) error {
	_, err := r.start.run(func() (bool, bool, error) {
		raceErr := r.race(ctx, func() error {
			return r.workload.Start(ctx, r.db)
		})
		memoize, out := classify(raceErr)
		return false, memoize, out
	})
	return err
}

// Check runs the workload's Check phase at most once, bounded by the
// workload's own GetCheckTimeout (a deadline derived from ctx). The result is
// AND-ed with the Start phase's outcome: a workload whose body errored cannot
// pass its check even if Check itself returns true.
func (r *Runner) Check(ctx context.Context) (bool, error) {
	return r.check.run(func() (bool, bool, error) {
		if r.start.settledErr() != nil {
			return false, true, nil
		}
		checkCtx, cancel := context.WithTimeout(ctx, time.Duration(r.workload.GetCheckTimeout())*time.Millisecond)
		defer cancel()
		var ok bool
		raceErr := r.race(checkCtx, func() error {
			var checkErr error
			ok, checkErr = r.workload.Check(checkCtx, r.db)
			return checkErr
		})
		memoize, out := classify(raceErr)
		if out != nil {
			return false, memoize, out
		}
		return ok, memoize, nil
	})
}

// Metrics takes a pure snapshot of the workload's metrics. It is not
// memoized: GetMetrics has no side effects, so every call simply returns the
// current snapshot, matching its "pure snapshot" contract.
func (r *Runner) Metrics() []metrics.PerfMetric {
	return r.workload.GetMetrics()
}

// Stop marks the runner as finished serving. Subsequent phase calls still
// return their memoized results; Stop itself never errors.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
}

// Stopped reports whether Stop has been called.
func (r *Runner) Stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}
