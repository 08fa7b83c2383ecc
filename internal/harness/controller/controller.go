// Package controller implements the harness's controller: it recruits a
// fleet of testers, drives one TestSpec's workloads through the four-phase
// lifecycle, aggregates verdicts and metrics, and runs the between-test
// actions (starting configuration, quiescence wait, consistency check,
// clear) that surround the core phase fan-out.
package controller

import (
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/dbtestharness/dbtestharness/internal/harness/harnesscontext"
	"github.com/dbtestharness/dbtestharness/pkg/harness/dbclient"
	"github.com/dbtestharness/dbtestharness/pkg/harness/harnesserr"
	"github.com/dbtestharness/dbtestharness/pkg/harness/metrics"
	"github.com/dbtestharness/dbtestharness/pkg/harness/rand64"
	"github.com/dbtestharness/dbtestharness/pkg/harness/spec"
)

// recruitTimeout bounds how long the controller waits for enough testers to
// become available before giving up on a run entirely.
const recruitTimeout = 600 * time.Second

// postCheckSettleDelay is how long the controller waits between the CHECK and
// METRICS phases when the test used the database and ran execution, giving
// the database time to settle before metrics are read.
const postCheckSettleDelay = 3 * time.Second

// clearAfterTestTimeout bounds the clear-database action run after a test
// that set clearAfterTest.
const clearAfterTestTimeout = 1000 * time.Second

// changeConfigTimeout bounds the ClusterConfigurator call made once before
// the first test when a starting configuration is supplied.
const changeConfigTimeout = 2000 * time.Second

// consistencyCheckTimeout bounds the consistency-check action (including its
// retry-after-repair loop).
const consistencyCheckTimeout = 20000 * time.Second

// consistencyCheckSoftTimeLimit is how long the retry loop tries before
// escalating to failureIsError=true on its final attempt.
const consistencyCheckSoftTimeLimit = 18000 * time.Second

// defaultReplyWindow bounds how long the controller waits for a single
// tester's reply to one phase request before treating that tester as failed
// for this phase. Production deployments use 60s; long-running
// simulation-style runs can set a larger window (e.g. 24h) in
// Controller.ReplyWindow.
const defaultReplyWindow = 60 * time.Second

// ClusterConfigurator is the external collaborator the ChangeConfig
// supplemented workload forwards a starting configuration string to. Cluster
// configuration itself stays out of this repository's scope (spec.md §1);
// this interface only lets the controller run it as an ordinary bounded
// action.
type ClusterConfigurator interface {
	ChangeConfiguration(ctx *harnesscontext.Context, configuration string) error
}

// RepairController is the external collaborator invoked between consistency
// check retries, mirroring the original harness's repairDeadDatacenter step.
type RepairController interface {
	RepairDeadDatacenter(ctx *harnesscontext.Context, reason string) error
}

// ConsistencyChecker runs one consistency-check pass against the fleet and
// reports whether it passed.
type ConsistencyChecker interface {
	CheckConsistency(ctx *harnesscontext.Context, testers []TesterHandle, quiescent bool, failureIsError bool) (bool, error)
}

// QuiescenceWaiter blocks until the database reports a quiet state, or ctx is
// cancelled (e.g. by a liveness failure racing it).
type QuiescenceWaiter interface {
	WaitForQuiescence(ctx *harnesscontext.Context) error
}

// DatabaseDumper renders the database's current contents to a report, used
// by TestSpec.DumpAfterTest.
type DatabaseDumper interface {
	DumpToFile(ctx *harnesscontext.Context, path string) error
}

// Controller coordinates one run's worth of tests against a fleet of
// testers. Every collaborator is optional except Locator and Dialer: nil
// collaborators make their corresponding TestSpec flag a no-op rather than an
// error, since spec.md treats them as interfaces the core merely consumes.
type Controller struct {
	Locator      dbclient.ClusterLocator
	Dialer       Dialer
	Database     dbclient.Database
	Configurator ClusterConfigurator
	Repairer     RepairController
	Consistency  ConsistencyChecker
	Quiescence   QuiescenceWaiter
	Dumper       DatabaseDumper

	MinTestersExpected int
	ReplyWindow        time.Duration
}

func (c *Controller) replyWindow() time.Duration {
	if c.ReplyWindow > 0 {
		return c.ReplyWindow
	}
	return defaultReplyWindow
}

// Recruit polls the cluster locator until at least MinTestersExpected
// endpoints are available, then dials each one. It re-queries the locator
// once per second until recruitTimeout elapses.
func (c *Controller) Recruit(ctx *harnesscontext.Context) ([]TesterHandle, error) {
	deadline := time.Now().Add(recruitTimeout)

	for {
		endpoints, err := c.Locator.TesterEndpoints(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "querying tester endpoints")
		}
		if len(endpoints) >= c.MinTestersExpected {
			handles := make([]TesterHandle, 0, len(endpoints))
			for _, ep := range endpoints {
				h, err := c.Dialer.Dial(ctx, ep)
				if err != nil {
					return nil, errors.Wrapf(err, "dialing tester %s", ep)
				}
				handles = append(handles, h)
			}
			return handles, nil
		}

		if time.Now().After(deadline) {
			return nil, harnesserr.Timeout("recruit: fewer than MinTestersExpected testers became available")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// phaseResult is one tester's outcome for a single phase call.
type phaseResult struct {
	tester TesterHandle
	err    error
}

// fanOutPhase issues call to every tester concurrently, giving each at most
// c.replyWindow() to reply. A tester that doesn't reply in time is recorded
// as failed for this phase but does not block or cancel the others.
func (c *Controller) fanOutPhase(ctx *harnesscontext.Context, testers []TesterHandle, call func(*harnesscontext.Context, TesterHandle) error) []phaseResult {
	results := make([]phaseResult, len(testers))
	group, groupCtx := harnesscontext.ErrGroup(ctx)

	for i, th := range testers {
		i, th := i, th
		group.Go(func() error {
			windowCtx, cancel := harnesscontext.WithTimeout(groupCtx, c.replyWindow())
			defer cancel()
			results[i] = phaseResult{tester: th, err: call(windowCtx, th)}
			return nil // per-tester failures never abort the group; see fanOutPhase doc.
		})
	}
	_ = group.Wait()
	return results
}

// firstFailure collects every non-nil error across results, each wrapped with
// its tester's ID, into one go-multierror error (even when only one tester
// failed), or returns nil if every result succeeded.
func firstFailure(results []phaseResult) error {
	var merr *multierror.Error
	for _, r := range results {
		if r.err != nil {
			merr = multierror.Append(merr, errors.Wrapf(r.err, "tester %s", r.tester.ID()))
		}
	}
	if merr == nil {
		return nil
	}
	return merr.ErrorOrNil()
}

// RunSpec drives one TestSpec's core phase fan-out against already-recruited
// testers: dispatch, phase-by-phase execution, CHECK aggregation, and METRICS
// reduction. It does not run the surrounding between-test actions (starting
// configuration, quiescence, consistency check, clear) — see RunTest for
// that shell.
func (c *Controller) RunSpec(ctx *harnesscontext.Context, s *spec.TestSpec, testers []TesterHandle) (*TestResult, error) {
	sharedRandom := rand64.Uint64()

	setupErr := c.dispatch(ctx, s, testers, sharedRandom)
	if setupErr != nil {
		return nil, setupErr
	}

	if s.HasPhase(spec.PhaseSetup) {
		if err := firstFailure(c.fanOutPhase(ctx, testers, func(pctx *harnesscontext.Context, th TesterHandle) error {
			return th.Setup(pctx)
		})); err != nil {
			return nil, errors.Wrap(err, "setup phase")
		}
	}

	if s.HasPhase(spec.PhaseExecution) {
		if err := firstFailure(c.fanOutPhase(ctx, testers, func(pctx *harnesscontext.Context, th TesterHandle) error {
			return th.Start(pctx)
		})); err != nil {
			return nil, errors.Wrap(err, "start phase")
		}
	}

	result := &TestResult{Title: s.Title}
	if s.HasPhase(spec.PhaseCheck) {
		checkOK := make([]bool, len(testers))
		checkErrs := make([]phaseResult, len(testers))
		group, groupCtx := harnesscontext.ErrGroup(ctx)
		for i, th := range testers {
			i, th := i, th
			group.Go(func() error {
				windowCtx, cancel := harnesscontext.WithTimeout(groupCtx, c.replyWindow())
				defer cancel()
				ok, err := th.Check(windowCtx)
				checkOK[i] = ok
				checkErrs[i] = phaseResult{tester: th, err: err}
				return nil
			})
		}
		_ = group.Wait()

		// An RPC-level Check failure (timeout, transport error) is fatal for
		// the whole test, the same as Setup/Start: it aborts before METRICS
		// rather than being folded into a tester's Passed=false outcome.
		if err := firstFailure(checkErrs); err != nil {
			return nil, errors.Wrap(err, "check phase")
		}

		for i, th := range testers {
			outcome := TestOutcome{TesterID: th.ID(), Passed: checkOK[i]}
			result.Outcomes = append(result.Outcomes, outcome)
			if outcome.Passed {
				result.Successes++
			} else {
				result.Failures++
			}
		}
		result.Passed = result.Failures == 0
	} else {
		result.Passed = true
	}

	if s.UseDB && s.HasPhase(spec.PhaseExecution) {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(postCheckSettleDelay):
		}
	}

	if s.HasPhase(spec.PhaseMetrics) {
		perTester := make([][]metrics.PerfMetric, 0, len(testers))
		for _, th := range testers {
			m, err := th.Metrics(ctx)
			if err != nil {
				continue // a tester that can't report metrics contributes nothing, per §4.2's snapshot contract.
			}
			perTester = append(perTester, m)
		}
		result.Metrics = append(metrics.Aggregate(perTester), metrics.PerfMetric{
			Name:  "Reporting Clients",
			Value: float64(len(testers)),
		})
	}

	for _, th := range testers {
		th.Stop(ctx) // fire-and-forget, per spec.md §4.6 step 7.
	}

	return result, nil
}

// dispatch sends one WorkloadRequest per tester with ascending ClientIDs and
// a shared random number drawn once for the whole test. Every tester gets
// the same Options list, since a compound TestSpec runs every one of its
// workloads on every client (see WorkloadRequest's doc comment); only
// ClientID/ClientCount differ per tester. Like the phase fan-outs, every
// tester is given a chance to reply before any single failure aborts the
// run.
func (c *Controller) dispatch(ctx *harnesscontext.Context, s *spec.TestSpec, testers []TesterHandle, sharedRandom uint64) error {
	requests := make([]WorkloadRequest, len(testers))
	for i := range testers {
		requests[i] = WorkloadRequest{
			Title:              s.Title,
			Options:            s.Options,
			UseDB:              s.UseDB,
			Timeout:            s.Timeout,
			DatabasePingDelay:  s.DatabasePingDelay,
			ClientID:           i,
			ClientCount:        len(testers),
			SharedRandomNumber: sharedRandom,
		}
	}

	results := make([]phaseResult, len(testers))
	group, groupCtx := harnesscontext.ErrGroup(ctx)
	for i, th := range testers {
		i, th := i, th
		group.Go(func() error {
			windowCtx, cancel := harnesscontext.WithTimeout(groupCtx, c.replyWindow())
			defer cancel()
			results[i] = phaseResult{tester: th, err: th.Assign(windowCtx, requests[i])}
			return nil
		})
	}
	_ = group.Wait()
	return firstFailure(results)
}
