package controller

import (
	"context"
	"math/rand"
	"time"

	"github.com/oklog/ulid"
	"github.com/pkg/errors"

	"github.com/dbtestharness/dbtestharness/internal/harness/harnesscontext"
	"github.com/dbtestharness/dbtestharness/pkg/harness/dbclient"
	"github.com/dbtestharness/dbtestharness/pkg/harness/harnesserr"
	"github.com/dbtestharness/dbtestharness/pkg/harness/spec"
	"github.com/dbtestharness/dbtestharness/pkg/harness/workload"
)

// RunOptions carries the run-wide settings that surround every individual
// TestSpec: the starting configuration applied once before the first test,
// and EnableDD, a run-wide flag (cmd/dbtestharness takes it from the harness
// config's enableDD) forwarded once, before the first test, to DDController
// when one is set (see DESIGN.md's Open Question decision).
type RunOptions struct {
	StartingConfiguration string
	EnableDD              bool
	DDController          workload.DataDistributionController
}

// RunTest runs the full between-test shell around RunSpec for one TestSpec:
// starting configuration (first test only), quiescence wait, the core phase
// fan-out, the post-test settle/dump/consistency-check/clear actions.
func (c *Controller) RunTest(ctx *harnesscontext.Context, s *spec.TestSpec, testers []TesterHandle, isFirstTest bool, opts RunOptions) (*TestResult, error) {
	if isFirstTest && opts.StartingConfiguration != "" && c.Configurator != nil {
		cfgCtx, cancel := harnesscontext.WithTimeout(ctx, changeConfigTimeout)
		err := c.Configurator.ChangeConfiguration(cfgCtx, opts.StartingConfiguration)
		cancel()
		if err != nil {
			return nil, errors.Wrap(err, "applying starting configuration")
		}
	}

	if isFirstTest && opts.DDController != nil {
		if err := opts.DDController.SetDataDistributionEnabled(ctx, opts.EnableDD); err != nil {
			return nil, errors.Wrap(err, "forwarding enableDD")
		}
	}

	if s.WaitForQuiescenceBegin && c.Quiescence != nil {
		if err := c.Quiescence.WaitForQuiescence(ctx); err != nil {
			return nil, errors.Wrap(err, "waiting for quiescence before test")
		}
	}

	testCtx := ctx
	if s.Timeout > 0 {
		var cancel func()
		testCtx, cancel = harnesscontext.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	result, err := c.RunSpec(testCtx, s, testers)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Wrapf(err, "test %s timed out after %s", s.Title, s.Timeout)
		}
		return nil, err
	}

	if s.DumpAfterTest && c.Dumper != nil {
		dumpCtx, dumpCancel := harnesscontext.WithTimeout(ctx, 30*time.Second)
		_ = c.Dumper.DumpToFile(dumpCtx, dumpFilename(s.Title))
		dumpCancel()
	}

	if s.RunConsistencyCheck && c.Consistency != nil {
		if err := c.runConsistencyCheckLoop(ctx, s, testers); err != nil {
			result.Passed = false
			return result, errors.Wrap(err, "consistency check")
		}
	}

	if s.UseDB && s.ClearAfterTest && c.Database != nil {
		clearCtx, clearCancel := harnesscontext.WithTimeout(ctx, clearAfterTestTimeout)
		err := clearDatabase(clearCtx, c.Database)
		clearCancel()
		if err != nil {
			return result, errors.Wrap(err, "clearing database after test")
		}
	}

	return result, nil
}

// runConsistencyCheckLoop retries a consistency check, invoking the repairer
// between attempts, escalating to failureIsError on the final attempt once
// consistencyCheckSoftTimeLimit has elapsed.
func (c *Controller) runConsistencyCheckLoop(ctx *harnesscontext.Context, s *spec.TestSpec, testers []TesterHandle) error {
	checkCtx, cancel := harnesscontext.WithTimeout(ctx, consistencyCheckTimeout)
	defer cancel()

	start := time.Now()
	for {
		failureIsError := time.Since(start) > consistencyCheckSoftTimeLimit
		ok, err := c.Consistency.CheckConsistency(checkCtx, testers, s.WaitForQuiescenceEnd, failureIsError)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if failureIsError {
			return harnesserr.Failed(nil, "consistency check failed on final attempt")
		}
		if c.Repairer != nil {
			if err := c.Repairer.RepairDeadDatacenter(checkCtx, "ConsistencyCheck"); err != nil {
				return errors.Wrap(err, "repairing before consistency check retry")
			}
		}
	}
}

// dumpFilename builds a monotonic, sortable dump filename so repeated
// DumpAfterTest runs against the same test title never collide.
func dumpFilename(title string) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return "dump-" + title + "-" + id.String() + ".html"
}

// clearDatabase issues one transaction that clears the key range
// [0x00, 0xFF) and commits, bounded by the caller's ctx. The transaction
// reads nothing, so it is not made self-conflicting.
func clearDatabase(ctx *harnesscontext.Context, db dbclient.Database) error {
	txn, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	txn.ClearRange(ctx, []byte{0x00}, []byte{0xFF})
	return txn.Commit(ctx)
}
