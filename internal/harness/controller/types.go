package controller

import (
	"context"
	"time"

	"github.com/dbtestharness/dbtestharness/pkg/harness/metrics"
	"github.com/dbtestharness/dbtestharness/pkg/harness/spec"
)

// WorkloadRequest is what the controller sends every tester to instantiate
// its workload for one test. Options carries the full, identical list of
// option blocks named by the TestSpec: one block means a single workload,
// more than one means every tester builds the same CompoundWorkload (see
// pkg/harness/workload.CreateFromSpec) — it is not a per-tester split. The
// meta fields are the ones a workload constructor never sees directly but
// the runner and liveness prober need.
type WorkloadRequest struct {
	Title              string
	Options            []*spec.OptionBlock
	UseDB              bool
	Timeout            time.Duration
	DatabasePingDelay  time.Duration
	ClientID           int
	ClientCount        int
	SharedRandomNumber uint64
}

// TesterHandle is the controller's view of one recruited tester: a
// WorkloadInterface reached over whatever transport internal/harness/harnessrpc
// provides. Every method may return an error if the tester is unreachable;
// the controller treats that the same way as a phase failure for that tester.
type TesterHandle interface {
	ID() string

	// Assign sends req and waits for the tester to construct its workload and
	// announce readiness. It is not itself one of the four lifecycle phases.
	Assign(ctx context.Context, req WorkloadRequest) error

	Setup(ctx context.Context) error
	Start(ctx context.Context) error
	Check(ctx context.Context) (bool, error)
	Metrics(ctx context.Context) ([]metrics.PerfMetric, error)
	Stop(ctx context.Context)
}

// Dialer resolves a tester endpoint (as returned by dbclient.ClusterLocator)
// into a live TesterHandle.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (TesterHandle, error)
}

// TestOutcome is one tester's contribution to a test's verdict.
type TestOutcome struct {
	TesterID string
	Passed   bool
	Err      error
}

// TestResult is the controller's full verdict for one TestSpec.
type TestResult struct {
	Title      string
	Passed     bool
	Successes  int
	Failures   int
	Outcomes   []TestOutcome
	Metrics    []metrics.PerfMetric
}
