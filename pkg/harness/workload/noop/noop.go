// Package noop registers the "Noop" workload: setup and start succeed
// trivially, check always passes, and no metrics are reported. It exists to
// exercise the controller and per-tester runner against a spec with no
// database semantics of its own, matching the harness's simplest testable
// property (a single spec naming Noop should pass with one test and no
// failures).
package noop

import (
	"context"

	"github.com/dbtestharness/dbtestharness/pkg/harness/dbclient"
	"github.com/dbtestharness/dbtestharness/pkg/harness/metrics"
	"github.com/dbtestharness/dbtestharness/pkg/harness/workload"
)

func init() {
	workload.Register("Noop", New)
}

type noopWorkload struct {
	workload.DefaultWorkload
}

// New constructs the Noop workload. It takes no options.
func New(ctx workload.Context) (workload.Workload, error) {
	return &noopWorkload{}, nil
}

func (w *noopWorkload) Description() string { return "Noop" }

func (w *noopWorkload) Setup(ctx context.Context, db dbclient.Database) error { return nil }

func (w *noopWorkload) Start(ctx context.Context, db dbclient.Database) error { return nil }

func (w *noopWorkload) Check(ctx context.Context, db dbclient.Database) (bool, error) {
	return true, nil
}

func (w *noopWorkload) GetMetrics() []metrics.PerfMetric { return nil }
