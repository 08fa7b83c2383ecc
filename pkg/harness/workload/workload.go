// Package workload defines the Workload interface every benchmark/validation
// workload implements, the per-instance Context a factory constructor
// receives, the name→constructor registry, and CompoundWorkload, which fans a
// single tester's four lifecycle phases out to more than one child workload
// when a test spec names more than one.
package workload

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dbtestharness/dbtestharness/pkg/harness/dbclient"
	"github.com/dbtestharness/dbtestharness/pkg/harness/harnesserr"
	"github.com/dbtestharness/dbtestharness/pkg/harness/metrics"
	"github.com/dbtestharness/dbtestharness/pkg/harness/spec"
)

// DefaultCheckTimeout is a workload's check-phase deadline when it does not
// override GetCheckTimeout.
const DefaultCheckTimeout int64 = 3000 * 1000 // milliseconds; see GetCheckTimeout doc.

// Context is passed by value into every workload constructor. ClientID is in
// [0, ClientCount). SharedRandomNumber is identical across every client of the
// same test, letting clients deterministically partition shared work (e.g.
// TPC-C's warehouse assignment) without coordinating at runtime.
type Context struct {
	ClientID           int
	ClientCount        int
	SharedRandomNumber uint64
	Options            *spec.OptionBlock
}

// Workload is the four-phase contract every workload implements. Setup is
// idempotent preparation called at most once per test; Start is the workload
// body and may spawn its own concurrent clients; Check verifies the outcome
// and is bounded by GetCheckTimeout; GetMetrics takes a pure snapshot with no
// side effects.
type Workload interface {
	Description() string
	Setup(ctx context.Context, db dbclient.Database) error
	Start(ctx context.Context, db dbclient.Database) error
	Check(ctx context.Context, db dbclient.Database) (bool, error)
	GetMetrics() []metrics.PerfMetric

	// GetCheckTimeout returns the Check phase's deadline in milliseconds.
	// Workloads that don't need a custom value can embed DefaultWorkload to
	// get DefaultCheckTimeout for free.
	GetCheckTimeout() int64
}

// DataDistributionController is the external collaborator the controller
// forwards the run-wide enableDD flag (controller.RunOptions.EnableDD) to.
// Its production semantics are outside this
// harness's scope (see DESIGN.md's Open Question decisions); a nil or
// no-op implementation is always valid.
type DataDistributionController interface {
	SetDataDistributionEnabled(ctx context.Context, enabled bool) error
}

// DefaultWorkload can be embedded by workloads that don't need a custom
// check timeout.
type DefaultWorkload struct{}

// GetCheckTimeout implements Workload with the spec's default.
func (DefaultWorkload) GetCheckTimeout() int64 { return DefaultCheckTimeout }

// Constructor builds a Workload from a Context. Registered constructors must
// read every option they recognise via ctx.Options' Get* methods so Create
// can report the ones they don't.
type Constructor func(ctx Context) (Workload, error)

var registry = map[string]Constructor{}

// Register adds name to the process-wide workload registry. Called from
// package init() functions; registering the same name twice panics, matching
// the teacher's fail-fast static-registration idiom for anything wired up at
// init time rather than failing quietly at first use.
func Register(name string, ctor Constructor) {
	if _, exists := registry[name]; exists {
		panic("workload: duplicate registration for " + name)
	}
	registry[name] = ctor
}

// Create looks up name in the registry and constructs a Workload from ctx,
// then checks that every option in ctx.Options was consumed by the
// constructor. An unknown name or any leftover option is TestSpecInvalid.
func Create(name string, ctx Context) (Workload, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, harnesserr.Invalid("unknown workload: " + name)
	}
	w, err := ctor(ctx)
	if err != nil {
		return nil, err
	}
	if unconsumed := ctx.Options.Unconsumed(); len(unconsumed) > 0 {
		msg := "workload " + name + " has unrecognized options:"
		for _, o := range unconsumed {
			msg += " " + o.Key + "=" + o.Value
		}
		return nil, harnesserr.Invalid(msg)
	}
	return w, nil
}

// CreateFromSpec builds one Workload per option block in s, returning either
// the single workload directly or, when s names more than one, a
// CompoundWorkload wrapping all of them.
func CreateFromSpec(s *spec.TestSpec, base Context) (Workload, error) {
	if len(s.Options) == 0 {
		return nil, harnesserr.Invalid("test spec " + s.Title + " has no workloads")
	}
	return CreateFromOptions(s.Options, base)
}

// CreateFromOptions builds one Workload per block in options, returning
// either the single workload directly or, when more than one block is
// given, a CompoundWorkload wrapping all of them. Every block is built
// against the same base Context (ClientID, ClientCount, SharedRandomNumber),
// since a compound test runs every one of its workloads on every client —
// see controller.WorkloadRequest's doc comment for why this differs from
// splitting blocks across clients.
func CreateFromOptions(options []*spec.OptionBlock, base Context) (Workload, error) {
	workloads := make([]Workload, 0, len(options))
	for _, block := range options {
		name, ok := block.Get("testName")
		if !ok {
			return nil, harnesserr.Invalid("workload block missing testName")
		}
		ctx := base
		ctx.Options = block
		w, err := Create(name, ctx)
		if err != nil {
			return nil, err
		}
		workloads = append(workloads, w)
	}

	if len(workloads) == 1 {
		return workloads[0], nil
	}
	return NewCompoundWorkload(workloads), nil
}

// CompoundWorkload fans each phase out to every child workload concurrently
// and waits for all of them. It is constructed whenever a test spec names
// more than one workload.
type CompoundWorkload struct {
	children []Workload
}

// NewCompoundWorkload wraps children as a single Workload.
func NewCompoundWorkload(children []Workload) *CompoundWorkload {
	return &CompoundWorkload{children: children}
}

// Description joins every child's description with ";".
func (c *CompoundWorkload) Description() string {
	out := ""
	for i, w := range c.children {
		out += w.Description()
		if i != len(c.children)-1 {
			out += ";"
		}
	}
	return out
}

func (c *CompoundWorkload) fanOut(ctx context.Context, fn func(context.Context, Workload) error) error {
	group, groupCtx := errgroup.WithContext(ctx)
	for _, child := range c.children {
		child := child
		group.Go(func() error {
			return fn(groupCtx, child)
		})
	}
	return group.Wait()
}

// Setup runs every child's Setup concurrently.
func (c *CompoundWorkload) Setup(ctx context.Context, db dbclient.Database) error {
	return c.fanOut(ctx, func(ctx context.Context, w Workload) error {
		return w.Setup(ctx, db)
	})
}

// Start runs every child's Start concurrently.
func (c *CompoundWorkload) Start(ctx context.Context, db dbclient.Database) error {
	return c.fanOut(ctx, func(ctx context.Context, w Workload) error {
		return w.Start(ctx, db)
	})
}

// Check runs every child's Check concurrently; the compound result is true
// only if every child's check passed. The first child error encountered is
// returned, matching the teacher's errgroup fail-fast convention.
func (c *CompoundWorkload) Check(ctx context.Context, db dbclient.Database) (bool, error) {
	results := make([]bool, len(c.children))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, child := range c.children {
		i, child := i, child
		group.Go(func() error {
			ok, err := child.Check(groupCtx, db)
			results[i] = ok
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return false, err
	}
	for _, ok := range results {
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// GetMetrics concatenates every child's metrics with its description as a
// name prefix.
func (c *CompoundWorkload) GetMetrics() []metrics.PerfMetric {
	var out []metrics.PerfMetric
	for _, w := range c.children {
		out = append(out, metrics.Prefix(w.Description(), w.GetMetrics())...)
	}
	return out
}

// GetCheckTimeout returns the maximum of every child's check timeout.
func (c *CompoundWorkload) GetCheckTimeout() int64 {
	var max int64
	for _, w := range c.children {
		if t := w.GetCheckTimeout(); t > max {
			max = t
		}
	}
	return max
}
