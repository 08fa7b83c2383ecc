// Package metrics implements the harness's metric model: the PerfMetric value
// workloads emit, the controller's cross-tester reduction of those values, and
// a reservoir sampler workloads use to keep a bounded, uniformly-sampled view
// of an unbounded latency stream.
package metrics

import "sort"

// PerfMetric is one named measurement a workload reports back from its
// metrics phase. Averaged marks a rate/ratio value that should be divided by
// the sample count when reduced across testers, rather than summed.
// FormatCode is a printf-style format string (e.g. "%.2f") carried through to
// the report without being interpreted by this package.
type PerfMetric struct {
	Name       string
	Value      float64
	Averaged   bool
	FormatCode string
}

// Aggregate reduces a set of per-tester PerfMetric slices into one PerfMetric
// per distinct name. Metrics are grouped by Name in the order each name is
// first seen; a group's value is the sum of its members' values, divided by
// the group's size if that group's first sample is Averaged. The group's
// FormatCode is taken from its first sample.
func Aggregate(perTester [][]PerfMetric) []PerfMetric {
	var order []string
	sums := map[string]float64{}
	counts := map[string]int{}
	first := map[string]PerfMetric{}

	for _, sample := range perTester {
		for _, m := range sample {
			if _, seen := first[m.Name]; !seen {
				first[m.Name] = m
				order = append(order, m.Name)
			}
			sums[m.Name] += m.Value
			counts[m.Name]++
		}
	}

	out := make([]PerfMetric, 0, len(order))
	for _, name := range order {
		f := first[name]
		value := sums[name]
		if f.Averaged {
			value /= float64(counts[name])
		}
		out = append(out, PerfMetric{
			Name:       name,
			Value:      value,
			Averaged:   f.Averaged,
			FormatCode: f.FormatCode,
		})
	}
	return out
}

// Prefix returns a copy of metrics with each Name prefixed by prefix + ".",
// used by compound workloads to namespace each child's metrics.
func Prefix(prefix string, in []PerfMetric) []PerfMetric {
	out := make([]PerfMetric, len(in))
	for i, m := range in {
		m.Name = prefix + "." + m.Name
		out[i] = m
	}
	return out
}

// Reservoir keeps a fixed-capacity, uniformly-sampled subset of an unbounded
// stream of latency observations: the first Capacity observations fill the
// reservoir in order; every later observation replaces a uniformly random
// slot with probability Capacity/n. This is the same algorithm TPC-C's
// original metrics struct uses, generalized to any workload that wants
// median/p90/p99 without storing the full observation stream.
type Reservoir struct {
	capacity int
	rng      func(n int) int

	count  int64
	values []float64
}

// NewReservoir creates a Reservoir with the given capacity. rng must return a
// uniform value in [0, n); pass nil to use math/rand's default source via
// RandIntn.
func NewReservoir(capacity int, rng func(n int) int) *Reservoir {
	if rng == nil {
		rng = RandIntn
	}
	return &Reservoir{capacity: capacity, rng: rng}
}

// Observe records one latency sample.
func (r *Reservoir) Observe(v float64) {
	r.count++
	if int64(len(r.values)) < int64(r.capacity) {
		r.values = append(r.values, v)
		return
	}
	idx := r.rng(int(r.count))
	if idx < r.capacity {
		r.values[idx] = v
	}
}

// Count returns the total number of observations, including those evicted
// from the reservoir.
func (r *Reservoir) Count() int64 {
	return r.count
}

// Sorted returns a sorted copy of the currently retained samples.
func (r *Reservoir) Sorted() []float64 {
	out := make([]float64, len(r.values))
	copy(out, r.values)
	sort.Float64s(out)
	return out
}

// Median returns the retained median, or 0 if the reservoir is empty.
func (r *Reservoir) Median() float64 {
	return quantileAt(r.Sorted(), 0.5)
}

// P90 returns the retained 90th percentile.
func (r *Reservoir) P90() float64 {
	return quantileAt(r.Sorted(), 0.9)
}

// P99 returns the retained 99th percentile.
func (r *Reservoir) P99() float64 {
	return quantileAt(r.Sorted(), 0.99)
}

func quantileAt(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
