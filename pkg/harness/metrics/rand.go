package metrics

import "math/rand"

// RandIntn is the default reservoir index source: a uniform draw in [0, n)
// from the package-global math/rand source. Workloads that need determinism
// across runs should construct a Reservoir with their own seeded *rand.Rand's
// Intn method instead.
func RandIntn(n int) int {
	return rand.Intn(n)
}
