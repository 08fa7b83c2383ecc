// Package rand64 draws the uniform 64-bit values the controller shares across
// every client of a test (sharedRandomNumber) so clients can deterministically
// partition work without coordinating at runtime.
package rand64

import "math/rand"

// Uint64 returns a uniform draw from the full uint64 range.
func Uint64() uint64 {
	return rand.Uint64()
}
