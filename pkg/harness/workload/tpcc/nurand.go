package tpcc

import "math/rand"

// syllables is the standard TPC-C C-Last name generation table: three lookups
// by digit position are concatenated to produce one of 1000 deterministic
// surnames.
var syllables = [10]string{"BAR", "OUGHT", "ABLE", "PRI", "PRES", "ESE", "ANTI", "CALLY", "ATION", "EING"}

// nuRand implements the non-uniform random function from the TPC-C spec:
// (((random(0,a) | random(x,y)) + c) % (y-x+1)) + x.
func nuRand(r *rand.Rand, c, a, x, y int) int {
	r1 := r.Intn(a + 1)
	r2 := x + r.Intn(y-x+1)
	return (((r1 | r2) + c) % (y - x + 1)) + x
}

// genCLast renders x (taken mod 1000) as a three-syllable surname.
func genCLast(x int) string {
	x = x % 1000
	f := x / 100
	m := (x / 10) % 10
	l := x % 10
	return syllables[f] + syllables[m] + syllables[l]
}

// pickCustomerID draws a customer ID for the given warehouse/district using
// the TPC-C customer-selection NURand constant (1023, 1, customersPerDistrict).
func pickCustomerID(r *rand.Rand) int {
	return nuRand(r, 1023, 1023, 1, customersPerDistrict)
}

// pickCustomerLastName draws a surname for customer lookups that go by name
// rather than by ID, using the NURand(255,0,999) constant from the spec.
func pickCustomerLastName(r *rand.Rand) string {
	return genCLast(nuRand(r, 255, 255, 0, 999))
}

// pickItemID draws an item ID using the NURand(8191,1,itemsPerWarehouse) item
// -selection constant.
func pickItemID(r *rand.Rand) int {
	return nuRand(r, 8191, 8191, 1, itemsPerWarehouse)
}
