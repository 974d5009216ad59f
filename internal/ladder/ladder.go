// Package ladder generates the inverse-temperature ladder assigned to the
// sampling chains for parallel tempering.
package ladder

import "math"

// Generate returns one inverse temperature (beta) per chain, geometrically
// spaced between tMin and tMax. Index 0 is the coldest chain, the last
// index the hottest; dispatch treats all chains as exchangeable, the
// ordering only matters for diagnostics.
func Generate(count int, tMin, tMax float64) []float64 {
	if count <= 0 {
		return nil
	}
	if count == 1 {
		return []float64{1 / tMin}
	}

	betas := make([]float64, count)
	ratio := math.Pow(tMax/tMin, 1/float64(count-1))
	t := tMin
	for i := range betas {
		betas[i] = 1 / t
		t *= ratio
	}
	return betas
}

// Temperatures converts a beta ladder back to temperatures.
func Temperatures(betas []float64) []float64 {
	ts := make([]float64, len(betas))
	for i, b := range betas {
		ts[i] = 1 / b
	}
	return ts
}
