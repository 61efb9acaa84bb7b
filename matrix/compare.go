package matrix

import (
	"fmt"
	"math"
)

// Tolerances used when comparing a distributed product against a reference.
const (
	Float64Tol = 1e-10
	Float32Tol = 1e-5
)

// AllClose reports whether every element satisfies
// |a - b| <= atol + rtol*|b|. Shapes must match.
func AllClose(a, b *Dense, rtol, atol float64) (bool, error) {
	if a.rows != b.rows || a.cols != b.cols {
		return false, fmt.Errorf("AllClose %d×%d with %d×%d: %w", a.rows, a.cols, b.rows, b.cols, ErrDimensionMismatch)
	}
	rtol, atol = math.Abs(rtol), math.Abs(atol)
	for i, x := range a.data {
		y := b.data[i]
		if x == y {
			continue // also covers matching infinities
		}
		if math.IsNaN(x) || math.IsNaN(y) || math.Abs(x-y) > atol+rtol*math.Abs(y) {
			return false, nil
		}
	}
	return true, nil
}

// MaxAbsDiff returns the largest |a - b| over all elements.
func MaxAbsDiff(a, b *Dense) (float64, error) {
	if a.rows != b.rows || a.cols != b.cols {
		return 0, fmt.Errorf("MaxAbsDiff %d×%d with %d×%d: %w", a.rows, a.cols, b.rows, b.cols, ErrDimensionMismatch)
	}
	var maxDiff float64
	for i, x := range a.data {
		d := math.Abs(x - b.data[i])
		if d > maxDiff || math.IsNaN(d) {
			maxDiff = d
		}
	}
	return maxDiff, nil
}
