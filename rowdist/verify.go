package rowdist

import (
	"errors"
	"fmt"

	"github.com/rowsplit/mpi/matrix"
)

// ErrToleranceFailure reports a distributed product that differs from the
// reference product by more than the tolerance.
var ErrToleranceFailure = errors.New("rowdist: result differs from reference")

// Verification is Root's comparison of a distributed product against the
// serial reference.
type Verification struct {
	Size       int
	Procs      int
	MaxAbsDiff float64
	Passed     bool
}

// Verify multiplies two size×size matrices drawn from seed on Root, both
// with Multiply and with the gonum reference, and compares them with
// matrix.Float64Tol as relative and absolute tolerance. Root returns the
// Verification, with an ErrToleranceFailure if it did not pass. Other
// ranks return nil.
func Verify(t Transport, size int, seed int64) (*Verification, error) {
	if _, err := Plan(size, t.Context().Size); err != nil {
		return nil, err
	}
	var a, b *matrix.Dense
	if t.Context().IsRoot() {
		var err error
		if a, b, err = matrix.RandomPair(size, seed); err != nil {
			return nil, err
		}
	}
	return VerifyMatrices(t, size, a, b)
}

// VerifyMatrices is Verify for fixed inputs held by Root.
func VerifyMatrices(t Transport, totalRows int, a, b *matrix.Dense) (*Verification, error) {
	got, err := Multiply(t, totalRows, a, b)
	if err != nil || !t.Context().IsRoot() {
		return nil, err
	}
	want, err := matrix.Reference(a, b)
	if err != nil {
		return nil, err
	}
	ok, err := matrix.AllClose(got, want, matrix.Float64Tol, matrix.Float64Tol)
	if err != nil {
		return nil, err
	}
	diff, err := matrix.MaxAbsDiff(got, want)
	if err != nil {
		return nil, err
	}
	v := &Verification{
		Size:       totalRows,
		Procs:      t.Context().Size,
		MaxAbsDiff: diff,
		Passed:     ok,
	}
	if !ok {
		return v, fmt.Errorf("%w: maximum difference %g", ErrToleranceFailure, diff)
	}
	return v, nil
}
