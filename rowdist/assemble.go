package rowdist

import (
	"fmt"
	"slices"

	"github.com/rowsplit/mpi/matrix"
)

// Block is one rank's rows of a matrix together with where they belong.
// Rows may be nil when the range is empty.
type Block struct {
	Range RowRange
	Rows  *matrix.Dense
}

// Assemble builds the full matrix with cols columns from blocks. The
// ranges must tile [0, n) exactly, in any order; each block must have as
// many rows as its range and cols columns.
func Assemble(cols int, blocks []Block) (*matrix.Dense, error) {
	sorted := slices.Clone(blocks)
	slices.SortStableFunc(sorted, func(a, b Block) int { return a.Range.Start - b.Range.Start })

	next := 0
	for _, b := range sorted {
		if b.Range.Start != next || b.Range.Count < 0 {
			return nil, fmt.Errorf("%w: block %v does not continue at row %d", ErrPartitionDegenerate, b.Range, next)
		}
		next = b.Range.End()
		if b.Rows == nil {
			if !b.Range.Empty() {
				return nil, fmt.Errorf("%w: block %v has no rows", ErrDimensionMismatch, b.Range)
			}
			continue
		}
		if r, c := b.Rows.Dims(); r != b.Range.Count || c != cols {
			return nil, fmt.Errorf("%w: block %v is %d×%d, want %d×%d", ErrDimensionMismatch, b.Range, r, c, b.Range.Count, cols)
		}
	}

	out, err := matrix.New(next, cols)
	if err != nil {
		return nil, err
	}
	for _, b := range sorted {
		if b.Range.Empty() {
			continue
		}
		if err := out.SetRows(b.Range.Start, b.Rows); err != nil {
			return nil, err
		}
	}
	return out, nil
}
