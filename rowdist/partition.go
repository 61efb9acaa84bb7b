// Package rowdist multiplies C = A·B across the ranks of an mpi group by
// splitting A into contiguous row blocks, one per rank.
//
// Every rank runs Multiply with the same arguments. Root holds A and B,
// broadcasts B, sends each rank its block of A, multiplies its own block,
// and gathers the blocks of C back in row order. The other ranks receive
// their block, multiply it, and send it back. Only Root returns the
// product.
package rowdist

import (
	"errors"
	"fmt"
)

// ErrPartitionDegenerate is returned for configurations no partition can
// be built for: no processes, or a negative number of rows. Every rank
// detects it identically before communicating.
var ErrPartitionDegenerate = errors.New("rowdist: degenerate partition")

// RowRange is a contiguous run of Count rows starting at Start.
type RowRange struct {
	Start int
	Count int
}

// End returns the row just past the range.
func (r RowRange) End() int { return r.Start + r.Count }

// Empty reports whether the range holds no rows. A rank with an empty
// range takes part in broadcasts and barriers but sends and receives no
// blocks; both sides of every transfer test this same condition.
func (r RowRange) Empty() bool { return r.Count == 0 }

func (r RowRange) String() string {
	if r.Empty() {
		return fmt.Sprintf("[%d, empty]", r.Start)
	}
	return fmt.Sprintf("[%d-%d]", r.Start, r.End()-1)
}

// Plan returns the row range of every rank 0..worldSize-1 for a matrix of
// totalRows rows. With base = totalRows/worldSize and rem =
// totalRows%worldSize, ranks below rem get base+1 rows and the rest get
// base, laid out in rank order. When totalRows < worldSize the trailing
// ranks get empty ranges.
func Plan(totalRows, worldSize int) ([]RowRange, error) {
	if err := checkConfig(totalRows, worldSize); err != nil {
		return nil, err
	}
	ranges := make([]RowRange, worldSize)
	for r := range ranges {
		ranges[r] = rangeOf(totalRows, worldSize, r)
	}
	return ranges, nil
}

// RangeOf returns the range of a single rank, equal to Plan(...)[rank],
// without building the whole table.
func RangeOf(totalRows, worldSize, rank int) (RowRange, error) {
	if err := checkConfig(totalRows, worldSize); err != nil {
		return RowRange{}, err
	}
	if rank < 0 || rank >= worldSize {
		return RowRange{}, fmt.Errorf("%w: rank %d of %d", ErrPartitionDegenerate, rank, worldSize)
	}
	return rangeOf(totalRows, worldSize, rank), nil
}

func checkConfig(totalRows, worldSize int) error {
	if worldSize <= 0 {
		return fmt.Errorf("%w: world size %d", ErrPartitionDegenerate, worldSize)
	}
	if totalRows < 0 {
		return fmt.Errorf("%w: %d rows", ErrPartitionDegenerate, totalRows)
	}
	return nil
}

func rangeOf(totalRows, worldSize, rank int) RowRange {
	base := totalRows / worldSize
	rem := totalRows % worldSize
	if rank < rem {
		return RowRange{Start: rank * (base + 1), Count: base + 1}
	}
	return RowRange{Start: rem*(base+1) + (rank-rem)*base, Count: base}
}
