package rowdist

import (
	"errors"
	"fmt"

	"github.com/rowsplit/mpi"
	"github.com/rowsplit/mpi/matrix"
)

// ErrDimensionMismatch is returned when A's columns do not match B's rows,
// when A does not have the declared number of rows, or when a block does
// not fit the matrix it belongs to.
var ErrDimensionMismatch = matrix.ErrDimensionMismatch

// Transport is the communication Multiply needs. *mpi.Comm implements it.
type Transport interface {
	Context() mpi.Context
	Broadcast(data any, root int) error
	Send(data any, destination, tag int) error
	Receive(data any, source, tag int) error
	Barrier() error
}

// operand is what Root broadcasts. Abort is set instead of B when Root
// finds the inputs unusable, so that no rank waits for a block that will
// never be sent.
type operand struct {
	B     *matrix.Dense
	Abort string
}

// partial is a rank's block of C on its way to Root. Err reports a failed
// local multiply, which still has to be answered so Root does not block.
type partial struct {
	C   *matrix.Dense
	Err string
}

// Multiply computes a·b across every rank of t. It must be called by every
// rank with the same totalRows. On Root, a (totalRows×k) and b (k×n) are
// the inputs and the n-column product is returned; on other ranks a and b
// are ignored and the result is nil.
func Multiply(t Transport, totalRows int, a, b *matrix.Dense) (*matrix.Dense, error) {
	ctx := t.Context()
	ranges, err := Plan(totalRows, ctx.Size)
	if err != nil {
		return nil, err
	}

	var op operand
	if ctx.IsRoot() {
		op = rootOperand(totalRows, a, b)
	}
	if err := t.Broadcast(&op, mpi.Root); err != nil {
		return nil, fmt.Errorf("rowdist: broadcast B: %w", err)
	}
	if op.Abort != "" {
		return nil, fmt.Errorf("%w: %s", ErrDimensionMismatch, op.Abort)
	}
	if op.B == nil {
		return nil, fmt.Errorf("%w: B missing from broadcast", ErrDimensionMismatch)
	}

	mpi.Logger(ctx).Debug("rowdist multiply", "rows", ranges[ctx.Rank].String())
	if ctx.IsRoot() {
		return rootPath(t, ranges, a, op.B)
	}
	return nil, workerPath(t, ranges[ctx.Rank], op.B)
}

// MultiplyRandom multiplies two size×size matrices that Root draws with
// matrix.RandomPair(size, seed).
func MultiplyRandom(t Transport, size int, seed int64) (*matrix.Dense, error) {
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
	return Multiply(t, size, a, b)
}

func rootOperand(totalRows int, a, b *matrix.Dense) operand {
	switch {
	case a == nil || b == nil:
		return operand{Abort: "root has no operands"}
	case a.Rows() != totalRows:
		return operand{Abort: fmt.Sprintf("A has %d rows, want %d", a.Rows(), totalRows)}
	case a.Cols() != b.Rows():
		return operand{Abort: fmt.Sprintf("A is %d×%d but B is %d×%d", a.Rows(), a.Cols(), b.Rows(), b.Cols())}
	}
	return operand{B: b}
}

// rootPath scatters the blocks of A, multiplies Root's own block and
// gathers and assembles C.
func rootPath(t Transport, ranges []RowRange, a, b *matrix.Dense) (*matrix.Dense, error) {
	for r := 1; r < len(ranges); r++ {
		rr := ranges[r]
		if rr.Empty() {
			continue
		}
		block, err := a.SliceRows(rr.Start, rr.Count)
		if err != nil {
			return nil, err
		}
		if err := t.Send(block, r, mpi.PhaseScatterA.Tag(r)); err != nil {
			return nil, fmt.Errorf("rowdist: scatter to %d: %w", r, err)
		}
	}

	own, err := a.SliceRows(ranges[mpi.Root].Start, ranges[mpi.Root].Count)
	if err != nil {
		return nil, err
	}
	local, err := matrix.Multiply(own, b)
	if err != nil {
		return nil, err
	}

	blocks := make([]Block, len(ranges))
	blocks[mpi.Root] = Block{Range: ranges[mpi.Root], Rows: local}
	var errs []error
	for r := 1; r < len(ranges); r++ {
		rr := ranges[r]
		blocks[r] = Block{Range: rr}
		if rr.Empty() {
			continue
		}
		var p partial
		if err := t.Receive(&p, r, mpi.PhaseGatherC.Tag(r)); err != nil {
			return nil, fmt.Errorf("rowdist: gather from %d: %w", r, err)
		}
		if p.Err != "" {
			errs = append(errs, fmt.Errorf("%w: rank %d: %s", ErrDimensionMismatch, r, p.Err))
			continue
		}
		blocks[r].Rows = p.C
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return Assemble(b.Cols(), blocks)
}

// workerPath receives this rank's block of A, multiplies it and returns
// the block of C to Root. Ranks with no rows have nothing to exchange.
func workerPath(t Transport, rr RowRange, b *matrix.Dense) error {
	if rr.Empty() {
		return nil
	}
	rank := t.Context().Rank
	var block matrix.Dense
	if err := t.Receive(&block, mpi.Root, mpi.PhaseScatterA.Tag(rank)); err != nil {
		return fmt.Errorf("rowdist: scatter to %d: %w", rank, err)
	}
	var p partial
	c, mulErr := matrix.Multiply(&block, b)
	if mulErr == nil && c.Rows() != rr.Count {
		mulErr = fmt.Errorf("%w: received %d rows for range %v", ErrDimensionMismatch, c.Rows(), rr)
	}
	if mulErr != nil {
		p.Err = mulErr.Error()
	} else {
		p.C = c
	}
	if err := t.Send(p, mpi.Root, mpi.PhaseGatherC.Tag(rank)); err != nil {
		return fmt.Errorf("rowdist: gather from %d: %w", rank, err)
	}
	return mulErr
}
