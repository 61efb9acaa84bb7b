package matrix

import "fmt"

// Multiply returns the product a·b of an r×k block and a k×n matrix.
//
// Each output row is accumulated in i-k-j order over the flat row-major
// slices, so every C[i][j] sums a[i][p]*b[p][j] for p = 0..k-1 in order.
// An empty block (r == 0) yields a 0×n result without entering the loop.
func Multiply(a, b *Dense) (*Dense, error) {
	if a.cols != b.rows {
		return nil, fmt.Errorf("Multiply %d×%d by %d×%d: %w", a.rows, a.cols, b.rows, b.cols, ErrDimensionMismatch)
	}
	c, err := New(a.rows, b.cols)
	if err != nil {
		return nil, err
	}
	if a.rows == 0 {
		return c, nil
	}
	k, n := a.cols, b.cols
	for i := 0; i < a.rows; i++ {
		arow := a.data[i*k : (i+1)*k]
		crow := c.data[i*n : (i+1)*n]
		for p, av := range arow {
			brow := b.data[p*n : (p+1)*n]
			for j, bv := range brow {
				crow[j] += av * bv
			}
		}
	}
	return c, nil
}
