package matrix

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Mat returns a gonum view of m sharing its storage. gonum does not allow
// empty matrices, so Mat returns nil when either dimension is zero.
func (m *Dense) Mat() *mat.Dense {
	if m.rows == 0 || m.cols == 0 {
		return nil
	}
	return mat.NewDense(m.rows, m.cols, m.data)
}

// FromMat copies any gonum matrix into a new Dense.
func FromMat(g mat.Matrix) *Dense {
	r, c := g.Dims()
	m := &Dense{rows: r, cols: c, data: make([]float64, r*c)}
	if rm, ok := g.(mat.RawMatrixer); ok {
		raw := rm.RawMatrix()
		for i := 0; i < r; i++ {
			copy(m.data[i*c:(i+1)*c], raw.Data[i*raw.Stride:i*raw.Stride+c])
		}
		return m
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.data[i*c+j] = g.At(i, j)
		}
	}
	return m
}

// Reference computes a·b with gonum as the trusted serial product that the
// distributed result is checked against.
func Reference(a, b *Dense) (*Dense, error) {
	if a.cols != b.rows {
		return nil, fmt.Errorf("Reference %d×%d by %d×%d: %w", a.rows, a.cols, b.rows, b.cols, ErrDimensionMismatch)
	}
	if a.rows == 0 || a.cols == 0 || b.cols == 0 {
		return New(a.rows, b.cols)
	}
	var c mat.Dense
	c.Mul(a.Mat(), b.Mat())
	return FromMat(&c), nil
}
