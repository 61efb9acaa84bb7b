package matrix_test

import (
	"math"
	"testing"

	"github.com/rowsplit/mpi/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiplyKnownProduct(t *testing.T) {
	a, err := matrix.NewFromData(2, 3, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	b, err := matrix.NewFromData(3, 2, []float64{7, 8, 9, 10, 11, 12})
	require.NoError(t, err)

	c, err := matrix.Multiply(a, b)
	require.NoError(t, err)
	require.Equal(t, []float64{58, 64, 139, 154}, c.RawData())
}

func TestMultiplyOnes(t *testing.T) {
	a, err := matrix.NewFilled(4, 4, 1)
	require.NoError(t, err)

	c, err := matrix.Multiply(a, a)
	require.NoError(t, err)
	for _, v := range c.RawData() {
		assert.Equal(t, 4.0, v)
	}
}

func TestMultiplyDimensionMismatch(t *testing.T) {
	a, err := matrix.New(2, 3)
	require.NoError(t, err)
	b, err := matrix.New(2, 3)
	require.NoError(t, err)

	_, err = matrix.Multiply(a, b)
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

func TestMultiplyEmptyBlock(t *testing.T) {
	a, err := matrix.New(0, 3)
	require.NoError(t, err)
	b, err := matrix.Random(3, 5, 1)
	require.NoError(t, err)

	c, err := matrix.Multiply(a, b)
	require.NoError(t, err)
	r, n := c.Dims()
	require.Equal(t, 0, r)
	require.Equal(t, 5, n)
}

func TestMultiplyMatchesReference(t *testing.T) {
	for _, dims := range [][3]int{{1, 1, 1}, {7, 3, 5}, {30, 30, 30}, {64, 17, 9}} {
		a, err := matrix.Random(dims[0], dims[1], 11)
		require.NoError(t, err)
		b, err := matrix.Random(dims[1], dims[2], 12)
		require.NoError(t, err)

		got, err := matrix.Multiply(a, b)
		require.NoError(t, err)
		want, err := matrix.Reference(a, b)
		require.NoError(t, err)

		ok, err := matrix.AllClose(got, want, matrix.Float64Tol, matrix.Float64Tol)
		require.NoError(t, err)
		require.True(t, ok, "dims %v", dims)
	}
}

// toFloat32 rounds every element of m to float32 precision.
func toFloat32(m *matrix.Dense) *matrix.Dense {
	out := m.Clone()
	for i, v := range out.RawData() {
		out.RawData()[i] = float64(float32(v))
	}
	return out
}

func TestMultiplySinglePrecisionTolerance(t *testing.T) {
	a, b, err := matrix.RandomPair(50, 42)
	require.NoError(t, err)
	want, err := matrix.Reference(a, b)
	require.NoError(t, err)

	got, err := matrix.Multiply(toFloat32(a), toFloat32(b))
	require.NoError(t, err)
	got = toFloat32(got)

	ok, err := matrix.AllClose(got, want, matrix.Float32Tol, matrix.Float32Tol)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = matrix.AllClose(got, want, matrix.Float64Tol, matrix.Float64Tol)
	require.NoError(t, err)
	require.False(t, ok, "single precision is not within the double precision tolerance")
}

func TestReferenceZeroInner(t *testing.T) {
	a, err := matrix.New(3, 0)
	require.NoError(t, err)
	b, err := matrix.New(0, 2)
	require.NoError(t, err)

	c, err := matrix.Reference(a, b)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0, 0, 0, 0, 0}, c.RawData())
}

func TestAllCloseAndMaxAbsDiff(t *testing.T) {
	a, err := matrix.NewFromData(1, 3, []float64{1, 2, math.Inf(1)})
	require.NoError(t, err)
	b, err := matrix.NewFromData(1, 3, []float64{1, 2 + 1e-12, math.Inf(1)})
	require.NoError(t, err)

	ok, err := matrix.AllClose(a, b, 1e-10, 1e-10)
	require.NoError(t, err)
	require.True(t, ok)

	b.Set(0, 1, 2.5)
	ok, err = matrix.AllClose(a, b, 1e-10, 1e-10)
	require.NoError(t, err)
	require.False(t, ok)

	a.Set(0, 2, 0)
	b.Set(0, 2, 0)
	d, err := matrix.MaxAbsDiff(a, b)
	require.NoError(t, err)
	require.InDelta(t, 0.5, d, 1e-15)

	short, err := matrix.New(1, 2)
	require.NoError(t, err)
	_, err = matrix.AllClose(a, short, 0, 0)
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}
