// Package matrix provides the dense row-major float64 matrix that is moved
// between ranks, and the local multiplication kernel run on each rank.
//
// A Dense may have zero rows or zero columns. Such matrices are how an empty
// row block is represented, so they are valid values rather than errors.
package matrix

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrShape is returned when a negative dimension is requested or a
	// backing slice does not match the requested shape.
	ErrShape = errors.New("matrix: invalid shape")

	// ErrDimensionMismatch is returned when operands have incompatible
	// dimensions, such as a.Cols() != b.Rows() in Multiply.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrOutOfRange is returned when a row range falls outside the matrix.
	ErrOutOfRange = errors.New("matrix: row range out of bounds")
)

// Dense is a row-major matrix. Element (i, j) is stored at data[i*cols+j].
type Dense struct {
	rows, cols int
	data       []float64
}

// New returns a rows×cols matrix of zeros.
func New(rows, cols int) (*Dense, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("New(%d, %d): %w", rows, cols, ErrShape)
	}
	return &Dense{rows: rows, cols: cols, data: make([]float64, rows*cols)}, nil
}

// NewFromData returns a rows×cols matrix backed by data. The slice is used
// directly, not copied, so the caller must not modify it afterward.
func NewFromData(rows, cols int, data []float64) (*Dense, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("NewFromData(%d, %d) with %d values: %w", rows, cols, len(data), ErrShape)
	}
	return &Dense{rows: rows, cols: cols, data: data}, nil
}

// NewFilled returns a rows×cols matrix with every element set to v.
func NewFilled(rows, cols int, v float64) (*Dense, error) {
	m, err := New(rows, cols)
	if err != nil {
		return nil, err
	}
	for i := range m.data {
		m.data[i] = v
	}
	return m, nil
}

// Rows returns the number of rows.
func (m *Dense) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Dense) Cols() int { return m.cols }

// Dims returns the number of rows and columns.
func (m *Dense) Dims() (rows, cols int) { return m.rows, m.cols }

// At returns element (i, j). It panics if the index is out of range.
func (m *Dense) At(i, j int) float64 {
	m.checkIndex(i, j)
	return m.data[i*m.cols+j]
}

// Set sets element (i, j) to v. It panics if the index is out of range.
func (m *Dense) Set(i, j int, v float64) {
	m.checkIndex(i, j)
	m.data[i*m.cols+j] = v
}

func (m *Dense) checkIndex(i, j int) {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(fmt.Sprintf("matrix: index (%d, %d) out of range for %d×%d", i, j, m.rows, m.cols))
	}
}

// Row returns row i as a slice of the backing storage.
func (m *Dense) Row(i int) []float64 {
	if i < 0 || i >= m.rows {
		panic(fmt.Sprintf("matrix: row %d out of range for %d rows", i, m.rows))
	}
	return m.data[i*m.cols : (i+1)*m.cols]
}

// RawData returns the row-major backing slice.
func (m *Dense) RawData() []float64 { return m.data }

// SliceRows returns a copy of count rows starting at start. The copy shares
// no storage with m, so it can be handed to another rank or mutated freely.
func (m *Dense) SliceRows(start, count int) (*Dense, error) {
	if start < 0 || count < 0 || start+count > m.rows {
		return nil, fmt.Errorf("SliceRows(%d, %d) of %d rows: %w", start, count, m.rows, ErrOutOfRange)
	}
	data := make([]float64, count*m.cols)
	copy(data, m.data[start*m.cols:(start+count)*m.cols])
	return &Dense{rows: count, cols: m.cols, data: data}, nil
}

// SetRows copies all rows of src into m starting at row start.
func (m *Dense) SetRows(start int, src *Dense) error {
	if src.cols != m.cols {
		return fmt.Errorf("SetRows: %d columns into %d: %w", src.cols, m.cols, ErrDimensionMismatch)
	}
	if start < 0 || start+src.rows > m.rows {
		return fmt.Errorf("SetRows(%d) of %d rows into %d: %w", start, src.rows, m.rows, ErrOutOfRange)
	}
	copy(m.data[start*m.cols:], src.data)
	return nil
}

// Clone returns a deep copy of m.
func (m *Dense) Clone() *Dense {
	data := make([]float64, len(m.data))
	copy(data, m.data)
	return &Dense{rows: m.rows, cols: m.cols, data: data}
}

// Equal reports whether m and o have the same shape and bit-identical
// elements.
func (m *Dense) Equal(o *Dense) bool {
	if m.rows != o.rows || m.cols != o.cols {
		return false
	}
	for i, v := range m.data {
		if math.Float64bits(v) != math.Float64bits(o.data[i]) {
			return false
		}
	}
	return true
}

// String formats m one row per line.
func (m *Dense) String() string {
	var sb strings.Builder
	for i := 0; i < m.rows; i++ {
		sb.WriteString("[")
		for j, v := range m.Row(i) {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%g", v)
		}
		sb.WriteString("]\n")
	}
	return sb.String()
}

const headerLen = 16

// MarshalBinary encodes m as two little-endian uint64 dimensions followed by
// the elements in row-major order. gob uses it when a *Dense is sent.
func (m *Dense) MarshalBinary() ([]byte, error) {
	b := make([]byte, headerLen+8*len(m.data))
	binary.LittleEndian.PutUint64(b[0:], uint64(m.rows))
	binary.LittleEndian.PutUint64(b[8:], uint64(m.cols))
	for i, v := range m.data {
		binary.LittleEndian.PutUint64(b[headerLen+8*i:], math.Float64bits(v))
	}
	return b, nil
}

// UnmarshalBinary decodes the format written by MarshalBinary.
func (m *Dense) UnmarshalBinary(b []byte) error {
	if len(b) < headerLen {
		return fmt.Errorf("UnmarshalBinary: short header of %d bytes: %w", len(b), ErrShape)
	}
	rows := binary.LittleEndian.Uint64(b[0:])
	cols := binary.LittleEndian.Uint64(b[8:])
	payload := uint64(len(b) - headerLen)
	n := rows * cols
	if rows > math.MaxInt32 || cols > math.MaxInt32 || n > payload/8 || payload != 8*n {
		return fmt.Errorf("UnmarshalBinary: %d×%d with %d payload bytes: %w", rows, cols, len(b)-headerLen, ErrShape)
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[headerLen+8*i:]))
	}
	m.rows, m.cols, m.data = int(rows), int(cols), data
	return nil
}
