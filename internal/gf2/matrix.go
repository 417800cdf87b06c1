// Package gf2 implements bit matrices over GF(2): a dense row-packed matrix
// with Gauss-Jordan elimination and null-space extraction, and a sparse
// column-list form used to filter singleton rows before densifying.
package gf2

import "math/bits"

// Matrix is a dense rows×cols bit matrix. Each row is packed into
// stride 64-bit words, least significant bit first.
type Matrix struct {
	rows, cols int
	stride     int
	words      []uint64
}

// New returns a zero rows×cols matrix.
func New(rows, cols int) *Matrix {
	stride := (cols + 63) / 64
	return &Matrix{
		rows:   rows,
		cols:   cols,
		stride: stride,
		words:  make([]uint64, rows*stride),
	}
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.cols }

func (m *Matrix) row(i int) []uint64 {
	return m.words[i*m.stride : (i+1)*m.stride]
}

// Get reports bit (i, j).
func (m *Matrix) Get(i, j int) bool {
	return m.words[i*m.stride+j/64]>>(uint(j)%64)&1 == 1
}

// Set sets bit (i, j) to one.
func (m *Matrix) Set(i, j int) {
	m.words[i*m.stride+j/64] |= 1 << (uint(j) % 64)
}

// Flip toggles bit (i, j).
func (m *Matrix) Flip(i, j int) {
	m.words[i*m.stride+j/64] ^= 1 << (uint(j) % 64)
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	c := &Matrix{rows: m.rows, cols: m.cols, stride: m.stride, words: make([]uint64, len(m.words))}
	copy(c.words, m.words)
	return c
}

// RowWeight returns the number of set bits in row i.
func (m *Matrix) RowWeight(i int) int {
	n := 0
	for _, w := range m.row(i) {
		n += bits.OnesCount64(w)
	}
	return n
}

func (m *Matrix) swapRows(a, b int) {
	if a == b {
		return
	}
	ra, rb := m.row(a), m.row(b)
	for k := range ra {
		ra[k], rb[k] = rb[k], ra[k]
	}
}

// xorRow sets row dst ^= row src.
func (m *Matrix) xorRow(dst, src int) {
	rd, rs := m.row(dst), m.row(src)
	for k := range rd {
		rd[k] ^= rs[k]
	}
}

// MulVec returns M·v over GF(2), with v given as one bool per column.
func (m *Matrix) MulVec(v []bool) []bool {
	packed := make([]uint64, m.stride)
	for j, set := range v {
		if set {
			packed[j/64] |= 1 << (uint(j) % 64)
		}
	}
	out := make([]bool, m.rows)
	for i := 0; i < m.rows; i++ {
		parity := 0
		for k, w := range m.row(i) {
			parity ^= bits.OnesCount64(w&packed[k]) & 1
		}
		out[i] = parity == 1
	}
	return out
}
