package gf2

// Reduction is the outcome of Solve: a reduced row-echelon matrix together
// with the pivot bookkeeping needed to read off null-space vectors.
type Reduction struct {
	m *Matrix

	// PivotCols[i] is the pivot column of reduced row i, for i < Rank().
	PivotCols []int
	// IsPivot[j] reports whether column j holds a pivot.
	IsPivot []bool
	// Free lists the non-pivot columns in ascending order.
	Free []int
}

// Rank returns the number of pivots.
func (r *Reduction) Rank() int { return len(r.PivotCols) }

// Nullity returns the number of free columns.
func (r *Reduction) Nullity() int { return len(r.Free) }

// Solve reduces m in place by full Gauss-Jordan elimination, column by
// column. For every column it looks for a set bit at or below the current
// pivot row, swaps that row up and clears the column from every other row.
func (m *Matrix) Solve() *Reduction {
	red := &Reduction{
		m:       m,
		IsPivot: make([]bool, m.cols),
	}
	pivotRow := 0
	for col := 0; col < m.cols; col++ {
		if pivotRow == m.rows {
			red.Free = append(red.Free, col)
			continue
		}
		word, bit := col/64, uint64(1)<<(uint(col)%64)
		found := -1
		for i := pivotRow; i < m.rows; i++ {
			if m.words[i*m.stride+word]&bit != 0 {
				found = i
				break
			}
		}
		if found < 0 {
			red.Free = append(red.Free, col)
			continue
		}
		m.swapRows(pivotRow, found)
		for i := 0; i < m.rows; i++ {
			if i != pivotRow && m.words[i*m.stride+word]&bit != 0 {
				m.xorRow(i, pivotRow)
			}
		}
		red.IsPivot[col] = true
		red.PivotCols = append(red.PivotCols, col)
		pivotRow++
	}
	return red
}

// BuildDependencyVector returns the null-space basis vector belonging to a
// free column: the free column itself plus the pivot column of every reduced
// row that has a one in that free column.
func (r *Reduction) BuildDependencyVector(free int) []bool {
	v := make([]bool, r.m.cols)
	v[free] = true
	for i, pc := range r.PivotCols {
		if r.m.Get(i, free) {
			v[pc] = !v[pc]
		}
	}
	return v
}

// Dependencies returns up to limit null-space vectors as column index lists.
// A limit <= 0 returns all of them.
func (r *Reduction) Dependencies(limit int) [][]int {
	n := len(r.Free)
	if limit > 0 && limit < n {
		n = limit
	}
	deps := make([][]int, 0, n)
	for _, f := range r.Free[:n] {
		v := r.BuildDependencyVector(f)
		var idx []int
		for j, set := range v {
			if set {
				idx = append(idx, j)
			}
		}
		deps = append(deps, idx)
	}
	return deps
}
