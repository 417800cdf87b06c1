package gf2

// Sparse is a rows×len(Cols) bit matrix stored column-wise: Cols[j] lists
// the rows with a one in column j.
type Sparse struct {
	rows int
	cols [][]int
	live []bool
}

// NewSparse returns an empty sparse matrix with the given row count.
func NewSparse(rows int) *Sparse {
	return &Sparse{rows: rows}
}

// AddColumn appends a column with ones in the listed rows and returns its index.
func (s *Sparse) AddColumn(rowsSet []int) int {
	s.cols = append(s.cols, rowsSet)
	s.live = append(s.live, true)
	return len(s.cols) - 1
}

// Cols returns the number of live columns.
func (s *Sparse) Cols() int {
	n := 0
	for _, ok := range s.live {
		if ok {
			n++
		}
	}
	return n
}

// Prune repeatedly deletes every column that touches a row of weight one.
// Such a column can never take part in a dependency. It returns the number
// of columns removed.
func (s *Sparse) Prune() int {
	removed := 0
	weight := make([]int, s.rows)
	for j, col := range s.cols {
		if !s.live[j] {
			continue
		}
		for _, r := range col {
			weight[r]++
		}
	}
	for {
		changed := false
		for j, col := range s.cols {
			if !s.live[j] {
				continue
			}
			single := false
			for _, r := range col {
				if weight[r] == 1 {
					single = true
					break
				}
			}
			if !single {
				continue
			}
			s.live[j] = false
			removed++
			changed = true
			for _, r := range col {
				weight[r]--
			}
		}
		if !changed {
			return removed
		}
	}
}

// Dense converts the live columns into a dense matrix. The returned slice
// maps dense column index to the original column index.
func (s *Sparse) Dense() (*Matrix, []int) {
	index := make([]int, 0, len(s.cols))
	for j, ok := range s.live {
		if ok {
			index = append(index, j)
		}
	}
	m := New(s.rows, len(index))
	for dj, j := range index {
		for _, r := range s.cols[j] {
			m.Flip(r, dj)
		}
	}
	return m, index
}
