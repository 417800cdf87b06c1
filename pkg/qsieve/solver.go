package qsieve

import (
	"context"
	"math/big"

	"github.com/pkg/errors"

	"github.com/mahdiidarabi/quadsieve/internal/gf2"
)

// MaxDependencies caps the null-space vectors returned per solve.
const MaxDependencies = 64

// GaussianSolver builds the parity matrix of the relations, optionally
// drops columns that touch a singleton row, and reads dependencies off a
// full Gauss-Jordan reduction.
type GaussianSolver struct {
	Prune           bool
	MaxDependencies int
}

// NewGaussianSolver returns a pruning solver.
func NewGaussianSolver() *GaussianSolver {
	return &GaussianSolver{Prune: true, MaxDependencies: MaxDependencies}
}

// WithPrune toggles singleton pruning.
func (s *GaussianSolver) WithPrune(prune bool) *GaussianSolver {
	s.Prune = prune
	return s
}

func (s *GaussianSolver) Name() string { return "gauss" }

func (s *GaussianSolver) Solve(ctx context.Context, rels []*Relation, width int) ([][]int, error) {
	if len(rels) == 0 {
		return nil, nil
	}
	sp := gf2.NewSparse(width)
	for j, r := range rels {
		if len(r.Exponents) != width {
			return nil, errors.Errorf("relation %d has %d exponents, want %d", j, len(r.Exponents), width)
		}
		var odd []int
		for i, e := range r.Exponents {
			if e&1 == 1 {
				odd = append(odd, i)
			}
		}
		sp.AddColumn(odd)
	}
	if s.Prune {
		sp.Prune()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, index := sp.Dense()
	if m.Cols() == 0 {
		return nil, nil
	}
	red := m.Solve()
	limit := s.MaxDependencies
	if limit <= 0 {
		limit = MaxDependencies
	}
	deps := red.Dependencies(limit)
	for _, dep := range deps {
		for k, j := range dep {
			dep[k] = index[j]
		}
	}
	return deps, nil
}

// Square combines the relations of a dependency into a ≡ ∏ X and
// b ≡ ∏ pᵢ^(eᵢ/2) (mod N), so that a² ≡ b² (mod N). It fails when the
// summed exponents are not all even.
func Square(c *Context, rels []*Relation, dep []int) (a, b *big.Int, err error) {
	sum := make([]uint64, c.Width())
	a = big.NewInt(1)
	for _, j := range dep {
		r := rels[j]
		a.Mul(a, r.X)
		a.Mod(a, c.N)
		for i, e := range r.Exponents {
			sum[i] += uint64(e)
		}
	}
	b = big.NewInt(1)
	var pe, bp big.Int
	for i, e := range sum {
		if e&1 == 1 {
			return nil, nil, errors.Errorf("exponent of row %d is odd", i)
		}
		if i == 0 || e == 0 {
			continue
		}
		bp.SetUint64(uint64(c.FactorBase[i-1]))
		pe.Exp(&bp, new(big.Int).SetUint64(e/2), c.N)
		b.Mul(b, &pe)
		b.Mod(b, c.N)
	}
	return a, b, nil
}
