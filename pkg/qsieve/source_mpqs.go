package qsieve

import (
	"math"
	"math/big"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/pkg/errors"

	"github.com/mahdiidarabi/quadsieve/internal/nt"
)

// aTarget returns the A size the sources aim at, capped at MaxABits.
func aTarget(c *Context) *big.Int {
	t := c.TargetA()
	if t.BitLen() > c.Options.MaxABits {
		t = new(big.Int).Lsh(big.NewInt(1), uint(c.Options.MaxABits))
		t.Sub(t, big.NewInt(1))
	}
	if t.Cmp(big.NewInt(3)) < 0 {
		t.SetInt64(3)
	}
	return t
}

// GreedySource slides a window over the factor base: the i-th polynomial
// multiplies consecutive candidate primes from position i until A reaches
// the target.
type GreedySource struct {
	pool   []int
	start  int
	target *big.Int
	used   fingerprintSet
	issued int
}

// NewGreedySource returns a greedy MPQS source.
func NewGreedySource() *GreedySource {
	return &GreedySource{}
}

func (s *GreedySource) Name() string { return "greedy" }

func (s *GreedySource) Reset(c *Context) error {
	s.pool = candidatePool(c)
	if len(s.pool) == 0 {
		return errors.Wrap(ErrNoPolynomial, "factor base has no odd primes")
	}
	s.start = 0
	s.target = aTarget(c)
	s.used = make(fingerprintSet)
	s.issued = 0
	return nil
}

func (s *GreedySource) Next(c *Context) (PolynomialStep, bool) {
	for s.start < len(s.pool) && s.issued < c.Options.MaxPolynomials {
		var factors []int
		a := big.NewInt(1)
		for i := s.start; i < len(s.pool) && a.Cmp(s.target) < 0; i++ {
			factors = append(factors, s.pool[i])
			a.Mul(a, new(big.Int).SetUint64(uint64(c.FactorBase[s.pool[i]])))
		}
		s.start++
		if a.Cmp(s.target) < 0 {
			// Every later window is smaller still.
			s.start = len(s.pool)
			break
		}
		if a.BitLen() > c.Options.MaxABits || !s.used.add(a) {
			continue
		}
		terms, b, err := crtB(c, a, factors)
		if err != nil {
			continue
		}
		p, err := NewPolynomial(c.N, a, b, factors)
		if err != nil {
			continue
		}
		p.Terms = terms
		s.issued++
		return PolynomialStep{Poly: p}, true
	}
	return PolynomialStep{}, false
}

// LogTargetSwapSource keeps a rolling selection of k primes. Every step
// drops the oldest one and swaps in the unselected prime that brings A
// closest to the target. The CRT residues γᵥ are patched instead of being
// recomputed.
type LogTargetSwapSource struct {
	pool      []int
	free      *redblacktree.Tree // prime -> factor-base index, unselected primes
	sel       []int
	gammas    []uint64
	a         *big.Int
	targetLog float64
	used      fingerprintSet
	fresh     bool
	issued    int
}

// NewLogTargetSwapSource returns a swapping MPQS source.
func NewLogTargetSwapSource() *LogTargetSwapSource {
	return &LogTargetSwapSource{}
}

func (s *LogTargetSwapSource) Name() string { return "swap" }

func (s *LogTargetSwapSource) Reset(c *Context) error {
	s.pool = candidatePool(c)
	target := aTarget(c)
	k := chooseK(c, s.pool, target)
	if k == 0 {
		return errors.Wrap(ErrNoPolynomial, "factor base has no odd primes")
	}
	s.targetLog = bigLog2(target)

	ideal := s.targetLog / float64(k)
	pos := nearestIndex(c, s.pool, ideal, nil)
	first := pos - k/2
	if first+k > len(s.pool) {
		first = len(s.pool) - k
	}
	if first < 0 {
		first = 0
	}

	s.free = redblacktree.NewWithIntComparator()
	s.sel = s.sel[:0]
	for i, idx := range s.pool {
		if i >= first && i < first+k {
			s.sel = append(s.sel, idx)
			continue
		}
		s.free.Put(int(c.FactorBase[idx]), idx)
	}
	s.a = productOf(c, s.sel)
	s.gammas = make([]uint64, len(s.sel))
	for v, idx := range s.sel {
		q := uint64(c.FactorBase[idx])
		aq := new(big.Int).Quo(s.a, new(big.Int).SetUint64(q))
		inv, _ := nt.InvMod(nt.ModBig(aq, q), q)
		s.gammas[v] = nt.MulMod(uint64(c.Primes.Primes[idx].Root1), inv, q)
	}
	s.used = make(fingerprintSet)
	s.fresh = true
	s.issued = 0
	return nil
}

func (s *LogTargetSwapSource) Next(c *Context) (PolynomialStep, bool) {
	if s.issued >= c.Options.MaxPolynomials || len(s.sel) == 0 {
		return PolynomialStep{}, false
	}
	if s.fresh {
		s.fresh = false
		if s.a.BitLen() <= c.Options.MaxABits && s.used.add(s.a) {
			return s.emit(c)
		}
	}
	if !s.swap(c) {
		return PolynomialStep{}, false
	}
	return s.emit(c)
}

// swap replaces the oldest selected prime.
func (s *LogTargetSwapSource) swap(c *Context) bool {
	outIdx := s.sel[0]
	qOut := uint64(c.FactorBase[outIdx])
	rest := new(big.Int).Quo(s.a, new(big.Int).SetUint64(qOut))
	want := s.targetLog - bigLog2(rest)

	inIdx, a, ok := s.nearestUnused(c, rest, want)
	if !ok {
		return false
	}
	qIn := uint64(c.FactorBase[inIdx])

	s.free.Remove(int(qIn))
	s.free.Put(int(qOut), outIdx)

	s.sel = append(s.sel[1:], inIdx)
	gammas := s.gammas[1:]
	for v, idx := range s.sel[:len(s.sel)-1] {
		q := uint64(c.FactorBase[idx])
		inv, _ := nt.InvMod(qIn%q, q)
		gammas[v] = nt.MulMod(nt.MulMod(gammas[v], qOut%q, q), inv, q)
	}
	inv, _ := nt.InvMod(nt.ModBig(rest, qIn), qIn)
	s.gammas = append(gammas, nt.MulMod(uint64(c.Primes.Primes[inIdx].Root1), inv, qIn))
	s.a = a
	return true
}

// nearestUnused walks outward from the prime closest to 2^want until the
// resulting A is new and within the bit cap.
func (s *LogTargetSwapSource) nearestUnused(c *Context, rest *big.Int, want float64) (int, *big.Int, bool) {
	if s.free.Empty() {
		return 0, nil, false
	}
	key := int(math.Round(math.Exp2(math.Min(want, 62))))
	lo, hasLo := s.free.Floor(key)
	hi, hasHi := s.free.Ceiling(key)
	if hasLo && hasHi && lo.Key.(int) == hi.Key.(int) {
		hi, hasHi = s.free.Ceiling(key + 1)
	}
	for tries := 0; tries < 16 && (hasLo || hasHi); tries++ {
		var node *redblacktree.Node
		useLo := hasLo
		if hasLo && hasHi {
			dl := math.Abs(math.Log2(float64(lo.Key.(int))) - want)
			dh := math.Abs(math.Log2(float64(hi.Key.(int))) - want)
			useLo = dl <= dh
		}
		if useLo {
			node = lo
			lo, hasLo = s.free.Floor(lo.Key.(int) - 1)
		} else {
			node = hi
			hi, hasHi = s.free.Ceiling(hi.Key.(int) + 1)
		}
		a := new(big.Int).Mul(rest, big.NewInt(int64(node.Key.(int))))
		if a.BitLen() > c.Options.MaxABits || !s.used.add(a) {
			continue
		}
		return node.Value.(int), a, true
	}
	return 0, nil, false
}

func (s *LogTargetSwapSource) emit(c *Context) (PolynomialStep, bool) {
	factors := append([]int(nil), s.sel...)
	terms := make([]*big.Int, len(factors))
	b := new(big.Int)
	for v, idx := range factors {
		q := new(big.Int).SetUint64(uint64(c.FactorBase[idx]))
		t := new(big.Int).Quo(s.a, q)
		terms[v] = t.Mul(t, new(big.Int).SetUint64(s.gammas[v]))
		b.Add(b, terms[v])
	}
	p, err := NewPolynomial(c.N, s.a, b, factors)
	if err != nil {
		return PolynomialStep{}, false
	}
	p.Terms = terms
	s.issued++
	return PolynomialStep{Poly: p}, true
}
