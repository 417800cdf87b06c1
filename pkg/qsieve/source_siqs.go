package qsieve

import (
	"math"
	"math/big"
	"math/bits"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
)

// SIQSSource draws a random A from k factor-base primes and walks all
// 2^(k-1) sign patterns of B = Σ ±Bᵥ in Gray-code order, so consecutive
// polynomials differ in a single term.
type SIQSSource struct {
	pool      []int
	k         int
	targetLog float64
	rng       *rand.Rand
	used      fingerprintSet

	// Gray-code state: the current polynomial, the index of the next
	// sibling and the family size.
	poly   *Polynomial
	step   int
	family int

	issued   int
	families int
}

// NewSIQSSource returns a self-initializing source.
func NewSIQSSource() *SIQSSource {
	return &SIQSSource{}
}

func (s *SIQSSource) Name() string { return "siqs" }

func (s *SIQSSource) Reset(c *Context) error {
	s.pool = candidatePool(c)
	target := aTarget(c)
	s.k = chooseK(c, s.pool, target)
	if s.k == 0 {
		return errors.Wrap(ErrNoPolynomial, "factor base has no odd primes")
	}
	s.targetLog = bigLog2(target)
	s.rng = newRand(c)
	s.used = make(fingerprintSet)
	s.poly = nil
	s.step, s.family = 0, 0
	s.issued, s.families = 0, 0
	return nil
}

// Families returns the number of distinct A values drawn so far.
func (s *SIQSSource) Families() int { return s.families }

func (s *SIQSSource) Next(c *Context) (PolynomialStep, bool) {
	if s.issued >= c.Options.MaxPolynomials {
		return PolynomialStep{}, false
	}
	if s.poly == nil || s.step >= s.family {
		if !s.newFamily(c) {
			return PolynomialStep{}, false
		}
		s.issued++
		return PolynomialStep{Poly: s.poly}, true
	}

	i := s.step
	v := bits.TrailingZeros(uint(i))
	sign := 1
	if ((i+(1<<(v+1))-1)>>(v+1))&1 == 1 {
		sign = -1
	}
	b := new(big.Int).Lsh(s.poly.Terms[v], 1)
	if sign < 0 {
		b.Neg(b)
	}
	b.Add(b, s.poly.B)

	p, err := NewPolynomial(c.N, s.poly.A, b, s.poly.Factors)
	if err != nil {
		return PolynomialStep{}, false
	}
	p.Terms = s.poly.Terms
	s.poly = p
	s.step++
	s.issued++
	return PolynomialStep{Poly: p, Sibling: true, Term: v, Sign: sign}, true
}

func (s *SIQSSource) newFamily(c *Context) bool {
	factors, a, ok := s.drawA(c)
	if !ok {
		return false
	}
	terms, b, err := crtB(c, a, factors)
	if err != nil {
		return false
	}
	p, err := NewPolynomial(c.N, a, b, factors)
	if err != nil {
		return false
	}
	p.Terms = terms
	s.poly = p
	s.step = 1
	s.family = 1 << (len(factors) - 1)
	s.families++
	return true
}

// drawA picks k−1 random primes near the ideal size and completes A with
// the prime that lands closest to the target.
func (s *SIQSSource) drawA(c *Context) ([]int, *big.Int, bool) {
	ideal := s.targetLog / float64(s.k)
	var window []int
	for _, idx := range s.pool {
		if math.Abs(math.Log2(float64(c.FactorBase[idx]))-ideal) <= 1 {
			window = append(window, idx)
		}
	}
	if len(window) < s.k {
		window = s.pool
	}

	var (
		best      []int
		bestA     *big.Int
		bestScore = math.Inf(1)
	)
	for attempt := 0; attempt < 256; attempt++ {
		taken := make(map[int]bool, s.k)
		var factors []int
		logA := 0.0
		if s.k == 1 {
			idx := window[s.rng.Intn(len(window))]
			factors = append(factors, idx)
			logA = math.Log2(float64(c.FactorBase[idx]))
		} else {
			for len(factors) < s.k-1 {
				idx := window[s.rng.Intn(len(window))]
				if taken[idx] {
					continue
				}
				taken[idx] = true
				factors = append(factors, idx)
				logA += math.Log2(float64(c.FactorBase[idx]))
			}
			pos := nearestIndex(c, s.pool, s.targetLog-logA, taken)
			if pos < 0 {
				continue
			}
			factors = append(factors, s.pool[pos])
			logA += math.Log2(float64(c.FactorBase[s.pool[pos]]))
		}
		sort.Ints(factors)
		a := productOf(c, factors)
		if a.BitLen() > c.Options.MaxABits || s.used.has(a) {
			continue
		}
		score := math.Abs(logA - s.targetLog)
		if score < bestScore {
			best, bestA, bestScore = factors, a, score
		}
		if score <= 1 {
			break
		}
	}
	if bestA == nil {
		return nil, nil, false
	}
	s.used.add(bestA)
	return best, bestA, true
}
