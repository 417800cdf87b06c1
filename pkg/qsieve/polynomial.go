package qsieve

import (
	"math"
	"math/big"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"

	"github.com/mahdiidarabi/quadsieve/internal/nt"
)

// Polynomial is g(x) = A·x² + 2B·x + C with B² − A·C = N, so that
// (A·x + B)² − N = A·g(x).
type Polynomial struct {
	A, B, C *big.Int

	// Factors lists the factor-base indices of the primes of A.
	Factors []int
	// Terms holds the half-terms Bᵥ with B = Σ ±Bᵥ. Only SIQS families use it.
	Terms []*big.Int

	// BlockOffset is the ordinal of the first block sieved for this polynomial.
	BlockOffset int
}

// NewPolynomial derives C from A, B and N. B² − N must be divisible by A.
func NewPolynomial(n, a, b *big.Int, factors []int) (*Polynomial, error) {
	c := new(big.Int).Mul(b, b)
	c.Sub(c, n)
	var rem big.Int
	c.QuoRem(c, a, &rem)
	if rem.Sign() != 0 {
		return nil, errors.Errorf("B² - N is not divisible by A=%s", a)
	}
	return &Polynomial{
		A:       new(big.Int).Set(a),
		B:       new(big.Int).Set(b),
		C:       c,
		Factors: factors,
	}, nil
}

// Eval returns g(x).
func (p *Polynomial) Eval(x int64) *big.Int {
	bx := big.NewInt(x)
	v := new(big.Int).Mul(p.A, bx)
	v.Add(v, p.B)
	v.Add(v, p.B)
	v.Mul(v, bx)
	return v.Add(v, p.C)
}

// Root returns (A·x + B) mod n.
func (p *Polynomial) Root(x int64, n *big.Int) *big.Int {
	v := new(big.Int).Mul(p.A, big.NewInt(x))
	v.Add(v, p.B)
	return v.Mod(v, n)
}

// Check reports whether B² − A·C = n.
func (p *Polynomial) Check(n *big.Int) bool {
	l := new(big.Int).Mul(p.B, p.B)
	r := new(big.Int).Mul(p.A, p.C)
	return l.Sub(l, r).Cmp(n) == 0
}

// PolynomialStep is one polynomial handed out by a source. Sibling marks
// a SIQS polynomial that shares A with the previous step; B then changed
// by 2·Sign·Terms[Term].
type PolynomialStep struct {
	Poly    *Polynomial
	Sibling bool
	Term    int
	Sign    int
}

// crtB builds the half-terms Bᵥ = (A/qᵥ)·(tᵥ·(A/qᵥ)⁻¹ mod qᵥ) for the
// factors of A, and returns them with their sum B. B² ≡ N (mod A).
func crtB(c *Context, a *big.Int, factors []int) (terms []*big.Int, b *big.Int, err error) {
	b = new(big.Int)
	terms = make([]*big.Int, len(factors))
	for v, idx := range factors {
		q := uint64(c.FactorBase[idx])
		aq := new(big.Int).Quo(a, new(big.Int).SetUint64(q))
		inv, ok := nt.InvMod(nt.ModBig(aq, q), q)
		if !ok {
			return nil, nil, errors.Errorf("A has repeated prime %d", q)
		}
		gamma := nt.MulMod(uint64(c.Primes.Primes[idx].Root1), inv, q)
		terms[v] = aq.Mul(aq, new(big.Int).SetUint64(gamma))
		b.Add(b, terms[v])
	}
	return terms, b, nil
}

// productOf multiplies the factor-base primes at the given indices.
func productOf(c *Context, factors []int) *big.Int {
	a := big.NewInt(1)
	for _, idx := range factors {
		a.Mul(a, new(big.Int).SetUint64(uint64(c.FactorBase[idx])))
	}
	return a
}

// candidatePool returns the factor-base indices that may divide A: odd
// primes, without the smallest ones when the factor base is large enough.
func candidatePool(c *Context) []int {
	var pool []int
	for i, p := range c.FactorBase {
		if p > 2 {
			pool = append(pool, i)
		}
	}
	if skip := len(pool) / 10; skip > 0 && len(pool)-skip >= 4 {
		pool = pool[skip:]
	}
	return pool
}

// chooseK picks the number of primes in A so that each is near the k-th
// root of the target.
func chooseK(c *Context, pool []int, target *big.Int) int {
	if len(pool) == 0 {
		return 0
	}
	tbits := bigLog2(target)
	mid := math.Log2(float64(c.FactorBase[pool[len(pool)/2]]))
	k := int(math.Round(tbits / mid))
	if k < 1 {
		k = 1
	}
	if k > len(pool) {
		k = len(pool)
	}
	return k
}

// nearestIndex returns the position in pool of the prime closest to want.
func nearestIndex(c *Context, pool []int, want float64, taken map[int]bool) int {
	best, bestDist := -1, math.Inf(1)
	for pos, idx := range pool {
		if taken[idx] {
			continue
		}
		d := math.Abs(math.Log2(float64(c.FactorBase[idx])) - want)
		if d < bestDist {
			best, bestDist = pos, d
		}
	}
	return best
}

func bigLog2(v *big.Int) float64 {
	if v.Sign() <= 0 {
		return 0
	}
	bl := v.BitLen()
	if bl <= 53 {
		f, _ := new(big.Float).SetInt(v).Float64()
		return math.Log2(f)
	}
	top := new(big.Int).Rsh(v, uint(bl-53))
	f, _ := new(big.Float).SetInt(top).Float64()
	return math.Log2(f) + float64(bl-53)
}

// fingerprintSet remembers values by their xxh3 hash.
type fingerprintSet map[uint64]struct{}

func fingerprint(v *big.Int) uint64 { return xxh3.Hash(v.Bytes()) }

// add returns false when v was already present.
func (s fingerprintSet) add(v *big.Int) bool {
	h := fingerprint(v)
	if _, ok := s[h]; ok {
		return false
	}
	s[h] = struct{}{}
	return true
}

func (s fingerprintSet) has(v *big.Int) bool {
	_, ok := s[fingerprint(v)]
	return ok
}

// newRand seeds from Options.Seed, or from N when the seed is zero.
func newRand(c *Context) *rand.Rand {
	seed := c.Options.Seed
	if seed == 0 {
		seed = int64(xxh3.Hash(c.N.Bytes()) >> 1)
	}
	return rand.New(rand.NewSource(seed))
}
