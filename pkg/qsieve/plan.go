package qsieve

import (
	"github.com/pkg/errors"

	"github.com/mahdiidarabi/quadsieve/internal/nt"
)

// SievePlan holds the roots of one polynomial modulo every sieve prime.
// Primes dividing A are skipped.
type SievePlan struct {
	Poly *Polynomial

	blockLen int
	primes   []planPrime
	// deltas[v][i] is 2·Bᵥ·A⁻¹ modulo prime i and its square.
	deltas [][]rootDelta
}

type planPrime struct {
	// roots of g(x) ≡ 0 modulo p and p²
	r1, r2   uint32
	sq1, sq2 uint32
	// L mod p and L mod p²
	stride, sqStride uint32
	skip, sqSkip     bool
}

type rootDelta struct {
	d, sq uint32
}

// BuildPlan solves A·x + B ≡ s (mod p) for both roots s of N, for every
// sieve prime, and precomputes the root deltas of each SIQS half-term.
func BuildPlan(c *Context, poly *Polynomial) (*SievePlan, error) {
	if poly == nil || poly.A.Sign() <= 0 {
		return nil, errors.New("plan needs a polynomial with positive A")
	}
	inA := make(map[int]bool, len(poly.Factors))
	for _, idx := range poly.Factors {
		inA[idx] = true
	}
	L := uint64(c.Options.BlockLength)
	plan := &SievePlan{
		Poly:     poly,
		blockLen: c.Options.BlockLength,
		primes:   make([]planPrime, c.Primes.Len()),
		deltas:   make([][]rootDelta, len(poly.Terms)),
	}
	for v := range plan.deltas {
		plan.deltas[v] = make([]rootDelta, c.Primes.Len())
	}

	for i := range c.Primes.Primes {
		sp := &c.Primes.Primes[i]
		pp := &plan.primes[i]
		p := uint64(sp.P)
		pp.skip, pp.sqSkip = true, true
		if inA[i] {
			continue
		}
		inv, ok := nt.InvMod(nt.ModBig(poly.A, p), p)
		if !ok {
			continue
		}
		b := nt.ModSigned(poly.B, p)
		pp.r1 = uint32(nt.MulMod(inv, (uint64(sp.Root1)+p-b)%p, p))
		pp.r2 = uint32(nt.MulMod(inv, (uint64(sp.Root2)+p-b)%p, p))
		pp.stride = uint32(L % p)
		pp.skip = false
		for v, term := range poly.Terms {
			plan.deltas[v][i].d = uint32(nt.MulMod(2*nt.ModSigned(term, p)%p, inv, p))
		}

		if !sp.HasSquare() {
			continue
		}
		q := uint64(sp.Square)
		invq, ok := nt.InvMod(nt.ModBig(poly.A, q), q)
		if !ok {
			continue
		}
		bq := nt.ModSigned(poly.B, q)
		pp.sq1 = uint32(nt.MulMod(invq, (uint64(sp.SquareRoot1)+q-bq)%q, q))
		pp.sq2 = uint32(nt.MulMod(invq, (uint64(sp.SquareRoot2)+q-bq)%q, q))
		pp.sqStride = uint32(L % q)
		pp.sqSkip = false
		for v, term := range poly.Terms {
			plan.deltas[v][i].sq = uint32(nt.MulMod(2*nt.ModSigned(term, q)%q, invq, q))
		}
	}
	return plan, nil
}

// UpdateRoots moves the plan to a sibling polynomial whose B differs by
// 2·Sign·Bᵥ. Each root shifts by ∓2·Bᵥ·A⁻¹.
func (plan *SievePlan) UpdateRoots(c *Context, step PolynomialStep) error {
	if !step.Sibling || step.Term < 0 || step.Term >= len(plan.deltas) {
		return errors.Errorf("cannot patch plan for term %d", step.Term)
	}
	if step.Poly.A.Cmp(plan.Poly.A) != 0 {
		return errors.New("sibling polynomial has a different A")
	}
	deltas := plan.deltas[step.Term]
	for i := range plan.primes {
		pp := &plan.primes[i]
		if pp.skip {
			continue
		}
		p := c.Primes.Primes[i].P
		pp.r1 = shiftRoot(pp.r1, deltas[i].d, p, step.Sign)
		pp.r2 = shiftRoot(pp.r2, deltas[i].d, p, step.Sign)
		if pp.sqSkip {
			continue
		}
		q := c.Primes.Primes[i].Square
		pp.sq1 = shiftRoot(pp.sq1, deltas[i].sq, q, step.Sign)
		pp.sq2 = shiftRoot(pp.sq2, deltas[i].sq, q, step.Sign)
	}
	plan.Poly = step.Poly
	return nil
}

// shiftRoot returns r − sign·d mod m.
func shiftRoot(r, d, m uint32, sign int) uint32 {
	if sign > 0 {
		return uint32((uint64(r) + uint64(m) - uint64(d)) % uint64(m))
	}
	return uint32((uint64(r) + uint64(d)) % uint64(m))
}

// firstHit returns the offset of the first x ≡ root (mod m) in the block
// starting at block·L, given stride = L mod m.
func firstHit(root, stride, m uint32, block int) int {
	bm := int64(block) % int64(m)
	if bm < 0 {
		bm += int64(m)
	}
	start := uint64(bm) * uint64(stride) % uint64(m)
	return int((uint64(root) + uint64(m) - start) % uint64(m))
}

// BlockForOrdinal maps the ordinals 0, 1, 2, 3, 4, … to the blocks
// 0, −1, +1, −2, +2, … so sieving starts at the vertex of g.
func BlockForOrdinal(o int) int {
	if o%2 == 1 {
		return -(o + 1) / 2
	}
	return o / 2
}
