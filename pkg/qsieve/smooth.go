package qsieve

import (
	"math"
	"math/big"
	"math/bits"

	"github.com/mahdiidarabi/quadsieve/internal/nt"
)

// ExponentVector holds the sign bit at index 0 and the exponent of
// factor-base prime i at index i+1.
type ExponentVector []uint16

// SmoothKind classifies the outcome of a smoothness check.
type SmoothKind int

const (
	Rejected SmoothKind = iota
	Full
	Partial
)

func (k SmoothKind) String() string {
	switch k {
	case Full:
		return "full"
	case Partial:
		return "partial"
	default:
		return "rejected"
	}
}

// Smoothness is the result of a check. Remainder is 1 for full relations
// and the large prime for partial ones.
type Smoothness struct {
	Kind      SmoothKind
	Exponents ExponentVector
	Remainder uint64
}

// TrialDivisionChecker divides by the factor base with a two-tier early
// abort: after the first EarlyAbortPrimes primes the leftover must be small
// enough to be covered by EarlyAbortFactors more primes.
type TrialDivisionChecker struct{}

// NewTrialDivisionChecker returns the default checker.
func NewTrialDivisionChecker() *TrialDivisionChecker {
	return &TrialDivisionChecker{}
}

func (t *TrialDivisionChecker) Check(value *big.Int, c *Context) Smoothness {
	reject := Smoothness{Kind: Rejected}
	if value.Sign() <= 0 {
		return reject
	}
	fb := c.FactorBase
	exps := make(ExponentVector, c.Width())
	rest := new(big.Int).Set(value)

	start := 0
	if fb[0] == 2 {
		if tz := rest.TrailingZeroBits(); tz > 0 {
			exps[1] = uint16(tz)
			rest.Rsh(rest, tz)
		}
		start = 1
	} else if rest.Bit(0) == 0 {
		return reject
	}

	early := start + c.Options.EarlyAbortPrimes
	limit := c.Options.EarlyAbortFactors*int(math.Ceil(c.maxLog2)) + c.largePrimeBits() + c.Options.LogSlack

	var q, r, bp big.Int
	i := start
	for ; i < len(fb) && !rest.IsUint64(); i++ {
		if i == early && rest.BitLen() > limit {
			return reject
		}
		p := uint64(fb[i])
		if nt.ModBig(rest, p) != 0 {
			continue
		}
		bp.SetUint64(p)
		for {
			q.QuoRem(rest, &bp, &r)
			if r.Sign() != 0 {
				break
			}
			rest.Set(&q)
			exps[i+1]++
		}
	}
	if !rest.IsUint64() {
		return reject
	}

	u := rest.Uint64()
	for ; i < len(fb) && u > 1; i++ {
		if i == early && bits.Len64(u) > limit {
			return reject
		}
		p := uint64(fb[i])
		if p*p > u {
			// u has no factor below p, so it is prime.
			if j := factorBaseIndex(fb, u); j >= 0 {
				exps[j+1]++
				u = 1
			}
			break
		}
		for u%p == 0 {
			u /= p
			exps[i+1]++
		}
	}

	if u == 1 {
		return Smoothness{Kind: Full, Exponents: exps, Remainder: 1}
	}
	pmax := uint64(c.LastPrime())
	if c.LargePrimeBound > 0 && u <= c.LargePrimeBound && u > pmax && u < pmax*pmax {
		return Smoothness{Kind: Partial, Exponents: exps, Remainder: u}
	}
	return reject
}
