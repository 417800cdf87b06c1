package qsieve

import (
	"math/big"

	"github.com/mahdiidarabi/quadsieve/internal/nt"
)

// BuildFactorBase returns the primes p <= bound modulo which n is a
// quadratic residue, in ascending order. Primes that divide n are not part
// of the factor base; they are returned separately as divisors.
//
// 2 is kept whenever n is odd since every odd n is a square mod 2.
func BuildFactorBase(n *big.Int, bound int) (fb []uint32, divisors []uint32) {
	for _, p := range nt.PrimesUpTo(bound) {
		r := nt.ModBig(n, uint64(p))
		if r == 0 {
			divisors = append(divisors, p)
			continue
		}
		if p == 2 || nt.Legendre(r, uint64(p)) == 1 {
			fb = append(fb, p)
		}
	}
	return fb, divisors
}

// factorBaseIndex returns the index of p in fb, or -1.
func factorBaseIndex(fb []uint32, p uint64) int {
	lo, hi := 0, len(fb)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if uint64(fb[mid]) < p {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(fb) && uint64(fb[lo]) == p {
		return lo
	}
	return -1
}
