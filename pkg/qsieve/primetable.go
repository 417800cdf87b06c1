package qsieve

import (
	"math"
	"math/big"

	"github.com/pkg/errors"

	"github.com/mahdiidarabi/quadsieve/internal/nt"
)

// SievePrime holds the per-prime data shared by every polynomial:
// the square roots of N modulo p and, when the prime is small enough,
// modulo p².
type SievePrime struct {
	P   uint32
	Log uint16

	// Root1 and Root2 solve s² ≡ N (mod P). Root1 + Root2 ≡ 0 (mod P)
	// except for P = 2, where both are 1.
	Root1, Root2 uint32

	// Square is P² when the prime-power roots are present, zero otherwise.
	Square                   uint32
	SquareRoot1, SquareRoot2 uint32
}

// HasSquare reports whether the p² root set is present.
func (sp *SievePrime) HasSquare() bool { return sp.Square != 0 }

// SievePrimeTable is the read-only table of sieve primes, indexed like the
// factor base.
type SievePrimeTable struct {
	Primes []SievePrime
}

// NewSievePrimeTable computes roots of n modulo every factor-base prime.
// A prime without a root means the factor base was built for another n.
func NewSievePrimeTable(n *big.Int, fb []uint32, opts Options) (*SievePrimeTable, error) {
	t := &SievePrimeTable{Primes: make([]SievePrime, len(fb))}
	nmod4 := nt.ModBig(n, 4)
	for i, p := range fb {
		sp := SievePrime{P: p, Log: scaledLog(float64(p), opts.LogScale)}
		pp := uint64(p) * uint64(p)

		if p == 2 {
			sp.Root1, sp.Root2 = 1, 1
			if nmod4 == 1 && pp <= uint64(opts.BlockLength) {
				sp.Square, sp.SquareRoot1, sp.SquareRoot2 = 4, 1, 3
			}
			t.Primes[i] = sp
			continue
		}

		s, ok := nt.SqrtModPrime(nt.ModBig(n, uint64(p)), uint64(p))
		if !ok {
			return nil, errors.Wrapf(ErrConfig, "n has no square root modulo factor-base prime %d", p)
		}
		sp.Root1, sp.Root2 = uint32(s), uint32(uint64(p)-s)

		// odd p lifts for any n mod 4
		if pp <= uint64(opts.BlockLength) {
			if r, ok := nt.HenselLift(s, nt.ModBig(n, pp), uint64(p)); ok {
				sp.Square = uint32(pp)
				sp.SquareRoot1, sp.SquareRoot2 = uint32(r), uint32(pp-r)
			}
		}
		t.Primes[i] = sp
	}
	return t, nil
}

// Len returns the number of sieve primes.
func (t *SievePrimeTable) Len() int { return len(t.Primes) }

func scaledLog(v float64, scale int) uint16 {
	return uint16(math.Round(math.Log2(v) * float64(scale)))
}
