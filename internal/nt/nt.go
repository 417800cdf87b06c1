// Package nt holds the number-theoretic primitives the sieve consumes:
// Legendre symbols, square roots modulo small primes and their squares,
// modular inverses, prime tables and integer roots of big integers.
//
// Small-modulus routines work on uint64 and assume the modulus is below 2^32
// so that products of two residues never overflow.
package nt

import (
	"math/big"
	"math/bits"

	"modernc.org/mathutil"
)

// MulMod returns a*b mod m.
func MulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	return bits.Rem64(hi, lo, m)
}

// PowMod returns b^e mod m. PowMod(0, 0, m) is 1.
func PowMod(b, e, m uint64) uint64 {
	if m == 1 {
		return 0
	}
	if e == 0 {
		return 1
	}
	if b%m == 0 {
		return 0
	}
	return mathutil.ModPowUint64(b%m, e, m)
}

// Legendre returns the Legendre symbol (a|p) for an odd prime p.
func Legendre(a, p uint64) int {
	a %= p
	if a == 0 {
		return 0
	}
	if p == 2 {
		return 1
	}
	if PowMod(a, (p-1)/2, p) == 1 {
		return 1
	}
	return -1
}

// SqrtModPrime returns r with r^2 ≡ n (mod p) using Tonelli-Shanks.
// The second root is p-r. ok is false when n is a non-residue.
func SqrtModPrime(n, p uint64) (r uint64, ok bool) {
	n %= p
	if n == 0 {
		return 0, true
	}
	if p == 2 {
		return n, true
	}
	if Legendre(n, p) != 1 {
		return 0, false
	}
	if p%4 == 3 {
		return PowMod(n, (p+1)/4, p), true
	}

	q, s := p-1, 0
	for q&1 == 0 {
		q >>= 1
		s++
	}
	z := uint64(2)
	for Legendre(z, p) != -1 {
		z++
	}
	c := PowMod(z, q, p)
	x := PowMod(n, (q+1)/2, p)
	t := PowMod(n, q, p)
	m := s
	for t != 1 {
		i, t2 := 0, t
		for t2 != 1 {
			t2 = MulMod(t2, t2, p)
			i++
			if i == m {
				return 0, false
			}
		}
		b := c
		for j := 0; j < m-i-1; j++ {
			b = MulMod(b, b, p)
		}
		x = MulMod(x, b, p)
		c = MulMod(b, b, p)
		t = MulMod(t, c, p)
		m = i
	}
	return x, true
}

// InvMod returns the inverse of a modulo m, or ok=false when gcd(a, m) != 1.
func InvMod(a, m uint64) (uint64, bool) {
	if m == 1 {
		return 0, true
	}
	a %= m
	if a == 0 {
		return 0, false
	}
	t, newT := int64(0), int64(1)
	r, newR := int64(m), int64(a)
	for newR != 0 {
		q := r / newR
		t, newT = newT, t-q*newT
		r, newR = newR, r-q*newR
	}
	if r != 1 {
		return 0, false
	}
	if t < 0 {
		t += int64(m)
	}
	return uint64(t), true
}

// HenselLift lifts a root r of x^2 ≡ n (mod p) to a root modulo p^2, where
// n is given modulo p^2. It fails when 2r ≡ 0 (mod p).
func HenselLift(r, n, p uint64) (uint64, bool) {
	pp := p * p
	inv, ok := InvMod((2*r)%p, p)
	if !ok {
		return 0, false
	}
	rr := MulMod(r, r, pp)
	// n - r^2 is divisible by p.
	diff := (n%pp + pp - rr) % pp
	k := MulMod((diff/p)%p, inv, p)
	return (r + k*p) % pp, true
}

// ModBig returns n mod m for a non-negative n without allocating.
func ModBig(n *big.Int, m uint64) uint64 {
	words := n.Bits()
	var r uint64
	if bits.UintSize == 64 {
		for i := len(words) - 1; i >= 0; i-- {
			r = bits.Rem64(r, uint64(words[i]), m)
		}
		return r
	}
	for i := len(words) - 1; i >= 0; i-- {
		r = (r<<32 | uint64(words[i])) % m
	}
	return r
}

// ModSigned returns the least non-negative residue of n mod m.
func ModSigned(n *big.Int, m uint64) uint64 {
	r := ModBig(n, m)
	if n.Sign() < 0 && r != 0 {
		r = m - r
	}
	return r
}

// PrimesUpTo returns all primes p <= limit in ascending order.
func PrimesUpTo(limit int) []uint32 {
	if limit < 2 {
		return nil
	}
	composite := make([]bool, limit+1)
	primes := make([]uint32, 0, limit/8+8)
	for i := 2; i <= limit; i++ {
		if composite[i] {
			continue
		}
		primes = append(primes, uint32(i))
		for j := i * i; j <= limit; j += i {
			composite[j] = true
		}
	}
	return primes
}
