package nt

import "math/big"

var bigOne = big.NewInt(1)

// FloorSqrt returns ⌊√n⌋ for n >= 0.
func FloorSqrt(n *big.Int) *big.Int {
	return new(big.Int).Sqrt(n)
}

// CeilSqrt returns ⌈√n⌉ for n >= 0.
func CeilSqrt(n *big.Int) *big.Int {
	r := new(big.Int).Sqrt(n)
	if new(big.Int).Mul(r, r).Cmp(n) != 0 {
		r.Add(r, bigOne)
	}
	return r
}

// FloorRoot returns ⌊n^(1/k)⌋ for n >= 0 and k >= 1 using Newton iteration
// from above.
func FloorRoot(n *big.Int, k int) *big.Int {
	if n.Sign() == 0 || k == 1 {
		return new(big.Int).Set(n)
	}
	if k == 2 {
		return FloorSqrt(n)
	}
	kk := big.NewInt(int64(k))
	km1 := big.NewInt(int64(k - 1))

	// 2^⌈bitlen/k⌉ is always >= the root.
	x := new(big.Int).Lsh(bigOne, uint((n.BitLen()+k-1)/k))
	var y, t big.Int
	for {
		t.Exp(x, km1, nil)
		y.Quo(n, &t)
		t.Mul(x, km1)
		y.Add(&y, &t)
		y.Quo(&y, kk)
		if y.Cmp(x) >= 0 {
			return x
		}
		x.Set(&y)
	}
}

// PerfectPower reports whether n = r^k for some k >= 2 and returns the
// smallest such root together with its exponent.
func PerfectPower(n *big.Int) (root *big.Int, k int, ok bool) {
	if n.Cmp(bigOne) <= 0 {
		return nil, 0, false
	}
	var p big.Int
	for e := n.BitLen(); e >= 2; e-- {
		r := FloorRoot(n, e)
		if r.Cmp(bigOne) <= 0 {
			continue
		}
		if p.Exp(r, big.NewInt(int64(e)), nil).Cmp(n) == 0 {
			return r, e, true
		}
	}
	return nil, 0, false
}
