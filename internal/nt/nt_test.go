package nt

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"modernc.org/mathutil"
)

func TestPrimesUpTo(t *testing.T) {
	primes := PrimesUpTo(5000)
	require.NotEmpty(t, primes)
	assert.Equal(t, uint32(2), primes[0])

	idx := 0
	for n := uint64(2); n <= 5000; n++ {
		if mathutil.IsPrimeUint64(n) {
			require.Less(t, idx, len(primes))
			assert.Equal(t, uint32(n), primes[idx], "prime #%d", idx)
			idx++
		}
	}
	assert.Equal(t, len(primes), idx)
	assert.Nil(t, PrimesUpTo(1))
}

func TestLegendre(t *testing.T) {
	// 4 = 9^2 mod 11 is a residue, 2 is not.
	assert.Equal(t, 1, Legendre(4, 11))
	assert.Equal(t, -1, Legendre(2, 11))
	assert.Equal(t, 0, Legendre(22, 11))

	for _, p := range PrimesUpTo(300)[1:] {
		squares := map[uint64]bool{}
		for x := uint64(1); x < uint64(p); x++ {
			squares[x*x%uint64(p)] = true
		}
		for a := uint64(1); a < uint64(p); a++ {
			want := -1
			if squares[a] {
				want = 1
			}
			require.Equal(t, want, Legendre(a, uint64(p)), "(%d|%d)", a, p)
		}
	}
}

func TestSqrtModPrime(t *testing.T) {
	for _, p32 := range PrimesUpTo(2000) {
		p := uint64(p32)
		for a := uint64(0); a < p && a < 200; a++ {
			r, ok := SqrtModPrime(a, p)
			if p > 2 && a != 0 && Legendre(a, p) != 1 {
				assert.False(t, ok, "non-residue %d mod %d", a, p)
				continue
			}
			require.True(t, ok, "sqrt(%d) mod %d", a, p)
			assert.Equal(t, a%p, r*r%p, "sqrt(%d) mod %d = %d", a, p, r)
		}
	}
}

func TestSqrtModPrimeLargeTwoAdicity(t *testing.T) {
	// 7681 - 1 = 2^9 * 15 exercises the full Tonelli-Shanks loop.
	const p = 7681
	for a := uint64(1); a < 500; a++ {
		if Legendre(a, p) != 1 {
			continue
		}
		r, ok := SqrtModPrime(a, p)
		require.True(t, ok)
		require.Equal(t, a, r*r%p)
	}
}

func TestInvMod(t *testing.T) {
	inv, ok := InvMod(5, 11)
	require.True(t, ok)
	assert.Equal(t, uint64(9), inv)

	_, ok = InvMod(6, 9)
	assert.False(t, ok)
	_, ok = InvMod(0, 7)
	assert.False(t, ok)

	for a := uint64(1); a < 97; a++ {
		inv, ok := InvMod(a, 97)
		require.True(t, ok)
		assert.Equal(t, uint64(1), a*inv%97)
	}
}

func TestHenselLift(t *testing.T) {
	for _, p32 := range PrimesUpTo(400)[1:] {
		p := uint64(p32)
		pp := p * p
		for n := uint64(1); n < 60; n++ {
			if n%p == 0 || Legendre(n, p) != 1 {
				continue
			}
			r, ok := SqrtModPrime(n, p)
			require.True(t, ok)
			lifted, ok := HenselLift(r, n, p)
			require.True(t, ok)
			assert.Equal(t, n%pp, lifted*lifted%pp, "lift of sqrt(%d) mod %d^2", n, p)
			assert.Equal(t, r, lifted%p)
		}
	}

	_, ok := HenselLift(0, 9, 3)
	assert.False(t, ok, "2r ≡ 0 must fail")
}

func TestModBig(t *testing.T) {
	n, ok := new(big.Int).SetString("123456789012345678901234567890123456789", 10)
	require.True(t, ok)
	for _, m := range []uint64{2, 3, 7, 97, 65537, 4294967291} {
		want := new(big.Int).Mod(n, new(big.Int).SetUint64(m)).Uint64()
		assert.Equal(t, want, ModBig(n, m), "mod %d", m)
	}
	neg := new(big.Int).Neg(n)
	want := new(big.Int).Mod(neg, big.NewInt(97)).Uint64()
	assert.Equal(t, want, ModSigned(neg, 97))
	assert.Equal(t, uint64(0), ModBig(new(big.Int), 13))
}

func TestRoots(t *testing.T) {
	n, _ := new(big.Int).SetString("1000000000000000000000000", 10)
	assert.Equal(t, "1000000000000", FloorSqrt(n).String())
	assert.Equal(t, "1000000000000", CeilSqrt(n).String())
	m := new(big.Int).Add(n, bigOne)
	assert.Equal(t, "1000000000001", CeilSqrt(m).String())

	assert.Equal(t, "100000000", FloorRoot(n, 3).String())
	assert.Equal(t, "99999999", FloorRoot(new(big.Int).Sub(n, bigOne), 3).String())
	assert.Equal(t, "1000", FloorRoot(n, 8).String())

	for k := 2; k < 12; k++ {
		for _, base := range []int64{2, 3, 10, 12345} {
			v := new(big.Int).Exp(big.NewInt(base), big.NewInt(int64(k)), nil)
			assert.Equal(t, base, FloorRoot(v, k).Int64(), "%d^%d", base, k)
			v.Sub(v, bigOne)
			assert.Equal(t, base-1, FloorRoot(v, k).Int64(), "%d^%d-1", base, k)
		}
	}
}

func TestPerfectPower(t *testing.T) {
	r, k, ok := PerfectPower(big.NewInt(1 << 20))
	require.True(t, ok)
	assert.Equal(t, int64(2), r.Int64())
	assert.Equal(t, 20, k)

	sq := new(big.Int).Mul(big.NewInt(1000003), big.NewInt(1000003))
	r, k, ok = PerfectPower(sq)
	require.True(t, ok)
	assert.Equal(t, int64(1000003), r.Int64())
	assert.Equal(t, 2, k)

	_, _, ok = PerfectPower(big.NewInt(8051))
	assert.False(t, ok)
	_, _, ok = PerfectPower(big.NewInt(1))
	assert.False(t, ok)
}
