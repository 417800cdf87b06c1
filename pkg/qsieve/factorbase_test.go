package qsieve

import (
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mahdiidarabi/quadsieve/internal/nt"
)

func TestBuildFactorBase_Retention(t *testing.T) {
	for _, s := range []string{"1000036000099", "1000000016000000063", "1000000000100000000002379"} {
		n := mustBig(t, s)
		fb, divisors := BuildFactorBase(n, 2000)
		require.Empty(t, divisors)
		require.Equal(t, uint32(2), fb[0])

		kept := make(map[uint32]bool)
		for i, p := range fb {
			kept[p] = true
			if i > 0 {
				require.Greater(t, p, fb[i-1], "factor base must ascend")
			}
		}
		for _, p := range nt.PrimesUpTo(2000) {
			if p == 2 {
				continue
			}
			l := nt.Legendre(nt.ModBig(n, uint64(p)), uint64(p))
			if kept[p] {
				assert.Equal(t, 1, l, "kept prime %d must be a residue", p)
			} else {
				assert.Equal(t, -1, l, "prime %d was excluded although n is a residue", p)
			}
		}
	}
}

func TestBuildFactorBase_Divisors(t *testing.T) {
	n := new(big.Int).Mul(big.NewInt(1009*1013), mustBig(t, "1000000007"))
	fb, divisors := BuildFactorBase(n, 1100)
	assert.Equal(t, []uint32{1009, 1013}, divisors)
	for _, p := range fb {
		assert.NotEqual(t, uint32(1009), p)
		assert.NotEqual(t, uint32(1013), p)
	}
}

func TestNewContext_Errors(t *testing.T) {
	n := mustBig(t, "1000036000099")
	opts := OptionsFor(n, LargePrimeOff)

	_, err := NewContext(n, opts, nil, nil)
	assert.True(t, errors.Is(err, ErrConfig), "empty factor base: %v", err)

	bad := opts
	bad.BlockLength = 0
	fb, _ := BuildFactorBase(n, opts.Bound)
	_, err = NewContext(n, bad, fb, nil)
	assert.True(t, errors.Is(err, ErrConfig), "zero block length: %v", err)

	_, err = NewContext(big.NewInt(0), opts, fb, nil)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	// 7 is not a residue of n, so the table cannot be built.
	require.Equal(t, -1, nt.Legendre(nt.ModBig(n, 7), 7))
	_, err = NewContext(n, opts, []uint32{2, 7}, zap.NewNop())
	assert.True(t, errors.Is(err, ErrConfig), "non-residue prime: %v", err)
}

func TestNewContext(t *testing.T) {
	n := mustBig(t, "1000000016000000063")
	c := newTestContext(t, n, LargePrimeOne)

	assert.NotEmpty(t, c.RunID)
	assert.Equal(t, len(c.FactorBase)+1, c.Width())
	assert.Equal(t, c.Width()+c.Options.Safety, c.Target())
	assert.Equal(t, c.Primes.Len(), len(c.FactorBase))
	assert.GreaterOrEqual(t, c.LargePrimeBound, uint64(c.LastPrime()))

	want := new(big.Int).Lsh(n, 1)
	want.Sqrt(want)
	want.Quo(want, big.NewInt(int64(c.Options.HalfInterval())))
	assert.Equal(t, 0, want.Cmp(c.TargetA()))
}
