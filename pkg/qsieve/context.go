package qsieve

import (
	"math"
	"math/big"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Context is the read-only state of one sieve run. It is shared by every
// worker without locking.
type Context struct {
	N          *big.Int
	Options    Options
	FactorBase []uint32
	Primes     *SievePrimeTable
	Logger     *zap.Logger
	RunID      string

	// LargePrimeBound is zero when partial relations are disabled.
	LargePrimeBound uint64

	maxLog2 float64
}

// NewContext validates the options and builds the sieve prime table.
func NewContext(n *big.Int, opts Options, fb []uint32, logger *zap.Logger) (*Context, error) {
	if n == nil || n.Sign() <= 0 {
		return nil, errors.Wrap(ErrInvalidInput, "n must be positive")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(fb) == 0 {
		return nil, errors.Wrap(ErrConfig, "empty factor base")
	}
	primes, err := NewSievePrimeTable(n, fb, opts)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New().String()
	last := fb[len(fb)-1]
	c := &Context{
		N:               new(big.Int).Set(n),
		Options:         opts,
		FactorBase:      fb,
		Primes:          primes,
		RunID:           id,
		LargePrimeBound: opts.LargePrimeBound(last),
		Logger: logger.With(
			zap.String("run", id),
			zap.Int("n_digits", len(n.String())),
		),
		maxLog2: math.Log2(float64(last)),
	}
	return c, nil
}

// Width is the length of every exponent vector: one sign bit plus one
// entry per factor-base prime.
func (c *Context) Width() int { return len(c.FactorBase) + 1 }

// Target is the initial number of full relations to collect.
func (c *Context) Target() int { return c.Width() + c.Options.Safety }

// LastPrime returns the largest factor-base prime.
func (c *Context) LastPrime() uint32 { return c.FactorBase[len(c.FactorBase)-1] }

// TargetA returns √(2N)/M, the size every multiple-polynomial source aims
// its A coefficient at.
func (c *Context) TargetA() *big.Int {
	t := new(big.Int).Lsh(c.N, 1)
	t.Sqrt(t)
	return t.Quo(t, big.NewInt(int64(c.Options.HalfInterval())))
}

// largePrimeBits is ⌈log2 LargePrimeBound⌉, or zero.
func (c *Context) largePrimeBits() int {
	if c.LargePrimeBound == 0 {
		return 0
	}
	return int(math.Ceil(math.Log2(float64(c.LargePrimeBound))))
}
