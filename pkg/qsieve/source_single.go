package qsieve

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/mahdiidarabi/quadsieve/internal/nt"
)

// SinglePolynomialSource is the classic quadratic sieve: A = 1,
// B = ⌈√N⌉. Each step sieves the next ring of blocks around x = 0.
type SinglePolynomialSource struct {
	poly   *Polynomial
	issued int
}

// NewSinglePolynomialSource returns a single-polynomial source.
func NewSinglePolynomialSource() *SinglePolynomialSource {
	return &SinglePolynomialSource{}
}

func (s *SinglePolynomialSource) Name() string { return "single" }

func (s *SinglePolynomialSource) Reset(c *Context) error {
	b := nt.CeilSqrt(c.N)
	p, err := NewPolynomial(c.N, big.NewInt(1), b, nil)
	if err != nil {
		return errors.Wrap(err, "single polynomial")
	}
	s.poly = p
	s.issued = 0
	return nil
}

func (s *SinglePolynomialSource) Next(c *Context) (PolynomialStep, bool) {
	if s.poly == nil || s.issued >= c.Options.MaxPolynomials {
		return PolynomialStep{}, false
	}
	p := *s.poly
	p.BlockOffset = s.issued * c.Options.BlocksPerPolynomial
	s.issued++
	return PolynomialStep{Poly: &p}, true
}
