package qsieve

import (
	"math/big"
)

// BlockStats counts what one block produced.
type BlockStats struct {
	Candidates int
	Full       int
	Partial    int
	Submitted  int
}

// Add accumulates other into s.
func (s *BlockStats) Add(other BlockStats) {
	s.Candidates += other.Candidates
	s.Full += other.Full
	s.Partial += other.Partial
	s.Submitted += other.Submitted
}

// BlockSieve is the default log-sieve factory.
type BlockSieve struct{}

// NewBlockSieve returns the default factory.
func NewBlockSieve() *BlockSieve {
	return &BlockSieve{}
}

func (f *BlockSieve) BuildPlan(c *Context, p *Polynomial) (*SievePlan, error) {
	return BuildPlan(c, p)
}

func (f *BlockSieve) NewWorker(c *Context, checker SmoothnessChecker) BlockSieveWorker {
	slack := (c.Options.LogSlack + c.largePrimeBits()) * c.Options.LogScale
	return &blockWorker{
		c:       c,
		checker: checker,
		acc:     make([]uint16, c.Options.BlockLength),
		slack:   slack,
	}
}

type blockWorker struct {
	c       *Context
	checker SmoothnessChecker
	acc     []uint16
	slack   int

	g, delta, twoA, abs big.Int
}

// SieveBlock sieves x ∈ [block·L, block·L + L) and submits every
// candidate that passes the smoothness check.
func (w *blockWorker) SieveBlock(plan *SievePlan, block int, sink RelationManager) (BlockStats, error) {
	var stats BlockStats
	c := w.c
	L := len(w.acc)
	acc := w.acc
	for j := range acc {
		acc[j] = 0
	}

	for i := range plan.primes {
		pp := &plan.primes[i]
		if pp.skip {
			continue
		}
		sp := &c.Primes.Primes[i]
		logp := sp.Log
		p := int(sp.P)
		for j := firstHit(pp.r1, pp.stride, sp.P, block); j < L; j += p {
			acc[j] += logp
		}
		if pp.r2 != pp.r1 {
			for j := firstHit(pp.r2, pp.stride, sp.P, block); j < L; j += p {
				acc[j] += logp
			}
		}
		if pp.sqSkip {
			continue
		}
		q := int(sp.Square)
		for j := firstHit(pp.sq1, pp.sqStride, sp.Square, block); j < L; j += q {
			acc[j] += logp
		}
		if pp.sq2 != pp.sq1 {
			for j := firstHit(pp.sq2, pp.sqStride, sp.Square, block); j < L; j += q {
				acc[j] += logp
			}
		}
	}

	poly := plan.Poly
	x0 := int64(block) * int64(L)
	// g(x0), Δ = g(x0+1) − g(x0) = A(2x0+1) + 2B, and the second difference 2A
	w.g.Set(poly.Eval(x0))
	w.delta.SetInt64(2*x0 + 1)
	w.delta.Mul(&w.delta, poly.A)
	w.delta.Add(&w.delta, poly.B)
	w.delta.Add(&w.delta, poly.B)
	w.twoA.Lsh(poly.A, 1)

	scale := c.Options.LogScale
	for j := 0; j < L; j++ {
		if int(acc[j])+w.slack >= w.g.BitLen()*scale {
			stats.Candidates++
			w.submit(poly, x0+int64(j), sink, &stats)
		}
		w.g.Add(&w.g, &w.delta)
		w.delta.Add(&w.delta, &w.twoA)
	}
	return stats, nil
}

func (w *blockWorker) submit(poly *Polynomial, x int64, sink RelationManager, stats *BlockStats) {
	w.abs.Abs(&w.g)
	sm := w.checker.Check(&w.abs, w.c)
	if sm.Kind == Rejected {
		return
	}
	exps := sm.Exponents
	if w.g.Sign() < 0 {
		exps[0] = 1
	}
	for _, idx := range poly.Factors {
		exps[idx+1]++
	}
	if sm.Kind == Full {
		stats.Full++
	} else {
		stats.Partial++
	}
	cand := Candidate{
		X:          poly.Root(x, w.c.N),
		Exponents:  exps,
		LargePrime: sm.Remainder,
	}
	if sink.Submit(cand) {
		stats.Submitted++
	}
}
