package qsieve

import (
	"context"
	"math/big"
)

// PolynomialSource produces the polynomials of a sieve run.
// Implement this interface to plug in a different A-selection scheme.
type PolynomialSource interface {
	// Name returns a short identifier used in logs.
	Name() string

	// Reset prepares the source for a new run over c.
	Reset(c *Context) error

	// Next returns the next polynomial, or false once no admissible
	// polynomial is left.
	Next(c *Context) (PolynomialStep, bool)
}

// BlockSieveFactory builds plans and per-goroutine workers.
type BlockSieveFactory interface {
	// BuildPlan computes the roots of p modulo every sieve prime.
	BuildPlan(c *Context, p *Polynomial) (*SievePlan, error)

	// NewWorker returns a worker with private scratch buffers.
	NewWorker(c *Context, checker SmoothnessChecker) BlockSieveWorker
}

// BlockSieveWorker sieves single blocks. A worker is used by one goroutine
// at a time.
type BlockSieveWorker interface {
	// SieveBlock sieves block b, covering x ∈ [b·L, b·L+L), and submits
	// accepted candidates to sink.
	SieveBlock(plan *SievePlan, block int, sink RelationManager) (BlockStats, error)
}

// SmoothnessChecker decides whether a sieve value factors over the
// factor base. Implementations must be safe for concurrent use.
type SmoothnessChecker interface {
	// Check factors the positive value. The returned exponent vector is
	// freshly allocated and owned by the caller.
	Check(value *big.Int, c *Context) Smoothness
}

// RelationManager collects relations. Submit is called concurrently by
// every worker.
type RelationManager interface {
	// Reset drops every relation and binds the manager to c.
	Reset(c *Context)

	// Submit offers a candidate and reports whether it was kept.
	Submit(cand Candidate) bool

	// FullCount returns the number of full relations. It is safe to call
	// while workers submit.
	FullCount() int

	// Relations returns a snapshot of the full relations.
	Relations() []*Relation

	// Factors returns divisors of N found as a side effect.
	Factors() []*big.Int

	Stats() RelationStats
}

// RelationScheduler sieves the blocks of one polynomial across workers
// until the job is done or the relation target is met.
type RelationScheduler interface {
	Collect(ctx context.Context, job SieveJob) error
}

// DependencySolver finds subsets of relations whose exponent vectors sum
// to an even vector.
type DependencySolver interface {
	// Solve returns dependencies as index lists into rels. width is the
	// exponent vector length.
	Solve(ctx context.Context, rels []*Relation, width int) ([][]int, error)
}
