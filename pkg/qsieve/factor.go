package qsieve

import (
	"context"
	"math/big"
	"sort"

	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v5/utils/factorization"
	"go.uber.org/zap"

	"github.com/mahdiidarabi/quadsieve/internal/nt"
)

// TinyPrimeBound is the trial-division limit applied before any other
// method.
const TinyPrimeBound = 1000

// DefaultShards is the shard count of the default large-prime manager.
const DefaultShards = 64

var bigOne = big.NewInt(1)

// Factor returns the prime factorization of n. If some composite cannot
// be split within the round budget it stays in the list and
// Result.Complete is false.
func (c *Client) Factor(ctx context.Context, n *big.Int) (*Result, error) {
	if n == nil || n.Sign() < 1 {
		return nil, errors.Wrapf(ErrInvalidInput, "cannot factor %v", n)
	}
	res := &Result{Complete: true}
	m := new(big.Int).Set(n)

	var q, r, bp big.Int
	for _, p := range nt.PrimesUpTo(TinyPrimeBound) {
		if m.Cmp(bigOne) == 0 {
			break
		}
		bp.SetUint64(uint64(p))
		for {
			q.QuoRem(m, &bp, &r)
			if r.Sign() != 0 {
				break
			}
			res.Factors = append(res.Factors, big.NewInt(int64(p)))
			m.Set(&q)
		}
	}

	if err := c.finish(ctx, m, res); err != nil {
		return nil, err
	}
	sort.Slice(res.Factors, func(i, j int) bool { return res.Factors[i].Cmp(res.Factors[j]) < 0 })
	return res, nil
}

// finish appends the prime factors of m to res.
func (c *Client) finish(ctx context.Context, m *big.Int, res *Result) error {
	if m.Cmp(bigOne) <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if factorization.IsPrime(m) {
		res.Factors = append(res.Factors, m)
		return nil
	}
	if root, k, ok := nt.PerfectPower(m); ok {
		for i := 0; i < k; i++ {
			if err := c.finish(ctx, root, res); err != nil {
				return err
			}
		}
		return nil
	}

	var pieces []*big.Int
	if m.BitLen() <= c.fallbackBits {
		pieces = splitSmall(m)
	}
	if len(pieces) < 2 {
		var err error
		pieces, err = c.sieve(ctx, m, res)
		if err != nil {
			return err
		}
	}
	if len(pieces) < 2 {
		res.Factors = append(res.Factors, m)
		res.Complete = false
		return nil
	}
	for _, p := range pieces {
		if err := c.finish(ctx, p, res); err != nil {
			return err
		}
	}
	return nil
}

// splitSmall splits a composite of at most 64 bits with lattigo's
// Pollard-rho and ECM routines.
func splitSmall(m *big.Int) []*big.Int {
	rest := new(big.Int).Set(m)
	var pieces []*big.Int
	var q, r big.Int
	for _, f := range factorization.GetFactors(m) {
		if f.Cmp(bigOne) <= 0 || f.Cmp(m) >= 0 {
			continue
		}
		for {
			q.QuoRem(rest, f, &r)
			if r.Sign() != 0 {
				break
			}
			pieces = append(pieces, new(big.Int).Set(f))
			rest.Set(&q)
		}
	}
	if len(pieces) == 0 {
		f := factorization.GetFactorPollardRho(m)
		if f == nil || f.Cmp(bigOne) <= 0 || f.Cmp(m) >= 0 {
			return nil
		}
		return []*big.Int{f, new(big.Int).Quo(m, f)}
	}
	if rest.Cmp(bigOne) > 0 {
		pieces = append(pieces, rest)
	}
	return pieces
}

// sieveRun is the mutable state of one sieve over a single composite.
type sieveRun struct {
	client  *Client
	qc      *Context
	log     *zap.Logger
	source  PolynomialSource
	manager RelationManager
	workers []BlockSieveWorker
	plan    *SievePlan
	target  int

	single    bool
	exhausted bool
	polys     int
}

// sieve runs the quadratic sieve on n. It returns a nontrivial split of n,
// or nil when the round budget runs out.
func (c *Client) sieve(ctx context.Context, n *big.Int, res *Result) ([]*big.Int, error) {
	opts := c.optionsFor(n)
	fb, divisors := BuildFactorBase(n, opts.Bound)
	if len(divisors) > 0 {
		return splitByDivisors(n, divisors), nil
	}
	qc, err := NewContext(n, opts, fb, c.logger)
	if err != nil {
		return nil, err
	}

	run := &sieveRun{
		client: c,
		qc:     qc,
		source: c.source,
		target: qc.Target(),
	}
	run.manager = c.manager
	if run.manager == nil {
		if opts.LargePrime == LargePrimeOne {
			run.manager = NewLargePrimeRelationManager(DefaultShards)
		} else {
			run.manager = NewFullRelationManager()
		}
	}
	run.manager.Reset(qc)
	run.workers = make([]BlockSieveWorker, opts.Workers)
	for i := range run.workers {
		run.workers[i] = c.factory.NewWorker(qc, c.checker)
	}
	if err := run.source.Reset(qc); err != nil {
		qc.Logger.Warn("polynomial source unusable, falling back to single polynomial",
			zap.String("source", run.source.Name()), zap.Error(err))
		if !run.fallback() {
			return nil, err
		}
	}
	run.log = qc.Logger.With(zap.String("source", run.source.Name()))
	run.log.Debug("sieve started",
		zap.Int("factor_base", len(fb)),
		zap.Uint32("last_prime", qc.LastPrime()),
		zap.Int("target", run.target),
		zap.Int("workers", opts.Workers),
		zap.String("large_prime", opts.LargePrime.String()),
	)

	defer func() {
		res.Polynomials += run.polys
	}()

	for round := 1; round <= opts.MaxRounds; round++ {
		res.Rounds++
		if err := run.collect(ctx); err != nil {
			return nil, errors.Wrap(err, "failed to collect relations")
		}
		if f := run.impliedFactor(); f != nil {
			run.log.Info("factor found by a large-prime merge", zap.String("factor", f.String()))
			return []*big.Int{f, new(big.Int).Quo(n, f)}, nil
		}

		rels := run.manager.Relations()
		res.Relations = len(rels)
		deps, err := c.solver.Solve(ctx, rels, qc.Width())
		if err != nil {
			return nil, errors.Wrap(err, "failed to solve")
		}
		for _, dep := range deps {
			if f := extractFactor(qc, rels, dep); f != nil {
				run.log.Info("factor found",
					zap.Int("round", round),
					zap.Int("relations", len(rels)),
					zap.Int("polynomials", run.polys),
					zap.String("factor", f.String()),
				)
				return []*big.Int{f, new(big.Int).Quo(n, f)}, nil
			}
		}

		st := run.manager.Stats()
		run.log.Info("round finished without a factor",
			zap.Int("round", round),
			zap.Int("relations", len(rels)),
			zap.Int("dependencies", len(deps)),
			zap.Int("partials", st.Partials),
			zap.Int("merged", st.Merged),
			zap.Int("polynomials", run.polys),
		)
		if run.exhausted {
			break
		}
		run.target += opts.Safety
	}
	run.log.Warn("round budget exhausted", zap.Int("relations", run.manager.FullCount()))
	return nil, nil
}

// collect pulls polynomials until the manager holds target relations.
func (r *sieveRun) collect(ctx context.Context) error {
	for r.manager.FullCount() < r.target {
		if err := ctx.Err(); err != nil {
			return err
		}
		step, ok := r.source.Next(r.qc)
		if !ok {
			r.log.Warn("polynomial source exhausted",
				zap.Int("relations", r.manager.FullCount()),
				zap.Int("target", r.target),
			)
			if r.fallback() {
				continue
			}
			r.exhausted = true
			return nil
		}
		r.polys++
		if err := r.preparePlan(step); err != nil {
			r.log.Debug("skipping polynomial", zap.Error(err))
			continue
		}
		job := SieveJob{
			Plan:         r.plan,
			Workers:      r.workers,
			Manager:      r.manager,
			Target:       r.target,
			FirstOrdinal: step.Poly.BlockOffset,
			Blocks:       r.qc.Options.BlocksPerPolynomial,
		}
		if err := r.client.scheduler.Collect(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

// preparePlan patches the current plan for a SIQS sibling or builds a new one.
func (r *sieveRun) preparePlan(step PolynomialStep) error {
	if step.Sibling && r.plan != nil {
		if err := r.plan.UpdateRoots(r.qc, step); err == nil {
			return nil
		}
	}
	plan, err := r.client.factory.BuildPlan(r.qc, step.Poly)
	if err != nil {
		r.plan = nil
		return err
	}
	r.plan = plan
	return nil
}

// fallback switches to the single-polynomial source once.
func (r *sieveRun) fallback() bool {
	if r.single {
		return false
	}
	src := NewSinglePolynomialSource()
	if err := src.Reset(r.qc); err != nil {
		return false
	}
	r.source = src
	r.single = true
	r.plan = nil
	if r.log != nil {
		r.log = r.qc.Logger.With(zap.String("source", src.Name()))
		r.log.Warn("switched to single polynomial")
	}
	return true
}

func (r *sieveRun) impliedFactor() *big.Int {
	n := r.qc.N
	for _, f := range r.manager.Factors() {
		if f.Cmp(bigOne) > 0 && f.Cmp(n) < 0 {
			return f
		}
	}
	return nil
}

// extractFactor tests gcd(|a−b|, N) and gcd(a+b, N) for a dependency.
func extractFactor(c *Context, rels []*Relation, dep []int) *big.Int {
	a, b, err := Square(c, rels, dep)
	if err != nil {
		return nil
	}
	for _, d := range []*big.Int{new(big.Int).Sub(a, b), new(big.Int).Add(a, b)} {
		d.Abs(d)
		g := new(big.Int).GCD(nil, nil, d, c.N)
		if g.Cmp(bigOne) > 0 && g.Cmp(c.N) < 0 {
			return g
		}
	}
	return nil
}

// splitByDivisors divides the small prime divisors out of n.
func splitByDivisors(n *big.Int, divisors []uint32) []*big.Int {
	rest := new(big.Int).Set(n)
	var pieces []*big.Int
	var q, r, bp big.Int
	for _, p := range divisors {
		bp.SetUint64(uint64(p))
		for {
			q.QuoRem(rest, &bp, &r)
			if r.Sign() != 0 {
				break
			}
			pieces = append(pieces, big.NewInt(int64(p)))
			rest.Set(&q)
		}
	}
	if rest.Cmp(bigOne) > 0 {
		pieces = append(pieces, rest)
	}
	return pieces
}
