package qsieve

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mahdiidarabi/quadsieve/internal/parser"
)

// Client factors integers with a configurable sieve. Every strategy can be
// replaced through the With methods. A Client runs one factoring call at a
// time.
type Client struct {
	checker   SmoothnessChecker
	factory   BlockSieveFactory
	scheduler RelationScheduler
	manager   RelationManager
	source    PolynomialSource
	solver    DependencySolver

	options    *Options
	table      OptionsTable
	largePrime LargePrimeMode
	workers    int
	logger     *zap.Logger

	// cofactors up to this many bits are split without sieving
	fallbackBits int
}

// NewClient creates a client that runs SIQS without large primes.
func NewClient() *Client {
	return &Client{
		checker:      NewTrialDivisionChecker(),
		factory:      NewBlockSieve(),
		scheduler:    NewParallelScheduler(),
		source:       NewSIQSSource(),
		solver:       NewGaussianSolver(),
		table:        DefaultOptionsTable(),
		logger:       zap.NewNop(),
		fallbackBits: 64,
	}
}

// WithChecker sets the smoothness checker.
func (c *Client) WithChecker(checker SmoothnessChecker) *Client {
	c.checker = checker
	return c
}

// WithSieveFactory sets the block sieve factory.
func (c *Client) WithSieveFactory(factory BlockSieveFactory) *Client {
	c.factory = factory
	return c
}

// WithScheduler sets the relation scheduler.
func (c *Client) WithScheduler(scheduler RelationScheduler) *Client {
	c.scheduler = scheduler
	return c
}

// WithRelationManager sets the relation manager. Without one the client
// picks a manager matching the large-prime mode of each run.
func (c *Client) WithRelationManager(manager RelationManager) *Client {
	c.manager = manager
	return c
}

// WithPolynomialSource sets the polynomial source.
func (c *Client) WithPolynomialSource(source PolynomialSource) *Client {
	c.source = source
	return c
}

// WithSolver sets the dependency solver.
func (c *Client) WithSolver(solver DependencySolver) *Client {
	c.solver = solver
	return c
}

// WithOptions fixes the options of every run instead of looking them up
// by digit count.
func (c *Client) WithOptions(opts Options) *Client {
	c.options = &opts
	return c
}

// WithOptionsTable replaces the digit-indexed options table.
func (c *Client) WithOptionsTable(table OptionsTable) *Client {
	c.table = table
	return c
}

// WithLargePrime sets the large-prime mode used with table options.
func (c *Client) WithLargePrime(mode LargePrimeMode) *Client {
	c.largePrime = mode
	return c
}

// WithWorkers overrides the degree of parallelism.
func (c *Client) WithWorkers(n int) *Client {
	c.workers = n
	return c
}

// WithFallbackBits sets the size up to which composites are split with
// Pollard rho instead of the sieve. Zero sends every composite to the sieve.
func (c *Client) WithFallbackBits(bits int) *Client {
	if bits < 0 {
		bits = 0
	}
	c.fallbackBits = bits
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c.logger = logger
	return c
}

// optionsFor returns the options of a run over n.
func (c *Client) optionsFor(n *big.Int) Options {
	var o Options
	if c.options != nil {
		o = *c.options
	} else {
		o = c.table.For(n, c.largePrime)
	}
	if c.workers > 0 {
		o.Workers = c.workers
	}
	return o
}

// Result is the outcome of Factor.
type Result struct {
	// Factors lists the prime factors in ascending order with multiplicity.
	// When Complete is false it also holds the composites that could not
	// be split.
	Factors  []*big.Int
	Complete bool

	Rounds      int
	Polynomials int
	Relations   int
}

// TargetResult pairs a parsed target with its factorization.
type TargetResult struct {
	Target *parser.Target
	Result *Result
	Err    error
}

// FactorFile factors every target listed in a JSON, CSV or text file.
// A failing target records its error and does not stop the batch.
func (c *Client) FactorFile(ctx context.Context, source string) ([]*TargetResult, error) {
	return c.FactorFileAs(ctx, source, "")
}

// FactorFileAs is FactorFile with an explicit format: json, csv or text.
// An empty format is taken from the file extension.
func (c *Client) FactorFileAs(ctx context.Context, source, format string) ([]*TargetResult, error) {
	p, err := parser.ForFile(source, format)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pick parser")
	}
	targets, err := p.ParseTargets(source)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse targets")
	}
	return c.FactorTargets(ctx, targets)
}

// FactorTargets factors already parsed targets in order.
func (c *Client) FactorTargets(ctx context.Context, targets []*parser.Target) ([]*TargetResult, error) {
	out := make([]*TargetResult, 0, len(targets))
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := c.Factor(ctx, t.N)
		out = append(out, &TargetResult{Target: t, Result: res, Err: err})
	}
	return out, nil
}

// FactorSIQS factors n with self-initializing polynomial families.
func FactorSIQS(ctx context.Context, n *big.Int, mode LargePrimeMode) ([]*big.Int, error) {
	return factorWith(ctx, n, NewSIQSSource(), mode)
}

// FactorMPQS factors n with log-target-swap A selection.
func FactorMPQS(ctx context.Context, n *big.Int, mode LargePrimeMode) ([]*big.Int, error) {
	return factorWith(ctx, n, NewLogTargetSwapSource(), mode)
}

// FactorGreedy factors n with greedy sliding-window A selection.
func FactorGreedy(ctx context.Context, n *big.Int, mode LargePrimeMode) ([]*big.Int, error) {
	return factorWith(ctx, n, NewGreedySource(), mode)
}

// FactorSingle factors n with the single-polynomial sieve.
func FactorSingle(ctx context.Context, n *big.Int, mode LargePrimeMode) ([]*big.Int, error) {
	return factorWith(ctx, n, NewSinglePolynomialSource(), mode)
}

func factorWith(ctx context.Context, n *big.Int, source PolynomialSource, mode LargePrimeMode) ([]*big.Int, error) {
	res, err := NewClient().
		WithPolynomialSource(source).
		WithLargePrime(mode).
		Factor(ctx, n)
	if err != nil {
		return nil, err
	}
	return res.Factors, nil
}
