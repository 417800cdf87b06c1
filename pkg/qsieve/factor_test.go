package qsieve

import (
	"context"
	"math/big"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func factorStrings(t *testing.T, c *Client, n string) ([]string, *Result) {
	t.Helper()
	res, err := c.Factor(context.Background(), mustBig(t, n))
	require.NoError(t, err)
	require.True(t, res.Complete, "factorization of %s incomplete: %v", n, bigStrings(res.Factors))
	return bigStrings(res.Factors), res
}

func TestFactor_Small(t *testing.T) {
	cases := map[string][]string{
		"8051":          {"83", "97"},
		"1":             {},
		"2":             {"2"},
		"1000000007":    {"1000000007"},
		"1000006000009": {"1000003", "1000003"},
		"720":           {"2", "2", "2", "2", "3", "3", "5"},
		// 60 bits, split without sieving
		"1000000016000000063": {"1000000007", "1000000009"},
	}
	client := NewClient()
	for n, want := range cases {
		t.Run(n, func(t *testing.T) {
			got, res := factorStrings(t, client, n)
			assert.Equal(t, want, got)
			assert.Zero(t, res.Rounds, "no sieve needed")
		})
	}
}

func TestFactor_InvalidInput(t *testing.T) {
	client := NewClient()
	for _, n := range []*big.Int{nil, big.NewInt(0), big.NewInt(-15)} {
		_, err := client.Factor(context.Background(), n)
		assert.True(t, errors.Is(err, ErrInvalidInput), "n=%v: %v", n, err)
	}
}

func TestFactor_ForcedSieve(t *testing.T) {
	sources := []func() PolynomialSource{
		func() PolynomialSource { return NewSIQSSource() },
		func() PolynomialSource { return NewLogTargetSwapSource() },
		func() PolynomialSource { return NewGreedySource() },
		func() PolynomialSource { return NewSinglePolynomialSource() },
	}
	cases := map[string][]string{
		"1000036000099":       {"1000003", "1000033"},
		"1000000016000000063": {"1000000007", "1000000009"},
	}
	for _, mk := range sources {
		for _, mode := range []LargePrimeMode{LargePrimeOff, LargePrimeOne} {
			src := mk()
			t.Run(src.Name()+"/"+mode.String(), func(t *testing.T) {
				client := NewClient().
					WithPolynomialSource(src).
					WithLargePrime(mode).
					WithWorkers(2).
					WithFallbackBits(0).
					WithLogger(zaptest.NewLogger(t))
				for n, want := range cases {
					got, res := factorStrings(t, client, n)
					assert.Equal(t, want, got)
					assert.Positive(t, res.Rounds)
					assert.Positive(t, res.Polynomials)
					assert.Positive(t, res.Relations)
				}
			})
		}
	}
}

func TestClient_FallbackBits(t *testing.T) {
	const n = "1000036000099"
	_, res := factorStrings(t, NewClient(), n)
	assert.Zero(t, res.Rounds)

	got, res := factorStrings(t, NewClient().WithFallbackBits(0), n)
	assert.Equal(t, []string{"1000003", "1000033"}, got)
	assert.Positive(t, res.Rounds)

	// 40 bits is above a 32-bit threshold, so the sieve runs
	_, res = factorStrings(t, NewClient().WithFallbackBits(32), n)
	assert.Positive(t, res.Rounds)

	c := NewClient().WithFallbackBits(-5)
	assert.Zero(t, c.fallbackBits)
}

func TestFactorSIQS_Semiprime(t *testing.T) {
	n := mustBig(t, "1000000000100000000002379")
	factors, err := FactorSIQS(context.Background(), n, LargePrimeOne)
	require.NoError(t, err)
	assert.Equal(t, []string{"1000000000039", "1000000000061"}, bigStrings(factors))
}

func TestFactorMPQS_Semiprime(t *testing.T) {
	n := mustBig(t, "1000000000100000000002379")
	factors, err := FactorMPQS(context.Background(), n, LargePrimeOff)
	require.NoError(t, err)
	assert.Equal(t, []string{"1000000000039", "1000000000061"}, bigStrings(factors))
}

func TestFactor_MixedComposite(t *testing.T) {
	// 1000000000039 · 1000000000021, where the second factor is 11·17·12119·441257
	got, _ := factorStrings(t, NewClient(), "1000000000060000000000819")
	assert.Equal(t, []string{"11", "17", "12119", "441257", "1000000000039"}, got)

	factors, err := FactorGreedy(context.Background(), mustBig(t, "1000000000060000000000819"), LargePrimeOff)
	require.NoError(t, err)
	assert.Equal(t, got, bigStrings(factors))
}

func TestFactorSingle(t *testing.T) {
	n := mustBig(t, "1000000000100000000002379")
	factors, err := FactorSingle(context.Background(), n, LargePrimeOne)
	require.NoError(t, err)
	assert.Equal(t, []string{"1000000000039", "1000000000061"}, bigStrings(factors))
}

// emptySolver never finds a dependency.
type emptySolver struct{}

func (emptySolver) Solve(context.Context, []*Relation, int) ([][]int, error) { return nil, nil }

func TestFactor_Incomplete(t *testing.T) {
	n := mustBig(t, "1000036000099")
	opts, err := NewOptionsBuilder(OptionsFor(n, LargePrimeOff)).
		WithWorkers(2).
		WithBudget(2, 1000).
		Build()
	require.NoError(t, err)

	client := NewClient().WithOptions(opts).WithSolver(emptySolver{}).WithFallbackBits(0)
	res, err := client.Factor(context.Background(), n)
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Equal(t, []string{"1000036000099"}, bigStrings(res.Factors))
	assert.Equal(t, 2, res.Rounds)
}

func TestFactor_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := NewClient().WithFallbackBits(0)
	_, err := client.Factor(ctx, mustBig(t, "1000036000099"))
	assert.ErrorIs(t, err, context.Canceled)
}

// countingChecker wraps the default checker and counts accepted values.
type countingChecker struct {
	TrialDivisionChecker
	hits atomic.Int64
}

func (c *countingChecker) Check(v *big.Int, qc *Context) Smoothness {
	s := c.TrialDivisionChecker.Check(v, qc)
	if s.Kind != Rejected {
		c.hits.Add(1)
	}
	return s
}

func TestClient_CustomStrategies(t *testing.T) {
	checker := &countingChecker{}
	manager := NewFullRelationManager()
	client := NewClient().
		WithChecker(checker).
		WithScheduler(NewSequentialScheduler()).
		WithRelationManager(manager).
		WithSieveFactory(NewBlockSieve()).
		WithSolver(NewGaussianSolver().WithPrune(false)).
		WithPolynomialSource(NewGreedySource()).
		WithWorkers(1).
		WithFallbackBits(0).
		WithLogger(nil)

	got, _ := factorStrings(t, client, "1000036000099")
	assert.Equal(t, []string{"1000003", "1000033"}, got)
	assert.Positive(t, checker.hits.Load())
	assert.Positive(t, manager.FullCount())
}

func TestClient_OptionsFor(t *testing.T) {
	n := mustBig(t, "1000036000099")
	client := NewClient().WithLargePrime(LargePrimeOne).WithWorkers(3)
	opts := client.optionsFor(n)
	assert.Equal(t, LargePrimeOne, opts.LargePrime)
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, DefaultOptionsTable().ForDigits(13).Bound, opts.Bound)

	table := OptionsTable{Rows: []TableRow{{MaxDigits: 100, Bound: 777, Safety: 9, BlockLength: 2048, BlocksPerPolynomial: 1, MaxABits: 30, LogSlack: 12}}}
	opts = NewClient().WithOptionsTable(table).optionsFor(n)
	assert.Equal(t, 777, opts.Bound)

	fixed := OptionsFor(n, LargePrimeOff)
	fixed.Bound = 321
	opts = NewClient().WithOptions(fixed).optionsFor(mustBig(t, "1000000000100000000002379"))
	assert.Equal(t, 321, opts.Bound)
}

func TestClient_FactorFile(t *testing.T) {
	client := NewClient()
	results, err := client.FactorFile(context.Background(), filepath.Join("..", "..", "fixtures", "targets.json"))
	require.NoError(t, err)
	require.Len(t, results, 4)

	want := [][]string{
		{"83", "97"},
		{"83", "97"},
		{"11", "17", "12119", "441257", "1000000000039"},
		{"1000000007", "1000000009"},
	}
	for i, r := range results {
		require.NoError(t, r.Err, "target %s", r.Target.Label)
		assert.True(t, r.Result.Complete)
		assert.Equal(t, want[i], bigStrings(r.Result.Factors), "target %s", r.Target.Label)
	}

	_, err = client.FactorFile(context.Background(), "targets.xml")
	assert.Error(t, err)

	csvResults, err := client.FactorFileAs(context.Background(), filepath.Join("..", "..", "fixtures", "targets.csv"), "csv")
	require.NoError(t, err)
	require.Len(t, csvResults, 4)
	for i, r := range csvResults {
		require.NoError(t, r.Err)
		assert.Equal(t, want[i], bigStrings(r.Result.Factors))
	}

	_, err = client.FactorFileAs(context.Background(), filepath.Join("..", "..", "fixtures", "targets.json"), "text")
	assert.Error(t, err)
}
