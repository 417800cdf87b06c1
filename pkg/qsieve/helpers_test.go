package qsieve

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func mustBig(t testing.TB, s string) *big.Int {
	t.Helper()
	n, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "bad integer %q", s)
	return n
}

func bigs(vals ...int64) []*big.Int {
	out := make([]*big.Int, len(vals))
	for i, v := range vals {
		out[i] = big.NewInt(v)
	}
	return out
}

func bigStrings(vals []*big.Int) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.String()
	}
	return out
}

// newTestContext builds a context over n with table options.
func newTestContext(t testing.TB, n *big.Int, mode LargePrimeMode) *Context {
	t.Helper()
	return newTestContextWith(t, n, OptionsFor(n, mode))
}

func newTestContextWith(t testing.TB, n *big.Int, opts Options) *Context {
	t.Helper()
	fb, divisors := BuildFactorBase(n, opts.Bound)
	require.Empty(t, divisors, "test n must be coprime to the factor base")
	c, err := NewContext(n, opts, fb, zap.NewNop())
	require.NoError(t, err)
	return c
}

// residue returns (−1)^e₀ · ∏ pᵢ^eᵢ₊₁ mod N.
func residue(c *Context, exps ExponentVector) *big.Int {
	v := big.NewInt(1)
	var bp, pe big.Int
	for i, e := range exps {
		if i == 0 || e == 0 {
			continue
		}
		bp.SetUint64(uint64(c.FactorBase[i-1]))
		pe.Exp(&bp, big.NewInt(int64(e)), c.N)
		v.Mul(v, &pe)
		v.Mod(v, c.N)
	}
	if exps[0]&1 == 1 {
		v.Sub(c.N, v)
		v.Mod(v, c.N)
	}
	return v
}

// requireRelation checks X² ≡ L·(−1)^e₀·∏ pᵢ^eᵢ₊₁ (mod N), with L = 1 for
// full relations.
func requireRelation(t testing.TB, c *Context, x *big.Int, exps ExponentVector, large uint64) {
	t.Helper()
	require.Len(t, exps, c.Width())
	lhs := new(big.Int).Mul(x, x)
	lhs.Mod(lhs, c.N)
	rhs := residue(c, exps)
	if large > 1 {
		rhs.Mul(rhs, new(big.Int).SetUint64(large))
		rhs.Mod(rhs, c.N)
	}
	require.Equal(t, 0, lhs.Cmp(rhs), "X² ≢ product (mod N) for X=%s", x)
}

// recordingManager keeps every submitted candidate.
type recordingManager struct {
	mu    sync.Mutex
	cands []Candidate
	full  int
}

func (m *recordingManager) Reset(c *Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cands, m.full = nil, 0
}

func (m *recordingManager) Submit(cand Candidate) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cands = append(m.cands, cand)
	if cand.LargePrime == 1 {
		m.full++
	}
	return true
}

func (m *recordingManager) FullCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.full
}

func (m *recordingManager) Relations() []*Relation { return nil }
func (m *recordingManager) Factors() []*big.Int    { return nil }
func (m *recordingManager) Stats() RelationStats   { return RelationStats{} }

// collectRelations sieves n with the given source until the relation
// target of the context is met.
func collectRelations(t testing.TB, c *Context, source PolynomialSource, manager RelationManager) []*Relation {
	t.Helper()
	client := NewClient()
	run := &sieveRun{
		client:  client,
		qc:      c,
		log:     zap.NewNop(),
		source:  source,
		manager: manager,
		target:  c.Target(),
	}
	manager.Reset(c)
	require.NoError(t, source.Reset(c))
	run.workers = []BlockSieveWorker{
		client.factory.NewWorker(c, client.checker),
		client.factory.NewWorker(c, client.checker),
	}
	require.NoError(t, run.collect(context.Background()))
	return manager.Relations()
}
