package qsieve

import (
	"math/big"
	"sync"
	"sync/atomic"
)

// Relation satisfies X² ≡ (−1)^e₀ · ∏ pᵢ^eᵢ₊₁ (mod N). LargePrime is
// zero for directly smooth relations and L for a merged pair.
type Relation struct {
	X          *big.Int
	Exponents  ExponentVector
	LargePrime uint64
}

// Candidate is a relation as submitted by a worker. LargePrime is 1 for a
// full relation and the leftover prime for a partial one, in which case
// X² ≡ L · ∏ … (mod N).
type Candidate struct {
	X          *big.Int
	Exponents  ExponentVector
	LargePrime uint64
}

// RelationStats summarises a relation manager.
type RelationStats struct {
	Full       int
	Merged     int
	Partials   int
	Duplicates int
	Implied    int
}

// relationStore is the full-relation list shared by both managers.
type relationStore struct {
	n *big.Int

	mu     sync.Mutex
	rels   []*Relation
	seen   fingerprintSet
	dups   int
	merged int

	count atomic.Int64
}

func (s *relationStore) reset(n *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n = n
	s.rels = nil
	s.seen = make(fingerprintSet)
	s.dups, s.merged = 0, 0
	s.count.Store(0)
}

// canonical maps X and N − X to the same key; both yield the same square.
func (s *relationStore) canonical(x *big.Int) *big.Int {
	if s.n == nil {
		return x
	}
	neg := new(big.Int).Sub(s.n, x)
	if neg.Cmp(x) < 0 {
		return neg
	}
	return x
}

func (s *relationStore) add(r *Relation) bool {
	key := s.canonical(r.X)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seen.add(key) {
		s.dups++
		return false
	}
	s.rels = append(s.rels, r)
	if r.LargePrime != 0 {
		s.merged++
	}
	s.count.Add(1)
	return true
}

func (s *relationStore) snapshot() []*Relation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Relation(nil), s.rels...)
}

// FullRelationManager keeps fully smooth relations only.
type FullRelationManager struct {
	store relationStore
}

// NewFullRelationManager returns a manager without large-prime support.
func NewFullRelationManager() *FullRelationManager {
	return &FullRelationManager{}
}

func (m *FullRelationManager) Reset(c *Context) { m.store.reset(c.N) }

func (m *FullRelationManager) Submit(cand Candidate) bool {
	if cand.LargePrime != 1 {
		return false
	}
	return m.store.add(&Relation{X: cand.X, Exponents: cand.Exponents})
}

func (m *FullRelationManager) FullCount() int { return int(m.store.count.Load()) }

func (m *FullRelationManager) Relations() []*Relation { return m.store.snapshot() }

func (m *FullRelationManager) Factors() []*big.Int { return nil }

func (m *FullRelationManager) Stats() RelationStats {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return RelationStats{Full: len(m.store.rels), Duplicates: m.store.dups}
}

type partialShard struct {
	mu       sync.Mutex
	partials map[uint64]*Candidate
}

// LargePrimeRelationManager also stores partial relations in shards keyed
// by the large prime. A second partial with the same prime is merged with
// the first into a full relation.
type LargePrimeRelationManager struct {
	store  relationStore
	shards []partialShard
	mask   uint64

	partials atomic.Int64

	fmu     sync.Mutex
	factors []*big.Int
}

// NewLargePrimeRelationManager returns a manager with the given number of
// shards, rounded up to a power of two.
func NewLargePrimeRelationManager(shards int) *LargePrimeRelationManager {
	n := 1
	for n < shards {
		n <<= 1
	}
	return &LargePrimeRelationManager{
		shards: make([]partialShard, n),
		mask:   uint64(n - 1),
	}
}

func (m *LargePrimeRelationManager) Reset(c *Context) {
	m.store.reset(c.N)
	for i := range m.shards {
		m.shards[i].mu.Lock()
		m.shards[i].partials = make(map[uint64]*Candidate)
		m.shards[i].mu.Unlock()
	}
	m.partials.Store(0)
	m.fmu.Lock()
	m.factors = nil
	m.fmu.Unlock()
}

func (m *LargePrimeRelationManager) Submit(cand Candidate) bool {
	if cand.LargePrime == 1 {
		return m.store.add(&Relation{X: cand.X, Exponents: cand.Exponents})
	}
	if cand.LargePrime == 0 {
		return false
	}
	L := cand.LargePrime
	shard := &m.shards[L&m.mask]
	shard.mu.Lock()
	prev, ok := shard.partials[L]
	if !ok {
		c := cand
		shard.partials[L] = &c
	}
	shard.mu.Unlock()
	if !ok {
		m.partials.Add(1)
		return true
	}

	n := m.store.n
	if prev.X.Cmp(cand.X) == 0 || new(big.Int).Add(prev.X, cand.X).Cmp(n) == 0 {
		m.store.mu.Lock()
		m.store.dups++
		m.store.mu.Unlock()
		return false
	}
	bl := new(big.Int).SetUint64(L)
	if g := new(big.Int).GCD(nil, nil, bl, n); g.Cmp(big.NewInt(1)) != 0 {
		m.fmu.Lock()
		m.factors = append(m.factors, g)
		m.fmu.Unlock()
		return false
	}
	r, ok := MergePartials(prev, &cand, n)
	if !ok {
		return false
	}
	return m.store.add(r)
}

// MergePartials combines two partial relations sharing the large prime L:
// X = X₁·X₂·L⁻¹ mod N and the exponents add up. It fails when L is not
// invertible modulo N.
func MergePartials(a, b *Candidate, n *big.Int) (*Relation, bool) {
	if a.LargePrime != b.LargePrime || len(a.Exponents) != len(b.Exponents) {
		return nil, false
	}
	inv := new(big.Int).ModInverse(new(big.Int).SetUint64(a.LargePrime), n)
	if inv == nil {
		return nil, false
	}
	x := new(big.Int).Mul(a.X, b.X)
	x.Mul(x, inv)
	x.Mod(x, n)
	exps := make(ExponentVector, len(a.Exponents))
	for i := range exps {
		exps[i] = a.Exponents[i] + b.Exponents[i]
	}
	return &Relation{X: x, Exponents: exps, LargePrime: a.LargePrime}, true
}

func (m *LargePrimeRelationManager) FullCount() int { return int(m.store.count.Load()) }

func (m *LargePrimeRelationManager) Relations() []*Relation { return m.store.snapshot() }

func (m *LargePrimeRelationManager) Factors() []*big.Int {
	m.fmu.Lock()
	defer m.fmu.Unlock()
	return append([]*big.Int(nil), m.factors...)
}

func (m *LargePrimeRelationManager) Stats() RelationStats {
	m.fmu.Lock()
	implied := len(m.factors)
	m.fmu.Unlock()
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return RelationStats{
		Full:       len(m.store.rels),
		Merged:     m.store.merged,
		Partials:   int(m.partials.Load()),
		Duplicates: m.store.dups,
		Implied:    implied,
	}
}
