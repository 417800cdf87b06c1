package qsieve

import (
	"math/big"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LargePrimeMode selects whether partial relations are collected.
type LargePrimeMode int

const (
	// LargePrimeOff keeps fully smooth relations only.
	LargePrimeOff LargePrimeMode = iota
	// LargePrimeOne also keeps relations with one leftover prime and pairs them.
	LargePrimeOne
)

func (m LargePrimeMode) String() string {
	switch m {
	case LargePrimeOne:
		return "one"
	default:
		return "off"
	}
}

// ParseLargePrimeMode accepts "off", "none", "one" and "1lp".
func ParseLargePrimeMode(s string) (LargePrimeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none", "0":
		return LargePrimeOff, nil
	case "one", "1lp", "1", "on":
		return LargePrimeOne, nil
	default:
		return LargePrimeOff, errors.Wrapf(ErrConfig, "unknown large prime mode %q", s)
	}
}

// Options is the immutable configuration of one sieve run.
type Options struct {
	// Bound is the largest prime considered for the factor base.
	Bound int `yaml:"bound"`
	// Safety is the number of relations collected beyond the factor base size.
	Safety int `yaml:"safety"`
	// BlockLength is the sieve block length; a power of two works best.
	BlockLength int `yaml:"block_length"`
	// BlocksPerPolynomial is the number of blocks sieved per polynomial.
	BlocksPerPolynomial int `yaml:"blocks"`
	// MaxABits caps the bit length of the polynomial coefficient A.
	MaxABits int `yaml:"max_a_bits"`
	// LogScale is the number of accumulator units per bit of log2.
	LogScale int `yaml:"log_scale"`
	// LogSlack is the threshold allowance, in bits.
	LogSlack int `yaml:"log_slack"`

	LargePrime           LargePrimeMode `yaml:"-"`
	LargePrimeMultiplier int            `yaml:"large_prime_multiplier"`

	// Workers is the degree of parallelism of the scheduler.
	Workers int `yaml:"workers"`

	EarlyAbortPrimes  int `yaml:"early_abort_primes"`
	EarlyAbortFactors int `yaml:"early_abort_factors"`
	MaxRounds         int `yaml:"max_rounds"`
	MaxPolynomials    int `yaml:"max_polynomials"`

	// Seed drives random A selection. Zero derives a seed from N.
	Seed int64 `yaml:"seed"`
}

// Validate checks the invariants every sieve run relies on.
func (o Options) Validate() error {
	fields := []struct {
		name string
		v    int
	}{
		{"bound", o.Bound},
		{"safety", o.Safety},
		{"block length", o.BlockLength},
		{"blocks per polynomial", o.BlocksPerPolynomial},
		{"max A bits", o.MaxABits},
		{"log scale", o.LogScale},
		{"log slack", o.LogSlack},
		{"large prime multiplier", o.LargePrimeMultiplier},
		{"workers", o.Workers},
		{"early abort primes", o.EarlyAbortPrimes},
		{"early abort factors", o.EarlyAbortFactors},
		{"max rounds", o.MaxRounds},
		{"max polynomials", o.MaxPolynomials},
	}
	for _, f := range fields {
		if f.v <= 0 {
			return errors.Wrapf(ErrConfig, "%s must be positive, got %d", f.name, f.v)
		}
	}
	if o.Bound < 3 {
		return errors.Wrapf(ErrConfig, "bound must be at least 3, got %d", o.Bound)
	}
	if o.LogScale > 16 {
		return errors.Wrapf(ErrConfig, "log scale %d overflows the accumulator", o.LogScale)
	}
	return nil
}

// HalfInterval returns M, half the number of sieve positions per polynomial.
func (o Options) HalfInterval() int {
	return o.BlockLength * o.BlocksPerPolynomial / 2
}

// LargePrimeBound returns the largest leftover accepted in a partial
// relation. It is never below the last factor-base prime.
func (o Options) LargePrimeBound(lastPrime uint32) uint64 {
	if o.LargePrime == LargePrimeOff {
		return 0
	}
	m := o.LargePrimeMultiplier
	if m < 1 {
		m = 1
	}
	return uint64(lastPrime) * uint64(m)
}

// TableRow is one line of the digit-indexed options table.
type TableRow struct {
	MaxDigits           int `yaml:"max_digits"`
	Bound               int `yaml:"bound"`
	Safety              int `yaml:"safety"`
	BlockLength         int `yaml:"block_length"`
	BlocksPerPolynomial int `yaml:"blocks"`
	MaxABits            int `yaml:"max_a_bits"`
	LogSlack            int `yaml:"log_slack"`
}

// OptionsTable is sorted by MaxDigits.
type OptionsTable struct {
	Rows []TableRow `yaml:"rows"`
}

// DefaultOptionsTable returns the built-in tuning table.
func DefaultOptionsTable() OptionsTable {
	return OptionsTable{Rows: []TableRow{
		{MaxDigits: 12, Bound: 300, Safety: 20, BlockLength: 2048, BlocksPerPolynomial: 2, MaxABits: 20, LogSlack: 12},
		{MaxDigits: 16, Bound: 500, Safety: 24, BlockLength: 4096, BlocksPerPolynomial: 2, MaxABits: 27, LogSlack: 13},
		{MaxDigits: 20, Bound: 900, Safety: 30, BlockLength: 8192, BlocksPerPolynomial: 2, MaxABits: 34, LogSlack: 14},
		{MaxDigits: 25, Bound: 1600, Safety: 35, BlockLength: 16384, BlocksPerPolynomial: 2, MaxABits: 42, LogSlack: 15},
		{MaxDigits: 30, Bound: 2600, Safety: 40, BlockLength: 32768, BlocksPerPolynomial: 2, MaxABits: 50, LogSlack: 16},
		{MaxDigits: 35, Bound: 4500, Safety: 45, BlockLength: 32768, BlocksPerPolynomial: 2, MaxABits: 59, LogSlack: 17},
		{MaxDigits: 40, Bound: 7000, Safety: 50, BlockLength: 65536, BlocksPerPolynomial: 2, MaxABits: 67, LogSlack: 18},
		{MaxDigits: 45, Bound: 12000, Safety: 60, BlockLength: 65536, BlocksPerPolynomial: 4, MaxABits: 75, LogSlack: 19},
		{MaxDigits: 50, Bound: 20000, Safety: 70, BlockLength: 65536, BlocksPerPolynomial: 4, MaxABits: 84, LogSlack: 20},
		{MaxDigits: 55, Bound: 32000, Safety: 80, BlockLength: 65536, BlocksPerPolynomial: 6, MaxABits: 92, LogSlack: 21},
		{MaxDigits: 60, Bound: 50000, Safety: 90, BlockLength: 65536, BlocksPerPolynomial: 8, MaxABits: 100, LogSlack: 22},
		{MaxDigits: 70, Bound: 110000, Safety: 110, BlockLength: 65536, BlocksPerPolynomial: 10, MaxABits: 117, LogSlack: 23},
		{MaxDigits: 80, Bound: 250000, Safety: 140, BlockLength: 131072, BlocksPerPolynomial: 10, MaxABits: 134, LogSlack: 24},
		{MaxDigits: 100, Bound: 600000, Safety: 180, BlockLength: 131072, BlocksPerPolynomial: 12, MaxABits: 167, LogSlack: 26},
	}}
}

// ParseOptionsTable decodes a YAML options table and checks every row.
func ParseOptionsTable(data []byte) (OptionsTable, error) {
	var t OptionsTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return OptionsTable{}, errors.Wrap(err, "failed to parse options table")
	}
	if len(t.Rows) == 0 {
		return OptionsTable{}, errors.Wrap(ErrConfig, "options table has no rows")
	}
	sort.Slice(t.Rows, func(i, j int) bool { return t.Rows[i].MaxDigits < t.Rows[j].MaxDigits })
	for _, r := range t.Rows {
		if err := t.options(r).Validate(); err != nil {
			return OptionsTable{}, errors.Wrapf(err, "row max_digits=%d", r.MaxDigits)
		}
	}
	return t, nil
}

// LoadOptionsTable reads a YAML options table from a file.
func LoadOptionsTable(path string) (OptionsTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return OptionsTable{}, errors.Wrap(err, "failed to read options table")
	}
	return ParseOptionsTable(data)
}

// YAML encodes the table.
func (t OptionsTable) YAML() ([]byte, error) {
	return yaml.Marshal(t)
}

// ForDigits returns the options of the first row covering the digit count,
// or of the last row for larger inputs.
func (t OptionsTable) ForDigits(digits int) Options {
	if len(t.Rows) == 0 {
		t = DefaultOptionsTable()
	}
	row := t.Rows[len(t.Rows)-1]
	for _, r := range t.Rows {
		if digits <= r.MaxDigits {
			row = r
			break
		}
	}
	return t.options(row)
}

// For returns the options for n.
func (t OptionsTable) For(n *big.Int, mode LargePrimeMode) Options {
	o := t.ForDigits(len(new(big.Int).Abs(n).String()))
	o.LargePrime = mode
	return o
}

func (t OptionsTable) options(r TableRow) Options {
	return Options{
		Bound:                r.Bound,
		Safety:               r.Safety,
		BlockLength:          r.BlockLength,
		BlocksPerPolynomial:  r.BlocksPerPolynomial,
		MaxABits:             r.MaxABits,
		LogScale:             4,
		LogSlack:             r.LogSlack,
		LargePrimeMultiplier: 50,
		Workers:              runtime.NumCPU(),
		EarlyAbortPrimes:     24,
		EarlyAbortFactors:    8,
		MaxRounds:            8,
		MaxPolynomials:       1 << 20,
	}
}

// OptionsFor returns the default-table options for n.
func OptionsFor(n *big.Int, mode LargePrimeMode) Options {
	return DefaultOptionsTable().For(n, mode)
}

// OptionsBuilder overrides individual fields of a base configuration.
type OptionsBuilder struct {
	o Options
}

// NewOptionsBuilder starts from base.
func NewOptionsBuilder(base Options) *OptionsBuilder {
	return &OptionsBuilder{o: base}
}

// WithBound sets the factor-base prime bound.
func (b *OptionsBuilder) WithBound(bound int) *OptionsBuilder {
	b.o.Bound = bound
	return b
}

// WithSafety sets the extra relation margin.
func (b *OptionsBuilder) WithSafety(n int) *OptionsBuilder {
	b.o.Safety = n
	return b
}

// WithBlocks sets the block length and number of blocks per polynomial.
func (b *OptionsBuilder) WithBlocks(length, perPolynomial int) *OptionsBuilder {
	b.o.BlockLength = length
	b.o.BlocksPerPolynomial = perPolynomial
	return b
}

// WithMaxABits caps the size of A.
func (b *OptionsBuilder) WithMaxABits(n int) *OptionsBuilder {
	b.o.MaxABits = n
	return b
}

// WithLog sets the fixed-point log scale and slack.
func (b *OptionsBuilder) WithLog(scale, slack int) *OptionsBuilder {
	b.o.LogScale = scale
	b.o.LogSlack = slack
	return b
}

// WithLargePrime sets the large-prime mode and bound multiplier.
func (b *OptionsBuilder) WithLargePrime(mode LargePrimeMode, multiplier int) *OptionsBuilder {
	b.o.LargePrime = mode
	if multiplier > 0 {
		b.o.LargePrimeMultiplier = multiplier
	}
	return b
}

// WithWorkers sets the degree of parallelism.
func (b *OptionsBuilder) WithWorkers(n int) *OptionsBuilder {
	b.o.Workers = n
	return b
}

// WithEarlyAbort sets the smoothness checker tiers.
func (b *OptionsBuilder) WithEarlyAbort(primes, factors int) *OptionsBuilder {
	b.o.EarlyAbortPrimes = primes
	b.o.EarlyAbortFactors = factors
	return b
}

// WithBudget sets the round and polynomial budgets.
func (b *OptionsBuilder) WithBudget(rounds, polynomials int) *OptionsBuilder {
	b.o.MaxRounds = rounds
	b.o.MaxPolynomials = polynomials
	return b
}

// WithSeed fixes the random seed used by A selection.
func (b *OptionsBuilder) WithSeed(seed int64) *OptionsBuilder {
	b.o.Seed = seed
	return b
}

// Build validates and returns the options.
func (b *OptionsBuilder) Build() (Options, error) {
	if err := b.o.Validate(); err != nil {
		return Options{}, err
	}
	return b.o, nil
}
