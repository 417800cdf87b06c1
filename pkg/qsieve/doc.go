// Package qsieve factors integers with the quadratic sieve.
//
// Three polynomial strategies are provided: the classic single polynomial
// (A = 1), multiple polynomials with greedy or log-target-swap A selection,
// and self-initializing families that walk the sign patterns of B in
// Gray-code order. The optional one-large-prime variant pairs partial
// relations that share a leftover prime.
//
// # Quick Start
//
//	import "github.com/mahdiidarabi/quadsieve/pkg/qsieve"
//
//	n, _ := new(big.Int).SetString("1000000000100000000002379", 10)
//	factors, err := qsieve.FactorSIQS(ctx, n, qsieve.LargePrimeOne)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(factors) // [1000000000039 1000000000061]
//
// # Customization
//
// Options come from a digit-indexed table. Override single fields with a
// builder:
//
//	opts, err := qsieve.NewOptionsBuilder(qsieve.OptionsFor(n, qsieve.LargePrimeOff)).
//	    WithBound(3000).
//	    WithBlocks(32768, 4).
//	    WithWorkers(8).
//	    Build()
//
//	client := qsieve.NewClient().
//	    WithOptions(opts).
//	    WithPolynomialSource(qsieve.NewLogTargetSwapSource()).
//	    WithLogger(logger)
//
//	res, err := client.Factor(ctx, n)
//	if !res.Complete {
//	    // some composite survived the round budget
//	}
//
// # Custom Strategies
//
// Every stage is an interface: PolynomialSource, BlockSieveFactory,
// SmoothnessChecker, RelationManager, RelationScheduler and
// DependencySolver. Implement one and inject it:
//
//	type loudChecker struct{ qsieve.TrialDivisionChecker }
//
//	func (l *loudChecker) Check(v *big.Int, c *qsieve.Context) qsieve.Smoothness {
//	    s := l.TrialDivisionChecker.Check(v, c)
//	    if s.Kind != qsieve.Rejected {
//	        fmt.Println("smooth:", v)
//	    }
//	    return s
//	}
//
//	client := qsieve.NewClient().WithChecker(&loudChecker{})
package qsieve
