package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mahdiidarabi/quadsieve/internal/parser"
	"github.com/mahdiidarabi/quadsieve/pkg/qsieve"
)

var (
	// Global flags
	verbose    bool
	timeout    time.Duration
	strategy   string
	largePrime string
	workers    int
	fallback   int
	configPath string

	// Batch flags
	inputFile   string
	inputFormat string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "qsfactor",
	Short: "Factor integers with the quadratic sieve",
	Long: `qsfactor factors integers with a self-initializing quadratic sieve.

Small factors are removed by trial division, cofactors up to 64 bits are
split with Pollard rho, and everything larger is sieved.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// factorCmd factors the numbers given as arguments
var factorCmd = &cobra.Command{
	Use:   "factor [n...]",
	Short: "Factor one or more integers",
	Long: `Factors every argument and prints its prime factors.

Numbers are decimal unless prefixed with 0x. Underscores are ignored.

Example:
  qsfactor factor 1000000000100000000002379 --strategy siqs --large-prime one`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFactor,
}

// batchCmd factors every target of a file
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Factor the targets listed in a JSON, CSV or text file",
	RunE:  runBatch,
}

// tableCmd prints the options table
var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the digit-indexed options table as YAML",
	Long: `Prints the options table in use. Save it, edit it and pass it back with
--config to tune the sieve.`,
	RunE: runTable,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "Overall timeout")
	rootCmd.PersistentFlags().StringVarP(&strategy, "strategy", "s", "siqs", "Polynomial strategy: siqs, mpqs, greedy or single")
	rootCmd.PersistentFlags().StringVar(&largePrime, "large-prime", "off", "Large-prime variant: off or one")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "Sieve workers (0 = one per CPU)")
	rootCmd.PersistentFlags().IntVar(&fallback, "fallback-bits", 64, "Split composites up to this many bits without sieving (0 = always sieve)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML options table")

	batchCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Targets file (required)")
	batchCmd.Flags().StringVarP(&inputFormat, "format", "f", "", "File format: json, csv or text (default: from extension)")
	_ = batchCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(factorCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(tableCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func sourceFor(name string) (qsieve.PolynomialSource, error) {
	switch strings.ToLower(name) {
	case "siqs", "":
		return qsieve.NewSIQSSource(), nil
	case "mpqs", "swap":
		return qsieve.NewLogTargetSwapSource(), nil
	case "greedy":
		return qsieve.NewGreedySource(), nil
	case "single", "qs":
		return qsieve.NewSinglePolynomialSource(), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

func loadTable() (qsieve.OptionsTable, error) {
	if configPath == "" {
		return qsieve.DefaultOptionsTable(), nil
	}
	table, err := qsieve.LoadOptionsTable(configPath)
	if err != nil {
		return qsieve.OptionsTable{}, fmt.Errorf("failed to load options table: %w", err)
	}
	return table, nil
}

// newClient builds a client from the global flags.
func newClient() (*qsieve.Client, error) {
	source, err := sourceFor(strategy)
	if err != nil {
		return nil, err
	}
	mode, err := qsieve.ParseLargePrimeMode(largePrime)
	if err != nil {
		return nil, fmt.Errorf("invalid --large-prime: %w", err)
	}
	table, err := loadTable()
	if err != nil {
		return nil, err
	}
	return qsieve.NewClient().
		WithPolynomialSource(source).
		WithLargePrime(mode).
		WithOptionsTable(table).
		WithWorkers(workers).
		WithFallbackBits(fallback).
		WithLogger(logger), nil
}

func runFactor(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, arg := range args {
		n, err := parser.ParseBigInt(arg)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", arg, err)
		}
		start := time.Now()
		res, err := client.Factor(ctx, n)
		if err != nil {
			return fmt.Errorf("failed to factor %s: %w", n, err)
		}
		printResult(n.String(), n, res, time.Since(start))
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Printf("Factoring targets from %s\n", inputFile)
	start := time.Now()
	results, err := client.FactorFileAs(ctx, inputFile, inputFormat)
	if results == nil && err != nil {
		return fmt.Errorf("failed to read targets: %w", err)
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Printf("\n[-] %s: %v\n", r.Target.Label, r.Err)
			continue
		}
		printResult(r.Target.Label, r.Target.N, r.Result, 0)
	}
	if err != nil {
		return fmt.Errorf("batch interrupted: %w", err)
	}
	fmt.Printf("\nDone in %v (%d targets, %d failed)\n", time.Since(start).Round(time.Millisecond), len(results), failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d targets failed", failed, len(results))
	}
	return nil
}

func runTable(cmd *cobra.Command, args []string) error {
	table, err := loadTable()
	if err != nil {
		return err
	}
	data, err := table.YAML()
	if err != nil {
		return fmt.Errorf("failed to encode table: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}

func printResult(label string, n *big.Int, res *qsieve.Result, elapsed time.Duration) {
	mark := "[+]"
	if !res.Complete {
		mark = "[!]"
	}
	fmt.Printf("\n%s %s\n", mark, label)
	if label != n.String() {
		fmt.Printf("    n:       %s\n", n)
	}
	parts := make([]string, len(res.Factors))
	for i, f := range res.Factors {
		parts[i] = f.String()
	}
	fmt.Printf("    factors: %s\n", strings.Join(parts, " * "))
	if res.Rounds > 0 {
		fmt.Printf("    sieve:   %d rounds, %d polynomials, %d relations\n", res.Rounds, res.Polynomials, res.Relations)
	}
	if elapsed > 0 {
		fmt.Printf("    time:    %v\n", elapsed.Round(time.Millisecond))
	}
	if !res.Complete {
		fmt.Println("    some composites could not be split within the round budget")
	}
}
