package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mahdiidarabi/quadsieve/pkg/qsieve"
)

func resetFlags() {
	strategy = "siqs"
	largePrime = "off"
	workers = 2
	fallback = 64
	configPath = ""
	inputFile = ""
	inputFormat = ""
	timeout = 5 * time.Minute
}

func TestSourceFor(t *testing.T) {
	cases := map[string]string{
		"siqs":   "siqs",
		"":       "siqs",
		"MPQS":   "swap",
		"greedy": "greedy",
		"single": "single",
	}
	for name, want := range cases {
		src, err := sourceFor(name)
		if err != nil {
			t.Fatalf("%q: %v", name, err)
		}
		if src.Name() != want {
			t.Errorf("%q: got source %s, want %s", name, src.Name(), want)
		}
	}
	if _, err := sourceFor("ecm"); err == nil {
		t.Error("Expected error for unknown strategy")
	}
}

func TestFactorCmd(t *testing.T) {
	logger = zap.NewNop()
	resetFlags()
	defer resetFlags()

	cmd := &cobra.Command{}
	if err := runFactor(cmd, []string{"8051", "0x1f73", "1000036000099"}); err != nil {
		t.Fatalf("runFactor failed: %v", err)
	}
	if err := runFactor(cmd, []string{"12ab"}); err == nil {
		t.Error("Expected error for malformed number")
	}
	if err := runFactor(cmd, []string{"0"}); err == nil {
		t.Error("Expected error for zero")
	}

	fallback = 0
	if err := runFactor(cmd, []string{"1000036000099"}); err != nil {
		t.Fatalf("runFactor with --fallback-bits 0 failed: %v", err)
	}
	fallback = 64

	largePrime = "two"
	if err := runFactor(cmd, []string{"8051"}); err == nil {
		t.Error("Expected error for bad --large-prime")
	}
}

func TestBatchCmd(t *testing.T) {
	logger = zap.NewNop()
	resetFlags()
	defer resetFlags()

	inputFile = filepath.Join("..", "..", "fixtures", "targets.csv")
	if err := runBatch(&cobra.Command{}, nil); err != nil {
		t.Fatalf("runBatch failed: %v", err)
	}

	inputFile = filepath.Join("..", "..", "fixtures", "targets.txt")
	inputFormat = "text"
	if err := runBatch(&cobra.Command{}, nil); err != nil {
		t.Fatalf("runBatch --format text failed: %v", err)
	}

	inputFile = filepath.Join("..", "..", "fixtures", "targets.json")
	if err := runBatch(&cobra.Command{}, nil); err == nil {
		t.Error("Expected error for JSON read as text")
	}
	inputFormat = ""

	inputFile = filepath.Join(t.TempDir(), "missing.json")
	if err := runBatch(&cobra.Command{}, nil); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestTableCmd(t *testing.T) {
	logger = zap.NewNop()
	resetFlags()
	defer resetFlags()

	if err := runTable(&cobra.Command{}, nil); err != nil {
		t.Fatalf("runTable failed: %v", err)
	}

	data, err := qsieve.DefaultOptionsTable().YAML()
	if err != nil {
		t.Fatal(err)
	}
	configPath = filepath.Join(t.TempDir(), "table.yaml")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		t.Fatal(err)
	}
	if err := runTable(&cobra.Command{}, nil); err != nil {
		t.Fatalf("runTable with --config failed: %v", err)
	}

	configPath = filepath.Join(t.TempDir(), "nope.yaml")
	if err := runTable(&cobra.Command{}, nil); err == nil {
		t.Error("Expected error for missing config")
	}
}
