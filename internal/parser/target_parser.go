// Package parser reads batches of integers to factor from JSON, CSV or
// plain text files.
package parser

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"
)

// Target is one integer to factor.
type Target struct {
	Label string
	N     *big.Int
}

// TargetParser parses targets from a source.
type TargetParser interface {
	ParseTargets(source string) ([]*Target, error)
}

// JSONParser parses targets from JSON files.
type JSONParser struct {
	NumberField string // Field name for the integer (default: "n")
	LabelField  string // Field name for the label (default: "label")
}

// ParseTargets parses a JSON array. Items are either objects or bare
// numbers and strings.
//
// Expected format:
// [
//
//	{"label": "rsa-80", "n": "1000000000060000000000819"},
//	8051,
//	"0x1f73"
//
// ]
func (p *JSONParser) ParseTargets(jsonFile string) ([]*Target, error) {
	file, err := os.Open(jsonFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer file.Close()
	return p.Decode(file)
}

// Decode parses targets from r.
func (p *JSONParser) Decode(r io.Reader) ([]*Target, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber() // keep large integers exact

	var items []interface{}
	if err := decoder.Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	numberField := p.NumberField
	if numberField == "" {
		numberField = "n"
	}
	labelField := p.LabelField
	if labelField == "" {
		labelField = "label"
	}

	targets := make([]*Target, 0, len(items))
	for i, item := range items {
		t := &Target{}
		val := item
		if obj, ok := item.(map[string]interface{}); ok {
			v, ok := obj[numberField]
			if !ok {
				return nil, fmt.Errorf("item %d: missing %s field", i, numberField)
			}
			val = v
			if l, ok := obj[labelField].(string); ok {
				t.Label = l
			}
		}
		n, err := parseBigInt(val)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		t.N = n
		if t.Label == "" {
			t.Label = fmt.Sprintf("#%d", i+1)
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// CSVParser parses targets from CSV files with a header row.
type CSVParser struct {
	NumberColumn string // Column name for the integer (default: "n")
	LabelColumn  string // Column name for the label (default: "label")
}

// ParseTargets parses a CSV file.
func (p *CSVParser) ParseTargets(csvFile string) ([]*Target, error) {
	file, err := os.Open(csvFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return p.Decode(file)
}

// Decode parses targets from r.
func (p *CSVParser) Decode(r io.Reader) ([]*Target, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	numberCol := p.NumberColumn
	if numberCol == "" {
		numberCol = "n"
	}
	labelCol := p.LabelColumn
	if labelCol == "" {
		labelCol = "label"
	}

	nIdx, labelIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case numberCol:
			nIdx = i
		case labelCol:
			labelIdx = i
		}
	}
	if nIdx == -1 {
		return nil, fmt.Errorf("missing required column: %s", numberCol)
	}

	var targets []*Target
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		if nIdx >= len(record) {
			return nil, fmt.Errorf("row %d: %s column out of range", row, numberCol)
		}
		n, err := parseBigInt(record[nIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		t := &Target{N: n, Label: fmt.Sprintf("#%d", row)}
		if labelIdx >= 0 && labelIdx < len(record) && record[labelIdx] != "" {
			t.Label = record[labelIdx]
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// TextParser reads one integer per line. Blank lines and lines starting
// with '#' are skipped.
type TextParser struct{}

// ParseTargets parses a text file.
func (p *TextParser) ParseTargets(textFile string) ([]*Target, error) {
	file, err := os.Open(textFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return p.Decode(file)
}

// Decode parses targets from r.
func (p *TextParser) Decode(r io.Reader) ([]*Target, error) {
	var targets []*Target
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		n, err := parseBigInt(s)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		targets = append(targets, &Target{Label: fmt.Sprintf("line %d", line), N: n})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return targets, nil
}

// ForFile picks a parser by file extension, or by format when it is set.
func ForFile(path, format string) (TargetParser, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{}, nil
	case "csv":
		return &CSVParser{}, nil
	case "txt", "text", "":
		return &TextParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// ParseBigInt parses a decimal integer, or a hex one with a 0x prefix.
func ParseBigInt(s string) (*big.Int, error) {
	return parseBigInt(s)
}

// parseBigInt parses a big integer from a string or a JSON number.
func parseBigInt(val interface{}) (*big.Int, error) {
	switch v := val.(type) {
	case string:
		s := strings.TrimSpace(v)
		s = strings.ReplaceAll(s, "_", "")
		base := 10
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			s, base = s[2:], 16
		}
		z := new(big.Int)
		if _, ok := z.SetString(s, base); !ok {
			return nil, fmt.Errorf("invalid number format: %s", v)
		}
		return z, nil

	case json.Number:
		z := new(big.Int)
		if _, ok := z.SetString(string(v), 10); !ok {
			return nil, fmt.Errorf("invalid number format: %s", v)
		}
		return z, nil

	case int64:
		return big.NewInt(v), nil

	case int:
		return big.NewInt(int64(v)), nil

	default:
		return nil, fmt.Errorf("unsupported type: %T", val)
	}
}
