// Command validate runs integrity checks over one "Historical Results by
// Count" export: the extraction must be deterministic, the per-count tables
// must join on CountIndex, the year list must cover every decoded year and
// the species matrix must be well formed. With -expected it also compares the
// result against a reviewed JSON fixture.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -input HistoricalResultsByCount_MACC.csv \
//	  -expected testdata/macc_expected.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/cbc-history-etl/internal/domain"
	"github.com/couchcryptid/cbc-history-etl/internal/extract"
	"github.com/couchcryptid/cbc-history-etl/internal/source"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	input := flag.String("input", "", "path to the exported .csv, .txt or .xlsx file")
	expected := flag.String("expected", "", "optional path to an expected result JSON")
	stopSpecies := flag.String("stop-species", "", "end the species table after this species")
	flag.Parse()

	if *input == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(os.Stdout, *input, *expected, extract.Options{StopSpecies: *stopSpecies}))
}

func run(w io.Writer, inputPath, expectedPath string, opts extract.Options) int {
	fmt.Fprintln(w, "=== CBC Export Integrity Validation ===")
	fmt.Fprintln(w)

	data, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(w, "FATAL: read input: %v\n", err)
		return 1
	}
	extractor := extract.New(opts)
	if err := extractor.CheckSize(len(data)); err != nil {
		fmt.Fprintf(w, "FATAL: load input: %v\n", err)
		return 1
	}
	text, _, err := source.Load(inputPath, data, extractor.Options().MaxRows)
	if err != nil {
		fmt.Fprintf(w, "FATAL: load input: %v\n", err)
		return 1
	}
	result, _, err := extractor.ExtractDecoded(text)
	if err != nil {
		fmt.Fprintf(w, "FATAL: extract: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateDeterminism(extractor, text, result),
		validateJoinIntegrity(result),
		validateYearCoverage(result),
		validateSpeciesMatrix(result),
	}
	if expectedPath != "" {
		want, err := loadExpected(expectedPath)
		if err != nil {
			fmt.Fprintf(w, "FATAL: load expected JSON: %v\n", err)
			return 1
		}
		phases = append(phases, validateExpected(want, result))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Result: %d species, %d years, %d weather rows, %d participation rows, %d header cells\n",
		len(result.SpeciesTable), len(result.Years), len(result.WeatherRaw), len(result.ParticipantsEffort), len(result.Meta))
	if missing := extract.MissingYears(result.Years); len(missing) > 0 {
		fmt.Fprintf(w, "Missing years: %v\n", missing)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

func loadExpected(path string) (*domain.ExtractionResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var result domain.ExtractionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
