// Command extract runs one "Historical Results by Count" export through the
// extraction engine and writes the result as JSON or YAML. With -tables-dir it
// also writes the species-by-year, participants, effort and weather tables as
// CSV files.
//
// Usage:
//
//	go run ./cmd/extract \
//	  -input HistoricalResultsByCount_MACC.csv \
//	  -out data/macc.json \
//	  -tables-dir data/MACC
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/cbc-history-etl/internal/domain"
	"github.com/couchcryptid/cbc-history-etl/internal/extract"
	"github.com/couchcryptid/cbc-history-etl/internal/source"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.Fatal(err)
	}
}

// run writes the result to -out or stdout; progress and the summary go to
// stderr so stdout stays machine-readable.
func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	input := fs.String("input", "", "path to the exported .csv, .txt or .xlsx file")
	out := fs.String("out", "", "output path for the result (default stdout)")
	format := fs.String("format", "json", "result format: json or yaml")
	tablesDir := fs.String("tables-dir", "", "directory for per-table CSV files")
	maxRows := fs.Int("max-rows", extract.DefaultMaxRows, "maximum input rows")
	maxColumns := fs.Int("max-columns", extract.DefaultMaxColumns, "maximum columns per row")
	stopSpecies := fs.String("stop-species", "", "end the species table after this species (e.g. \"House Sparrow\")")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *input == "" {
		fs.Usage()
		return fmt.Errorf("missing required flag: -input")
	}
	if *format != "json" && *format != "yaml" {
		return fmt.Errorf("unknown -format %q: want json or yaml", *format)
	}

	data, err := os.ReadFile(*input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	extractor := extract.New(extract.Options{
		MaxRows:     *maxRows,
		MaxColumns:  *maxColumns,
		StopSpecies: *stopSpecies,
	})
	if err := extractor.CheckSize(len(data)); err != nil {
		return err
	}
	text, _, err := source.Load(*input, data, *maxRows)
	if err != nil {
		return err
	}

	result, _, err := extractor.ExtractDecoded(text)
	if err != nil {
		return err
	}

	encoded, err := encode(result, *format)
	if err != nil {
		return err
	}
	if *out == "" {
		if _, err := stdout.Write(encoded); err != nil {
			return err
		}
	} else {
		if err := writeFile(*out, encoded); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Wrote %s\n", *out)
	}

	if *tablesDir != "" {
		written, err := writeTables(*tablesDir, result)
		if err != nil {
			return err
		}
		for _, w := range written {
			fmt.Fprintf(stderr, "Wrote %s (%d rows)\n", w.path, w.rows)
		}
	}

	printSummary(stderr, result)
	return nil
}

func encode(result *domain.ExtractionResult, format string) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	if format == "json" {
		return append(data, '\n'), nil
	}
	return jsonToYAML(data)
}

// jsonToYAML re-renders JSON as block-style YAML, keeping key order.
func jsonToYAML(data []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode result for yaml: %w", err)
	}
	clearStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}

func printSummary(w io.Writer, result *domain.ExtractionResult) {
	name := "unknown circle"
	if info := result.CountInfo; info.CountName != nil {
		name = *info.CountName
		if info.CountCode != nil {
			name += " (" + *info.CountCode + ")"
		}
	}
	fmt.Fprintf(w, "%s: %d species, %d years, %d weather rows, %d participation rows\n",
		name, len(result.SpeciesTable), len(result.Years), len(result.WeatherRaw), len(result.ParticipantsEffort))

	first, last, ok := extract.YearSpan(result.Years)
	if !ok {
		return
	}
	fmt.Fprintf(w, "years %d-%d\n", first, last)
	if missing := extract.MissingYears(result.Years); len(missing) > 0 {
		fmt.Fprintf(w, "missing years: %v\n", missing)
	}
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
