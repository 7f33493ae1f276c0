package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/cbc-history-etl/internal/domain"
	"github.com/couchcryptid/cbc-history-etl/internal/extract"
)

type writtenTable struct {
	path string
	rows int
}

// writeTables writes the four per-table CSV files into dir:
// <CODE>_<first>_<last>.csv, <CODE>_participants.csv, <CODE>_effort.csv and
// <CODE>_weather.csv.
func writeTables(dir string, result *domain.ExtractionResult) ([]writtenTable, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create tables dir: %w", err)
	}
	prefix := tablePrefix(result.CountInfo)

	speciesName := prefix + "_species.csv"
	if first, last, ok := extract.YearSpan(result.Years); ok {
		speciesName = fmt.Sprintf("%s_%d_%d.csv", prefix, first, last)
	}

	tables := []struct {
		name string
		rows [][]string
	}{
		{speciesName, speciesRows(result)},
		{prefix + "_participants.csv", participantRows(result.ParticipantsEffort)},
		{prefix + "_effort.csv", effortRows(result.ParticipantsEffort)},
		{prefix + "_weather.csv", weatherRows(result.WeatherRaw)},
	}

	written := make([]writtenTable, 0, len(tables))
	for _, tbl := range tables {
		path := filepath.Join(dir, tbl.name)
		if err := writeCSV(path, tbl.rows); err != nil {
			return written, err
		}
		written = append(written, writtenTable{path: path, rows: len(tbl.rows) - 1})
	}
	return written, nil
}

func tablePrefix(info domain.CountInfo) string {
	if info.CountCode != nil && strings.TrimSpace(*info.CountCode) != "" {
		return strings.ToUpper(strings.TrimSpace(*info.CountCode))
	}
	return "count"
}

// speciesRows pivots the species table to one column per year. Years a
// species was not reported are written as 0.
func speciesRows(result *domain.ExtractionResult) [][]string {
	header := make([]string, 0, len(result.Years)+1)
	header = append(header, "Species")
	for _, y := range result.Years {
		header = append(header, strconv.Itoa(y))
	}

	rows := [][]string{header}
	for _, rec := range result.SpeciesTable {
		row := make([]string, 0, len(header))
		row = append(row, rec.Species)
		for _, y := range header[1:] {
			row = append(row, strconv.Itoa(rec.Counts[y]))
		}
		rows = append(rows, row)
	}
	return rows
}

func participantRows(records []domain.ParticipationEffortRecord) [][]string {
	rows := [][]string{{"Year", "CountDate", "CountIndex", "NumParticipants"}}
	for _, r := range records {
		rows = append(rows, []string{intCell(r.Year), strCell(r.CountDate), strconv.Itoa(r.CountIndex), intCell(r.NumParticipants)})
	}
	return rows
}

func effortRows(records []domain.ParticipationEffortRecord) [][]string {
	rows := [][]string{{"Year", "CountDate", "CountIndex", "NumHours"}}
	for _, r := range records {
		rows = append(rows, []string{intCell(r.Year), strCell(r.CountDate), strconv.Itoa(r.CountIndex), floatCell(r.NumHours)})
	}
	return rows
}

func weatherRows(records []domain.WeatherRecord) [][]string {
	rows := [][]string{{
		"Year", "CountDate", "CountIndex", "LowTempF", "HighTempF",
		"AMClouds", "PMClouds", "AMRain", "PMRain", "AMSnow", "PMSnow",
	}}
	for _, r := range records {
		rows = append(rows, []string{
			intCell(r.Year), strCell(r.CountDate), strconv.Itoa(r.CountIndex),
			floatCell(r.LowTempF), floatCell(r.HighTempF),
			r.AMClouds, r.PMClouds, r.AMRain, r.PMRain, r.AMSnow, r.PMSnow,
		})
	}
	return rows
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func strCell(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
