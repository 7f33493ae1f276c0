package main

import (
	"bytes"
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/couchcryptid/cbc-history-etl/internal/domain"
	"github.com/couchcryptid/cbc-history-etl/internal/extract"
)

// ── Phase 1: Determinism ──
// Re-extracting the same text must give an identical result and identical JSON.

func validateDeterminism(e *extract.Extractor, text string, first *domain.ExtractionResult) *phase {
	p := &phase{name: "Phase 1: Determinism"}

	second, err := e.Extract(text)
	if err != nil {
		p.errorf("second extraction failed: %v", err)
		return p
	}
	if diff := cmp.Diff(first, second); diff != "" {
		p.errorf("results differ (-first +second):\n%s", diff)
	}

	a, errA := json.Marshal(first)
	b, errB := json.Marshal(second)
	if errA != nil || errB != nil {
		p.errorf("marshal result: %v %v", errA, errB)
	} else if !bytes.Equal(a, b) {
		p.errorf("JSON encodings differ")
	}
	return p
}

// ── Phase 2: Join Integrity ──
// CountIndex is the join key for meta, weather and participation rows.

func validateJoinIntegrity(r *domain.ExtractionResult) *phase {
	p := &phase{name: "Phase 2: Join Integrity (CountIndex)"}

	metaByIndex := make(map[int]domain.YearHeaderMeta, len(r.Meta))
	for _, m := range r.Meta {
		if _, dup := metaByIndex[m.CountIndex]; dup {
			p.errorf("meta: duplicate CountIndex %d", m.CountIndex)
		}
		metaByIndex[m.CountIndex] = m
	}

	effortByIndex := make(map[int]domain.ParticipationEffortRecord, len(r.ParticipantsEffort))
	for _, pe := range r.ParticipantsEffort {
		if _, dup := effortByIndex[pe.CountIndex]; dup {
			p.errorf("participation: duplicate CountIndex %d", pe.CountIndex)
		}
		effortByIndex[pe.CountIndex] = pe

		if m, ok := metaByIndex[pe.CountIndex]; ok && pe.Year != nil && *pe.Year != m.Year {
			p.errorf("participation %d: year %d disagrees with species header year %d", pe.CountIndex, *pe.Year, m.Year)
		}
	}

	seenWeather := make(map[int]bool, len(r.WeatherRaw))
	for _, w := range r.WeatherRaw {
		if seenWeather[w.CountIndex] {
			p.errorf("weather: duplicate CountIndex %d", w.CountIndex)
		}
		seenWeather[w.CountIndex] = true

		if pe, ok := effortByIndex[w.CountIndex]; ok {
			if !sameInt(w.Year, pe.Year) {
				p.errorf("weather %d: year %s, participation says %s", w.CountIndex, intString(w.Year), intString(pe.Year))
			}
			if !sameString(w.CountDate, pe.CountDate) && pe.CountDate != nil {
				p.errorf("weather %d: date %q, participation says %q", w.CountIndex, deref(w.CountDate), deref(pe.CountDate))
			}
		}
		if w.LowTempF != nil && w.HighTempF != nil && *w.LowTempF > *w.HighTempF {
			p.errorf("weather %d: low %.1f above high %.1f", w.CountIndex, *w.LowTempF, *w.HighTempF)
		}
	}
	return p
}

// ── Phase 3: Year Coverage ──

func validateYearCoverage(r *domain.ExtractionResult) *phase {
	p := &phase{name: "Phase 3: Year Coverage"}

	for i := 1; i < len(r.Years); i++ {
		if r.Years[i] <= r.Years[i-1] {
			p.errorf("years not strictly ascending at %d: %d after %d", i, r.Years[i], r.Years[i-1])
		}
	}
	for _, m := range r.Meta {
		if !slices.Contains(r.Years, m.Year) {
			p.errorf("header year %d [%d] missing from years", m.Year, m.CountIndex)
		}
	}
	if len(r.SpeciesTable) > 0 && len(r.Years) == 0 {
		p.errorf("species table has %d rows but no years", len(r.SpeciesTable))
	}
	return p
}

// ── Phase 4: Species Matrix ──

func validateSpeciesMatrix(r *domain.ExtractionResult) *phase {
	p := &phase{name: "Phase 4: Species Matrix"}

	years := make(map[string]bool, len(r.Years))
	for _, y := range r.Years {
		years[strconv.Itoa(y)] = true
	}

	seen := make(map[string]bool, len(r.SpeciesTable))
	for i, rec := range r.SpeciesTable {
		name := strings.TrimSpace(rec.Species)
		switch {
		case name == "":
			p.errorf("row %d: empty species name", i+1)
		case seen[name]:
			p.errorf("row %d: duplicate species %q", i+1, name)
		}
		seen[name] = true

		for _, y := range rec.Years() {
			if !years[y] {
				p.errorf("%s: count for %s, which is not in years", name, y)
			}
			if rec.Counts[y] < 0 {
				p.errorf("%s %s: negative count %d", name, y, rec.Counts[y])
			}
		}
	}
	return p
}

// ── Phase 5: Expected Fixture ──

// Expected fixtures are JSON, which carries no header effort figures.
var headerEffortFields = cmpopts.IgnoreFields(domain.YearHeaderMeta{}, "NumParticipants", "NumSpeciesReported", "TotalHrs")

func validateExpected(want, got *domain.ExtractionResult) *phase {
	p := &phase{name: "Phase 5: Expected Fixture"}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty(), headerEffortFields); diff != "" {
		p.errorf("result differs from fixture (-want +got):\n%s", diff)
	}
	return p
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intString(v *int) string {
	if v == nil {
		return "null"
	}
	return strconv.Itoa(*v)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
