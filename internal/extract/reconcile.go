package extract

import (
	"sort"

	"github.com/couchcryptid/cbc-history-etl/internal/domain"
)

// reconcile joins the scanned sections on count index and builds the result.
// Each lookup is a single map built up front; first occurrence of an index
// wins.
func reconcile(acc *accumulator) *domain.ExtractionResult {
	result := domain.NewExtractionResult()
	result.CountInfo = acc.info

	result.Meta = dedupeMeta(acc.headers)
	metaByIndex := make(map[int]domain.YearHeaderMeta, len(result.Meta))
	for _, m := range result.Meta {
		metaByIndex[m.CountIndex] = m
	}
	result.Years = distinctYears(acc.headers)

	for _, rec := range acc.participation {
		rec.Year = resolveYear(rec, metaByIndex)
		result.ParticipantsEffort = append(result.ParticipantsEffort, rec)
	}

	effortByIndex := make(map[int]domain.ParticipationEffortRecord, len(result.ParticipantsEffort))
	for _, rec := range result.ParticipantsEffort {
		if _, ok := effortByIndex[rec.CountIndex]; !ok {
			effortByIndex[rec.CountIndex] = rec
		}
	}
	for _, w := range acc.weather {
		result.WeatherRaw = append(result.WeatherRaw, fillWeather(w, effortByIndex, metaByIndex))
	}

	result.SpeciesTable = pivotSpecies(acc.speciesOrder, acc.counts)
	return result
}

func dedupeMeta(headers []domain.YearHeaderMeta) []domain.YearHeaderMeta {
	out := make([]domain.YearHeaderMeta, 0, len(headers))
	seen := make(map[int]struct{}, len(headers))
	for _, h := range headers {
		if _, dup := seen[h.CountIndex]; dup {
			continue
		}
		seen[h.CountIndex] = struct{}{}
		out = append(out, h)
	}
	return out
}

func distinctYears(headers []domain.YearHeaderMeta) []int {
	set := make(map[int]struct{})
	for _, h := range headers {
		set[h.Year] = struct{}{}
	}
	years := make([]int, 0, len(set))
	for y := range set {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// resolveYear prefers the species-header year for the record's index, then a
// year token in its own date text, then whatever the record already carried.
func resolveYear(rec domain.ParticipationEffortRecord, metaByIndex map[int]domain.YearHeaderMeta) *int {
	if m, ok := metaByIndex[rec.CountIndex]; ok {
		y := m.Year
		return &y
	}
	if rec.CountDate != nil {
		if y, ok := yearFromText(*rec.CountDate); ok {
			return &y
		}
	}
	return rec.Year
}

// fillWeather copies year and date onto a weather record, taking each field
// from the participants/effort table first and the species headers second.
func fillWeather(w domain.WeatherRecord, effort map[int]domain.ParticipationEffortRecord, meta map[int]domain.YearHeaderMeta) domain.WeatherRecord {
	if e, ok := effort[w.CountIndex]; ok {
		w.Year = e.Year
		w.CountDate = e.CountDate
	}
	if m, ok := meta[w.CountIndex]; ok {
		if w.Year == nil {
			y := m.Year
			w.Year = &y
		}
		if w.CountDate == nil {
			w.CountDate = m.CountDate
		}
	}
	return w
}

func pivotSpecies(order []string, counts map[string]map[string]int) []domain.SpeciesRecord {
	out := make([]domain.SpeciesRecord, 0, len(order))
	for _, name := range order {
		out = append(out, domain.SpeciesRecord{Species: name, Counts: counts[name]})
	}
	return out
}
