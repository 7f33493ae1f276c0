package extract

import (
	"strconv"
	"strings"

	"github.com/couchcryptid/cbc-history-etl/internal/domain"
)

// Section names reported in Stats.Sections.
const (
	SectionCircle        = "circle"
	SectionCompiler      = "compiler"
	SectionWeather       = "weather"
	SectionParticipation = "participation"
	SectionSpecies       = "species"
)

// section is one entry of the sentinel dispatch table. The scanner tests
// match against each row (within window, when set) and hands matching rows
// to read. Unless every is set, only the first match is read.
type section struct {
	name   string
	window int
	every  bool
	match  func(row domain.Row) bool
	read   func(acc *accumulator, rows []domain.Row, at int) int
}

// accumulator collects raw records during the scan, before reconciliation.
type accumulator struct {
	info          domain.CountInfo
	weather       []domain.WeatherRecord
	participation []domain.ParticipationEffortRecord
	headers       []domain.YearHeaderMeta

	speciesOrder []string
	counts       map[string]map[string]int

	found map[string]int
}

func newAccumulator() *accumulator {
	return &accumulator{
		counts: make(map[string]map[string]int),
		found:  make(map[string]int),
	}
}

func (e *Extractor) scan(rows []domain.Row) *accumulator {
	acc := newAccumulator()
	for _, s := range e.sections {
		limit := len(rows)
		if s.window > 0 && s.window < limit {
			limit = s.window
		}
		for i := 0; i < limit; i++ {
			if !s.match(rows[i]) {
				continue
			}
			if n := s.read(acc, rows, i); n > 0 {
				acc.found[s.name] += n
			}
			if !s.every {
				break
			}
		}
	}
	return acc
}

// defaultSections builds the dispatch table. Order matters only where two
// sections write the same CountInfo field; later ones win.
func defaultSections(opts Options) []section {
	m := opts.Markers
	return []section{
		{
			name:   SectionCircle,
			window: opts.CircleWindow,
			match: func(row domain.Row) bool {
				return trimmed(row, 0) == m.CircleName && trimmed(row, 1) == m.CircleCode
			},
			read: readCircle,
		},
		{
			name:   SectionCompiler,
			window: opts.MetadataWindow,
			every:  true,
			match:  func(domain.Row) bool { return true },
			read:   readCompiler,
		},
		{
			name: SectionWeather,
			match: func(row domain.Row) bool {
				return trimmed(row, 0) == m.Weather &&
					strings.Contains(strings.ToLower(cell(row, 1)), strings.ToLower(m.WeatherLow))
			},
			read: readWeather,
		},
		{
			name: SectionParticipation,
			match: func(row domain.Row) bool {
				return trimmed(row, 0) == m.Participation
			},
			read: readParticipation,
		},
		{
			name: SectionSpecies,
			match: func(row domain.Row) bool {
				return trimmed(row, 0) == m.SpeciesName && trimmed(row, 1) == m.SpeciesHeader
			},
			read: speciesReader(opts.StopSpecies),
		},
	}
}

func trimmed(row domain.Row, i int) string {
	return strings.TrimSpace(cell(row, i))
}

// headerKey lower-cases a label and drops spaces, underscores and dots so
// "Compiler First Name" and "compiler_first_name" compare equal.
func headerKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '_', '.':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

// --- circle identity ---

func readCircle(acc *accumulator, rows []domain.Row, at int) int {
	if at+1 >= len(rows) {
		return 0
	}
	header, values := rows[at], rows[at+1]

	latLonCol, idCol := 2, 3
	for i, c := range header {
		switch headerKey(c) {
		case "lat/lon", "latlon":
			latLonCol = i
		case "circleid", "countid":
			idCol = i
		}
	}

	n := 0
	set := func(dst **string, v *string) {
		if v != nil {
			*dst = v
			n++
		}
	}
	set(&acc.info.CountName, textPtr(cell(values, 0)))
	set(&acc.info.CountCode, textPtr(cell(values, 1)))

	if lat, lon := ParseLatLon(cell(values, latLonCol)); lat != nil || lon != nil {
		if lat != nil {
			acc.info.Lat = lat
		}
		if lon != nil {
			acc.info.Lon = lon
		}
		n++
	}
	if id := intPtr(cell(values, idCol)); id != nil {
		acc.info.CountID = id
		n++
	}
	return n
}

// --- compiler details ---

func compilerField(info *domain.CountInfo, key string) **string {
	switch key {
	case "compilerfirstname":
		return &info.CompilerFirstName
	case "compilerlastname":
		return &info.CompilerLastName
	case "compileremail", "email":
		return &info.CompilerEmail
	case "compilername", "compiler":
		return &info.CompilerName
	}
	return nil
}

func readCompiler(acc *accumulator, rows []domain.Row, at int) int {
	row := rows[at]
	n := 0
	for col, c := range row {
		if dst := compilerField(&acc.info, headerKey(c)); dst != nil {
			if at+1 < len(rows) {
				if v := textPtr(cell(rows[at+1], col)); v != nil {
					*dst = v
					n++
				}
			}
			continue
		}

		lower := strings.ToLower(strings.TrimSpace(c))
		var dst **string
		switch {
		case strings.Contains(lower, "compiler") && strings.Contains(lower, "email"):
			dst = &acc.info.CompilerEmail
		case strings.HasPrefix(lower, "compiler"), strings.HasPrefix(lower, "current compiler"):
			dst = &acc.info.CompilerName
		default:
			continue
		}
		if v := textPtr(inlineValue(row, col)); v != nil {
			*dst = v
			n++
		}
	}
	return n
}

// inlineValue reads a "Label: value" cell. Without text after the colon the
// value is the first non-empty cell to the right.
func inlineValue(row domain.Row, col int) string {
	if _, after, found := strings.Cut(row[col], ":"); found {
		if v := strings.TrimSpace(after); v != "" {
			return v
		}
	}
	for _, c := range row[col+1:] {
		if v := strings.TrimSpace(c); v != "" {
			return v
		}
	}
	return ""
}

// --- indexed tables ---

// indexedRows returns the data rows following a sentinel: every row up to the
// first whose leading cell is not numeric.
func indexedRows(rows []domain.Row, at int) []domain.Row {
	end := at + 1
	for end < len(rows) && len(rows[end]) > 0 && IsNumeric(rows[end][0]) {
		end++
	}
	return rows[at+1 : end]
}

// countIndex returns the row's join key, or false when it is missing or zero.
func countIndex(row domain.Row) (int, bool) {
	idx, ok := ParseInt(cell(row, 0))
	if !ok || idx == 0 {
		return 0, false
	}
	return idx, true
}

func readWeather(acc *accumulator, rows []domain.Row, at int) int {
	n := 0
	for _, row := range indexedRows(rows, at) {
		idx, ok := countIndex(row)
		if !ok {
			continue
		}
		acc.weather = append(acc.weather, domain.WeatherRecord{
			CountIndex: idx,
			LowTempF:   tempPtr(cell(row, 1)),
			HighTempF:  tempPtr(cell(row, 2)),
			AMClouds:   CleanText(cell(row, 3)),
			PMClouds:   CleanText(cell(row, 4)),
			AMRain:     CleanText(cell(row, 5)),
			PMRain:     CleanText(cell(row, 6)),
			AMSnow:     CleanText(cell(row, 7)),
			PMSnow:     CleanText(cell(row, 8)),
		})
		n++
	}
	return n
}

func readParticipation(acc *accumulator, rows []domain.Row, at int) int {
	n := 0
	for _, row := range indexedRows(rows, at) {
		idx, ok := countIndex(row)
		if !ok {
			continue
		}
		acc.participation = append(acc.participation, domain.ParticipationEffortRecord{
			CountIndex:         idx,
			CountDate:          textPtr(cell(row, 1)),
			NumParticipants:    intPtr(cell(row, 2)),
			NumHours:           floatPtr(cell(row, 3)),
			NumSpeciesReported: intPtr(cell(row, 4)),
		})
		n++
	}
	return n
}

// --- species matrix ---

func speciesReader(stopSpecies string) func(*accumulator, []domain.Row, int) int {
	stopSpecies = strings.TrimSpace(stopSpecies)
	return func(acc *accumulator, rows []domain.Row, at int) int {
		n := 0
		seenStop := false
		for _, row := range rows[at+1:] {
			if len(row) == 0 {
				break
			}
			name := strings.TrimSpace(firstLine(cell(row, 0)))
			header := cell(row, 1)
			if name == "" || strings.TrimSpace(header) == "" {
				continue
			}
			if stopSpecies != "" {
				isStop := strings.EqualFold(name, stopSpecies)
				if seenStop && !isStop {
					break
				}
				seenStop = seenStop || isStop
			}
			meta, ok := ParseHeader(header)
			if !ok {
				continue
			}
			count, ok := ParseInt(cell(row, 2))
			if !ok {
				count = 0
			}
			acc.addSpecies(name, meta, count)
			n++
		}
		return n
	}
}

func (acc *accumulator) addSpecies(name string, meta domain.YearHeaderMeta, count int) {
	acc.headers = append(acc.headers, meta)
	byYear, ok := acc.counts[name]
	if !ok {
		byYear = make(map[string]int)
		acc.counts[name] = byYear
		acc.speciesOrder = append(acc.speciesOrder, name)
	}
	byYear[strconv.Itoa(meta.Year)] = count
}
