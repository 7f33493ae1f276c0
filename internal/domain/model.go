package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Row is one lexed line of the export: cells in column order.
type Row []string

// CountInfo is the circle-level metadata found near the top of an export.
// Every field is independently optional.
type CountInfo struct {
	CountName         *string  `json:"CountName"`
	CountCode         *string  `json:"CountCode"`
	CountID           *int     `json:"CountId"`
	Lat               *float64 `json:"Lat"`
	Lon               *float64 `json:"Lon"`
	CompilerFirstName *string  `json:"CompilerFirstName"`
	CompilerLastName  *string  `json:"CompilerLastName"`
	CompilerName      *string  `json:"CompilerName"`
	CompilerEmail     *string  `json:"CompilerEmail"`
}

// HasCoordinates reports whether both latitude and longitude were parsed.
func (c CountInfo) HasCoordinates() bool {
	return c.Lat != nil && c.Lon != nil
}

// YearHeaderMeta is decoded from one composite species header cell such as
// "1987 [3]\nCount Date: 12/27/1987\n# Participants: 42". Only the index,
// year and date are serialized; the effort figures are published through
// ParticipationEffortRecord.
type YearHeaderMeta struct {
	CountIndex         int      `json:"CountIndex"`
	Year               int      `json:"Year"`
	CountDate          *string  `json:"CountDate"`
	NumParticipants    *int     `json:"-"`
	NumSpeciesReported *int     `json:"-"`
	TotalHrs           *float64 `json:"-"`
}

// WeatherRecord is one row of the weather section. Sky and precipitation
// fields are free text as exported.
type WeatherRecord struct {
	CountIndex int      `json:"CountIndex"`
	Year       *int     `json:"Year"`
	CountDate  *string  `json:"CountDate"`
	LowTempF   *float64 `json:"LowTempF"`
	HighTempF  *float64 `json:"HighTempF"`
	AMClouds   string   `json:"AMClouds"`
	PMClouds   string   `json:"PMClouds"`
	AMRain     string   `json:"AMRain"`
	PMRain     string   `json:"PMRain"`
	AMSnow     string   `json:"AMSnow"`
	PMSnow     string   `json:"PMSnow"`
}

// ParticipationEffortRecord is one row of the participants/effort section.
type ParticipationEffortRecord struct {
	CountIndex         int      `json:"CountIndex"`
	CountDate          *string  `json:"CountDate"`
	Year               *int     `json:"Year"`
	NumParticipants    *int     `json:"NumParticipants"`
	NumHours           *float64 `json:"NumHours"`
	NumSpeciesReported *int     `json:"NumSpeciesReported"`
}

// SpeciesRecord holds one species and its count per year. Years the species
// was not reported are absent from Counts, not zero.
type SpeciesRecord struct {
	Species string
	Counts  map[string]int
}

// Years returns the year keys of Counts in ascending order.
func (s SpeciesRecord) Years() []string {
	keys := make([]string, 0, len(s.Counts))
	for k := range s.Counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})
	return keys
}

// MarshalJSON flattens the record to {"Species": name, "<year>": count, ...}
// with years in ascending order.
func (s SpeciesRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"Species":`)
	name, err := json.Marshal(s.Species)
	if err != nil {
		return nil, err
	}
	buf.Write(name)
	for _, year := range s.Years() {
		key, err := json.Marshal(year)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(s.Counts[year]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reverses MarshalJSON.
func (s *SpeciesRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode species record: %w", err)
	}
	rec := SpeciesRecord{Counts: make(map[string]int, len(fields))}
	for k, v := range fields {
		if k == "Species" {
			if err := json.Unmarshal(v, &rec.Species); err != nil {
				return fmt.Errorf("decode species name: %w", err)
			}
			continue
		}
		var n int
		if err := json.Unmarshal(v, &n); err != nil {
			return fmt.Errorf("decode count for %q: %w", k, err)
		}
		rec.Counts[k] = n
	}
	*s = rec
	return nil
}

// ExtractionResult is everything recovered from one export.
type ExtractionResult struct {
	CountInfo          CountInfo                   `json:"countInfo"`
	Meta               []YearHeaderMeta            `json:"meta"`
	ParticipantsEffort []ParticipationEffortRecord `json:"participantsEffort"`
	WeatherRaw         []WeatherRecord             `json:"weatherRaw"`
	SpeciesTable       []SpeciesRecord             `json:"speciesTable"`
	Years              []int                       `json:"years"`
}

// NewExtractionResult returns a result whose lists are empty rather than nil,
// so an export with no recognizable sections still serializes as [] fields.
func NewExtractionResult() *ExtractionResult {
	return &ExtractionResult{
		Meta:               []YearHeaderMeta{},
		ParticipantsEffort: []ParticipationEffortRecord{},
		WeatherRaw:         []WeatherRecord{},
		SpeciesTable:       []SpeciesRecord{},
		Years:              []int{},
	}
}
