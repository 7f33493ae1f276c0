package extract

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/cbc-history-etl/internal/domain"
)

// Size-limit failures. They are the only errors Extract returns.
var (
	ErrTooManyRows    = errors.New("too many rows")
	ErrTooManyColumns = errors.New("too many columns")
	ErrInputTooLarge  = errors.New("input too large")
)

// Defaults applied to zero-valued Options fields.
const (
	DefaultMaxRows        = 250_000
	DefaultMaxColumns     = 200
	DefaultMaxInputBytes  = 64 << 20
	DefaultMetadataWindow = 80
	DefaultCircleWindow   = 50
)

// Markers are the sentinel tokens that open each section. Matching is on
// trimmed cell text.
type Markers struct {
	CircleName    string // first cell of the circle identity row
	CircleCode    string // second cell of the circle identity row
	Weather       string // first cell of the weather header row
	WeatherLow    string // case-insensitive substring of its second cell
	Participation string // first cell of the participants/effort header row
	SpeciesName   string // first cell of the species matrix header row
	SpeciesHeader string // second cell of the species matrix header row
}

// DefaultMarkers returns the tokens used by the CBC "Historical Results by
// Count" export.
func DefaultMarkers() Markers {
	return Markers{
		CircleName:    "CircleName",
		CircleCode:    "Abbrev",
		Weather:       "Year",
		WeatherLow:    "low temp",
		Participation: "CountYear",
		SpeciesName:   "COM_NAME",
		SpeciesHeader: "CountYear",
	}
}

// Options configures an Extractor. Zero values take the package defaults.
type Options struct {
	MaxRows       int
	MaxColumns    int
	MaxInputBytes int

	// StopSpecies ends the species matrix after the named species' rows,
	// dropping the trailer some exports append. Empty disables it.
	StopSpecies string

	// MetadataWindow and CircleWindow bound how many leading rows are
	// searched for compiler details and the circle identity row.
	MetadataWindow int
	CircleWindow   int

	// Markers overrides individual sentinel tokens; empty fields keep the
	// defaults.
	Markers Markers
}

func (o Options) withDefaults() Options {
	if o.MaxRows <= 0 {
		o.MaxRows = DefaultMaxRows
	}
	if o.MaxColumns <= 0 {
		o.MaxColumns = DefaultMaxColumns
	}
	if o.MaxInputBytes <= 0 {
		o.MaxInputBytes = DefaultMaxInputBytes
	}
	if o.MetadataWindow <= 0 {
		o.MetadataWindow = DefaultMetadataWindow
	}
	if o.CircleWindow <= 0 {
		o.CircleWindow = DefaultCircleWindow
	}
	o.Markers = o.Markers.withDefaults()
	return o
}

func (m Markers) withDefaults() Markers {
	d := DefaultMarkers()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&m.CircleName, d.CircleName)
	fill(&m.CircleCode, d.CircleCode)
	fill(&m.Weather, d.Weather)
	fill(&m.WeatherLow, d.WeatherLow)
	fill(&m.Participation, d.Participation)
	fill(&m.SpeciesName, d.SpeciesName)
	fill(&m.SpeciesHeader, d.SpeciesHeader)
	return m
}

// Stats describes what one extraction found.
type Stats struct {
	Rows     int
	Sections map[string]int // section name -> records (or fields) recovered
}

// Extractor turns an export's text into normalized tables. It holds no
// per-call state and is safe for concurrent use.
type Extractor struct {
	opts     Options
	sections []section
}

// New returns an Extractor for opts.
func New(opts Options) *Extractor {
	opts = opts.withDefaults()
	return &Extractor{opts: opts, sections: defaultSections(opts)}
}

// Options returns the effective options, defaults applied.
func (e *Extractor) Options() Options {
	return e.opts
}

// Extract parses text. Missing sections yield empty lists; only size-limit
// violations are errors.
func (e *Extractor) Extract(text string) (*domain.ExtractionResult, error) {
	result, _, err := e.ExtractWithStats(text)
	return result, err
}

// ExtractWithStats is Extract plus row and per-section counts.
func (e *Extractor) ExtractWithStats(text string) (*domain.ExtractionResult, Stats, error) {
	if err := e.CheckSize(len(text)); err != nil {
		return nil, Stats{}, err
	}
	return e.ExtractDecoded(text)
}

// CheckSize returns ErrInputTooLarge when an input of n bytes exceeds
// MaxInputBytes.
func (e *Extractor) CheckSize(n int) error {
	if n > e.opts.MaxInputBytes {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrInputTooLarge, n, e.opts.MaxInputBytes)
	}
	return nil
}

// ExtractDecoded is ExtractWithStats for text decoded from raw bytes that
// already passed CheckSize. The byte cap is not applied again; row and column
// caps still apply.
func (e *Extractor) ExtractDecoded(text string) (*domain.ExtractionResult, Stats, error) {
	rows, err := lex(normalizeNewlines(text), e.opts.MaxRows, e.opts.MaxColumns)
	if err != nil {
		return nil, Stats{}, err
	}

	acc := e.scan(rows)
	return reconcile(acc), Stats{Rows: len(rows), Sections: acc.found}, nil
}

var defaultExtractor = New(Options{})

// Extract parses text with default options.
func Extract(text string) (*domain.ExtractionResult, error) {
	return defaultExtractor.Extract(text)
}

// IsSizeLimit reports whether err is one of the size-limit failures.
func IsSizeLimit(err error) bool {
	return errors.Is(err, ErrTooManyRows) || errors.Is(err, ErrTooManyColumns) || errors.Is(err, ErrInputTooLarge)
}
