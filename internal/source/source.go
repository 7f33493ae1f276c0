// Package source adapts uploaded export files into the text the extraction
// engine reads: byte-order marks and legacy encodings are decoded and .xlsx
// workbooks are flattened to CSV.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies an upload's container.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// ErrUnsupportedFormat is returned for containers the service cannot read.
var ErrUnsupportedFormat = errors.New("unsupported format")

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Detect identifies the format by magic bytes, then by file extension.
// Anything unrecognized is treated as CSV text.
func Detect(name string, data []byte) Format {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(data, oleMagic):
		return FormatXLS
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	}
	return FormatCSV
}

// Load detects the upload's format and returns engine-ready text.
func Load(name string, data []byte, maxRows int) (string, Format, error) {
	format := Detect(name, data)
	switch format {
	case FormatXLSX:
		text, err := XLSXToCSV(data, maxRows)
		if err != nil {
			return "", format, err
		}
		return text, format, nil
	case FormatXLS:
		return "", format, fmt.Errorf("%w: legacy .xls workbooks must be re-saved as .xlsx or CSV", ErrUnsupportedFormat)
	default:
		text, err := Decode(data)
		if err != nil {
			return "", format, err
		}
		return text, format, nil
	}
}
