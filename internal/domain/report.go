package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// NewReport stamps an extraction result with a deterministic ID and the
// current clock time.
func NewReport(input []byte, filename, format string, result *ExtractionResult) Report {
	code := ""
	if result != nil && result.CountInfo.CountCode != nil {
		code = *result.CountInfo.CountCode
	}
	return Report{
		ID:          generateID(code, input),
		Filename:    filename,
		Format:      format,
		Result:      result,
		ExtractedAt: clock.Now().UTC(),
	}
}

// generateID hashes the raw export bytes so re-uploading the same file maps to
// the same report and downstream upserts stay idempotent.
func generateID(countCode string, input []byte) string {
	hash := sha256.Sum256(input)
	short := hex.EncodeToString(hash[:8])
	code := strings.ToLower(strings.TrimSpace(countCode))
	if code == "" {
		return short
	}
	return code + "-" + short
}

// SerializeReport marshals a report into a sink message keyed by report ID.
func SerializeReport(report Report) (OutputEvent, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize report: %w", err)
	}

	headers := map[string]string{
		HeaderExtractedAt: report.ExtractedAt.Format(time.RFC3339),
	}
	if report.Result != nil {
		if report.Result.CountInfo.CountCode != nil {
			headers[HeaderCountCode] = *report.Result.CountInfo.CountCode
		}
		if span := yearSpanLabel(report.Result.Years); span != "" {
			headers[HeaderYears] = span
		}
	}

	return OutputEvent{
		Key:     []byte(report.ID),
		Value:   data,
		Headers: headers,
	}, nil
}

// yearSpanLabel renders sorted years as "first-last", or "" when empty.
func yearSpanLabel(years []int) string {
	if len(years) == 0 {
		return ""
	}
	return fmt.Sprintf("%d-%d", years[0], years[len(years)-1])
}
