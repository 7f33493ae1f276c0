package extract

import (
	"regexp"
	"strconv"

	"github.com/couchcryptid/cbc-history-etl/internal/domain"
)

var (
	headerLeadPattern      = regexp.MustCompile(`^\s*(19\d{2}|20\d{2})\s*\[(\d+)\]`)
	countDatePattern       = regexp.MustCompile(`(?i)count\s+date:\s*(\d{1,2}/\d{1,2}/\d{4})`)
	participantsPattern    = regexp.MustCompile(`(?i)#\s*participants:\s*(\d+)`)
	speciesReportedPattern = regexp.MustCompile(`(?i)#\s*species\s+reported:\s*(\d+)`)
	totalHoursPattern      = regexp.MustCompile(`(?i)total\s+hrs\.?:\s*(\d+(?:\.\d+)?)`)
)

// ParseHeader decodes a composite species header cell such as
//
//	1987 [3]
//	Count Date: 12/27/1987
//	# Participants: 42
//
// The first line must start with a year in 1900-2099 followed by a bracketed
// count index; otherwise ok is false and the cell is not a header. The
// labeled sub-fields are optional and may appear anywhere in the cell.
func ParseHeader(text string) (meta domain.YearHeaderMeta, ok bool) {
	m := headerLeadPattern.FindStringSubmatch(firstLine(text))
	if m == nil {
		return domain.YearHeaderMeta{}, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return domain.YearHeaderMeta{}, false
	}
	index, err := strconv.Atoi(m[2])
	if err != nil {
		return domain.YearHeaderMeta{}, false
	}

	meta = domain.YearHeaderMeta{CountIndex: index, Year: year}
	if v := labeled(countDatePattern, text); v != "" {
		meta.CountDate = &v
	}
	meta.NumParticipants = intPtr(labeled(participantsPattern, text))
	meta.NumSpeciesReported = intPtr(labeled(speciesReportedPattern, text))
	meta.TotalHrs = floatPtr(labeled(totalHoursPattern, text))
	return meta, true
}

func labeled(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}
