package extract

import (
	"regexp"
	"strings"
)

var trailingAnnotation = regexp.MustCompile(`\s*(?:\[[^\[\]]*\]|\([^()]*\))\s*$`)

// DisplayName strips trailing bracketed or parenthesised annotations from a
// species name, e.g. "Snow Goose (Blue form) [Anser caerulescens]" becomes
// "Snow Goose". Stored species names keep the annotations.
func DisplayName(species string) string {
	name := strings.TrimSpace(firstLine(species))
	for {
		stripped := trailingAnnotation.ReplaceAllString(name, "")
		if stripped == name || stripped == "" {
			return name
		}
		name = stripped
	}
}
