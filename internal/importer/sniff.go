package importer

import "strings"

// Delimiter is a field separator for delimited-text input.
type Delimiter rune

const (
	Tab       Delimiter = '\t'
	Comma     Delimiter = ','
	Semicolon Delimiter = ';'
)

// String returns a human-readable name for the delimiter.
func (d Delimiter) String() string {
	switch d {
	case Tab:
		return "tab"
	case Comma:
		return "comma"
	case Semicolon:
		return "semicolon"
	default:
		return string(rune(d))
	}
}

// sniffRules are checked in order; the first rule whose character appears in
// the line, with no tab present, wins. Tab is the fallback.
var sniffRules = []Delimiter{Comma, Semicolon}

// SniffDelimiter picks the delimiter for a payload from its first line.
func SniffDelimiter(firstLine string) Delimiter {
	if strings.ContainsRune(firstLine, rune(Tab)) {
		return Tab
	}
	for _, d := range sniffRules {
		if strings.ContainsRune(firstLine, rune(d)) {
			return d
		}
	}
	return Tab
}
