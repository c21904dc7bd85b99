package importer

import "strings"

// Tokenize splits a line on delim. A double quote toggles quoting and is not
// kept; the delimiter is literal inside quotes. Tokens are trimmed.
//
// When the result has fewer tokens than wantColumns, a plain split that
// ignores quoting is used instead if it produces more tokens. This recovers
// lines with unbalanced quotes.
func Tokenize(line string, delim Delimiter, wantColumns int) []string {
	values := make([]string, 0, wantColumns)
	var cur strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == rune(delim) && !inQuotes:
			values = append(values, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	values = append(values, strings.TrimSpace(cur.String()))

	if len(values) < wantColumns {
		naive := strings.Split(line, string(rune(delim)))
		if len(naive) > len(values) {
			values = values[:0]
			for _, v := range naive {
				values = append(values, strings.TrimSpace(v))
			}
		}
	}
	return values
}

// splitHeader splits the header line without quote handling.
func splitHeader(line string, delim Delimiter) []string {
	parts := strings.Split(line, string(rune(delim)))
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
