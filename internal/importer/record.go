package importer

import (
	"strings"
	"time"

	"github.com/atikulmunna/vislog/internal/model"
)

// Unknown is the placeholder for a missing IP, domain or user agent.
// Records whose IP or domain is Unknown are never kept.
const Unknown = "Unknown"

// isoMillis matches the UTC millisecond ISO-8601 form used for missing timestamps.
const isoMillis = "2006-01-02T15:04:05.000Z"

// fieldDefaults are used when a field's column is unbound, out of range or empty.
// The timestamp default is computed per import.
var fieldDefaults = [numFields]string{
	FieldIP:          Unknown,
	FieldDomain:      Unknown,
	FieldRequestType: "GET",
	FieldPageURL:     "/",
	FieldReferralURL: "-",
	FieldUserAgent:   Unknown,
}

// BuildRecord assembles a LogEntry from one worksheet row. Cell values are
// kept verbatim. The second result is false when the row lacks an IP or a
// domain and must be dropped.
func BuildRecord(values []string, cols ColumnMap, now time.Time) (model.LogEntry, bool) {
	return buildRecord(values, cols, now, nil)
}

// BuildTextRecord is BuildRecord for a tokenized line of delimited text:
// every field also loses one pair of enclosing double quotes and is trimmed.
func BuildTextRecord(values []string, cols ColumnMap, now time.Time) (model.LogEntry, bool) {
	return buildRecord(values, cols, now, stripQuotes)
}

func buildRecord(values []string, cols ColumnMap, now time.Time, clean func(string) string) (model.LogEntry, bool) {
	var fields [numFields]string
	for f := Field(0); f < numFields; f++ {
		v := valueAt(values, cols[f])
		if v == "" {
			if f == FieldTimestamp {
				v = now.UTC().Format(isoMillis)
			} else {
				v = fieldDefaults[f]
			}
		}
		if clean != nil {
			v = clean(v)
		}
		fields[f] = v
	}

	entry := model.LogEntry{
		IP:          fields[FieldIP],
		Domain:      fields[FieldDomain],
		Timestamp:   fields[FieldTimestamp],
		RequestType: fields[FieldRequestType],
		PageURL:     fields[FieldPageURL],
		ReferralURL: fields[FieldReferralURL],
		UserAgent:   fields[FieldUserAgent],
	}
	return entry, entry.IP != Unknown && entry.Domain != Unknown
}

func valueAt(values []string, idx int) string {
	if idx < 0 || idx >= len(values) {
		return ""
	}
	return values[idx]
}

// stripQuotes removes one leading and one trailing double quote, then trims.
func stripQuotes(s string) string {
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.TrimSpace(s)
}
