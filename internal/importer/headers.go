package importer

import "strings"

// Field identifies one column of the LogEntry schema.
type Field int

const (
	FieldIP Field = iota
	FieldDomain
	FieldTimestamp
	FieldRequestType
	FieldPageURL
	FieldReferralURL
	FieldUserAgent

	numFields
)

// NotFound is the column index of a field no header matched.
const NotFound = -1

var fieldNames = [numFields]string{
	FieldIP:          "ip",
	FieldDomain:      "domain",
	FieldTimestamp:   "timestamp",
	FieldRequestType: "requestType",
	FieldPageURL:     "pageUrl",
	FieldReferralURL: "referralUrl",
	FieldUserAgent:   "userAgent",
}

func (f Field) String() string {
	if f < 0 || f >= numFields {
		return "unknown"
	}
	return fieldNames[f]
}

// fieldAliases lists the lowercase substrings that identify each field's
// column. Fields are resolved independently, in header order.
var fieldAliases = [numFields][]string{
	FieldIP:          {"ip", "ipaddress", "ip address"},
	FieldDomain:      {"domain", "hostname", "host"},
	FieldTimestamp:   {"date", "time", "utc", "timestamp"},
	FieldRequestType: {"request", "method", "type", "requesttype"},
	FieldPageURL:     {"page", "url", "pageurl", "path"},
	FieldReferralURL: {"referral", "referrer", "ref"},
	FieldUserAgent:   {"user", "agent", "browser", "useragent"},
}

// Aliases returns a copy of the alias list for f.
func Aliases(f Field) []string {
	return append([]string(nil), fieldAliases[f]...)
}

// ColumnMap holds the header index bound to each field, or NotFound.
type ColumnMap [numFields]int

// Index returns the column bound to f.
func (m ColumnMap) Index(f Field) int { return m[f] }

// HasRequired reports whether both mandatory fields (IP and domain) are bound.
func (m ColumnMap) HasRequired() bool {
	return m[FieldIP] != NotFound && m[FieldDomain] != NotFound
}

// Missing returns the mandatory fields left unbound.
func (m ColumnMap) Missing() []Field {
	var out []Field
	for _, f := range []Field{FieldIP, FieldDomain} {
		if m[f] == NotFound {
			out = append(out, f)
		}
	}
	return out
}

// MapHeaders binds every schema field to the first header containing one of
// its aliases, case-insensitively.
func MapHeaders(headers []string) ColumnMap {
	lowered := make([]string, len(headers))
	for i, h := range headers {
		lowered[i] = strings.ToLower(h)
	}

	var m ColumnMap
	for f := Field(0); f < numFields; f++ {
		m[f] = findColumn(lowered, fieldAliases[f])
	}
	return m
}

// FindColumn returns the first index of headers whose lowercase form contains
// any of names, or NotFound.
func FindColumn(headers []string, names []string) int {
	lowered := make([]string, len(headers))
	for i, h := range headers {
		lowered[i] = strings.ToLower(h)
	}
	lowNames := make([]string, len(names))
	for i, n := range names {
		lowNames[i] = strings.ToLower(n)
	}
	return findColumn(lowered, lowNames)
}

func findColumn(lowered []string, names []string) int {
	for i, h := range lowered {
		if h == "" {
			continue
		}
		for _, n := range names {
			if strings.Contains(h, n) {
				return i
			}
		}
	}
	return NotFound
}
