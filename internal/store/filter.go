package store

import (
	"strings"

	"github.com/atikulmunna/vislog/internal/model"
)

// AllRequestTypes disables the request type filter.
const AllRequestTypes = "all"

// Apply returns the entries matching every set filter. IP, domain and page
// filters are case-insensitive substring matches, the request type must match
// exactly, and dateRange is a substring of the timestamp.
func Apply(logs []model.LogEntry, f model.LogFilters) []model.LogEntry {
	out := make([]model.LogEntry, 0, len(logs))
	for _, e := range logs {
		if Match(e, f) {
			out = append(out, e)
		}
	}
	return out
}

// Match reports whether a single entry passes f.
func Match(e model.LogEntry, f model.LogFilters) bool {
	if f.IP != "" && !containsFold(e.IP, f.IP) {
		return false
	}
	if f.Domain != "" && !containsFold(e.Domain, f.Domain) {
		return false
	}
	if f.PageURL != "" && !containsFold(e.PageURL, f.PageURL) {
		return false
	}
	if f.RequestType != "" && f.RequestType != AllRequestTypes && e.RequestType != f.RequestType {
		return false
	}
	if f.DateRange != "" && !strings.Contains(e.Timestamp, f.DateRange) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
