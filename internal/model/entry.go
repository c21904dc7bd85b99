package model

import "time"

// LogEntry is a single normalized visitor-log record.
type LogEntry struct {
	IP          string `json:"ip"`
	Domain      string `json:"domain"`
	Timestamp   string `json:"timestamp"` // free text; ISO, CLF and locale formats all occur
	RequestType string `json:"requestType"`
	PageURL     string `json:"pageUrl"`
	ReferralURL string `json:"referralUrl"`
	UserAgent   string `json:"userAgent"`
}

// LogFilters narrows the stored entries to a derived view.
// An empty field places no constraint.
type LogFilters struct {
	IP          string `json:"ip"`
	Domain      string `json:"domain"`
	PageURL     string `json:"pageUrl"`
	RequestType string `json:"requestType"`
	DateRange   string `json:"dateRange"`
}

// IsZero reports whether no filter is set.
func (f LogFilters) IsZero() bool {
	return f == LogFilters{}
}

// State is the persisted application state.
type State struct {
	Logs         []LogEntry `json:"logs"`
	FilteredLogs []LogEntry `json:"filteredLogs"`
	Filters      LogFilters `json:"filters"`
}

// EventKind names the store operation that produced an Event.
type EventKind string

const (
	EventSet    EventKind = "set"
	EventAppend EventKind = "append"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
	EventFilter EventKind = "filter"
	EventReset  EventKind = "reset"
	EventClear  EventKind = "clear"
)

// Event describes a completed store mutation.
type Event struct {
	ID       string    `json:"id"`
	Kind     EventKind `json:"kind"`
	Total    int       `json:"total"`
	Filtered int       `json:"filtered"`
	At       time.Time `json:"at"`
}
