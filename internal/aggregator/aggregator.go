package aggregator

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/atikulmunna/vislog/internal/model"
)

// DefaultTopN is the length of the top-pages and top-domains lists.
const DefaultTopN = 5

// highValueThreshold is the engagement score above which a visitor is a lead.
const highValueThreshold = 5.0

// Ranked is one row of a top-N list.
type Ranked struct {
	Key        string `json:"key"`
	Title      string `json:"title"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"` // relative to the first row
}

// Stats is a dashboard summary computed from the stored entries.
type Stats struct {
	TotalEntries      int            `json:"totalEntries"`
	UniqueVisitors    int            `json:"uniqueVisitors"`
	UniqueCompanies   int            `json:"uniqueCompanies"`
	HighValueLeads    int            `json:"highValueLeads"`
	AvgSessionMinutes int            `json:"avgSessionMinutes"`
	RequestTypes      map[string]int `json:"requestTypes"`
	TopPages          []Ranked       `json:"topPages"`
	TopDomains        []Ranked       `json:"topDomains"`
	ComputedAt        time.Time      `json:"computedAt"`
}

// Compute summarises logs. Placeholder values ("-") are not counted as
// visitors, companies or pages.
func Compute(logs []model.LogEntry, topN int) Stats {
	if topN <= 0 {
		topN = DefaultTopN
	}

	visits := make(map[string]int)
	pagesByIP := make(map[string]map[string]struct{})
	domains := make(map[string]int)
	pages := make(map[string]int)
	methods := make(map[string]int)

	for _, e := range logs {
		methods[e.RequestType]++

		if e.IP != "" && e.IP != "-" {
			visits[e.IP]++
			if pagesByIP[e.IP] == nil {
				pagesByIP[e.IP] = make(map[string]struct{})
			}
			if e.PageURL != "" && e.PageURL != "-" {
				pagesByIP[e.IP][e.PageURL] = struct{}{}
			}
		}
		if e.Domain != "" && e.Domain != "-" {
			domains[e.Domain]++
		}
		if e.PageURL != "" && e.PageURL != "-" {
			pages[e.PageURL]++
		}
	}

	stats := Stats{
		TotalEntries:    len(logs),
		UniqueVisitors:  len(visits),
		UniqueCompanies: len(domains),
		RequestTypes:    methods,
		TopPages:        rank(pages, topN, pageTitle),
		TopDomains:      rank(domains, topN, domainTitle),
		ComputedAt:      time.Now().UTC(),
	}

	var total int
	for ip, n := range visits {
		total += n
		score := float64(n)*0.4 + float64(len(pagesByIP[ip]))*0.6
		if score > highValueThreshold {
			stats.HighValueLeads++
		}
	}
	if len(visits) > 0 {
		stats.AvgSessionMinutes = int(math.Floor(float64(total) * 2.5 / float64(len(visits))))
	}
	return stats
}

// rank orders counts descending, ties by key, and keeps the first n.
func rank(counts map[string]int, n int, title func(string) string) []Ranked {
	out := make([]Ranked, 0, len(counts))
	for k, c := range counts {
		out = append(out, Ranked{Key: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > n {
		out = out[:n]
	}
	if len(out) == 0 {
		return out
	}
	top := out[0].Count
	for i := range out {
		out[i].Title = title(out[i].Key)
		out[i].Percentage = int(math.Round(float64(out[i].Count) / float64(top) * 100))
	}
	return out
}

// pageTitle turns "/resources/case-studies" into "Case Studies".
func pageTitle(path string) string {
	if path == "/" {
		return "Homepage"
	}
	segs := strings.Split(path, "/")
	last := segs[len(segs)-1]
	if last == "" {
		last = path
	}
	return titleCase(strings.ReplaceAll(last, "-", " "))
}

// domainTitle turns "acme-corp.com" into "Acme Corp".
func domainTitle(domain string) string {
	base, _, _ := strings.Cut(domain, ".")
	return titleCase(strings.ReplaceAll(base, "-", " "))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// ---------------------------------------------------------------------------
// Live aggregator
// ---------------------------------------------------------------------------

// Source provides the entries to summarise.
type Source interface {
	Snapshot() model.State
}

// Aggregator keeps a cached Stats that is recomputed on every change event.
type Aggregator struct {
	mu     sync.RWMutex
	src    Source
	topN   int
	events <-chan model.Event
	stats  Stats
}

// New creates an Aggregator over src, refreshed by events.
func New(src Source, events <-chan model.Event, topN int) *Aggregator {
	a := &Aggregator{src: src, events: events, topN: topN}
	a.refresh()
	return a
}

// Snapshot returns the latest computed stats.
func (a *Aggregator) Snapshot() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

// Start recomputes on each event. Blocks until the context is cancelled or
// the event channel is closed.
func (a *Aggregator) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-a.events:
			if !ok {
				return
			}
			a.refresh()
		}
	}
}

func (a *Aggregator) refresh() {
	stats := Compute(a.src.Snapshot().Logs, a.topN)
	a.mu.Lock()
	a.stats = stats
	a.mu.Unlock()
}
