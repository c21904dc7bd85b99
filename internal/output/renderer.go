package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"

	"github.com/atikulmunna/vislog/internal/aggregator"
	"github.com/atikulmunna/vislog/internal/importer"
	"github.com/atikulmunna/vislog/internal/model"
)

// Renderer writes log entries and summaries to an output stream.
type Renderer interface {
	Render(index int, entry model.LogEntry) error
	RenderStats(stats aggregator.Stats) error
	RenderImport(res *importer.Result) error
}

// New returns the renderer for format ("text" or "json") writing to w.
func New(format string, w io.Writer) Renderer {
	if w == nil {
		w = os.Stdout
	}
	if strings.EqualFold(format, "json") {
		return NewJSONRenderer(w)
	}
	return NewTextRenderer(w)
}

// ---------------------------------------------------------------------------
// Text Renderer (colorized terminal output)
// ---------------------------------------------------------------------------

var (
	styleGet    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	stylePost   = lipgloss.NewStyle().Foreground(lipgloss.Color("220")) // yellow
	styleDelete = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleOther  = lipgloss.NewStyle().Foreground(lipgloss.Color("141")) // purple
	styleIndex  = lipgloss.NewStyle().Faint(true)
	styleDomain = lipgloss.NewStyle().Foreground(lipgloss.Color("39")) // cyan
	styleLabel  = lipgloss.NewStyle().Bold(true)
	styleMuted  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
)

// TextRenderer prints entries one per line with method-based colors.
type TextRenderer struct {
	w io.Writer
}

// NewTextRenderer returns a Renderer that writes colorized text to w.
func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

func (r *TextRenderer) Render(index int, e model.LogEntry) error {
	line := fmt.Sprintf("%s %s %-15s %s %s %s %s",
		styleIndex.Render(fmt.Sprintf("%4d", index)),
		e.Timestamp,
		e.IP,
		styleDomain.Render(e.Domain),
		styleMethod(e.RequestType),
		e.PageURL,
		styleMuted.Render(e.ReferralURL+" "+e.UserAgent),
	)
	_, err := fmt.Fprintln(r.w, line)
	return err
}

func (r *TextRenderer) RenderStats(s aggregator.Stats) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d\n", styleLabel.Render("Entries:         "), s.TotalEntries)
	fmt.Fprintf(&b, "%s %d\n", styleLabel.Render("Visitors:        "), s.UniqueVisitors)
	fmt.Fprintf(&b, "%s %d\n", styleLabel.Render("Companies:       "), s.UniqueCompanies)
	fmt.Fprintf(&b, "%s %d\n", styleLabel.Render("High-value leads:"), s.HighValueLeads)
	fmt.Fprintf(&b, "%s %dm\n", styleLabel.Render("Avg. session:    "), s.AvgSessionMinutes)

	methods := make([]string, 0, len(s.RequestTypes))
	for m := range s.RequestTypes {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	if len(methods) > 0 {
		b.WriteString(styleLabel.Render("Request types:") + "\n")
		for _, m := range methods {
			fmt.Fprintf(&b, "  %s %d\n", styleMethod(fmt.Sprintf("%-7s", m)), s.RequestTypes[m])
		}
	}
	writeRanked(&b, "Top pages:", s.TopPages)
	writeRanked(&b, "Top companies:", s.TopDomains)

	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *TextRenderer) RenderImport(res *importer.Result) error {
	_, err := fmt.Fprintf(r.w, "Imported %d log entries from %d sheet(s). Found %d valid rows from %d total rows.\n",
		len(res.Entries), res.Stats.ProcessedSheets, res.Stats.ValidRows, res.Stats.TotalRows)
	return err
}

func writeRanked(b *strings.Builder, label string, rows []aggregator.Ranked) {
	if len(rows) == 0 {
		return
	}
	b.WriteString(styleLabel.Render(label) + "\n")
	for _, row := range rows {
		fmt.Fprintf(b, "  %-30s %6d %s\n", row.Key, row.Count, styleMuted.Render(fmt.Sprintf("%3d%%", row.Percentage)))
	}
}

func styleMethod(method string) string {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case "GET", "HEAD":
		return styleGet.Render(method)
	case "POST", "PUT", "PATCH":
		return stylePost.Render(method)
	case "DELETE":
		return styleDelete.Render(method)
	default:
		return styleOther.Render(method)
	}
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints each value as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON lines to w.
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

func (r *JSONRenderer) Render(index int, e model.LogEntry) error {
	return r.enc.Encode(struct {
		Index int `json:"index"`
		model.LogEntry
	}{index, e})
}

func (r *JSONRenderer) RenderStats(s aggregator.Stats) error {
	return r.enc.Encode(s)
}

func (r *JSONRenderer) RenderImport(res *importer.Result) error {
	return r.enc.Encode(struct {
		Imported int            `json:"imported"`
		Stats    importer.Stats `json:"stats"`
	}{len(res.Entries), res.Stats})
}
