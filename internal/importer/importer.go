package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atikulmunna/vislog/internal/metrics"
	"github.com/atikulmunna/vislog/internal/model"
)

var (
	ErrNoFile               = errors.New("no file selected")
	ErrUnsupportedExtension = errors.New("invalid file format: expected .xlsx, .xls, .csv, .tsv or .txt")
	ErrMissingColumns       = errors.New("missing required columns: IP and domain")
	ErrNoValidEntries       = errors.New("no valid log entries found in the file")
	ErrRead                 = errors.New("failed to read file")
)

// Format is the input family chosen from a file's extension.
type Format string

const (
	FormatText     Format = "text"
	FormatWorkbook Format = "workbook"
)

var extensionFormats = map[string]Format{
	".xlsx": FormatWorkbook,
	".xls":  FormatWorkbook,
	".csv":  FormatText,
	".tsv":  FormatText,
	".txt":  FormatText,
}

// Extensions returns the accepted file extensions.
func Extensions() []string {
	return []string{".xlsx", ".xls", ".csv", ".tsv", ".txt"}
}

// DetectFormat maps a file name to its input format.
func DetectFormat(name string) (Format, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrNoFile
	}
	f, ok := extensionFormats[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return "", fmt.Errorf("%s: %w", filepath.Base(name), ErrUnsupportedExtension)
	}
	return f, nil
}

// Stats are the aggregate counts of one import.
type Stats struct {
	TotalSheets     int `json:"totalSheets"`
	ProcessedSheets int `json:"processedSheets"`
	TotalRows       int `json:"totalRows"`
	ValidRows       int `json:"validRows"`
}

// Result is the outcome of a successful import.
type Result struct {
	Entries   []model.LogEntry `json:"entries"`
	Stats     Stats            `json:"stats"`
	Format    Format           `json:"format"`
	Delimiter Delimiter        `json:"-"` // text input only
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(im *Importer) { im.log = l }
}

// WithClock overrides the time source used for missing timestamps.
func WithClock(now func() time.Time) Option {
	return func(im *Importer) { im.now = now }
}

// Importer turns uploaded spreadsheets and delimited text into log entries.
type Importer struct {
	log *zap.Logger
	now func() time.Time
}

// New returns an Importer.
func New(opts ...Option) *Importer {
	im := &Importer{
		log: zap.NewNop(),
		now: time.Now,
	}
	for _, o := range opts {
		o(im)
	}
	return im
}

// ImportFile opens path and imports it.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	if _, err := DetectFormat(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	defer f.Close()
	return im.Import(ctx, filepath.Base(path), f)
}

// Import reads r as the file called name. The extension is checked before
// anything is read.
func (im *Importer) Import(ctx context.Context, name string, r io.Reader) (*Result, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := im.importFormat(ctx, format, r)
	metrics.ImportDuration.WithLabelValues(string(format)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ImportsTotal.WithLabelValues(string(format), "failed").Inc()
		if errors.Is(err, ErrRead) {
			im.log.Error("import failed", zap.String("file", name), zap.Error(err))
		} else {
			im.log.Warn("import rejected", zap.String("file", name), zap.Error(err))
		}
		return nil, err
	}

	metrics.ImportsTotal.WithLabelValues(string(format), "ok").Inc()
	metrics.ImportRows.WithLabelValues("valid").Add(float64(res.Stats.ValidRows))
	metrics.ImportRows.WithLabelValues("dropped").Add(float64(res.Stats.TotalRows - res.Stats.ValidRows))

	im.log.Info("import complete",
		zap.String("file", name),
		zap.String("format", string(format)),
		zap.Int("sheets", res.Stats.ProcessedSheets),
		zap.Int("rows", res.Stats.TotalRows),
		zap.Int("valid", res.Stats.ValidRows),
	)
	return res, nil
}

func (im *Importer) importFormat(ctx context.Context, format Format, r io.Reader) (*Result, error) {
	switch format {
	case FormatWorkbook:
		wb, err := ReadWorkbook(r)
		if err != nil {
			return nil, err
		}
		return im.WalkWorkbook(ctx, wb)
	default:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRead, err)
		}
		return im.ParseText(ctx, string(data))
	}
}

// ParseText imports a delimited-text payload as a single virtual sheet.
func (im *Importer) ParseText(ctx context.Context, data string) (*Result, error) {
	data = strings.TrimPrefix(data, "\ufeff")

	firstLine, _, _ := strings.Cut(data, "\n")
	delim := SniffDelimiter(firstLine)

	var lines []string
	for _, l := range strings.Split(data, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil, ErrNoValidEntries
	}

	headers := splitHeader(lines[0], delim)
	cols := MapHeaders(headers)
	im.log.Debug("text headers mapped",
		zap.Stringer("delimiter", delim),
		zap.Strings("headers", headers),
		zap.Ints("columns", cols[:]),
	)
	if !cols.HasRequired() {
		return nil, ErrMissingColumns
	}

	now := im.now()
	res := &Result{
		Format:    FormatText,
		Delimiter: delim,
		Stats:     Stats{TotalSheets: 1, ProcessedSheets: 1},
	}
	for _, line := range lines[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Stats.TotalRows++
		entry, ok := BuildTextRecord(Tokenize(line, delim, len(headers)), cols, now)
		if !ok {
			continue
		}
		res.Entries = append(res.Entries, entry)
	}
	res.Stats.ValidRows = len(res.Entries)

	if len(res.Entries) == 0 {
		return nil, ErrNoValidEntries
	}
	return res, nil
}
