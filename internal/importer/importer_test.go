package importer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/atikulmunna/vislog/internal/model"
)

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestImporter() *Importer {
	return New(WithClock(func() time.Time { return fixedNow }))
}

// failReader fails the test if anything tries to read from it.
type failReader struct{ t *testing.T }

func (r failReader) Read([]byte) (int, error) {
	r.t.Fatal("reader should not be consumed")
	return 0, nil
}

func TestImportTabSeparatedExample(t *testing.T) {
	data := "IP\tDomain\tDate & Time (UTC)\tRequest Type\tPage URL\tReferral URL\tUser Agent\n" +
		"203.0.113.5\tacme.com\t2025-03-01T10:00:00Z\tGET\t/pricing\t-\tMozilla/5.0\n"

	res, err := newTestImporter().Import(context.Background(), "visits.tsv", strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)

	assert.Equal(t, model.LogEntry{
		IP:          "203.0.113.5",
		Domain:      "acme.com",
		Timestamp:   "2025-03-01T10:00:00Z",
		RequestType: "GET",
		PageURL:     "/pricing",
		ReferralURL: "-",
		UserAgent:   "Mozilla/5.0",
	}, res.Entries[0])
	assert.Equal(t, Tab, res.Delimiter)
	assert.Equal(t, FormatText, res.Format)
	assert.Equal(t, Stats{TotalSheets: 1, ProcessedSheets: 1, TotalRows: 1, ValidRows: 1}, res.Stats)
}

func TestImportCSVWithQuotedDelimiters(t *testing.T) {
	data := "IP,Domain,Timestamp,Method,Path,Referrer,Browser\r\n" +
		`"10.0.0.1","acme, inc.com","01/Mar/2025:10:00:00","POST","/a,b","https://google.com/?q=a,b","Mozilla/5.0 (X11, Linux)"` + "\r\n" +
		"\r\n" +
		"10.0.0.2,globex.com,2025-03-01,GET,/home,-,curl/8.0\r\n"

	res, err := newTestImporter().Import(context.Background(), "visits.CSV", strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, Comma, res.Delimiter)

	first := res.Entries[0]
	assert.Equal(t, "10.0.0.1", first.IP)
	assert.Equal(t, "acme, inc.com", first.Domain)
	assert.Equal(t, "01/Mar/2025:10:00:00", first.Timestamp)
	assert.Equal(t, "POST", first.RequestType)
	assert.Equal(t, "/a,b", first.PageURL)
	assert.Equal(t, "https://google.com/?q=a,b", first.ReferralURL)
	assert.Equal(t, "Mozilla/5.0 (X11, Linux)", first.UserAgent)

	assert.Equal(t, "globex.com", res.Entries[1].Domain)
	assert.Equal(t, 2, res.Stats.TotalRows)
}

func TestImportSemicolonAndDefaults(t *testing.T) {
	data := "IP Address;Hostname\n192.168.1.9;example.org\n"

	res, err := newTestImporter().Import(context.Background(), "visits.txt", strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, Semicolon, res.Delimiter)

	e := res.Entries[0]
	assert.Equal(t, "192.168.1.9", e.IP)
	assert.Equal(t, "example.org", e.Domain)
	assert.Equal(t, "2025-03-01T10:00:00.000Z", e.Timestamp)
	assert.Equal(t, "GET", e.RequestType)
	assert.Equal(t, "/", e.PageURL)
	assert.Equal(t, "-", e.ReferralURL)
	assert.Equal(t, Unknown, e.UserAgent)
}

func TestImportStripsByteOrderMark(t *testing.T) {
	data := "\ufeffIP,Domain\n1.1.1.1,one.one\n"

	res, err := newTestImporter().Import(context.Background(), "bom.csv", strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "1.1.1.1", res.Entries[0].IP)
}

func TestImportDropsRowsWithoutIPOrDomain(t *testing.T) {
	data := "IP,Domain,Page\n" +
		"1.2.3.4,,/missing-domain\n" +
		",acme.com,/missing-ip\n" +
		"5.6.7.8,acme.com,/ok\n"

	res, err := newTestImporter().Import(context.Background(), "visits.csv", strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "/ok", res.Entries[0].PageURL)
	assert.Equal(t, Stats{TotalSheets: 1, ProcessedSheets: 1, TotalRows: 3, ValidRows: 1}, res.Stats)
}

func TestImportNoValidEntries(t *testing.T) {
	data := "IP,Domain\n1.2.3.4,\n,acme.com\n"

	_, err := newTestImporter().Import(context.Background(), "visits.csv", strings.NewReader(data))
	assert.ErrorIs(t, err, ErrNoValidEntries)
}

func TestImportHeaderOnly(t *testing.T) {
	_, err := newTestImporter().Import(context.Background(), "visits.csv", strings.NewReader("IP,Domain\n"))
	assert.ErrorIs(t, err, ErrNoValidEntries)

	_, err = newTestImporter().Import(context.Background(), "empty.csv", strings.NewReader("\n\n"))
	assert.ErrorIs(t, err, ErrNoValidEntries)
}

func TestImportMissingColumns(t *testing.T) {
	data := "Address,Page\n1.2.3.4,/home\n"

	_, err := newTestImporter().Import(context.Background(), "visits.csv", strings.NewReader(data))
	assert.ErrorIs(t, err, ErrMissingColumns)
}

func TestImportRejectsBeforeReading(t *testing.T) {
	im := newTestImporter()

	_, err := im.Import(context.Background(), "report.pdf", failReader{t})
	assert.ErrorIs(t, err, ErrUnsupportedExtension)

	_, err = im.Import(context.Background(), "", failReader{t})
	assert.ErrorIs(t, err, ErrNoFile)
}

func TestImportMalformedWorkbook(t *testing.T) {
	_, err := newTestImporter().Import(context.Background(), "broken.xlsx", strings.NewReader("not a zip"))
	assert.ErrorIs(t, err, ErrRead)
}

func TestImportFileMissing(t *testing.T) {
	_, err := newTestImporter().ImportFile(context.Background(), "/nonexistent/visits.csv")
	assert.ErrorIs(t, err, ErrRead)
}

func TestImportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestImporter().Import(ctx, "visits.csv", strings.NewReader("IP,Domain\n1.1.1.1,a.com\n"))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		want Format
		err  error
	}{
		{"logs.xlsx", FormatWorkbook, nil},
		{"LOGS.XLS", FormatWorkbook, nil},
		{"a.csv", FormatText, nil},
		{"a.tsv", FormatText, nil},
		{"a.txt", FormatText, nil},
		{"a.json", "", ErrUnsupportedExtension},
		{"noext", "", ErrUnsupportedExtension},
		{"  ", "", ErrNoFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.name)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWalkWorkbookSkipsSheetsWithoutDomain(t *testing.T) {
	wb := &Workbook{Sheets: []Sheet{
		{Name: "NoDomain", Rows: [][]any{
			{"IP", "Page URL"},
			{"9.9.9.9", "/ignored"},
		}},
		{Name: "HeaderOnly", Rows: [][]any{
			{"IP", "Domain"},
		}},
		{Name: "Visits", Rows: [][]any{
			{"IP", "Domain", "Date & Time (UTC)", "Request Type", "Page URL", "Referral URL", "User Agent"},
			{"1.1.1.1", "first.com", 45717.5, "GET", "/one", nil, "ua-1"},
			{},
			{"2.2.2.2", "second.com", "2025-03-02", "POST", 404, "-", "ua-2"},
			{"3.3.3.3", nil},
		}},
	}}

	res, err := newTestImporter().WalkWorkbook(context.Background(), wb)
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)

	assert.Equal(t, "first.com", res.Entries[0].Domain)
	assert.Equal(t, "45717.5", res.Entries[0].Timestamp)
	assert.Equal(t, "-", res.Entries[0].ReferralURL)
	assert.Equal(t, "second.com", res.Entries[1].Domain)
	assert.Equal(t, "404", res.Entries[1].PageURL)

	assert.Equal(t, Stats{TotalSheets: 3, ProcessedSheets: 1, TotalRows: 3, ValidRows: 2}, res.Stats)
}

func TestWalkWorkbookNoSheetYields(t *testing.T) {
	wb := &Workbook{Sheets: []Sheet{
		{Name: "A", Rows: [][]any{{"IP"}, {"1.1.1.1"}}},
		{Name: "B", Rows: [][]any{{"IP", "Domain"}, {"1.1.1.1", ""}}},
	}}

	_, err := newTestImporter().WalkWorkbook(context.Background(), wb)
	assert.ErrorIs(t, err, ErrNoValidEntries)
}

func TestImportMultiSheetWorkbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"IP", "Page"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"8.8.8.8", "/nope"}))

	_, err := f.NewSheet("Traffic")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Traffic", "A1", &[]any{"IP", "Domain", "Page URL"}))
	require.NoError(t, f.SetSheetRow("Traffic", "A2", &[]any{"10.1.1.1", "b.com", "/b"}))
	require.NoError(t, f.SetSheetRow("Traffic", "A3", &[]any{"10.1.1.2", "c.com", "/c"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res, err := newTestImporter().Import(context.Background(), "multi.xlsx", buf)
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, "b.com", res.Entries[0].Domain)
	assert.Equal(t, "c.com", res.Entries[1].Domain)
	assert.Equal(t, 2, res.Stats.TotalSheets)
	assert.Equal(t, 1, res.Stats.ProcessedSheets)
}

func TestExportRoundTrip(t *testing.T) {
	entries := []model.LogEntry{
		{IP: "203.0.113.5", Domain: "acme.com", Timestamp: "2025-03-01T10:00:00Z", RequestType: "GET", PageURL: "/pricing", ReferralURL: "-", UserAgent: "Mozilla/5.0"},
		{IP: "198.51.100.7", Domain: "globex.com", Timestamp: "01/Mar/2025:11:30:00", RequestType: "POST", PageURL: "/contact", ReferralURL: "https://google.com", UserAgent: "curl/8.0"},
		{IP: "192.0.2.1", Domain: "initech.com", Timestamp: "3/1/2025, 12:00:00 PM", RequestType: "HEAD", PageURL: "/", ReferralURL: "-", UserAgent: "Unknown"},
		// Edited values keep their quotes and padding through a workbook.
		{IP: "192.0.2.9", Domain: "hooli.com", Timestamp: "2025-03-01T13:00:00Z", RequestType: "GET", PageURL: `"/quoted"`, ReferralURL: " - ", UserAgent: `  Mozilla "X"  `},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, entries))

	res, err := newTestImporter().Import(context.Background(), ExportFileName, &buf)
	require.NoError(t, err)
	assert.Equal(t, entries, res.Entries)
}

func TestImportLegacyWorkbook(t *testing.T) {
	res, err := newTestImporter().ImportFile(context.Background(), filepath.Join("testdata", "visitors.xls"))
	require.NoError(t, err)

	assert.Equal(t, FormatWorkbook, res.Format)
	assert.Equal(t, Stats{TotalSheets: 2, ProcessedSheets: 1, TotalRows: 3, ValidRows: 2}, res.Stats)
	assert.Equal(t, []model.LogEntry{
		{IP: "10.0.0.1", Domain: "acme.com", Timestamp: "2024-03-01T10:00:00.000Z", RequestType: "GET", PageURL: "/pricing", ReferralURL: "-", UserAgent: ` Mozilla "X"`},
		{IP: "10.0.0.2", Domain: "globex.com", Timestamp: "2024-03-01T11:00:00.000Z", RequestType: "POST", PageURL: "/contact", ReferralURL: "https://google.com", UserAgent: "curl/8.0"},
	}, res.Entries)
}

func TestReadWorkbookLegacySheets(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "visitors.xls"))
	require.NoError(t, err)

	wb, err := ReadWorkbook(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 2)
	assert.Equal(t, "Visitors", wb.Sheets[0].Name)
	assert.Len(t, wb.Sheets[0].Rows, 4)
	assert.Equal(t, "Notes", wb.Sheets[1].Name)
	assert.Equal(t, [][]any{{"Exported from the CRM"}}, wb.Sheets[1].Rows)
}

func TestImportMalformedLegacyWorkbook(t *testing.T) {
	raw := make([]byte, 0, 1024)
	raw = append(raw, oleSignature...)
	raw = append(raw, make([]byte, 1024-len(oleSignature))...)

	_, err := newTestImporter().Import(context.Background(), "broken.xls", bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrRead)
}

// cancelAfter reports cancellation once Err has been called more than n times.
type cancelAfter struct {
	context.Context
	n int
}

func (c *cancelAfter) Err() error {
	if c.n <= 0 {
		return context.Canceled
	}
	c.n--
	return nil
}

func TestWalkWorkbookCancelledBetweenRows(t *testing.T) {
	wb := &Workbook{Sheets: []Sheet{
		{Name: "Visits", Rows: [][]any{
			{"IP", "Domain"},
			{"1.1.1.1", "a.com"},
			{"2.2.2.2", "b.com"},
		}},
	}}

	ctx := &cancelAfter{Context: context.Background(), n: 1}
	_, err := newTestImporter().WalkWorkbook(ctx, wb)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Export(&buf, nil), ErrNothingToExport)
	assert.Zero(t, buf.Len())
}
