package importer

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/atikulmunna/vislog/internal/metrics"
	"github.com/atikulmunna/vislog/internal/model"
)

// ExportFileName is the default name for exported workbooks.
const ExportFileName = "egain_visitor_logs.xlsx"

// ExportSheetName is the single worksheet written by Export.
const ExportSheetName = "Visitor Logs"

// ErrNothingToExport is returned when there are no entries to write.
var ErrNothingToExport = errors.New("no logs to export")

// ExportHeaders are written as the first row and map back onto every field
// when the workbook is imported again.
var ExportHeaders = []string{
	"IP", "Domain", "Date & Time (UTC)", "Request Type", "Page URL", "Referral URL", "User Agent",
}

// Export writes entries as a single-sheet xlsx workbook.
func Export(w io.Writer, entries []model.LogEntry) error {
	if len(entries) == 0 {
		return ErrNothingToExport
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ExportSheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(ExportHeaders))
	for i, h := range ExportHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(ExportSheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{e.IP, e.Domain, e.Timestamp, e.RequestType, e.PageURL, e.ReferralURL, e.UserAgent}
		if err := f.SetSheetRow(ExportSheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	metrics.ExportsTotal.Inc()
	return nil
}
