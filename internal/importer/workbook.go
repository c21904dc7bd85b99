package importer

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/extrame/xls"
	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// oleSignature opens every OLE2 compound file, the container of BIFF .xls workbooks.
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// maxLegacyColumns is the BIFF8 worksheet width.
const maxLegacyColumns = 256

// Sheet is one named worksheet; each row is an ordered list of cell values.
type Sheet struct {
	Name string
	Rows [][]any
}

// Workbook is an ordered collection of worksheets.
type Workbook struct {
	Sheets []Sheet
}

// ReadWorkbook decodes an xlsx or a legacy BIFF .xls workbook. The two are
// told apart by content, not by file name.
func ReadWorkbook(r io.Reader) (*Workbook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	if bytes.HasPrefix(data, oleSignature) {
		return readLegacyWorkbook(data)
	}
	return readOpenXMLWorkbook(bytes.NewReader(data))
}

func readOpenXMLWorkbook(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	defer f.Close()

	wb := &Workbook{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %v", ErrRead, name, err)
		}
		sheet := Sheet{Name: name, Rows: make([][]any, len(rows))}
		for i, row := range rows {
			cells := make([]any, len(row))
			for j, c := range row {
				cells[j] = c
			}
			sheet.Rows[i] = cells
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb, nil
}

func readLegacyWorkbook(data []byte) (wb *Workbook, err error) {
	// The BIFF decoder panics on malformed records.
	defer func() {
		if p := recover(); p != nil {
			wb, err = nil, fmt.Errorf("%w: malformed xls: %v", ErrRead, p)
		}
	}()

	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	if book == nil {
		return nil, fmt.Errorf("%w: no workbook stream in xls file", ErrRead)
	}

	wb = &Workbook{}
	for i := 0; i < book.NumSheets(); i++ {
		ws := book.GetSheet(i)
		if ws == nil {
			continue
		}
		sheet := Sheet{Name: ws.Name}
		for r := 0; r <= int(ws.MaxRow); r++ {
			sheet.Rows = append(sheet.Rows, legacyRow(ws, r))
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb, nil
}

// legacyRow returns the cells of row i up to its last non-empty one, or nil
// for a row with no records.
func legacyRow(ws *xls.WorkSheet, i int) (cells []any) {
	defer func() {
		// WorkSheet.Row panics for rows absent from the sheet.
		if recover() != nil {
			cells = nil
		}
	}()

	row := ws.Row(i)
	values := make([]string, maxLegacyColumns)
	last := -1
	for c := range values {
		values[c] = row.Col(c)
		if values[c] != "" {
			last = c
		}
	}
	cells = make([]any, last+1)
	for c := range cells {
		cells[c] = values[c]
	}
	return cells
}

// WalkWorkbook imports every worksheet that has a header row, at least one
// data row and both mandatory columns. Other sheets are skipped. It fails only
// when no sheet yields an entry.
func (im *Importer) WalkWorkbook(ctx context.Context, wb *Workbook) (*Result, error) {
	now := im.now()
	res := &Result{
		Format: FormatWorkbook,
		Stats:  Stats{TotalSheets: len(wb.Sheets)},
	}

	for _, sheet := range wb.Sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log := im.log.With(zap.String("sheet", sheet.Name))

		if len(sheet.Rows) < 2 {
			log.Warn("sheet has insufficient data, skipping", zap.Int("rows", len(sheet.Rows)))
			continue
		}

		headers := stringify(sheet.Rows[0])
		cols := MapHeaders(headers)
		log.Debug("sheet headers mapped", zap.Strings("headers", headers), zap.Ints("columns", cols[:]))
		if !cols.HasRequired() {
			log.Warn("sheet is missing required columns (IP and domain), skipping")
			continue
		}
		res.Stats.ProcessedSheets++

		var kept int
		for _, row := range sheet.Rows[1:] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if len(row) == 0 {
				continue
			}
			res.Stats.TotalRows++
			entry, ok := BuildRecord(stringify(row), cols, now)
			if !ok {
				continue
			}
			res.Entries = append(res.Entries, entry)
			kept++
		}
		log.Debug("sheet parsed", zap.Int("entries", kept))
	}
	res.Stats.ValidRows = len(res.Entries)

	if len(res.Entries) == 0 {
		return nil, fmt.Errorf("workbook: %w", ErrNoValidEntries)
	}
	return res, nil
}

func stringify(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = cast.ToString(v)
	}
	return out
}
