package ocr

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// columnGap separates cells in a spreadsheet-derived line. Two spaces read
// as a column boundary to the record extractor.
const columnGap = "  "

// Spreadsheet reads manifests exported as XLSX. Each row becomes one line of
// its non-empty cells.
type Spreadsheet struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ExtractLines implements Extractor.
func (s Spreadsheet) ExtractLines(ctx context.Context, path string) ([]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := s.sheet(f)
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "xlsx: context cancelled")
		}
		lines = append(lines, rowToLine(row))
	}
	return lines, nil
}

func (s Spreadsheet) sheet(f *xlsx.File) (*xlsx.Sheet, error) {
	if s.SheetName != "" {
		sheet, ok := f.Sheet[s.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", s.SheetName)
		}
		return sheet, nil
	}

	if s.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", s.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[s.SheetIndex], nil
}

func rowToLine(row *xlsx.Row) string {
	cells := make([]string, 0, len(row.Cells))
	for _, cell := range row.Cells {
		if v := strings.TrimSpace(cell.String()); v != "" {
			cells = append(cells, v)
		}
	}
	return strings.Join(cells, columnGap)
}
