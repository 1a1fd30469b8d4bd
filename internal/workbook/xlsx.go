package workbook

import (
	"bytes"
	"math"
	"strconv"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/solutionspelichet/library-un/internal/errors"
	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

type xlsxWorkbook struct {
	file     *excelize.File
	date1904 bool
}

func openXLSX(data []byte) (*xlsxWorkbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open xlsx workbook", err)
	}

	wb := &xlsxWorkbook{file: f}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		wb.date1904 = *props.Date1904
	}
	return wb, nil
}

func (w *xlsxWorkbook) SheetNames() []string {
	return w.file.GetSheetList()
}

func (w *xlsxWorkbook) Date1904() bool {
	return w.date1904
}

func (w *xlsxWorkbook) Close() error {
	return w.file.Close()
}

// Grid reads the sheet with raw values and types each cell from its
// stored type: numbers stay numeric, booleans become TRUE/FALSE text.
func (w *xlsxWorkbook) Grid(sheet string) (domain.Grid, error) {
	rows, err := w.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read sheet", err).
			WithContext("sheet", sheet)
	}

	grid := make(domain.Grid, len(rows))
	for r, values := range rows {
		row := make(domain.Row, len(values))
		for c, raw := range values {
			if raw == "" {
				row[c] = domain.EmptyCell()
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				row[c] = domain.TextCell(raw)
				continue
			}
			typ, err := w.file.GetCellType(sheet, axis)
			if err != nil {
				typ = excelize.CellTypeUnset
			}
			row[c] = typedCell(typ, raw)
		}
		grid[r] = row
	}
	return grid, nil
}

func typedCell(typ excelize.CellType, raw string) domain.Cell {
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return domain.NumberCell(f)
		}
	case excelize.CellTypeBool:
		if raw == "1" || raw == "TRUE" || raw == "true" {
			return domain.TextCell("TRUE")
		}
		return domain.TextCell("FALSE")
	}
	return domain.TextCell(raw)
}
