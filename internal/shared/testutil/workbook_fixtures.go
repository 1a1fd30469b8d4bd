package testutil

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

// XLSX builds an in-memory workbook whose first sheet holds rows. Values
// are written with SetCellValue, so ints and floats become numeric cells
// and strings become text cells. A nil value leaves the cell blank.
func XLSX(t *testing.T, date1904 bool, rows ...[]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, axis, v); err != nil {
				t.Fatalf("set %s: %v", axis, err)
			}
		}
	}

	if date1904 {
		if err := f.SetWorkbookProps(&excelize.WorkbookPropsOptions{Date1904: &date1904}); err != nil {
			t.Fatalf("workbook props: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// TrackingRows is a small tracking export: ID, Contact, Qty, Date
func TrackingRows() [][]any {
	return [][]any{
		{"ID", "Contact", "Qty", "Date"},
		{"1", "Alice", "10", "2025-01-01"},
		{"2", "Alice", "5", "2025-01-02"},
	}
}

// ExtractionRows is a small extraction export with the same layout
func ExtractionRows() [][]any {
	return [][]any{
		{"ID", "Contact", "Qty", "Date"},
		{"1", "Bob", "3", "2025-01-01"},
	}
}
