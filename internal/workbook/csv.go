package workbook

import (
	"bytes"
	"encoding/csv"
	"io"

	apperrors "github.com/solutionspelichet/library-un/internal/errors"
	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

// CSVSheetName is the only sheet of a CSV workbook
const CSVSheetName = "Sheet1"

var utf8BOM = []byte("\xEF\xBB\xBF")

type csvWorkbook struct {
	grid      domain.Grid
	delimiter rune
}

func openCSV(data []byte) (*csvWorkbook, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	delim := sniffDelimiter(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var grid domain.Grid
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError("failed to read csv workbook", err)
		}
		row := make(domain.Row, len(record))
		for i, v := range record {
			if v == "" {
				row[i] = domain.EmptyCell()
			} else {
				row[i] = domain.TextCell(v)
			}
		}
		grid = append(grid, row)
	}
	return &csvWorkbook{grid: grid, delimiter: delim}, nil
}

// sniffDelimiter picks ';', tab or ',' from the first line, whichever is most frequent
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte{byte(d)}); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func (w *csvWorkbook) SheetNames() []string { return []string{CSVSheetName} }

func (w *csvWorkbook) Date1904() bool { return false }

func (w *csvWorkbook) Close() error { return nil }

func (w *csvWorkbook) Grid(sheet string) (domain.Grid, error) {
	if sheet != CSVSheetName {
		return nil, apperrors.NewNotFoundError("sheet " + sheet)
	}
	out := make(domain.Grid, len(w.grid))
	for i, r := range w.grid {
		out[i] = append(domain.Row(nil), r...)
	}
	return out, nil
}
