package dataprocessing

import (
	"regexp"
	"strings"

	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

// totalWord matches a total-like token as a whole word
var totalWord = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:grand total|subtotal|totals?|totaux|somme|sum)(?:[^\p{L}]|$)`)

// CleanGrid returns the grid without a duplicated header row and without a
// trailing total row. The input grid is not modified.
//
// Row 2 is dropped when it equals row 1 cell by cell after trimming. The last
// row is dropped when at least two rows remain and one of its cells contains a
// total-like word (total, totals, totaux, somme, sum, grand total, subtotal).
// A genuine data row in last position mentioning "total" is dropped as well.
func CleanGrid(grid domain.Grid) domain.Grid {
	if len(grid) == 0 {
		return grid
	}
	out := make(domain.Grid, len(grid))
	copy(out, grid)

	if len(out) >= 2 && sameTrimmed(out[0], out[1]) {
		out = append(out[:1], out[2:]...)
	}

	if len(out) >= 2 && isTotalRow(out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}

func sameTrimmed(a, b domain.Row) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.TrimSpace(a[i].String()) != strings.TrimSpace(b[i].String()) {
			return false
		}
	}
	return true
}

func isTotalRow(row domain.Row) bool {
	for _, c := range row {
		if totalWord.MatchString(strings.TrimSpace(c.String())) {
			return true
		}
	}
	return false
}

// Record maps a header name to the cell of one data row. When two columns
// share a name the rightmost one wins.
type Record map[string]domain.Cell

// Get returns the cell stored under name, or an empty cell
func (r Record) Get(name string) domain.Cell {
	return r[name]
}

// HeaderRow returns the trimmed column names of the first grid row
func HeaderRow(grid domain.Grid) []string {
	if len(grid) == 0 {
		return nil
	}
	header := make([]string, len(grid[0]))
	for i, c := range grid[0] {
		header[i] = strings.TrimSpace(c.String())
	}
	return header
}

// ToRecords turns every row after the header into a Record
func ToRecords(grid domain.Grid) []Record {
	if len(grid) < 2 {
		return nil
	}
	header := HeaderRow(grid)
	records := make([]Record, 0, len(grid)-1)
	for _, row := range grid[1:] {
		rec := make(Record, len(header))
		for i, name := range header {
			if i < len(row) {
				rec[name] = row[i]
			} else {
				rec[name] = domain.EmptyCell()
			}
		}
		records = append(records, rec)
	}
	return records
}
