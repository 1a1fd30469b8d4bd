package dataprocessing

import "github.com/solutionspelichet/library-un/pkg/contracts/domain"

// Scale returns a copy of t with every non-Contact cell replaced by
// ParseNumber(cell) * k. Headers and row order are unchanged.
func Scale(t domain.Table, k float64) domain.Table {
	out := domain.Table{
		Headers: append([]string(nil), t.Headers...),
		Rows:    make([]domain.Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		row := make(domain.Row, len(r))
		for j, c := range r {
			if j == 0 {
				row[j] = c
				continue
			}
			row[j] = domain.NumberCell(ParseNumber(c) * k)
		}
		out.Rows[i] = row
	}
	return out
}
