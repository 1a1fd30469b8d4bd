package dataprocessing

import (
	"sort"

	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

// Merge outer-joins two tables on contact and column name, summing the
// values present in both. Headers keep first-appearance order (a, then b)
// with Contact forced to the front. Every cell is re-parsed as a number.
// Rows are matched on their Contact column wherever it sits in the input.
// Neither input is modified.
func Merge(a, b domain.Table) domain.Table {
	headers := unionHeaders(a.Headers, b.Headers)
	width := len(headers)

	rows := make(map[string]domain.Row)
	accumulate := func(t domain.Table) {
		src := make(map[string]int, len(t.Headers))
		ci := 0
		for i, h := range t.Headers {
			src[h] = i
			if h == domain.ContactHeader {
				ci = i
			}
		}
		for _, r := range t.Rows {
			if ci >= len(r) {
				continue
			}
			contact := NormContact(r[ci].String())
			out, ok := rows[contact]
			if !ok {
				out = make(domain.Row, width)
				out[0] = domain.TextCell(contact)
				for i := 1; i < width; i++ {
					out[i] = domain.NumberCell(0)
				}
				rows[contact] = out
			}
			for i := 1; i < width; i++ {
				si, ok := src[headers[i]]
				if !ok || si >= len(r) {
					continue
				}
				out[i] = domain.NumberCell(ParseNumber(out[i]) + ParseNumber(r[si]))
			}
		}
	}
	accumulate(a)
	accumulate(b)

	contacts := make([]string, 0, len(rows))
	for c := range rows {
		contacts = append(contacts, c)
	}
	sort.Strings(contacts)

	out := domain.Table{Headers: headers, Rows: make([]domain.Row, 0, len(contacts))}
	for _, c := range contacts {
		out.Rows = append(out.Rows, rows[c])
	}
	return out
}

func unionHeaders(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	headers := []string{domain.ContactHeader}
	seen[domain.ContactHeader] = struct{}{}
	for _, list := range [][]string{a, b} {
		for _, h := range list {
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			headers = append(headers, h)
		}
	}
	return headers
}
