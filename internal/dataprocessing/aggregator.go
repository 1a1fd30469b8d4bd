package dataprocessing

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

const summaryDays = 5

// Options configures one aggregation
type Options struct {
	// Label identifies the source in log records ("tracking", "extraction")
	Label    string
	Columns  domain.ColumnMapping
	Date1904 bool
}

// Result is the output of Aggregate
type Result struct {
	Table   domain.Table
	Summary domain.AggregationSummary
}

// Aggregator turns a raw grid into a per-contact, per-day Table
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator creates an aggregator. A nil logger discards output.
func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Aggregator{logger: logger}
}

type cellKey struct {
	contact string
	day     string
}

// Aggregate cleans the grid, deduplicates rows on the key column, and sums
// the value column per normalized contact and day.
//
// Rows whose date cannot be parsed are kept for deduplication and counting
// but contribute neither a day nor a contact. An out-of-range column letter
// aborts with a CONFIG error, even when the grid has only a header row. A
// grid without data rows otherwise yields an empty table.
func (a *Aggregator) Aggregate(ctx context.Context, grid domain.Grid, opts Options) (Result, error) {
	cleaned := CleanGrid(grid)
	if len(cleaned) == 0 {
		a.logger.DebugContext(ctx, "no data rows", slog.String("source", opts.Label))
		return Result{Table: domain.EmptyTable(), Summary: emptySummary()}, nil
	}

	// a header-only sheet still has to match the configured letters
	cols, err := ResolveColumns(HeaderRow(cleaned), opts.Columns)
	if err != nil {
		return Result{}, err
	}

	records := ToRecords(cleaned)
	if len(records) == 0 {
		a.logger.DebugContext(ctx, "no data rows", slog.String("source", opts.Label))
		return Result{Table: domain.EmptyTable(), Summary: emptySummary()}, nil
	}

	a.logDateSamples(ctx, opts.Label, cols.Date, records)

	kept := Deduplicate(records, cols.Key)

	sums := make(map[cellKey]float64)
	contacts := make(map[string]struct{})
	days := make(map[string]struct{})
	for _, rec := range kept {
		day, ok := ParseDate(rec.Get(cols.Date), opts.Date1904)
		if !ok {
			continue
		}
		contact := NormContact(rec.Get(cols.User).String())
		contacts[contact] = struct{}{}
		days[day] = struct{}{}
		sums[cellKey{contact, day}] += ParseNumber(rec.Get(cols.Value))
	}

	dayList := sortedKeys(days)
	contactList := sortedKeys(contacts)

	table := domain.Table{
		Headers: make([]string, 0, len(dayList)+1),
		Rows:    make([]domain.Row, 0, len(contactList)),
	}
	table.Headers = append(table.Headers, domain.ContactHeader)
	for _, d := range dayList {
		table.Headers = append(table.Headers, domain.DayColumn(d))
	}

	var total float64
	for _, c := range contactList {
		row := make(domain.Row, 0, len(dayList)+1)
		row = append(row, domain.TextCell(c))
		for _, d := range dayList {
			v := sums[cellKey{c, d}]
			total += v
			row = append(row, domain.NumberCell(v))
		}
		table.Rows = append(table.Rows, row)
	}

	summary := domain.AggregationSummary{
		RowsRead:        len(records),
		RowsAfterDedupe: len(kept),
		DaysCount:       len(dayList),
		FirstDays:       head(dayList, summaryDays),
		LastDays:        tail(dayList, summaryDays),
		TotalSum:        total,
	}

	a.logger.InfoContext(ctx, "aggregation summary",
		slog.String("source", opts.Label),
		slog.Int("rows_read", summary.RowsRead),
		slog.Int("rows_after_dedupe", summary.RowsAfterDedupe),
		slog.Int("days_count", summary.DaysCount),
		slog.Any("first_days", summary.FirstDays),
		slog.Any("last_days", summary.LastDays),
		slog.Float64("total_sum", summary.TotalSum),
	)

	return Result{Table: table, Summary: summary}, nil
}

func (a *Aggregator) logDateSamples(ctx context.Context, label, column string, records []Record) {
	if !a.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	n := len(records)
	if n > 10 {
		n = 10
	}
	samples := make([]string, 0, n)
	for _, rec := range records[:n] {
		c := rec.Get(column)
		samples = append(samples, c.Kind.String()+":"+c.String())
	}
	a.logger.DebugContext(ctx, "date column samples",
		slog.String("source", label),
		slog.String("column", column),
		slog.String("samples", strings.Join(samples, " | ")),
	)
}

// Deduplicate keeps the first record of every non-empty trimmed key. Records
// with an empty key are always kept. Input order is preserved.
func Deduplicate(records []Record, keyColumn string) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		k := strings.TrimSpace(rec.Get(keyColumn).String())
		if k == "" {
			out = append(out, rec)
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// LastDay returns the most recent day column of t and the sum of its values
func LastDay(t domain.Table) (day string, total float64, ok bool) {
	if t.DayCount() == 0 {
		return "", 0, false
	}
	idx := len(t.Headers) - 1
	for _, row := range t.Rows {
		if idx < len(row) {
			total += ParseNumber(row[idx])
		}
	}
	return strings.TrimPrefix(t.Headers[idx], domain.DayColumnPrefix), total, true
}

func emptySummary() domain.AggregationSummary {
	return domain.AggregationSummary{FirstDays: []string{}, LastDays: []string{}}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func head(s []string, n int) []string {
	if len(s) < n {
		n = len(s)
	}
	return append([]string{}, s[:n]...)
}

func tail(s []string, n int) []string {
	if len(s) < n {
		n = len(s)
	}
	return append([]string{}, s[len(s)-n:]...)
}
