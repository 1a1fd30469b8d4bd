package domain

// ContactHeader is the name of the first column of every Table
const ContactHeader = "Contact"

// DayColumnPrefix prefixes every day column name. Downstream consumers extract
// day columns by matching this exact prefix.
const DayColumnPrefix = "nombre colonne carton "

// DayColumn returns the column name for a YYYY-MM-DD day key
func DayColumn(day string) string {
	return DayColumnPrefix + day
}

// Table is the shape produced by aggregation, merge and scale stages: a
// header row starting with "Contact" and one row per contact.
type Table struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// EmptyTable returns a table with only the Contact column
func EmptyTable() Table {
	return Table{Headers: []string{ContactHeader}, Rows: []Row{}}
}

// DayCount returns the number of non-Contact columns
func (t Table) DayCount() int {
	if len(t.Headers) == 0 {
		return 0
	}
	return len(t.Headers) - 1
}

// Clone returns a deep copy of the table
func (t Table) Clone() Table {
	out := Table{
		Headers: append([]string(nil), t.Headers...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append(Row(nil), r...)
	}
	return out
}

// ColumnMapping holds the four column letters configured for one workbook
type ColumnMapping struct {
	Key   string `json:"key" yaml:"key" validate:"required,alpha,max=3"`
	User  string `json:"user" yaml:"user" validate:"required,alpha,max=3"`
	Value string `json:"value" yaml:"value" validate:"required,alpha,max=3"`
	Date  string `json:"date" yaml:"date" validate:"required,alpha,max=3"`
}

// AggregationSummary is the diagnostic record emitted for every aggregated source
type AggregationSummary struct {
	RowsRead        int      `json:"rows_read"`
	RowsAfterDedupe int      `json:"rows_after_dedupe"`
	DaysCount       int      `json:"days_count"`
	FirstDays       []string `json:"first_days"`
	LastDays        []string `json:"last_days"`
	TotalSum        float64  `json:"total_sum"`
}

// Values returns the header row followed by every row as plain values
func (t Table) Values() [][]any {
	out := make([][]any, 0, len(t.Rows)+1)
	header := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	out = append(out, header)
	for _, r := range t.Rows {
		row := make([]any, len(r))
		for i, c := range r {
			row[i] = c.Value()
		}
		out = append(out, row)
	}
	return out
}
