package dataprocessing

import (
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/solutionspelichet/library-un/internal/errors"
	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

// ColumnIndex converts a spreadsheet column letter to a zero-based index
// (A=0, Z=25, AA=26). Surrounding spaces and lowercase are accepted.
func ColumnIndex(letter string) (int, error) {
	n, err := excelize.ColumnNameToNumber(strings.TrimSpace(letter))
	if err != nil {
		return -1, apperrors.NewConfigError("invalid column letter: "+letter, err).
			WithContext("letter", letter)
	}
	return n - 1, nil
}

// Columns holds the header names a ColumnMapping resolves to
type Columns struct {
	Key   string
	User  string
	Value string
	Date  string
}

// ResolveColumns maps each configured letter to its header name. A letter
// beyond the header row is a CONFIG error.
func ResolveColumns(header []string, m domain.ColumnMapping) (Columns, error) {
	var cols Columns
	targets := []struct {
		role   string
		letter string
		dst    *string
	}{
		{"key", m.Key, &cols.Key},
		{"user", m.User, &cols.User},
		{"value", m.Value, &cols.Value},
		{"date", m.Date, &cols.Date},
	}
	for _, t := range targets {
		idx, err := ColumnIndex(t.letter)
		if err != nil {
			return Columns{}, err
		}
		if idx < 0 || idx >= len(header) {
			return Columns{}, apperrors.NewConfigError(
				"column letter out of range: "+strings.TrimSpace(t.letter), nil).
				WithContext("role", t.role).
				WithContext("letter", t.letter).
				WithContext("headers", len(header))
		}
		*t.dst = header[idx]
	}
	return cols, nil
}
