package dataprocessing

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

// ParseNumber coerces a cell to a float64. Numeric cells pass through when
// finite. Text is stripped of spaces (including thin and no-break spaces) and
// apostrophes, then the decimal separator is inferred from whichever of ','
// and '.' comes last. Anything unparseable, empty or non-finite yields 0.
func ParseNumber(c domain.Cell) float64 {
	switch c.Kind {
	case domain.CellNumber:
		if math.IsNaN(c.Number) || math.IsInf(c.Number, 0) {
			return 0
		}
		return c.Number
	case domain.CellText:
		return parseNumberText(c.Text)
	default:
		return 0
	}
}

func parseNumberText(s string) float64 {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\'' || r == '\uFEFF' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma > lastDot:
		// 1.234,56
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastDot > lastComma:
		// 1,234.56
		s = strings.ReplaceAll(s, ",", "")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
