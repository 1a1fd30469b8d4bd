package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// CellKind tags the value held by a Cell
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

func (k CellKind) String() string {
	switch k {
	case CellText:
		return "text"
	case CellNumber:
		return "number"
	default:
		return "empty"
	}
}

// Cell is a single spreadsheet or table value. A cell is either empty,
// textual or numeric; conversions between them are always explicit.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// EmptyCell returns a cell holding no value
func EmptyCell() Cell { return Cell{} }

// TextCell returns a textual cell
func TextCell(s string) Cell { return Cell{Kind: CellText, Text: s} }

// NumberCell returns a numeric cell
func NumberCell(f float64) Cell { return Cell{Kind: CellNumber, Number: f} }

// IsEmpty reports whether the cell holds no value or an empty string
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty || (c.Kind == CellText && c.Text == "")
}

// String renders the cell the way a spreadsheet export shows it: empty cells
// become "", numbers use the shortest exact decimal form.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return formatNumber(c.Number)
	default:
		return ""
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// MarshalJSON writes text cells as strings, numeric cells as numbers and
// empty cells as null. Non-finite numbers are not representable in JSON and
// are written as 0.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CellText:
		return json.Marshal(c.Text)
	case CellNumber:
		if math.IsNaN(c.Number) || math.IsInf(c.Number, 0) {
			return []byte("0"), nil
		}
		return []byte(strconv.FormatFloat(c.Number, 'f', -1, 64)), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts strings, numbers, booleans and null
func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = EmptyCell()
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = TextCell(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*c = TextCell(map[bool]string{true: "TRUE", false: "FALSE"}[b])
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid cell value %s: %w", data, err)
		}
		*c = NumberCell(f)
	}
	return nil
}

// Row is an ordered sequence of cells
type Row []Cell

// Grid is the raw content of one worksheet, rows in sheet order
type Grid []Row

// Value returns the cell as a plain Go value: string, float64, or "" when empty
func (c Cell) Value() any {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		if math.IsNaN(c.Number) || math.IsInf(c.Number, 0) {
			return float64(0)
		}
		return c.Number
	default:
		return ""
	}
}
