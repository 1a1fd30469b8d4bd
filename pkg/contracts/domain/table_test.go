package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellJSON(t *testing.T) {
	row := Row{TextCell("ALICE"), NumberCell(1.5), EmptyCell(), NumberCell(math.NaN())}
	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `["ALICE", 1.5, null, 0]`, string(data))

	var back Row
	require.NoError(t, json.Unmarshal([]byte(`["x", 2, null, true]`), &back))
	assert.Equal(t, Row{TextCell("x"), NumberCell(2), EmptyCell(), TextCell("TRUE")}, back)

	assert.Error(t, json.Unmarshal([]byte(`[{}]`), &back))
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "3.25", NumberCell(3.25).String())
	assert.Equal(t, "", EmptyCell().String())
	assert.Equal(t, "Infinity", NumberCell(math.Inf(1)).String())
	assert.True(t, TextCell("").IsEmpty())
	assert.Equal(t, "number", CellNumber.String())
}

func TestTableHelpers(t *testing.T) {
	tbl := Table{
		Headers: []string{ContactHeader, DayColumn("2025-01-01")},
		Rows:    []Row{{TextCell("ALICE"), NumberCell(10)}},
	}
	assert.Equal(t, 1, tbl.DayCount())
	assert.Equal(t, 0, Table{}.DayCount())
	assert.Equal(t, 0, EmptyTable().DayCount())

	clone := tbl.Clone()
	clone.Rows[0][1] = NumberCell(99)
	clone.Headers[0] = "x"
	assert.Equal(t, 10.0, tbl.Rows[0][1].Number)
	assert.Equal(t, ContactHeader, tbl.Headers[0])

	assert.Equal(t, [][]any{
		{"Contact", "nombre colonne carton 2025-01-01"},
		{"ALICE", 10.0},
	}, tbl.Values())
}
