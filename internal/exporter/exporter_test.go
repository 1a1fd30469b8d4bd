package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/solutionspelichet/library-un/internal/operations"
	"github.com/solutionspelichet/library-un/internal/shared/testutil"
	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

func table() domain.Table {
	return domain.Table{
		Headers: []string{domain.ContactHeader, domain.DayColumn("2025-01-01")},
		Rows: []domain.Row{
			{domain.TextCell("ALICE"), domain.NumberCell(10)},
			{domain.TextCell("BOB, JR"), domain.NumberCell(3.5)},
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, utf8BOM), "missing BOM")
	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteCSV(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	e := New(t.TempDir(), logger)

	path, err := e.WriteCSV("out.csv", table())
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"Contact", "nombre colonne carton 2025-01-01"},
		{"ALICE", "10"},
		{"BOB, JR", "3.5"},
	}, readCSV(t, path))
}

func TestWriteCSVEmptyTable(t *testing.T) {
	e := New(t.TempDir(), nil)

	path, err := e.WriteCSV("empty.csv", domain.EmptyTable())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Contact"}}, readCSV(t, path))
}

func TestWriteWorkbook(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	e := New(t.TempDir(), logger)

	path, err := e.WriteWorkbook("book.xlsx",
		Sheet{Name: "resultats", Table: table()},
		Sheet{Name: "ML", Table: domain.EmptyTable()})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"resultats", "ML"}, f.GetSheetList())
	rows, err := f.GetRows("resultats")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ALICE", "10"}, rows[1])

	_, err = e.WriteWorkbook("none.xlsx")
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	logger, handler := testutil.NewTestLogger(t)
	e := New(dir, logger)

	report := &operations.RunReport{Results: table(), Scaled: table()}
	paths, err := e.Export(report, "resultats", "ML")
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, ResultsCSV),
		filepath.Join(dir, ScaledCSV),
		filepath.Join(dir, Workbook),
	}, paths)
	for _, p := range paths {
		assert.FileExists(t, p)
	}
	testutil.AssertNoErrors(t, handler)
}
