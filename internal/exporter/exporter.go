package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/solutionspelichet/library-un/internal/operations"
	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

// File names written by Export
const (
	ResultsCSV = "resultats.csv"
	ScaledCSV  = "ml.csv"
	Workbook   = "reconcile.xlsx"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Sheet is one named table of an exported workbook
type Sheet struct {
	Name  string
	Table domain.Table
}

// Exporter writes tables under a directory
type Exporter struct {
	dir    string
	logger *slog.Logger
}

// New creates an exporter rooted at dir
func New(dir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{dir: dir, logger: logger}
}

// Export writes the results and scaled tables of report as CSV files and
// as one workbook. It returns the written paths.
func (e *Exporter) Export(report *operations.RunReport, resultsSheet, scaledSheet string) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	var written []string
	for _, f := range []struct {
		name  string
		table domain.Table
	}{
		{ResultsCSV, report.Results},
		{ScaledCSV, report.Scaled},
	} {
		path, err := e.WriteCSV(f.name, f.table)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}

	path, err := e.WriteWorkbook(Workbook,
		Sheet{Name: resultsSheet, Table: report.Results},
		Sheet{Name: scaledSheet, Table: report.Scaled})
	if err != nil {
		return written, err
	}
	return append(written, path), nil
}

// WriteCSV writes t to name inside the export directory
func (e *Exporter) WriteCSV(name string, t domain.Table) (string, error) {
	path := filepath.Join(e.dir, name)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(utf8BOM); err != nil {
		return "", fmt.Errorf("failed to write BOM: %w", err)
	}

	w := csv.NewWriter(file)
	if err := w.Write(t.Headers); err != nil {
		return "", fmt.Errorf("failed to write headers: %w", err)
	}
	for i, row := range t.Rows {
		record := make([]string, len(row))
		for j, c := range row {
			record[j] = c.String()
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	e.logger.Info("csv written",
		slog.String("file", path),
		slog.Int("rows", len(t.Rows)))
	return path, nil
}

// WriteWorkbook writes sheets, in order, to an xlsx file named name
func (e *Exporter) WriteWorkbook(name string, sheets ...Sheet) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("no sheets to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.Name); err != nil {
				return "", fmt.Errorf("sheet %s: %w", s.Name, err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return "", fmt.Errorf("sheet %s: %w", s.Name, err)
		}

		for r, values := range s.Table.Values() {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return "", err
			}
			if err := f.SetSheetRow(s.Name, cell, &values); err != nil {
				return "", fmt.Errorf("sheet %s row %d: %w", s.Name, r+1, err)
			}
		}
	}

	path := filepath.Join(e.dir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	e.logger.Info("workbook written",
		slog.String("file", path),
		slog.Int("sheets", len(sheets)))
	return path, nil
}
