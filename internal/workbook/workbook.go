package workbook

import (
	"bytes"
	"context"
	"log/slog"

	apperrors "github.com/solutionspelichet/library-un/internal/errors"
	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

// zipMagic starts every xlsx file
var zipMagic = []byte("PK\x03\x04")

// Workbook is an opened spreadsheet
type Workbook interface {
	// SheetNames lists sheets in workbook order
	SheetNames() []string
	// Grid returns the raw cells of a sheet
	Grid(sheet string) (domain.Grid, error)
	// Date1904 reports whether date serials count from 1904-01-01
	Date1904() bool
	Close() error
}

// Source opens workbooks from raw bytes
type Source interface {
	Open(ctx context.Context, data []byte) (Workbook, error)
}

// Reader is the default Source: xlsx through excelize, CSV otherwise
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a Reader
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger.With(slog.String("component", "workbook"))}
}

// Open detects the container format and opens the workbook
func (r *Reader) Open(ctx context.Context, data []byte) (Workbook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, apperrors.NewParsingError("workbook is empty", nil)
	}

	if bytes.HasPrefix(data, zipMagic) {
		wb, err := openXLSX(data)
		if err != nil {
			return nil, err
		}
		r.logger.DebugContext(ctx, "opened xlsx workbook",
			slog.Int("bytes", len(data)),
			slog.Any("sheets", wb.SheetNames()),
			slog.Bool("date1904", wb.Date1904()))
		return wb, nil
	}

	wb, err := openCSV(data)
	if err != nil {
		return nil, err
	}
	r.logger.DebugContext(ctx, "opened csv workbook",
		slog.Int("bytes", len(data)),
		slog.String("delimiter", string(wb.delimiter)))
	return wb, nil
}

// FirstSheet returns the grid of the first sheet, or an empty grid when the
// workbook has no sheets.
func FirstSheet(wb Workbook) (domain.Grid, error) {
	names := wb.SheetNames()
	if len(names) == 0 {
		return domain.Grid{}, nil
	}
	return wb.Grid(names[0])
}
