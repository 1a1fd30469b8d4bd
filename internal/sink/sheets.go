package sink

import (
	"bytes"
	"context"
	"encoding/base64"
	"log/slog"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	apperrors "github.com/solutionspelichet/library-un/internal/errors"
	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

// SheetsOptions configures the Sheets sink
type SheetsOptions struct {
	// SheetID is used when the payload carries no sheet id
	SheetID      string
	ResultsSheet string
	ScaledSheet  string
	// ArchiveFolderID enables Drive archival of the source workbook
	ArchiveFolderID string
}

// Sheets writes both tables straight into a spreadsheet through the Sheets
// API: both target tabs are replaced in a single batch update. When archival is
// requested and a folder is configured, the source workbook is uploaded to
// Drive.
type Sheets struct {
	sheets *sheets.Service
	drive  *drive.Service
	opts   SheetsOptions
	logger *slog.Logger
}

// NewSheets creates the sink. clientOpts are passed to both API clients,
// typically option.WithCredentialsFile.
func NewSheets(ctx context.Context, opts SheetsOptions, logger *slog.Logger, clientOpts ...option.ClientOption) (*Sheets, error) {
	sheetsService, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to create sheets service", err)
	}

	var driveService *drive.Service
	if opts.ArchiveFolderID != "" {
		driveService, err = drive.NewService(ctx, clientOpts...)
		if err != nil {
			return nil, apperrors.NewConfigError("failed to create drive service", err)
		}
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Sheets{
		sheets: sheetsService,
		drive:  driveService,
		opts:   opts,
		logger: logger.With(slog.String("component", "sink"), slog.String("sink", "sheets")),
	}, nil
}

func (s *Sheets) Name() string { return "sheets" }

func (s *Sheets) sheetID(p domain.Payload) string {
	if p.SheetID != "" {
		return p.SheetID
	}
	return s.opts.SheetID
}

func (s *Sheets) Send(ctx context.Context, p domain.Payload) error {
	id := s.sheetID(p)
	if id == "" {
		return apperrors.NewConfigError("no target sheet id", nil)
	}

	if err := s.writeTabs(ctx, id, []tabContent{
		{s.opts.ResultsSheet, p.Results},
		{s.opts.ScaledSheet, p.Scaled},
	}); err != nil {
		return err
	}

	if p.SaveSource && p.SourceFile != nil {
		if err := s.archive(ctx, p.SourceFile); err != nil {
			return err
		}
	}
	return nil
}

type tabContent struct {
	name  string
	table domain.Table
}

// writeTabs replaces the content of every tab in one batch update, so the
// spreadsheet either gets all the new tables or keeps its previous content.
// Missing tabs are created in the same batch.
func (s *Sheets) writeTabs(ctx context.Context, id string, tabs []tabContent) error {
	start := time.Now()

	ss, err := s.sheets.Spreadsheets.Get(id).Fields("sheets.properties(sheetId,title)").Context(ctx).Do()
	if err != nil {
		return apperrors.NewTransportError("failed to read spreadsheet", err)
	}
	ids := make(map[string]int64, len(ss.Sheets))
	var next int64
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		ids[sh.Properties.Title] = sh.Properties.SheetId
		if sh.Properties.SheetId >= next {
			next = sh.Properties.SheetId + 1
		}
	}

	var requests []*sheets.Request
	rows := 0
	for _, tab := range tabs {
		sheetID, ok := ids[tab.name]
		if !ok {
			sheetID = next
			next++
			ids[tab.name] = sheetID
			requests = append(requests, &sheets.Request{AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{SheetId: sheetID, Title: tab.name, ForceSendFields: []string{"SheetId"}},
			}})
		}
		data := rowData(tab.table)
		rows += len(data)
		// a range without bounds is the whole tab; cells outside data are blanked
		requests = append(requests, &sheets.Request{UpdateCells: &sheets.UpdateCellsRequest{
			Range:  &sheets.GridRange{SheetId: sheetID, ForceSendFields: []string{"SheetId"}},
			Rows:   data,
			Fields: "userEnteredValue",
		}})
	}

	if _, err := s.sheets.Spreadsheets.BatchUpdate(id, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).
		Context(ctx).Do(); err != nil {
		return apperrors.NewTransportError("failed to write result tabs", err).WithContext("sheet", id)
	}

	s.logger.InfoContext(ctx, "sheet tabs written",
		slog.Int("tabs", len(tabs)),
		slog.Int("rows", rows),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func rowData(t domain.Table) []*sheets.RowData {
	out := make([]*sheets.RowData, 0, len(t.Rows)+1)
	header := &sheets.RowData{Values: make([]*sheets.CellData, len(t.Headers))}
	for i, h := range t.Headers {
		header.Values[i] = &sheets.CellData{UserEnteredValue: &sheets.ExtendedValue{StringValue: &h}}
	}
	out = append(out, header)

	for _, r := range t.Rows {
		row := &sheets.RowData{Values: make([]*sheets.CellData, len(r))}
		for i, c := range r {
			row.Values[i] = cellData(c)
		}
		out = append(out, row)
	}
	return out
}

func cellData(c domain.Cell) *sheets.CellData {
	switch v := c.Value().(type) {
	case float64:
		return &sheets.CellData{UserEnteredValue: &sheets.ExtendedValue{NumberValue: &v}}
	case string:
		if v == "" {
			return &sheets.CellData{}
		}
		return &sheets.CellData{UserEnteredValue: &sheets.ExtendedValue{StringValue: &v}}
	default:
		return &sheets.CellData{}
	}
}

func (s *Sheets) archive(ctx context.Context, f *domain.SourceFile) error {
	if s.drive == nil {
		s.logger.WarnContext(ctx, "archive requested but no Drive folder configured", slog.String("file", f.Name))
		return nil
	}

	data, err := base64.StdEncoding.DecodeString(f.Base64)
	if err != nil {
		return apperrors.NewValidationError("archived file is not valid base64")
	}
	mime := f.MIME
	if mime == "" {
		mime = domain.DefaultSourceMIME
	}

	file := &drive.File{
		Name:     f.Name,
		MimeType: mime,
		Parents:  []string{s.opts.ArchiveFolderID},
	}
	created, err := s.drive.Files.Create(file).
		Media(bytes.NewReader(data), googleapi.ContentType(mime)).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).Do()
	if err != nil {
		return apperrors.NewTransportError("failed to archive source file", err).WithContext("file", f.Name)
	}

	s.logger.InfoContext(ctx, "source file archived",
		slog.String("file", f.Name),
		slog.String("drive_id", created.Id),
		slog.Int("bytes", len(data)))
	return nil
}

// Ping fetches the spreadsheet title
func (s *Sheets) Ping(ctx context.Context) error {
	if s.opts.SheetID == "" {
		return apperrors.NewConfigError("no target sheet id", nil)
	}
	ss, err := s.sheets.Spreadsheets.Get(s.opts.SheetID).Fields("properties.title").Context(ctx).Do()
	if err != nil {
		return apperrors.NewTransportError("spreadsheet unreachable", err)
	}
	title := ""
	if ss.Properties != nil {
		title = ss.Properties.Title
	}
	s.logger.DebugContext(ctx, "ping", slog.String("title", title))
	return nil
}
