package sink

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/solutionspelichet/library-un/internal/config"
	apperrors "github.com/solutionspelichet/library-un/internal/errors"
	"github.com/solutionspelichet/library-un/internal/security"
	"github.com/solutionspelichet/library-un/internal/shared/testutil"
	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

func samplePayload() domain.Payload {
	results := domain.Table{
		Headers: []string{"Contact", domain.DayColumn("2025-01-01")},
		Rows:    []domain.Row{{domain.TextCell("ALICE"), domain.NumberCell(10)}},
	}
	return domain.Payload{
		Secret:  "s3cret",
		SheetID: "sheet-1",
		Results: results,
		Scaled: domain.Table{
			Headers: results.Headers,
			Rows:    []domain.Row{{domain.TextCell("ALICE"), domain.NumberCell(3.5)}},
		},
		SaveSource: true,
		SourceFile: &domain.SourceFile{Name: "suivi.xlsx", MIME: domain.DefaultSourceMIME, Base64: "UEsDBA=="},
	}
}

func TestAppsScriptSend(t *testing.T) {
	var (
		gotBody        map[string]any
		gotContentType string
		signatureErr   error
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotContentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		signatureErr = security.NewRequestSigner("s3cret").Verify(r.Header, data, security.DefaultTimestampWindow)
		assert.NoError(t, json.Unmarshal(data, &gotBody))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	s := NewAppsScript(srv.URL, time.Second, nil, nil)
	require.NoError(t, s.Send(context.Background(), samplePayload()))

	assert.Equal(t, "text/plain;charset=utf-8", gotContentType)
	assert.NoError(t, signatureErr)
	assert.Equal(t, "s3cret", gotBody["secret"])
	assert.Equal(t, "sheet-1", gotBody["sheetId"])
	assert.Equal(t, true, gotBody["saveSuivi"])

	res := gotBody["resultats"].(map[string]any)
	assert.Equal(t, []any{"Contact", "nombre colonne carton 2025-01-01"}, res["headers"])
	assert.Equal(t, []any{[]any{"ALICE", 10.0}}, res["rows"])

	ml := gotBody["ml"].(map[string]any)
	assert.Equal(t, []any{[]any{"ALICE", 3.5}}, ml["rows"])

	file := gotBody["suiviFile"].(map[string]any)
	assert.Equal(t, "suivi.xlsx", file["name"])
	assert.Equal(t, "UEsDBA==", file["base64"])
}

func TestAppsScriptSendIgnoresStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "script error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	logger, handler := testutil.NewTestLogger(t)
	s := NewAppsScript(srv.URL, time.Second, nil, logger)
	require.NoError(t, s.Send(context.Background(), samplePayload()))

	warns := handler.ByLevel(slog.LevelWarn)
	require.Len(t, warns, 1)
	assert.Equal(t, int64(500), warns[0].Attr("status_code"))
	assert.Equal(t, "apps_script", warns[0].Attr("sink"))
}

func TestAppsScriptTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	s := NewAppsScript(url, time.Second, nil, nil)
	err := s.Send(context.Background(), samplePayload())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeTransport))

	err = s.Ping(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeTransport))
}

func TestAppsScriptPing(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, NewAppsScript(srv.URL, time.Second, nil, nil).Ping(context.Background()))
	assert.Equal(t, http.MethodGet, method)
}

// fakeSpreadsheet serves the Sheets and Drive endpoints the sink uses and
// keeps tab contents so tests can check what a batch update left behind
type fakeSpreadsheet struct {
	mu        sync.Mutex
	requests  []string
	titles    map[int64]string
	tabs      map[string][][]any
	failBatch bool
}

func newSheetsServer(t *testing.T) (*httptest.Server, *fakeSpreadsheet) {
	fake := &fakeSpreadsheet{
		titles: map[int64]string{0: "resultats"},
		tabs:   map[string][][]any{"resultats": {{"Contact", "old day"}, {"PREVIOUS", 1.0}, {"STALE", 2.0}}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		fake.requests = append(fake.requests, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.Contains(r.URL.Path, "/upload/drive/"):
			_, _ = w.Write([]byte(`{"id":"drive-file-1"}`))
		case strings.HasSuffix(r.URL.Path, ":batchUpdate"):
			if fake.failBatch {
				http.Error(w, `{"error":{"code":400,"message":"Invalid requests"}}`, http.StatusBadRequest)
				return
			}
			var req sheets.BatchUpdateSpreadsheetRequest
			data, _ := io.ReadAll(r.Body)
			assert.NoError(t, json.Unmarshal(data, &req))
			fake.apply(&req)
			_, _ = w.Write([]byte(`{}`))
		case r.Method == http.MethodGet:
			resp := map[string]any{"properties": map[string]any{"title": "Suivi"}}
			var list []any
			for id, title := range fake.titles {
				list = append(list, map[string]any{"properties": map[string]any{"sheetId": id, "title": title}})
			}
			resp["sheets"] = list
			_ = json.NewEncoder(w).Encode(resp)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return srv, fake
}

// apply replaces whole tabs the way UpdateCells over an unbounded range does
func (f *fakeSpreadsheet) apply(req *sheets.BatchUpdateSpreadsheetRequest) {
	for _, r := range req.Requests {
		if r.AddSheet != nil {
			f.titles[r.AddSheet.Properties.SheetId] = r.AddSheet.Properties.Title
		}
		if r.UpdateCells != nil {
			var values [][]any
			for _, row := range r.UpdateCells.Rows {
				var out []any
				for _, c := range row.Values {
					switch {
					case c.UserEnteredValue == nil:
						out = append(out, nil)
					case c.UserEnteredValue.StringValue != nil:
						out = append(out, *c.UserEnteredValue.StringValue)
					case c.UserEnteredValue.NumberValue != nil:
						out = append(out, *c.UserEnteredValue.NumberValue)
					}
				}
				values = append(values, out)
			}
			f.tabs[f.titles[r.UpdateCells.Range.SheetId]] = values
		}
	}
}

func newTestSheets(t *testing.T, srv *httptest.Server, opts SheetsOptions) *Sheets {
	t.Helper()
	s, err := NewSheets(context.Background(), opts, nil,
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return s
}

func TestSheetsSend(t *testing.T) {
	srv, fake := newSheetsServer(t)
	defer srv.Close()

	s := newTestSheets(t, srv, SheetsOptions{
		ResultsSheet:    "resultats",
		ScaledSheet:     "ML",
		ArchiveFolderID: "folder-1",
	})
	require.NoError(t, s.Send(context.Background(), samplePayload()))

	fake.mu.Lock()
	defer fake.mu.Unlock()

	header := []any{"Contact", "nombre colonne carton 2025-01-01"}
	assert.Equal(t, [][]any{header, {"ALICE", 10.0}}, fake.tabs["resultats"])
	assert.Equal(t, [][]any{header, {"ALICE", 3.5}}, fake.tabs["ML"])
	assert.Equal(t, "ML", fake.titles[1])

	var batches, uploads int
	for _, r := range fake.requests {
		assert.NotContains(t, r, ":clear")
		if strings.HasSuffix(r, ":batchUpdate") {
			batches++
			assert.Contains(t, r, "/v4/spreadsheets/sheet-1:batchUpdate")
		}
		if strings.Contains(r, "/upload/drive/") {
			uploads++
		}
	}
	assert.Equal(t, 1, batches)
	assert.Equal(t, 1, uploads)
}

func TestSheetsSendFailureKeepsPreviousContent(t *testing.T) {
	srv, fake := newSheetsServer(t)
	defer srv.Close()
	fake.failBatch = true
	before := fake.tabs["resultats"]

	s := newTestSheets(t, srv, SheetsOptions{ResultsSheet: "resultats", ScaledSheet: "ML", ArchiveFolderID: "folder-1"})
	err := s.Send(context.Background(), samplePayload())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeTransport))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, before, fake.tabs["resultats"])
	assert.NotContains(t, fake.tabs, "ML")
	for _, r := range fake.requests {
		assert.False(t, strings.HasPrefix(r, http.MethodPut), r)
		assert.NotContains(t, r, ":clear")
		assert.NotContains(t, r, "/upload/drive/")
	}
}

func TestSheetsCellData(t *testing.T) {
	rows := rowData(domain.Table{
		Headers: []string{"Contact", "d"},
		Rows:    []domain.Row{{domain.TextCell("BOB"), domain.EmptyCell()}},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, "Contact", *rows[0].Values[0].UserEnteredValue.StringValue)
	assert.Equal(t, "d", *rows[0].Values[1].UserEnteredValue.StringValue)
	assert.Nil(t, rows[1].Values[1].UserEnteredValue)

	zero := cellData(domain.NumberCell(math.NaN()))
	require.NotNil(t, zero.UserEnteredValue.NumberValue)
	assert.Equal(t, 0.0, *zero.UserEnteredValue.NumberValue)
}

func TestSheetsPing(t *testing.T) {
	srv, _ := newSheetsServer(t)
	defer srv.Close()

	s := newTestSheets(t, srv, SheetsOptions{SheetID: "sheet-1"})
	assert.NoError(t, s.Ping(context.Background()))

	s.opts.SheetID = ""
	assert.True(t, apperrors.IsType(s.Ping(context.Background()), apperrors.ErrTypeConfig))
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "payload.json")
	s := NewFile(path, nil)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Send(context.Background(), samplePayload()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got domain.Payload
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Empty(t, got.Secret)
	assert.Equal(t, samplePayload().Results, got.Results)
	assert.Equal(t, "suivi.xlsx", got.SourceFile.Name)
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default().Sink

	cfg.Mode = config.SinkAppsScript
	cfg.AppsScriptURL = "https://script.example/exec"
	s, err := FromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "apps_script", s.Name())

	cfg.Mode = config.SinkFile
	s, err = FromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "file", s.Name())

	cfg.Mode = config.SinkNone
	s, err = FromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "none", s.Name())
	assert.NoError(t, s.Send(context.Background(), samplePayload()))

	cfg.Mode = "carrier-pigeon"
	_, err = FromConfig(context.Background(), cfg, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}
