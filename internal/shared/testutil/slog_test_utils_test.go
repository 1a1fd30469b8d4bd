package testutil

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBufferedSlogHandler(t *testing.T) {
	logger, handler := NewTestLogger(t)
	scoped := logger.With(slog.String("component", "pipeline"))

	scoped.Info("run started", slog.String("run_id", "r1"))
	logger.Error("sink failed", slog.Int("status", 502))

	records := handler.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "pipeline", records[0].Attr("component"))
	assert.Equal(t, "r1", records[0].Attr("run_id"))
	assert.Nil(t, records[1].Attr("component"))

	assert.Len(t, handler.Find("sink"), 1)
	assert.Len(t, handler.ByLevel(slog.LevelError), 1)
	AssertLogContains(t, handler, slog.LevelInfo, "started")

	handler.Reset()
	assert.Empty(t, handler.Records())
	AssertNoErrors(t, handler)
}

func TestXLSX(t *testing.T) {
	data := XLSX(t, true, []any{"ID", "Qty"}, []any{"1", 10})

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	props, err := f.GetWorkbookProps()
	require.NoError(t, err)
	require.NotNil(t, props.Date1904)
	assert.True(t, *props.Date1904)

	v, err := f.GetCellValue(f.GetSheetName(0), "B2")
	require.NoError(t, err)
	assert.Equal(t, "10", v)
}
