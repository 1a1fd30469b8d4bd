package validation

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/solutionspelichet/library-un/internal/errors"
	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

func TestFileValidator_ValidateUpload(t *testing.T) {
	tests := []struct {
		name          string
		upload        Upload
		wantErr       bool
		errorContains string
	}{
		{
			name:   "valid xlsx",
			upload: Upload{Field: "tracking", FileName: "suivi.xlsx", Size: 2048},
		},
		{
			name:   "valid csv",
			upload: Upload{Field: "extraction", FileName: "export.CSV", Size: 10},
		},
		{
			name:          "too large",
			upload:        Upload{Field: "tracking", FileName: "suivi.xlsx", Size: 2*1024*1024 + 1},
			wantErr:       true,
			errorContains: "exceeds 2 MB",
		},
		{
			name:          "empty file",
			upload:        Upload{Field: "tracking", FileName: "suivi.xlsx", Size: 0},
			wantErr:       true,
			errorContains: "size must be greater than 0",
		},
		{
			name:          "unknown field",
			upload:        Upload{Field: "other", FileName: "suivi.xlsx", Size: 1},
			wantErr:       true,
			errorContains: "field must be one of",
		},
		{
			name:          "path traversal",
			upload:        Upload{Field: "tracking", FileName: "../suivi.xlsx", Size: 1},
			wantErr:       true,
			errorContains: "valid filename",
		},
		{
			name:          "excel lock file",
			upload:        Upload{Field: "tracking", FileName: "~$suivi.xlsx", Size: 1},
			wantErr:       true,
			errorContains: "temporary Excel file",
		},
		{
			name:          "not a workbook",
			upload:        Upload{Field: "tracking", FileName: "notes.txt", Size: 1},
			wantErr:       true,
			errorContains: "not a workbook",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewFileValidator(2*1024*1024, slog.Default())
			err := v.ValidateUpload(tt.upload)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileValidator_NoLimit(t *testing.T) {
	v := NewFileValidator(0, nil)
	assert.NoError(t, v.ValidateUpload(Upload{Field: "tracking", FileName: "big.xlsx", Size: 1 << 40}))
}

func TestFileValidator_ValidateWorkbookFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "suivi.xlsx")
	require.NoError(t, os.WriteFile(good, []byte("PK"), 0644))
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0644))
	big := filepath.Join(dir, "big.csv")
	require.NoError(t, os.WriteFile(big, make([]byte, 64), 0644))

	v := NewFileValidator(32, slog.Default())

	assert.NoError(t, v.ValidateWorkbookFile(good))

	err := v.ValidateWorkbookFile(filepath.Join(dir, "missing.xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	err = v.ValidateWorkbookFile(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")

	err = v.ValidateWorkbookFile(txt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a workbook")

	err = v.ValidateWorkbookFile(big)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestValidatorStruct(t *testing.T) {
	v := New()

	require.NoError(t, v.Struct(domain.ColumnMapping{Key: "A", User: "B", Value: "C", Date: "AA"}))

	err := v.Struct(domain.ColumnMapping{Key: "A", User: "1", Value: "", Date: "ABCD"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	assert.Contains(t, err.Error(), "user must be a column letter")
	assert.Contains(t, err.Error(), "value is required")
	assert.Contains(t, err.Error(), "date must be at most 3")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	fields, ok := appErr.Context["fields"].([]FieldError)
	require.True(t, ok)
	assert.Len(t, fields, 3)
}
