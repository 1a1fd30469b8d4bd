package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/solutionspelichet/library-un/internal/errors"
)

// WorkbookExtensions are the file extensions accepted as sources
var WorkbookExtensions = []string{".xlsx", ".xlsm", ".csv"}

// Upload describes one received workbook before it is read
type Upload struct {
	Field    string `json:"field" validate:"required,oneof=tracking extraction"`
	FileName string `json:"file_name" validate:"required,filename"`
	Size     int64  `json:"size" validate:"gt=0"`
}

// FileValidator checks source workbooks given as paths or uploads
type FileValidator struct {
	logger   *slog.Logger
	validate *Validator
	maxBytes int64
}

// NewFileValidator creates a file validator. maxBytes <= 0 disables the
// size limit.
func NewFileValidator(maxBytes int64, logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger:   logger.With(slog.String("component", "file_validator")),
		validate: New(),
		maxBytes: maxBytes,
	}
}

// MaxBytes returns the configured upload limit
func (v *FileValidator) MaxBytes() int64 { return v.maxBytes }

// ValidateUpload checks an upload's metadata. Oversize files are rejected
// before any byte is parsed.
func (v *FileValidator) ValidateUpload(u Upload) error {
	if err := v.validate.Struct(u); err != nil {
		v.logger.Warn("upload rejected",
			slog.String("field", u.Field),
			slog.String("file", u.FileName),
			slog.String("error", err.Error()))
		return err
	}
	if v.maxBytes > 0 && u.Size > v.maxBytes {
		v.logger.Warn("upload too large",
			slog.String("field", u.Field),
			slog.String("file", u.FileName),
			slog.Int64("size", u.Size),
			slog.Int64("max_size", v.maxBytes))
		return apperrors.NewValidationError(fmt.Sprintf("%s: file exceeds %d MB", u.Field, v.maxBytes/(1024*1024))).
			WithContext("size", u.Size).
			WithContext("max_size", v.maxBytes)
	}
	return v.checkName(u.Field, u.FileName)
}

// ValidateWorkbookFile checks that path is a readable workbook within the
// size limit
func (v *FileValidator) ValidateWorkbookFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("file does not exist", slog.String("file", path))
		return apperrors.NewValidationError(fmt.Sprintf("file %s does not exist", path))
	}
	if err != nil {
		return apperrors.NewAppError(apperrors.ErrTypeValidation, "cannot stat "+path, err)
	}
	if info.IsDir() {
		return apperrors.NewValidationError(fmt.Sprintf("%s is a directory, not a file", path))
	}
	if err := v.checkName(path, filepath.Base(path)); err != nil {
		return err
	}
	if v.maxBytes > 0 && info.Size() > v.maxBytes {
		return apperrors.NewValidationError(fmt.Sprintf("%s exceeds %d MB", path, v.maxBytes/(1024*1024))).
			WithContext("size", info.Size())
	}

	v.logger.Debug("file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

func (v *FileValidator) checkName(label, name string) error {
	// lock files left by Excel
	if strings.HasPrefix(filepath.Base(name), "~$") {
		return apperrors.NewValidationError(fmt.Sprintf("%s: %s is a temporary Excel file", label, name))
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, ok := range WorkbookExtensions {
		if ext == ok {
			return nil
		}
	}
	return apperrors.NewValidationError(fmt.Sprintf("%s: %s is not a workbook (extension %q)", label, name, ext)).
		WithContext("allowed", WorkbookExtensions)
}
