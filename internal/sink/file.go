package sink

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "github.com/solutionspelichet/library-un/internal/errors"
	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

// File writes the payload as indented JSON to a local path. The secret is
// blanked before writing.
type File struct {
	path   string
	logger *slog.Logger
}

// NewFile creates a file sink writing to path
func NewFile(path string, logger *slog.Logger) *File {
	if logger == nil {
		logger = slog.Default()
	}
	return &File{path: path, logger: logger.With(slog.String("component", "sink"), slog.String("sink", "file"))}
}

func (f *File) Name() string { return "file" }

func (f *File) Send(ctx context.Context, p domain.Payload) error {
	p.Secret = ""
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return apperrors.NewTransportError("failed to encode payload", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return apperrors.NewTransportError("failed to create output directory", err)
	}

	// written to a temp file then renamed into place
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperrors.NewTransportError("failed to write payload", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return apperrors.NewTransportError("failed to write payload", err)
	}

	f.logger.InfoContext(ctx, "payload written", slog.String("path", f.path), slog.Int("bytes", len(data)))
	return nil
}

// Ping checks that the output directory exists or can be created
func (f *File) Ping(context.Context) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return apperrors.NewTransportError("output directory not writable", err)
	}
	return nil
}
