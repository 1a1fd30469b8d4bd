package sink

import (
	"context"
	"log/slog"

	"google.golang.org/api/option"

	"github.com/solutionspelichet/library-un/internal/config"
	apperrors "github.com/solutionspelichet/library-un/internal/errors"
)

// FromConfig builds the sink selected by cfg.Mode
func FromConfig(ctx context.Context, cfg config.SinkConfig, logger *slog.Logger) (Sink, error) {
	switch cfg.Mode {
	case config.SinkAppsScript:
		return NewAppsScript(cfg.AppsScriptURL, cfg.Timeout, nil, logger), nil
	case config.SinkSheets:
		var opts []option.ClientOption
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		return NewSheets(ctx, SheetsOptions{
			SheetID:         cfg.SheetID,
			ResultsSheet:    cfg.ResultsSheet,
			ScaledSheet:     cfg.ScaledSheet,
			ArchiveFolderID: cfg.ArchiveFolderID,
		}, logger, opts...)
	case config.SinkFile:
		return NewFile(cfg.OutputFile, logger), nil
	case config.SinkNone:
		return NewDiscard(logger), nil
	default:
		return nil, apperrors.NewConfigError("unknown sink mode: "+cfg.Mode, nil)
	}
}
