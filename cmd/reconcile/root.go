package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/solutionspelichet/library-un/internal/app"
	"github.com/solutionspelichet/library-un/internal/config"
	"github.com/solutionspelichet/library-un/internal/infrastructure"
	"github.com/solutionspelichet/library-un/internal/operations"
)

type rootOptions struct {
	configFile string
	sinkMode   string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile a tracking workbook against an extraction workbook.",
		Long: `reconcile aggregates the quantities of two contact/day workbooks,
merges them into one table and delivers the result and its scaled copy
to the configured sink (Apps Script, Google Sheets, a JSON file or nowhere).`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (default $RECONCILE_CONFIG_FILE or config.yaml)")
	root.PersistentFlags().StringVar(&opts.sinkMode, "sink", "", "Override the sink: apps_script, sheets, file, none")
	root.PersistentFlags().StringVarP(&opts.logLevel, "loglevel", "l", "", "Log level: debug, info, warn, error")

	root.AddCommand(newRunCmd(opts), newPingCmd(opts), newVersionCmd())
	return root
}

// loadConfig reads configuration and applies the global flag overrides
func (o *rootOptions) loadConfig() (*config.Config, error) {
	load := config.Load
	if o.configFile != "" {
		load = func() (*config.Config, error) { return config.LoadFrom(o.configFile) }
	}
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if o.sinkMode != "" {
		cfg.Sink.Mode = o.sinkMode
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	// the CLI has no /metrics endpoint to scrape
	cfg.Telemetry.MetricsEnabled = false
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads config and builds the shared components. Logs go to stderr
// so stdout only carries the command's result.
func (o *rootOptions) setup(cmd *cobra.Command, reporter operations.ProgressReporter) (*config.Config, *app.Components, *slog.Logger, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("configuration: %w", err)
	}
	logger := infrastructure.NewLogger(cmd.ErrOrStderr(), infrastructure.ParseLevel(cfg.Logging.Level))
	components, err := app.BuildComponents(cmd.Context(), cfg, logger, reporter)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, components, logger, nil
}

func closeComponents(c *app.Components) {
	_ = c.Close(context.Background())
}
