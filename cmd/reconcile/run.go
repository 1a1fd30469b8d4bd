package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/solutionspelichet/library-un/internal/exporter"
	"github.com/solutionspelichet/library-un/internal/operations"
	"github.com/solutionspelichet/library-un/internal/services"
	"github.com/solutionspelichet/library-un/internal/validation"
)

type runOptions struct {
	tracking          string
	extraction        string
	trackingColumns   string
	extractionColumns string
	multiplier        float64
	secret            string
	noArchive         bool
	dryRun            bool
	quiet             bool
	exportDir         string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Aggregate, merge and deliver two workbooks.",
		Long: `run reads the tracking and extraction workbooks, sums quantities per
contact and day, merges both tables, scales the result and sends it to
the sink. The run report is printed to stdout as JSON.`,
		Example: `  reconcile run --tracking suivi.xlsx --extraction extraction.xlsx
  reconcile run --tracking suivi.xlsx --extraction extraction.csv --multiplier 0.5 --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.tracking, "tracking", "", "Tracking workbook (.xlsx, .xlsm or .csv)")
	f.StringVar(&opts.extraction, "extraction", "", "Extraction workbook (.xlsx, .xlsm or .csv)")
	f.StringVar(&opts.trackingColumns, "tracking-columns", "", "Tracking column letters as key,user,value,date (default from config)")
	f.StringVar(&opts.extractionColumns, "extraction-columns", "", "Extraction column letters as key,user,value,date (default from config)")
	f.Float64Var(&opts.multiplier, "multiplier", 0, "Factor applied to the merged table (default from config)")
	f.StringVar(&opts.secret, "secret", "", "Shared secret sent with the payload (default from config)")
	f.BoolVar(&opts.noArchive, "no-archive", false, "Do not attach the tracking workbook to the payload")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Compute everything but do not deliver")
	f.StringVar(&opts.exportDir, "export", "", "Also write the tables as CSV and xlsx files into this directory")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print progress to stderr")
	_ = cmd.MarkFlagRequired("tracking")
	_ = cmd.MarkFlagRequired("extraction")
	return cmd
}

func runReconcile(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	var reporter operations.ProgressReporter
	if !opts.quiet {
		reporter = progressPrinter(cmd.ErrOrStderr())
	}

	cfg, components, logger, err := root.setup(cmd, reporter)
	if err != nil {
		return err
	}
	defer closeComponents(components)

	files := validation.NewFileValidator(cfg.Pipeline.MaxFileBytes(), logger)
	tracking, err := readInput(files, opts.tracking)
	if err != nil {
		return err
	}
	extraction, err := readInput(files, opts.extraction)
	if err != nil {
		return err
	}

	in := services.RunInput{
		Tracking:          tracking,
		Extraction:        extraction,
		TrackingColumns:   opts.trackingColumns,
		ExtractionColumns: opts.extractionColumns,
		Secret:            opts.secret,
		DryRun:            opts.dryRun,
	}
	if cmd.Flags().Changed("multiplier") {
		in.Multiplier = &opts.multiplier
	}
	if opts.noArchive {
		archive := false
		in.ArchiveTracking = &archive
	}

	report, runErr := components.Runs.Run(cmd.Context(), in)
	if runErr == nil && opts.exportDir != "" {
		if _, err := exporter.New(opts.exportDir, logger).Export(report, cfg.Sink.ResultsSheet, cfg.Sink.ScaledSheet); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	if report != nil {
		if err := printJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	}
	return runErr
}

func readInput(files *validation.FileValidator, path string) (services.FileInput, error) {
	if err := files.ValidateWorkbookFile(path); err != nil {
		return services.FileInput{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return services.FileInput{}, fmt.Errorf("read %s: %w", path, err)
	}
	return services.FileInput{Name: filepath.Base(path), MIME: mimeFor(path), Data: data}, nil
}

func mimeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "text/csv"
	case ".xlsm":
		return "application/vnd.ms-excel.sheet.macroEnabled.12"
	default:
		return ""
	}
}

// progressPrinter writes one line per live-log event
func progressPrinter(w io.Writer) operations.ProgressReporter {
	return operations.ProgressReporterFunc(func(_ context.Context, e operations.ProgressEvent) {
		switch {
		case e.Step != "":
			fmt.Fprintf(w, "%-10s %-9s %s\n", e.Step, e.Status, e.Message)
		default:
			fmt.Fprintf(w, "%-10s %s\n", e.Type, e.Message)
		}
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
