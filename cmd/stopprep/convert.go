package main

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stopprep/internal/config"
	"stopprep/internal/datasource/file"
	"stopprep/internal/etl"
	"stopprep/internal/parser/csv"
	"stopprep/internal/storage"
	"stopprep/internal/storage/parquet"
	"stopprep/internal/transformer"
)

func newConvertCommand(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "convert [file.csv ...]",
		Short: "Convert source extracts to canonical Parquet files",
		Long: `convert processes the given CSV files, or every file selected by
--sources or --input-dir/--pattern when none are given. A file that fails is
reported and the run continues with the next one; the command exits non-zero
when any file failed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if issues := config.Validate(cfg); config.HasErrors(issues) {
				printIssues(stderr, issues)
				return errors.New("invalid configuration")
			}
			log, err := newLogger(cfg.Log, stderr)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			flush, err := setupMetrics(cfg.Metrics, log)
			if err != nil {
				return err
			}
			defer flush()

			sources, err := resolveSources(cfg, args)
			if err != nil {
				return err
			}
			opt, err := runnerOptions(cfg, log)
			if err != nil {
				return err
			}

			sum := etl.NewRunner(opt).Run(cmd.Context(), sources)
			fmt.Fprintf(stdout, "converted=%d skipped=%d failed=%d\n", sum.Converted, sum.Skipped, sum.Failed)
			for _, res := range sum.Results {
				if res.Err != nil {
					fmt.Fprintf(stdout, "  %s: %s: %v\n", res.Source.Path, res.Class, res.Err)
				}
			}
			return sum.Err()
		},
	}
}

func resolveSources(cfg config.Config, args []string) ([]file.Source, error) {
	switch {
	case len(args) > 0:
		out := make([]file.Source, 0, len(args))
		for _, a := range args {
			out = append(out, file.NewSource(a))
		}
		return out, nil
	case cfg.SourcesList != "":
		return file.ReadList(cfg.SourcesList)
	default:
		return file.Discover(cfg.InputDir, cfg.Pattern)
	}
}

func runnerOptions(cfg config.Config, log *zap.Logger) (etl.Options, error) {
	policy, err := transformer.ParseIDPolicy(cfg.UniqueIDs)
	if err != nil {
		return etl.Options{}, err
	}
	return etl.Options{
		Layout:     storage.Layout{Dir: cfg.OutputDir, Suffix: cfg.OutputSuffix},
		ScratchDir: cfg.ScratchDir,
		CSV: csv.Options{
			Comma:      cfg.CSV.CommaRune(),
			NullValues: cfg.CSV.NullValues,
			TrimSpace:  cfg.CSV.TrimSpace,
			LazyQuotes: cfg.CSV.LazyQuotes,
			Encoding:   cfg.CSV.Encoding,
			BatchSize:  cfg.BatchSize,
		},
		Window:    cfg.Window,
		CountRows: cfg.CountRows,
		Parquet:   parquet.Options{Compression: cfg.Compression},
		IDs:       transformer.NewIDChecker(policy),
		Log:       log,
	}, nil
}
