package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap/zapcore"

	"stopprep/internal/parser/csv"
	"stopprep/internal/storage/parquet"
	"stopprep/internal/transformer"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks a run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is reported but does not block a run.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one lint finding. Path is the dotted config key, e.g. "csv.comma".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate lints cfg without mutating it.
func Validate(cfg Config) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	// Sources.
	if strings.TrimSpace(cfg.SourcesList) == "" {
		if strings.TrimSpace(cfg.InputDir) == "" {
			add(SeverityError, "input_dir", "input_dir must not be empty when no sources_list is given")
		}
		if _, err := filepath.Match(cfg.Pattern, ""); err != nil || cfg.Pattern == "" {
			add(SeverityError, "pattern", "pattern %q is not a valid glob", cfg.Pattern)
		}
	}

	// Outputs.
	if strings.TrimSpace(cfg.OutputDir) == "" {
		add(SeverityError, "output_dir", "output_dir must not be empty")
	} else if cfg.SourcesList == "" && filepath.Clean(cfg.OutputDir) == filepath.Clean(cfg.InputDir) {
		add(SeverityWarning, "output_dir", "output_dir equals input_dir; artifacts may be picked up as sources by a broad pattern")
	}
	switch {
	case cfg.OutputSuffix == "":
		add(SeverityError, "output_suffix", "output_suffix must not be empty")
	case strings.ContainsRune(cfg.OutputSuffix, filepath.Separator):
		add(SeverityError, "output_suffix", "output_suffix must not contain a path separator")
	case !strings.HasSuffix(cfg.OutputSuffix, ".parquet"):
		add(SeverityWarning, "output_suffix", "output_suffix %q does not end in .parquet", cfg.OutputSuffix)
	}

	// Runtime.
	if cfg.BatchSize <= 0 {
		add(SeverityError, "batch_size", "batch_size=%d; must be positive", cfg.BatchSize)
	} else if cfg.BatchSize > 1_000_000 {
		add(SeverityWarning, "batch_size", "batch_size=%d; very large batches raise peak memory", cfg.BatchSize)
	}
	if cfg.Window < 0 {
		add(SeverityError, "window", "window must not be negative")
	}

	issues = append(issues, validateCSV(cfg.CSV)...)

	if _, err := transformer.ParseIDPolicy(cfg.UniqueIDs); err != nil {
		add(SeverityError, "unique_ids", "%v", err)
	}
	if _, err := parquet.Codec(cfg.Compression); err != nil {
		add(SeverityError, "compression", "%v", err)
	}

	issues = append(issues, validateMetrics(cfg.Metrics)...)

	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		add(SeverityError, "log.level", "unknown log level %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "console":
	default:
		add(SeverityError, "log.format", "log.format must be json or console, got %q", cfg.Log.Format)
	}
	return issues
}

func validateCSV(c CSV) []Issue {
	var issues []Issue
	switch n := utf8.RuneCountInString(c.Comma); {
	case n != 1:
		issues = append(issues, Issue{SeverityError, "csv.comma", fmt.Sprintf("comma must be a single character, got %q", c.Comma)})
	default:
		r := c.CommaRune()
		if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
			issues = append(issues, Issue{SeverityError, "csv.comma", fmt.Sprintf("%q cannot be used as a delimiter", r)})
		}
	}
	if len(c.NullValues) == 0 {
		issues = append(issues, Issue{SeverityWarning, "csv.null_values", "no null sentinels; empty cells in typed columns will fail to parse"})
	}
	if !csv.ValidEncoding(c.Encoding) {
		issues = append(issues, Issue{SeverityError, "csv.encoding", fmt.Sprintf("unsupported encoding %q", c.Encoding)})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch m.Backend {
	case "", "none":
	case "pushgateway", "prom", "prometheus":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{SeverityError, "metrics.pushgateway_url", "pushgateway backend requires pushgateway_url"})
		}
	case "datadog", "dd":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{SeverityError, "metrics.datadog_addr", "datadog backend requires datadog_addr"})
		}
	default:
		issues = append(issues, Issue{SeverityError, "metrics.backend", fmt.Sprintf("unknown metrics backend %q", m.Backend)})
	}
	if m.Backend != "" && m.Backend != "none" && strings.TrimSpace(m.Job) == "" {
		issues = append(issues, Issue{SeverityWarning, "metrics.job", "metrics.job is empty; backends fall back to their default job name"})
	}
	return issues
}
