package main

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"stopprep/internal/config"
)

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:   "stopprep",
		Short: "Normalize police-stop CSV extracts into canonical Parquet files.",
		Long: `stopprep reads every source CSV extract, projects it onto the canonical
stop schema, and writes one <file_id>_preprocessed.parquet per source.
Files whose output already exists are skipped, so a run can be repeated
after a failure or interruption.

Configuration is read from flags, STOPPREP_* environment variables, an
optional .env file, and an optional config file, in that priority order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addConfigFlags(rc.PersistentFlags())

	rc.AddCommand(newConvertCommand(stdout, stderr))
	rc.AddCommand(newValidateCommand(stdout, stderr))
	rc.AddCommand(newSchemaCommand(stdout))
	rc.AddCommand(newInspectCommand(stdout))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// addConfigFlags registers one flag per config key, defaulted from
// config.Default so --help shows the effective defaults.
func addConfigFlags(fs *pflag.FlagSet) {
	d := config.Default()
	fs.StringP("config", "c", "", "config file (json, yaml or toml)")
	fs.StringSlice("env-file", []string{".env"}, "dotenv files loaded before reading the environment")

	fs.String("input-dir", d.InputDir, "directory holding source CSV files")
	fs.String("pattern", d.Pattern, "glob selecting source files inside --input-dir")
	fs.String("sources", d.SourcesList, "file listing source paths, one per line; overrides --input-dir")
	fs.String("output-dir", d.OutputDir, "directory receiving Parquet artifacts")
	fs.String("output-suffix", d.OutputSuffix, "artifact name suffix appended to the file id")
	fs.String("scratch-dir", d.ScratchDir, "parent of per-file scratch directories (default OS temp dir)")
	fs.Int("batch-size", d.BatchSize, "rows per batch")
	fs.Int("window", d.Window, "batches read ahead of the transformer; 0 reads synchronously")
	fs.String("comma", d.CSV.Comma, "field delimiter")
	fs.StringSlice("null-values", d.CSV.NullValues, "cell values read as null")
	fs.Bool("trim-space", d.CSV.TrimSpace, "trim leading and trailing whitespace from cells before null and type checks")
	fs.Bool("lazy-quotes", d.CSV.LazyQuotes, "accept bare quotes inside fields")
	fs.String("encoding", d.CSV.Encoding, "source encoding: utf-8, latin1 or windows-1252")
	fs.Bool("count-rows", d.CountRows, "count rows before converting so progress can report an ETA")
	fs.String("unique-ids", d.UniqueIDs, "duplicate unique_id policy: off, warn or fail")
	fs.String("compression", d.Compression, "parquet codec: snappy, zstd, gzip or none")
	fs.String("metrics-backend", d.Metrics.Backend, "metrics backend: none, pushgateway or datadog")
	fs.String("pushgateway-url", d.Metrics.PushgatewayURL, "Prometheus Pushgateway base URL")
	fs.String("datadog-addr", d.Metrics.DatadogAddr, "DogStatsD address")
	fs.String("metrics-job", d.Metrics.Job, "job name attached to pushed metrics")
	fs.String("log-level", d.Log.Level, "log level: debug, info, warn, error")
	fs.String("log-format", d.Log.Format, "log format: console or json")
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	fs := cmd.Flags()
	file, err := fs.GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	envFiles, err := fs.GetStringSlice("env-file")
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(config.LoadOptions{File: file, EnvFiles: envFiles, Flags: fs})
}
