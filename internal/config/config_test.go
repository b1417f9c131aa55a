package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/pflag"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.InputDir != "raw-data" || cfg.OutputDir != "preprocessed-data" {
		t.Fatalf("dirs = %q/%q", cfg.InputDir, cfg.OutputDir)
	}
	if cfg.OutputSuffix != "_preprocessed.parquet" || cfg.Pattern != "*.csv" {
		t.Fatalf("suffix/pattern = %q/%q", cfg.OutputSuffix, cfg.Pattern)
	}
	if cfg.BatchSize != 10000 || cfg.Window != 0 || !cfg.CountRows {
		t.Fatalf("runtime = %d/%d/%v", cfg.BatchSize, cfg.Window, cfg.CountRows)
	}
	if !reflect.DeepEqual(cfg.CSV.NullValues, []string{"", "NA"}) {
		t.Fatalf("null values = %q", cfg.CSV.NullValues)
	}
	if cfg.CSV.CommaRune() != ',' || cfg.UniqueIDs != "warn" || cfg.Compression != "snappy" {
		t.Fatalf("csv/ids/compression = %q/%q/%q", cfg.CSV.Comma, cfg.UniqueIDs, cfg.Compression)
	}
	if issues := Validate(cfg); len(issues) != 0 {
		t.Fatalf("default config has issues: %v", issues)
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "stopprep.yaml")
	if err := os.WriteFile(file, []byte(`
input_dir: /data/raw
batch_size: 500
csv:
  comma: ";"
  null_values: ["NULL"]
metrics:
  backend: pushgateway
  pushgateway_url: http://file:9091
`), 0o644); err != nil {
		t.Fatal(err)
	}
	env := filepath.Join(dir, ".env")
	if err := os.WriteFile(env, []byte("STOPPREP_BATCH_SIZE=700\nSTOPPREP_METRICS_JOB=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STOPPREP_METRICS_PUSHGATEWAY_URL", "http://env:9091")
	t.Setenv("STOPPREP_BATCH_SIZE", "")
	os.Unsetenv("STOPPREP_BATCH_SIZE")
	t.Cleanup(func() { os.Unsetenv("STOPPREP_METRICS_JOB") })

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("input-dir", "", "")
	fs.String("output-dir", "", "")
	if err := fs.Parse([]string{"--input-dir=/flag/raw"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(LoadOptions{File: file, EnvFiles: []string{env, filepath.Join(dir, "missing.env")}, Flags: fs})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.InputDir != "/flag/raw" {
		t.Fatalf("input_dir = %q, flag must win", cfg.InputDir)
	}
	if cfg.OutputDir != "preprocessed-data" {
		t.Fatalf("output_dir = %q, unchanged flag must not override", cfg.OutputDir)
	}
	if cfg.BatchSize != 700 {
		t.Fatalf("batch_size = %d, .env must beat the file", cfg.BatchSize)
	}
	if cfg.Metrics.PushgatewayURL != "http://env:9091" {
		t.Fatalf("pushgateway_url = %q, env must beat the file", cfg.Metrics.PushgatewayURL)
	}
	if cfg.Metrics.Job != "from-dotenv" {
		t.Fatalf("metrics.job = %q", cfg.Metrics.Job)
	}
	if cfg.CSV.CommaRune() != ';' || !reflect.DeepEqual(cfg.CSV.NullValues, []string{"NULL"}) {
		t.Fatalf("csv = %+v", cfg.CSV)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(LoadOptions{File: filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Fatal("missing config file must fail")
	}
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(LoadOptions{File: bad}); err == nil {
		t.Fatal("malformed config file must fail")
	}
}
