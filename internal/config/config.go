// Package config defines the run configuration of stopprep and loads it from
// defaults, an optional config file, .env files, STOPPREP_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. STOPPREP_BATCH_SIZE.
const EnvPrefix = "STOPPREP"

// Config is the full run configuration.
type Config struct {
	InputDir     string `mapstructure:"input_dir"`
	Pattern      string `mapstructure:"pattern"`
	SourcesList  string `mapstructure:"sources_list"` // optional list file; overrides InputDir/Pattern
	OutputDir    string `mapstructure:"output_dir"`
	OutputSuffix string `mapstructure:"output_suffix"`
	ScratchDir   string `mapstructure:"scratch_dir"` // "" uses the OS temp dir

	BatchSize int `mapstructure:"batch_size"`
	// Window is the number of batches read ahead of the transformer.
	Window int `mapstructure:"window"`

	CSV CSV `mapstructure:"csv"`

	CountRows   bool   `mapstructure:"count_rows"`
	UniqueIDs   string `mapstructure:"unique_ids"` // off, warn, fail
	Compression string `mapstructure:"compression"`

	Metrics Metrics `mapstructure:"metrics"`
	Log     Log     `mapstructure:"log"`
}

// CSV controls source tokenization.
type CSV struct {
	Comma      string   `mapstructure:"comma"`
	NullValues []string `mapstructure:"null_values"`
	TrimSpace  bool     `mapstructure:"trim_space"`
	LazyQuotes bool     `mapstructure:"lazy_quotes"`
	Encoding   string   `mapstructure:"encoding"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	Backend        string `mapstructure:"backend"` // none, pushgateway, datadog
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	DatadogAddr    string `mapstructure:"datadog_addr"`
	Job            string `mapstructure:"job"`
}

// Log configures the process logger.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

// CommaRune returns the configured delimiter rune, or ',' when unset.
func (c CSV) CommaRune() rune {
	for _, r := range c.Comma {
		return r
	}
	return ','
}

var defaults = map[string]any{
	"input_dir":               "raw-data",
	"pattern":                 "*.csv",
	"sources_list":            "",
	"output_dir":              "preprocessed-data",
	"output_suffix":           "_preprocessed.parquet",
	"scratch_dir":             "",
	"batch_size":              10000,
	"window":                  0,
	"csv.comma":               ",",
	"csv.null_values":         []string{"", "NA"},
	"csv.trim_space":          false,
	"csv.lazy_quotes":         false,
	"csv.encoding":            "utf-8",
	"count_rows":              true,
	"unique_ids":              "warn",
	"compression":             "snappy",
	"metrics.backend":         "none",
	"metrics.pushgateway_url": "",
	"metrics.datadog_addr":    "",
	"metrics.job":             "stopprep",
	"log.level":               "info",
	"log.format":              "console",
}

// FlagKeys maps config keys to the command-line flag names bound to them.
var FlagKeys = map[string]string{
	"input_dir":               "input-dir",
	"pattern":                 "pattern",
	"sources_list":            "sources",
	"output_dir":              "output-dir",
	"output_suffix":           "output-suffix",
	"scratch_dir":             "scratch-dir",
	"batch_size":              "batch-size",
	"window":                  "window",
	"csv.comma":               "comma",
	"csv.null_values":         "null-values",
	"csv.trim_space":          "trim-space",
	"csv.lazy_quotes":         "lazy-quotes",
	"csv.encoding":            "encoding",
	"count_rows":              "count-rows",
	"unique_ids":              "unique-ids",
	"compression":             "compression",
	"metrics.backend":         "metrics-backend",
	"metrics.pushgateway_url": "pushgateway-url",
	"metrics.datadog_addr":    "datadog-addr",
	"metrics.job":             "metrics-job",
	"log.level":               "log-level",
	"log.format":              "log-format",
}

// Default returns the configuration with no overrides applied.
func Default() Config {
	cfg, err := decode(newViper())
	if err != nil {
		// defaults are static; a failure here is a programming error
		panic(err)
	}
	return cfg
}

// LoadOptions names the optional inputs of Load.
type LoadOptions struct {
	// File is a JSON, YAML or TOML config file. Empty skips it.
	File string
	// EnvFiles are loaded into the process environment first. Missing files
	// are ignored. Variables already set in the environment win.
	EnvFiles []string
	// Flags, when set, overrides keys whose flag (see FlagKeys) was changed.
	Flags *pflag.FlagSet
}

// Load resolves the configuration.
func Load(opt LoadOptions) (Config, error) {
	for _, f := range opt.EnvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, errors.Wrapf(err, "load env file %s", f)
		}
	}

	v := newViper()
	if opt.File != "" {
		v.SetConfigFile(opt.File)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config file %s", opt.File)
		}
	}
	if opt.Flags != nil {
		for key, name := range FlagKeys {
			f := opt.Flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, errors.Wrapf(err, "bind flag --%s", name)
			}
		}
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	return cfg, nil
}
