// Package config loads the analysis configuration from defaults, an optional
// config file and SENTIMENT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Execution modes.
const (
	ModeThread  = "thread"
	ModeProcess = "process"
)

// Fetch engines.
const (
	EngineColly    = "colly"
	EngineChromedp = "chromedp"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full application configuration.
type Config struct {
	Input    InputConfig    `mapstructure:"input"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Output   OutputConfig   `mapstructure:"output"`
	Database DatabaseConfig `mapstructure:"database"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// InputConfig names the input files.
type InputConfig struct {
	URLsFile          string `mapstructure:"urls_file"`
	PositiveWordsFile string `mapstructure:"positive_words_file"`
	NegativeWordsFile string `mapstructure:"negative_words_file"`
}

// ExecutorConfig controls partitioning and the worker backend.
type ExecutorConfig struct {
	Mode             string `mapstructure:"mode"`
	Workers          int    `mapstructure:"workers"`
	MinLoadPerWorker int    `mapstructure:"min_load_per_worker"`
	// BufferDir holds the shared result buffer in process mode.
	BufferDir string `mapstructure:"buffer_dir"`
}

// FetchConfig selects and tunes the page fetcher.
type FetchConfig struct {
	Engine                   string `mapstructure:"engine"`
	UserAgent                string `mapstructure:"user_agent"`
	TimeoutSeconds           int    `mapstructure:"timeout_seconds"`
	HeadlessNavTimeoutSecond int    `mapstructure:"headless_nav_timeout_seconds"`
	HeadlessMaxParallel      int    `mapstructure:"headless_max_parallel"`
	// RatePerSecond caps requests per host within one process; 0 disables it.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	RateBurst     int     `mapstructure:"rate_burst"`
}

// ExtractConfig selects how text is pulled out of a page.
type ExtractConfig struct {
	Mode string `mapstructure:"mode"`
}

// MonitorConfig controls resource sampling.
type MonitorConfig struct {
	Name             string    `mapstructure:"name"`
	Runs             int       `mapstructure:"runs"`
	IntervalsSeconds []float64 `mapstructure:"intervals_seconds"`
}

// OutputConfig selects where CSV files go.
type OutputConfig struct {
	Provider        string `mapstructure:"provider"`
	Dir             string `mapstructure:"dir"`
	GCSBucket       string `mapstructure:"gcs_bucket"`
	Prefix          string `mapstructure:"prefix"`
	SentimentObject string `mapstructure:"sentiment_object"`
}

// DatabaseConfig enables run summaries in Postgres when DSN is set.
type DatabaseConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// PubSubConfig enables run notifications when both fields are set.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ServerConfig enables the status server when MetricsAddr is set.
type ServerConfig struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// LoggingConfig toggles development logging.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load reads configuration from path (optional) layered over defaults and
// environment variables, then validates it. Slices can be given in the
// environment as comma separated values.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SENTIMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input.urls_file", "wikipedia_urls.txt")
	v.SetDefault("input.positive_words_file", "positive_words.txt")
	v.SetDefault("input.negative_words_file", "negative_words.txt")
	v.SetDefault("executor.mode", ModeThread)
	v.SetDefault("executor.workers", runtime.NumCPU())
	v.SetDefault("executor.min_load_per_worker", 4)
	v.SetDefault("executor.buffer_dir", "")
	v.SetDefault("fetch.engine", EngineColly)
	v.SetDefault("fetch.user_agent", "concurrent-sentiment/0.1")
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("fetch.headless_nav_timeout_seconds", 25)
	v.SetDefault("fetch.headless_max_parallel", 1)
	v.SetDefault("fetch.rate_per_second", 0)
	v.SetDefault("fetch.rate_burst", 1)
	v.SetDefault("extract.mode", "paragraphs")
	v.SetDefault("monitor.name", "concurrent-sentiment-analysis")
	v.SetDefault("monitor.runs", 5)
	v.SetDefault("monitor.intervals_seconds", []float64{1, 1, 1, 1, 1})
	v.SetDefault("output.provider", "local")
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.gcs_bucket", "")
	v.SetDefault("output.prefix", "")
	v.SetDefault("output.sentiment_object", "sentiment_analysis.csv")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.table", "monitor_runs")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("server.metrics_addr", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate checks the configuration for values the application cannot run
// with. Run and interval counts are left to the monitor, which owns those
// rules.
func (c Config) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}
	switch c.Executor.Mode {
	case ModeThread, ModeProcess:
	default:
		return fail("executor.mode must be %q or %q, got %q", ModeThread, ModeProcess, c.Executor.Mode)
	}
	if c.Executor.Workers < 1 {
		return fail("executor.workers must be >= 1")
	}
	if c.Executor.MinLoadPerWorker < 0 {
		return fail("executor.min_load_per_worker must be >= 0")
	}
	switch c.Fetch.Engine {
	case EngineColly, EngineChromedp:
	default:
		return fail("fetch.engine must be %q or %q, got %q", EngineColly, EngineChromedp, c.Fetch.Engine)
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fail("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.RatePerSecond < 0 {
		return fail("fetch.rate_per_second must be >= 0")
	}
	if c.Fetch.Engine == EngineChromedp && c.Fetch.HeadlessMaxParallel <= 0 {
		return fail("fetch.headless_max_parallel must be > 0 with the chromedp engine")
	}
	if strings.TrimSpace(c.Input.URLsFile) == "" {
		return fail("input.urls_file is required")
	}
	switch c.Output.Provider {
	case "local", "memory":
	case "gcs":
		if c.Output.GCSBucket == "" {
			return fail("output.gcs_bucket is required with the gcs provider")
		}
	default:
		return fail("output.provider must be local, memory or gcs, got %q", c.Output.Provider)
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.Topic == "") {
		return fail("pubsub.project_id and pubsub.topic must be set together")
	}
	return nil
}

// Intervals converts the configured sampling intervals to durations.
func (c Config) Intervals() []time.Duration {
	out := make([]time.Duration, len(c.Monitor.IntervalsSeconds))
	for i, s := range c.Monitor.IntervalsSeconds {
		out[i] = time.Duration(s * float64(time.Second))
	}
	return out
}

// FetchTimeout is the per-request timeout of the HTTP fetcher.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// NavigationTimeout bounds one headless page load.
func (c Config) NavigationTimeout() time.Duration {
	return time.Duration(c.Fetch.HeadlessNavTimeoutSecond) * time.Second
}
