// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - Validation failures wrap ErrInvalidConfig; I/O and parse failures wrap
//   ErrLoadConfig.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"github.com/nmgenxys/starcalc/internal/domain/model"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// Output formats understood by the report writers.
const (
	OutputText    = "text"
	OutputJSON    = "json"
	OutputCSV     = "csv"
	OutputParquet = "parquet"
)

// DefaultMeasuresOfInterest are the measures shown in detail rows and uplifted
// by batch simulations unless configured otherwise.
var DefaultMeasuresOfInterest = []string{
	"C14: Medication Reconciliation Post-Discharge",
	"C19: Getting Needed Care",
	"D05: Rating of Drug Plan",
	"D06: Getting Needed Prescription Drugs",
	"D08: Medication Adherence for Diabetes Medications",
	"D09: Medication Adherence for Hypertension (RAS antagonists)",
	"D10: Medication Adherence for Cholesterol (Statins)",
	"D11: MTM Program Completion Rate for CMR",
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// PartCThresholds and PartDThresholds are the rule files (JSON or YAML).
	PartCThresholds string `koanf:"part_c_thresholds"`
	PartDThresholds string `koanf:"part_d_thresholds"`

	// ContractScores is a contract file path or a doublestar glob.
	ContractScores string `koanf:"contract_scores"`

	// PlanType selects the Part D sub-table when a request names none.
	PlanType string `koanf:"plan_type"`

	// MeasuresOfInterest lists the full measure codes used for detail rows.
	MeasuresOfInterest []string `koanf:"measures_of_interest"`

	// Uplift is the proportion added to each measure of interest by simulations.
	Uplift float64 `koanf:"uplift"`

	// Workers bounds the simulation fan-out.
	Workers int `koanf:"workers"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// Output is the default CLI output format.
	Output string `koanf:"output"`

	// Precision is the number of decimals used when rendering averages.
	Precision int `koanf:"precision"`

	// MetricsEnabled toggles Prometheus recording.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace, MetricsSubsystem and MetricsPrefix build metric names:
	// <namespace>_<subsystem>_<prefix>_<name>.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`
	MetricsPrefix    string `koanf:"metrics_prefix"`

	// MetricsBuckets overrides the latency histogram buckets (milliseconds).
	MetricsBuckets []float64 `koanf:"metrics_buckets"`

	// MetricsLabels are constant labels attached to every metric.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		PartCThresholds:     "data/part_c_star_thresholds.json",
		PartDThresholds:     "data/part_d_star_calculator.json",
		ContractScores:      "data/contract_measure_scores.json",
		PlanType:            string(model.DefaultPlanType),
		MeasuresOfInterest:  append([]string(nil), DefaultMeasuresOfInterest...),
		Uplift:              0.05,
		Workers:             runtime.NumCPU(),
		MaxLeaderboardLimit: 100,
		Output:              OutputText,
		Precision:           2,
		MetricsEnabled:      true,
		MetricsNamespace:    "starcalc",
		MetricsSubsystem:    "rating",
	}
}

// Validate checks field ranges. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.PartCThresholds == "" || c.PartDThresholds == "" {
		return fmt.Errorf("%w: threshold paths must not be empty", ErrInvalidConfig)
	}
	if c.ContractScores == "" {
		return fmt.Errorf("%w: contract_scores must not be empty", ErrInvalidConfig)
	}
	if _, err := model.ParsePlanType(c.PlanType); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Uplift < 0 || c.Uplift > 1 {
		return fmt.Errorf("%w: uplift must be within [0,1], got %v", ErrInvalidConfig, c.Uplift)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.MaxLeaderboardLimit < 1 {
		return fmt.Errorf("%w: max_leaderboard_limit must be positive, got %d", ErrInvalidConfig, c.MaxLeaderboardLimit)
	}
	if c.Precision < 0 || c.Precision > 6 {
		return fmt.Errorf("%w: precision must be within [0,6], got %d", ErrInvalidConfig, c.Precision)
	}
	switch c.Output {
	case OutputText, OutputJSON, OutputCSV, OutputParquet:
	default:
		return fmt.Errorf("%w: unknown output %q", ErrInvalidConfig, c.Output)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return c.validateMetrics()
}

var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func (c *Config) validateMetrics() error {
	for key, v := range map[string]string{
		"metrics_namespace": c.MetricsNamespace,
		"metrics_subsystem": c.MetricsSubsystem,
		"metrics_prefix":    c.MetricsPrefix,
	} {
		if v != "" && !metricName.MatchString(v) {
			return fmt.Errorf("%w: %s %q is not a valid metric name part", ErrInvalidConfig, key, v)
		}
	}
	for i := 1; i < len(c.MetricsBuckets); i++ {
		if c.MetricsBuckets[i] <= c.MetricsBuckets[i-1] {
			return fmt.Errorf("%w: metrics_buckets must be strictly increasing, got %v", ErrInvalidConfig, c.MetricsBuckets)
		}
	}
	for name := range c.MetricsLabels {
		if !metricName.MatchString(name) || strings.HasPrefix(name, "__") {
			return fmt.Errorf("%w: metrics_labels key %q is not a valid label name", ErrInvalidConfig, name)
		}
	}
	return nil
}

// Plan returns the parsed default plan type.
func (c *Config) Plan() model.PlanType {
	pt, err := model.ParsePlanType(c.PlanType)
	if err != nil {
		return model.DefaultPlanType
	}
	return pt
}

// Measures returns MeasuresOfInterest as measure codes.
func (c *Config) Measures() []model.MeasureCode {
	out := make([]model.MeasureCode, 0, len(c.MeasuresOfInterest))
	for _, m := range c.MeasuresOfInterest {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, model.MeasureCode(m))
		}
	}
	return out
}
