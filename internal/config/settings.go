package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/taxtab/internal/aggregate"
	"github.com/Veraticus/taxtab/internal/binning"
	"github.com/Veraticus/taxtab/internal/common"
	"github.com/Veraticus/taxtab/internal/ingest"
)

// Settings is the resolved application configuration.
type Settings struct {
	Schemes             map[string]binning.Definition
	DatabasePath        string
	LogLevel            string
	LogFormat           string
	IDColumn            string
	WeightColumn        string
	CountScale          float64
	AmountScale         float64
	ReformTimeout       time.Duration
	ReformRetryAttempts int
}

// SetDefaults registers default values for every key taxtab reads.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("import.id_column", ingest.DefaultIDColumn)
	v.SetDefault("import.weight_column", ingest.DefaultWeightColumn)
	v.SetDefault("report.count_scale", aggregate.DefaultCountScale)
	v.SetDefault("report.amount_scale", aggregate.DefaultAmountScale)
	v.SetDefault("reform.timeout", 30*time.Second)
	v.SetDefault("reform.retry_attempts", 3)
}

// Load reads and validates settings from v.
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		DatabasePath:        ExpandPath(v.GetString("database.path")),
		LogLevel:            v.GetString("logging.level"),
		LogFormat:           v.GetString("logging.format"),
		IDColumn:            v.GetString("import.id_column"),
		WeightColumn:        v.GetString("import.weight_column"),
		CountScale:          v.GetFloat64("report.count_scale"),
		AmountScale:         v.GetFloat64("report.amount_scale"),
		ReformTimeout:       v.GetDuration("reform.timeout"),
		ReformRetryAttempts: v.GetInt("reform.retry_attempts"),
	}

	if s.DatabasePath == "" {
		return nil, fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if s.WeightColumn == "" {
		return nil, fmt.Errorf("%w: import.weight_column", common.ErrMissingConfig)
	}
	for key, scale := range map[string]float64{
		"report.count_scale":  s.CountScale,
		"report.amount_scale": s.AmountScale,
	} {
		if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
			return nil, fmt.Errorf("%w: %s must be a positive number, got %v", common.ErrInvalidConfig, key, scale)
		}
	}
	if s.ReformRetryAttempts < 1 {
		return nil, fmt.Errorf("%w: reform.retry_attempts must be at least 1", common.ErrInvalidConfig)
	}
	if s.ReformTimeout <= 0 {
		return nil, fmt.Errorf("%w: reform.timeout must be positive", common.ErrInvalidConfig)
	}

	if v.IsSet("bins") {
		if err := v.UnmarshalKey("bins", &s.Schemes); err != nil {
			return nil, fmt.Errorf("%w: bins: %w", common.ErrInvalidConfig, err)
		}
	}

	return s, nil
}

// Catalog builds the scheme catalog from configured bins plus any extra
// definitions, which take precedence.
func (s *Settings) Catalog(extra map[string]binning.Definition) (*binning.Catalog, error) {
	defs := make(map[string]binning.Definition, len(s.Schemes)+len(extra))
	for name, def := range s.Schemes {
		defs[name] = def
	}
	for name, def := range extra {
		defs[name] = def
	}
	catalog, err := binning.NewCatalog(defs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return catalog, nil
}

// schemeFile is the on-disk layout of a standalone bins file.
type schemeFile struct {
	Bins map[string]binning.Definition `yaml:"bins"`
}

// LoadSchemeFile reads bin scheme definitions from a YAML file shaped like
// the bins section of config.yaml.
func LoadSchemeFile(path string) (map[string]binning.Definition, error) {
	data, err := os.ReadFile(ExpandPath(path)) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read bins file: %w", err)
	}

	var file schemeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: bins file %s: %w", common.ErrInvalidConfig, path, err)
	}
	if len(file.Bins) == 0 {
		return nil, fmt.Errorf("%w: bins file %s defines no schemes", common.ErrInvalidConfig, path)
	}
	return file.Bins, nil
}
