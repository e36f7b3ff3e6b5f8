// Package config binds the recognized extraction options (spec.md §6.1)
// from file, environment, and programmatic overrides, the way the teacher's
// cmd/root.go binds CLI config with spf13/viper + mitchellh/mapstructure --
// generalized here so the core can be driven as a library, not only a CLI.
package config

import (
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Strategy is the extraction strategy preference (spec.md §4.8).
type Strategy string

const (
	StrategyAuto           Strategy = "auto"
	StrategyMetadataOnly   Strategy = "metadata-only"
	StrategyMetadataFirst  Strategy = "metadata-first"
	StrategyDownloadOnly   Strategy = "download-only"
)

// SelectionMethod is the Size Budget Selector's ordering policy (spec.md §4.3).
type SelectionMethod string

const (
	SelectionOrdered  SelectionMethod = "ordered"
	SelectionRandom   SelectionMethod = "random"
	SelectionSmallest SelectionMethod = "smallest"
	SelectionLargest  SelectionMethod = "largest"
)

// Config is the full set of recognized options from spec.md §6.1.
type Config struct {
	ExtractSpatial               bool            `mapstructure:"extract_spatial"`
	ExtractTemporal              bool            `mapstructure:"extract_temporal"`
	UseConvexHull                bool            `mapstructure:"use_convex_hull"`
	Strategy                     Strategy        `mapstructure:"strategy"`
	MetadataFallbackEnabled      bool            `mapstructure:"metadata_fallback_enabled"`
	FollowExternalMetadataLinks  bool            `mapstructure:"follow_external_metadata_links"`
	MaxDownloadSize              int64           `mapstructure:"max_download_size"`
	DownloadSizeSoftLimit        bool            `mapstructure:"download_size_soft_limit"`
	SelectionMethod              SelectionMethod `mapstructure:"selection_method"`
	SelectionSeed                int64           `mapstructure:"selection_seed"`
	GeospatialOnly               bool            `mapstructure:"geospatial_only"`
	ExtraGeospatialExtensions    []string        `mapstructure:"extra_geospatial_extensions"`
	Parallelism                  int             `mapstructure:"parallelism"`
	RunDeadline                  time.Duration   `mapstructure:"run_deadline"`
	AssumeWGS84ForUngeoreferenced bool           `mapstructure:"assume_wgs84_for_ungeoreferenced_rasters"`
	TemporalPrecision             string         `mapstructure:"temporal_precision"`
}

// Default returns the spec.md §6.1 default configuration.
func Default() Config {
	return Config{
		ExtractSpatial:              true,
		ExtractTemporal:             false,
		UseConvexHull:               false,
		Strategy:                    StrategyAuto,
		MetadataFallbackEnabled:     true,
		FollowExternalMetadataLinks: true,
		MaxDownloadSize:             0, // 0 == unbounded
		DownloadSizeSoftLimit:       false,
		SelectionMethod:             SelectionOrdered,
		SelectionSeed:               0,
		GeospatialOnly:              false,
		ExtraGeospatialExtensions:   nil,
		Parallelism:                 4,
		RunDeadline:                 0, // 0 == no overall deadline
		AssumeWGS84ForUngeoreferenced: false,
		TemporalPrecision:            "2006-01-02", // %Y-%m-%d equivalent
	}
}

// Load reads a Config from viper, the way cmd/root.go's initConfig reads
// .geoextent-core.yaml: file + automatic env, merged over Default().
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()
	if v == nil {
		return cfg, nil
	}

	decoderOpt := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))

	if err := v.Unmarshal(&cfg, decoderOpt); err != nil {
		return cfg, errors.Wrap(err, "decode config")
	}

	return cfg, Validate(cfg)
}

// Validate enforces the cross-field invariants spec.md §9 leaves ambiguous
// upstream. metadata-first and download-only are exposed as mutually
// exclusive values of a single Strategy enum, which makes their conflicting
// combination structurally impossible to express -- Validate only needs to
// check the remaining numeric/enum fields are sane.
func Validate(cfg Config) error {
	switch cfg.Strategy {
	case StrategyAuto, StrategyMetadataOnly, StrategyMetadataFirst, StrategyDownloadOnly:
	default:
		return errors.Errorf("invalid strategy %q", cfg.Strategy)
	}

	switch cfg.SelectionMethod {
	case SelectionOrdered, SelectionRandom, SelectionSmallest, SelectionLargest:
	default:
		return errors.Errorf("invalid selection_method %q", cfg.SelectionMethod)
	}

	if cfg.Parallelism <= 0 {
		return errors.New("parallelism must be positive")
	}

	if cfg.MaxDownloadSize < 0 {
		return errors.New("max_download_size must be non-negative")
	}

	return nil
}

// ExtraGeospatialExtensionSet returns ExtraGeospatialExtensions as a lookup
// set, lower-cased, for internal/model.IsGeospatialExtension.
func (c Config) ExtraGeospatialExtensionSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.ExtraGeospatialExtensions))
	for _, ext := range c.ExtraGeospatialExtensions {
		set[lower(ext)] = struct{}{}
	}
	return set
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
