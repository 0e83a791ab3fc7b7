// Package config handles bake configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all bake settings.
type Config struct {
	Data    DataConfig    `yaml:"data"`
	Output  OutputConfig  `yaml:"output"`
	Build   BuildConfig   `yaml:"build"`
	Logging LoggingConfig `yaml:"logging"`
}

// DataConfig holds input locations.
type DataConfig struct {
	AssetDirs   []string `yaml:"asset_dirs"`   // Directories of *.pxad documents
	AssetPacks  []string `yaml:"asset_packs"`  // *.pak archives
	BlockDir    string   `yaml:"block_dir"`    // <id>.hjson map block exports
	MapMetadata string   `yaml:"map_metadata"` // Map metadata listing xblock ids
}

// OutputConfig holds output locations.
type OutputConfig struct {
	NavmeshDir string `yaml:"navmesh_dir"`
	HashStore  string `yaml:"hash_store"` // Directory or store URL
}

// BuildConfig holds the mesh build parameters, in world units and degrees.
type BuildConfig struct {
	CellSize             float32 `yaml:"cell_size"`
	CellHeight           float32 `yaml:"cell_height"`
	AgentHeight          float32 `yaml:"agent_height"`
	AgentRadius          float32 `yaml:"agent_radius"`
	AgentMaxClimb        float32 `yaml:"agent_max_climb"`
	AgentMaxSlope        float32 `yaml:"agent_max_slope"`
	RegionMinSize        int     `yaml:"region_min_size"`
	RegionMergeSize      int     `yaml:"region_merge_size"`
	EdgeMaxLen           float32 `yaml:"edge_max_len"`
	EdgeMaxError         float32 `yaml:"edge_max_error"`
	VertsPerPoly         int     `yaml:"verts_per_poly"`
	DetailSampleDist     float32 `yaml:"detail_sample_dist"`
	DetailSampleMaxError float32 `yaml:"detail_sample_max_error"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			AssetDirs:   []string{"data/assets"},
			AssetPacks:  []string{},
			BlockDir:    "data/blocks",
			MapMetadata: "data/maps.hjson",
		},
		Output: OutputConfig{
			NavmeshDir: "out/navmesh",
			HashStore:  "out/hash",
		},
		Build: DefaultBuild(),
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// DefaultBuild returns the default build parameters.
func DefaultBuild() BuildConfig {
	return BuildConfig{
		CellSize:             0.3,
		CellHeight:           0.2,
		AgentHeight:          2.0,
		AgentRadius:          0.6,
		AgentMaxClimb:        0.9,
		AgentMaxSlope:        45,
		RegionMinSize:        8,
		RegionMergeSize:      20,
		EdgeMaxLen:           12,
		EdgeMaxError:         1.3,
		VertsPerPoly:         6,
		DetailSampleDist:     6,
		DetailSampleMaxError: 1,
	}
}

// Validate checks the settings a bake cannot run without.
func (c *Config) Validate() error {
	if c.Output.NavmeshDir == "" {
		return fmt.Errorf("%w: output.navmesh_dir is empty", ErrInvalidConfig)
	}
	if c.Output.HashStore == "" {
		return fmt.Errorf("%w: output.hash_store is empty", ErrInvalidConfig)
	}
	if c.Data.BlockDir == "" {
		return fmt.Errorf("%w: data.block_dir is empty", ErrInvalidConfig)
	}
	return c.Build.Validate()
}

// Validate checks the build parameters are in range.
func (b BuildConfig) Validate() error {
	switch {
	case b.CellSize <= 0:
		return fmt.Errorf("%w: build.cell_size must be positive", ErrInvalidConfig)
	case b.CellHeight <= 0:
		return fmt.Errorf("%w: build.cell_height must be positive", ErrInvalidConfig)
	case b.AgentHeight <= 0:
		return fmt.Errorf("%w: build.agent_height must be positive", ErrInvalidConfig)
	case b.AgentRadius < 0 || b.AgentMaxClimb < 0:
		return fmt.Errorf("%w: build.agent_radius and agent_max_climb must not be negative", ErrInvalidConfig)
	case b.AgentMaxSlope < 0 || b.AgentMaxSlope >= 90:
		return fmt.Errorf("%w: build.agent_max_slope must be in [0, 90)", ErrInvalidConfig)
	case b.VertsPerPoly < 3 || b.VertsPerPoly > 6:
		return fmt.Errorf("%w: build.verts_per_poly must be in [3, 6]", ErrInvalidConfig)
	case b.RegionMinSize < 0 || b.RegionMergeSize < 0:
		return fmt.Errorf("%w: build.region sizes must not be negative", ErrInvalidConfig)
	}
	return nil
}
