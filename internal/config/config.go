// Package config handles voxtool configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/voxelizer/pkg/voxel"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all voxtool settings.
type Config struct {
	Voxelizer VoxelizerConfig `yaml:"voxelizer" toml:"voxelizer"`
	Mesher    MesherConfig    `yaml:"mesher" toml:"mesher"`
	Output    OutputConfig    `yaml:"output" toml:"output"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// VoxelizerConfig holds rasterization settings.
type VoxelizerConfig struct {
	Resolution int    `yaml:"resolution" toml:"resolution"` // voxels along the longest axis
	Mode       string `yaml:"mode" toml:"mode"`             // "volume" or "surface"
	Pow2       bool   `yaml:"pow2" toml:"pow2"`
	SampleUV   bool   `yaml:"sample_uv" toml:"sample_uv"`
	Workers    int    `yaml:"workers" toml:"workers"` // 0 = GOMAXPROCS
	ShapeCells int    `yaml:"shape_cells" toml:"shape_cells"`
}

// MesherConfig holds re-meshing settings.
type MesherConfig struct {
	UseUV      bool `yaml:"use_uv" toml:"use_uv"`
	RSegments  int  `yaml:"r_segments" toml:"r_segments"`
	USegments  int  `yaml:"u_segments" toml:"u_segments"`
	CullHidden bool `yaml:"cull_hidden" toml:"cull_hidden"`
}

// OutputConfig holds output file settings.
type OutputConfig struct {
	IndentJSON  bool   `yaml:"indent_json" toml:"indent_json"`
	Overwrite   bool   `yaml:"overwrite" toml:"overwrite"`
	MetricsFile string `yaml:"metrics_file" toml:"metrics_file"` // Prometheus textfile, empty = off
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
	JSON    bool   `yaml:"json" toml:"json"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Voxelizer: VoxelizerConfig{
			Resolution: 32,
			Mode:       voxel.ModeVolume.String(),
			Pow2:       false,
			SampleUV:   false,
			Workers:    0,
			ShapeCells: 64,
		},
		Mesher: MesherConfig{
			UseUV:      false,
			RSegments:  2,
			USegments:  2,
			CullHidden: false,
		},
		Output: OutputConfig{
			IndentJSON:  false,
			Overwrite:   true,
			MetricsFile: "",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports the first setting no command could run with.
func (c *Config) Validate() error {
	v := c.Voxelizer
	if v.Resolution <= 0 {
		return fmt.Errorf("%w: resolution must be positive, got %d", ErrInvalidConfig, v.Resolution)
	}
	if _, err := voxel.ParseMode(v.Mode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if v.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, v.Workers)
	}
	if v.ShapeCells < 0 {
		return fmt.Errorf("%w: shape_cells must not be negative, got %d", ErrInvalidConfig, v.ShapeCells)
	}
	m := c.Mesher
	if m.RSegments < 0 || m.USegments < 0 || m.RSegments == 1 || m.USegments == 1 {
		return fmt.Errorf("%w: face segments must be 0 or at least 2, got %dx%d",
			ErrInvalidConfig, m.RSegments, m.USegments)
	}
	return nil
}
