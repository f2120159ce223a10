package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"voxel-terrain/internal/density"
	"voxel-terrain/internal/meshing"
	"voxel-terrain/internal/streaming"

	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration as read from YAML.
type Config struct {
	Terrain   TerrainConfig    `yaml:"terrain"`
	Streaming streaming.Config `yaml:"streaming"`
	Meshing   MeshingConfig    `yaml:"meshing"`
	Storage   StorageConfig    `yaml:"storage"`
	Viewer    ViewerConfig     `yaml:"viewer"`
}

// TerrainConfig selects a sampler preset; any field set next to it
// overrides the preset value.
type TerrainConfig struct {
	Preset         string `yaml:"preset"`
	density.Config `yaml:",inline"`
}

type MeshingConfig struct {
	SkirtDepth float32 `yaml:"skirt_depth"`
	MaxMeshes  int     `yaml:"max_meshes"`
}

// StorageConfig locates persistent state. Empty paths disable the feature.
type StorageConfig struct {
	EditLog  string `yaml:"edit_log"`
	Snapshot string `yaml:"snapshot"`
}

type ViewerConfig struct {
	Start        [3]float32 `yaml:"start"`
	MoveSpeed    float32    `yaml:"move_speed"`
	EditRadius   float32    `yaml:"edit_radius"`
	EditStrength float32    `yaml:"edit_strength"`
	StatsEvery   Duration   `yaml:"stats_every"`
}

// Duration reads "150ms"-style strings.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Default returns a configuration using the heightmap preset.
func Default() Config {
	cfg, _ := withPreset(density.PresetHeightmap)
	return cfg
}

func withPreset(name string) (Config, error) {
	terrain, err := density.PresetConfig(name)
	if err != nil {
		return Config{}, err
	}
	if name == "" {
		name = density.PresetHeightmap
	}
	return Config{
		Terrain:   TerrainConfig{Preset: name, Config: terrain},
		Streaming: streaming.DefaultConfig(),
		Meshing: MeshingConfig{
			SkirtDepth: meshing.DefaultSkirtDepth,
			MaxMeshes:  meshing.DefaultMaxMeshes,
		},
		Viewer: ViewerConfig{
			Start:        [3]float32{8, 80, 8},
			MoveSpeed:    24,
			EditRadius:   4,
			EditStrength: 3,
			StatsEvery:   Duration{2 * time.Second},
		},
	}, nil
}

// Load reads path over the defaults of the preset it names and validates
// the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse is Load without the file.
func Parse(data []byte) (Config, error) {
	var head struct {
		Terrain struct {
			Preset string `yaml:"preset"`
		} `yaml:"terrain"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg, err := withPreset(head.Terrain.Preset)
	if err != nil {
		return Config{}, fmt.Errorf("terrain.preset: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if err := c.Terrain.Config.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("terrain: %w", err))
	}
	if err := c.Streaming.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("streaming: %w", err))
	}
	if c.Meshing.SkirtDepth <= 0 {
		errs = append(errs, errors.New("meshing.skirt_depth must be positive"))
	}
	if c.Meshing.MaxMeshes > 0 && c.Meshing.MaxMeshes < c.Streaming.CoverageSize() {
		errs = append(errs, fmt.Errorf("meshing.max_meshes %d below coverage of %d chunks", c.Meshing.MaxMeshes, c.Streaming.CoverageSize()))
	}
	if c.Viewer.EditRadius <= 0 {
		errs = append(errs, errors.New("viewer.edit_radius must be positive"))
	}
	return errors.Join(errs...)
}

// MeshOptions returns the extractor options.
func (c Config) MeshOptions() meshing.Options {
	return meshing.Options{SkirtDepth: c.Meshing.SkirtDepth}
}

// Write stores c as YAML.
func (c Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
