package density

import (
	"errors"
	"fmt"
)

// LayerMode selects how a noise layer contributes to the density field.
type LayerMode string

const (
	// ModeHeightmap evaluates 2D noise over X/Z and raises the surface.
	ModeHeightmap LayerMode = "heightmap"
	// ModeVolume evaluates 3D noise and carves overhangs and caves.
	ModeVolume LayerMode = "volume"
)

// Layer is one entry of the noise stack.
type Layer struct {
	Mode        LayerMode `yaml:"mode"`
	Frequency   float64   `yaml:"frequency"`
	Amplitude   float64   `yaml:"amplitude"`
	Octaves     int       `yaml:"octaves"`
	Persistence float64   `yaml:"persistence"`
	Lacunarity  float64   `yaml:"lacunarity"`
}

// Warp displaces the sample position by low-frequency 3D noise before the
// layers are evaluated.
type Warp struct {
	Frequency float64 `yaml:"frequency"`
	Amplitude float64 `yaml:"amplitude"`
}

// Range bounds densities. Generated samples and edits are clamped to it.
type Range struct {
	Min float32 `yaml:"min"`
	Max float32 `yaml:"max"`
}

// Clamp limits d to the range.
func (r Range) Clamp(d float32) float32 {
	if d < r.Min {
		return r.Min
	}
	if d > r.Max {
		return r.Max
	}
	return d
}

// DefaultRange is used by samplers that have no configured range.
var DefaultRange = Range{Min: -8, Max: 8}

// Config describes the noise graph. It is copied into a sampler at
// construction and never mutated afterwards.
type Config struct {
	Seed       int64   `yaml:"seed"`
	BaseHeight float64 `yaml:"base_height"`
	Offset     float64 `yaml:"offset"`
	Layers     []Layer `yaml:"layers"`
	Warp       Warp    `yaml:"warp"`
	Range      Range   `yaml:"range"`
}

// Preset names accepted by PresetConfig.
const (
	PresetHeightmap = "heightmap"
	PresetCaves     = "caves"
)

// PresetConfig returns a named configuration.
//
// "heightmap" reproduces rolling fBm hills over a ground plane: a single 2D
// layer (3 octaves, frequency 0.01, scale 32) lifting a plane at half of a
// 64 voxel terrain height.
// "caves" adds domain warp and a 3D layer on top for overhangs.
func PresetConfig(name string) (Config, error) {
	switch name {
	case PresetHeightmap, "":
		return Config{
			Seed:       123,
			BaseHeight: 32,
			Layers: []Layer{
				{Mode: ModeHeightmap, Frequency: 0.01, Amplitude: 32, Octaves: 3, Persistence: 0.5, Lacunarity: 2},
			},
			Range: DefaultRange,
		}, nil
	case PresetCaves:
		return Config{
			Seed:       123,
			BaseHeight: 32,
			Layers: []Layer{
				{Mode: ModeHeightmap, Frequency: 0.01, Amplitude: 32, Octaves: 3, Persistence: 0.5, Lacunarity: 2},
				{Mode: ModeVolume, Frequency: 0.04, Amplitude: 6, Octaves: 2, Persistence: 0.5, Lacunarity: 2},
			},
			Warp:  Warp{Frequency: 0.02, Amplitude: 4},
			Range: DefaultRange,
		}, nil
	}
	return Config{}, fmt.Errorf("density: unknown preset %q", name)
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	var errs []error
	if c.Range.Min >= c.Range.Max {
		errs = append(errs, fmt.Errorf("range: min %v must be below max %v", c.Range.Min, c.Range.Max))
	}
	if c.Range.Min >= 0 || c.Range.Max <= 0 {
		errs = append(errs, errors.New("range: must straddle zero"))
	}
	for i, l := range c.Layers {
		if l.Mode != ModeHeightmap && l.Mode != ModeVolume {
			errs = append(errs, fmt.Errorf("layers[%d]: unknown mode %q", i, l.Mode))
		}
		if l.Octaves < 1 || l.Octaves > 16 {
			errs = append(errs, fmt.Errorf("layers[%d]: octaves %d out of [1,16]", i, l.Octaves))
		}
		if l.Frequency <= 0 {
			errs = append(errs, fmt.Errorf("layers[%d]: frequency must be positive", i))
		}
	}
	if c.Warp.Amplitude < 0 || c.Warp.Frequency < 0 {
		errs = append(errs, errors.New("warp: frequency and amplitude must not be negative"))
	}
	return errors.Join(errs...)
}

func (l Layer) withDefaults() Layer {
	if l.Persistence == 0 {
		l.Persistence = 0.5
	}
	if l.Lacunarity == 0 {
		l.Lacunarity = 2
	}
	if l.Octaves == 0 {
		l.Octaves = 1
	}
	return l
}
