// Package density evaluates the scalar field the terrain is extracted from.
// Negative density is solid, zero and positive density is empty.
package density

import (
	"log"
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// Sampler returns the density at a world-space point. Implementations must be
// pure and safe for concurrent use.
type Sampler interface {
	Sample(p mgl32.Vec3) float32
	Range() Range
}

// Terrain is the configurable noise-stack sampler.
type Terrain struct {
	cfg    Config
	layers []Layer
}

// New builds a sampler from cfg. The config is copied; later changes to the
// caller's value do not affect the sampler.
func New(cfg Config) (*Terrain, error) {
	if cfg.Range == (Range{}) {
		cfg.Range = DefaultRange
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	layers := make([]Layer, len(cfg.Layers))
	for i, l := range cfg.Layers {
		layers[i] = l.withDefaults()
	}
	cfg.Layers = layers
	return &Terrain{cfg: cfg, layers: layers}, nil
}

// Config returns a copy of the sampler configuration.
func (t *Terrain) Config() Config {
	c := t.cfg
	c.Layers = append([]Layer(nil), t.layers...)
	return c
}

func (t *Terrain) Range() Range { return t.cfg.Range }

// Sample evaluates the noise stack. The result is the signed vertical
// distance to the heightmap surface, further displaced by volume layers.
func (t *Terrain) Sample(p mgl32.Vec3) float32 {
	x, y, z := float64(p[0]), float64(p[1]), float64(p[2])

	if w := t.cfg.Warp; w.Amplitude > 0 && w.Frequency > 0 {
		s := t.cfg.Seed
		wx := fbm3(x*w.Frequency, y*w.Frequency, z*w.Frequency, s+1013, 2, 0.5, 2)
		wy := fbm3(x*w.Frequency, y*w.Frequency, z*w.Frequency, s+2029, 2, 0.5, 2)
		wz := fbm3(x*w.Frequency, y*w.Frequency, z*w.Frequency, s+3037, 2, 0.5, 2)
		x += wx * w.Amplitude
		y += wy * w.Amplitude
		z += wz * w.Amplitude
	}

	surface := t.cfg.BaseHeight + t.cfg.Offset
	volume := 0.0
	for i, l := range t.layers {
		seed := t.cfg.Seed + int64(i)*7919
		switch l.Mode {
		case ModeHeightmap:
			surface += l.Amplitude * fbm2(x*l.Frequency, z*l.Frequency, seed, l.Octaves, l.Persistence, l.Lacunarity)
		case ModeVolume:
			volume += l.Amplitude * fbm3(x*l.Frequency, y*l.Frequency, z*l.Frequency, seed, l.Octaves, l.Persistence, l.Lacunarity)
		}
	}
	return float32(y - surface + volume)
}

// Flat is a horizontal ground plane: density = y - Height.
type Flat struct {
	Height float32
}

func (f Flat) Sample(p mgl32.Vec3) float32 { return p[1] - f.Height }
func (f Flat) Range() Range                { return DefaultRange }

// Func adapts a plain function to the Sampler interface.
type Func struct {
	F      func(p mgl32.Vec3) float32
	Bounds Range
}

func (f Func) Sample(p mgl32.Vec3) float32 { return f.F(p) }

func (f Func) Range() Range {
	if f.Bounds == (Range{}) {
		return DefaultRange
	}
	return f.Bounds
}

// Safe guards against samplers that return NaN or infinities. Non-finite
// values become the empty end of the range and are logged; the first few
// occurrences are logged in full, later ones only counted.
type Safe struct {
	inner    Sampler
	logger   *log.Logger
	failures atomic.Uint64
}

const safeLogLimit = 8

// NewSafe wraps s. A nil logger uses the standard logger.
func NewSafe(s Sampler, logger *log.Logger) *Safe {
	if logger == nil {
		logger = log.Default()
	}
	return &Safe{inner: s, logger: logger}
}

func (s *Safe) Range() Range { return s.inner.Range() }

func (s *Safe) Sample(p mgl32.Vec3) float32 {
	d := s.inner.Sample(p)
	if !math.IsNaN(float64(d)) && !math.IsInf(float64(d), 0) {
		return d
	}
	if n := s.failures.Add(1); n <= safeLogLimit {
		s.logger.Printf("density: non-finite sample %v at %v, using %v", d, p, s.inner.Range().Max)
	}
	return s.inner.Range().Max
}

// Failures returns how many non-finite samples were replaced.
func (s *Safe) Failures() uint64 { return s.failures.Load() }
