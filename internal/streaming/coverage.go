package streaming

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"slices"

	"voxel-terrain/internal/meshing"
	"voxel-terrain/internal/world"
)

// Config controls which chunks are kept around the viewer and how work is
// spread over workers. Distances are in chunks unless noted.
type Config struct {
	Radius         int `yaml:"radius"`
	VerticalRadius int `yaml:"vertical_radius"`
	MinChunkY      int `yaml:"min_chunk_y"`
	MaxChunkY      int `yaml:"max_chunk_y"`
	// Hysteresis is the distance in world units the viewer must travel
	// before coverage is recomputed.
	Hysteresis   float32 `yaml:"hysteresis"`
	UnloadMargin int     `yaml:"unload_margin"`
	// LODDistances[k] is the largest distance still meshed at LOD k; chunks
	// beyond the last entry use the next level, up to meshing.MaxLOD.
	LODDistances      []float32 `yaml:"lod_distances"`
	Workers           int       `yaml:"workers"`
	MaxResidentChunks int       `yaml:"max_resident_chunks"`
}

// DefaultConfig returns streaming defaults sized to the machine.
func DefaultConfig() Config {
	return Config{
		Radius:         6,
		VerticalRadius: 3,
		MinChunkY:      -4,
		MaxChunkY:      8,
		Hysteresis:     8,
		UnloadMargin:   2,
		LODDistances:   []float32{3, 5, 8, 12},
		Workers:        max(runtime.NumCPU()-1, 1),
	}
}

// Validate reports every problem with c.
func (c Config) Validate() error {
	var errs []error
	if c.Radius < 0 || c.VerticalRadius < 0 {
		errs = append(errs, fmt.Errorf("radius %d/%d must not be negative", c.Radius, c.VerticalRadius))
	}
	if c.MinChunkY > c.MaxChunkY {
		errs = append(errs, fmt.Errorf("min_chunk_y %d above max_chunk_y %d", c.MinChunkY, c.MaxChunkY))
	}
	if c.Hysteresis < 0 {
		errs = append(errs, errors.New("hysteresis must not be negative"))
	}
	if c.UnloadMargin < 0 {
		errs = append(errs, errors.New("unload_margin must not be negative"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers %d must be at least 1", c.Workers))
	}
	if !slices.IsSorted(c.LODDistances) {
		errs = append(errs, errors.New("lod_distances must be ascending"))
	}
	if len(c.LODDistances) > meshing.MaxLOD {
		errs = append(errs, fmt.Errorf("at most %d lod_distances", meshing.MaxLOD))
	}
	if c.MaxResidentChunks > 0 {
		if need := c.CoverageSize(); c.MaxResidentChunks < need {
			errs = append(errs, fmt.Errorf("max_resident_chunks %d below coverage of %d chunks", c.MaxResidentChunks, need))
		}
	}
	return errors.Join(errs...)
}

// CoverageSize returns the largest number of chunks wanted at once.
func (c Config) CoverageSize() int {
	return len(c.Required(world.ChunkCoord{Y: (c.MinChunkY + c.MaxChunkY) / 2}))
}

// Wants reports whether coord lies in the required set around center.
func (c Config) Wants(center, coord world.ChunkCoord) bool {
	return c.within(center, coord, c.Radius, c.VerticalRadius)
}

// Retains reports whether coord may stay resident; chunks past the unload
// margin are dropped.
func (c Config) Retains(center, coord world.ChunkCoord) bool {
	return c.within(center, coord, c.Radius+c.UnloadMargin, c.VerticalRadius+c.UnloadMargin)
}

func (c Config) within(center, coord world.ChunkCoord, r, vr int) bool {
	if coord.Y < c.MinChunkY || coord.Y > c.MaxChunkY {
		return false
	}
	dx, dz := coord.X-center.X, coord.Z-center.Z
	dy := coord.Y - center.Y
	return dx*dx+dz*dz <= r*r && dy >= -vr && dy <= vr
}

// LODFor picks the level of detail for coord by its distance to center.
func (c Config) LODFor(center, coord world.ChunkCoord) int {
	d := float32(math.Sqrt(float64(center.DistSq(coord))))
	lod := 0
	for _, limit := range c.LODDistances {
		if d > limit {
			lod++
		}
	}
	return meshing.ClampLOD(lod)
}

// Required lists the wanted chunks around center nearest first.
func (c Config) Required(center world.ChunkCoord) []world.ChunkCoord {
	var out []world.ChunkCoord
	for dy := -c.VerticalRadius; dy <= c.VerticalRadius; dy++ {
		for dz := -c.Radius; dz <= c.Radius; dz++ {
			for dx := -c.Radius; dx <= c.Radius; dx++ {
				coord := center.Add(world.ChunkCoord{X: dx, Y: dy, Z: dz})
				if c.Wants(center, coord) {
					out = append(out, coord)
				}
			}
		}
	}
	slices.SortStableFunc(out, func(a, b world.ChunkCoord) int {
		return center.DistSq(a) - center.DistSq(b)
	})
	return out
}
