package world

import (
	"fmt"
	"math"

	"voxel-terrain/internal/density"

	"github.com/go-gl/mathgl/mgl32"
)

// EditMode selects whether an edit removes or adds material.
type EditMode uint8

const (
	// Carve pushes density towards the empty end of the range.
	Carve EditMode = iota
	// Build pushes density towards the solid end of the range.
	Build
)

func (m EditMode) String() string {
	if m == Build {
		return "build"
	}
	return "carve"
}

// ParseEditMode accepts "carve" or "build".
func ParseEditMode(s string) (EditMode, error) {
	switch s {
	case "carve":
		return Carve, nil
	case "build":
		return Build, nil
	}
	return 0, fmt.Errorf("unknown edit mode %q", s)
}

// Edit is a spherical density modification in world space.
type Edit struct {
	Center   mgl32.Vec3
	Radius   float32
	Strength float32
	Mode     EditMode
}

// Bounds returns the inclusive integer sample box touched by the edit.
func (e Edit) Bounds() (lo, hi [3]int) {
	for i := 0; i < 3; i++ {
		lo[i] = int(floor32(e.Center[i] - e.Radius))
		hi[i] = int(ceil32(e.Center[i] + e.Radius))
	}
	return lo, hi
}

// Falloff returns the edit weight at distance dist from the centre:
// 1 at the centre, 0 at and beyond the radius, smoothstep in between.
func (e Edit) Falloff(dist float32) float32 {
	if e.Radius <= 0 || dist >= e.Radius {
		return 0
	}
	t := 1 - dist/e.Radius
	return t * t * (3 - 2*t)
}

// Apply modifies a single sample at world position p. The result is clamped
// to r, so repeated edits saturate instead of accumulating.
func (e Edit) Apply(s Sample, p mgl32.Vec3, r density.Range) (Sample, bool) {
	w := e.Falloff(p.Sub(e.Center).Len())
	if w <= 0 || e.Strength <= 0 {
		return s, false
	}
	delta := e.Strength * w
	d := s.Density
	if e.Mode == Carve {
		d = r.Clamp(d + delta)
	} else {
		d = r.Clamp(d - delta)
	}
	if d == s.Density {
		return s, false
	}
	out := Sample{Density: d, Material: s.Material}
	switch {
	case d >= 0:
		out.Material = MaterialAir
	case s.Material == MaterialAir:
		out.Material = MaterialDirt
	}
	return out, true
}

// IntersectsChunk reports whether the edit sphere reaches any sample of the
// chunk box grown by pad samples on every side.
func (e Edit) IntersectsChunk(c ChunkCoord, pad int) bool {
	lo := c.Origin()
	var distSq float32
	for i := 0; i < 3; i++ {
		minV := lo[i] - float32(pad)
		maxV := lo[i] + float32(ChunkSize-1+pad)
		v := e.Center[i]
		switch {
		case v < minV:
			distSq += (minV - v) * (minV - v)
		case v > maxV:
			distSq += (v - maxV) * (v - maxV)
		}
	}
	return distSq < e.Radius*e.Radius
}

// ApplyEdit applies e to every sample of c within reach. It returns whether
// any sample changed.
func ApplyEdit(c *Chunk, e Edit, r density.Range) bool {
	if !e.IntersectsChunk(c.Coord, 0) {
		return false
	}
	origin := [3]int{c.Coord.X * ChunkSize, c.Coord.Y * ChunkSize, c.Coord.Z * ChunkSize}
	bmin, bmax := e.Bounds()
	var lo, hi [3]int
	for i := 0; i < 3; i++ {
		lo[i] = max(bmin[i]-origin[i], 0)
		hi[i] = min(bmax[i]-origin[i], ChunkSize-1)
	}
	changed := false
	for y := lo[1]; y <= hi[1]; y++ {
		for z := lo[2]; z <= hi[2]; z++ {
			for x := lo[0]; x <= hi[0]; x++ {
				p := mgl32.Vec3{float32(origin[0] + x), float32(origin[1] + y), float32(origin[2] + z)}
				i := index(x, y, z)
				if s, ok := e.Apply(c.samples[i], p, r); ok {
					c.samples[i] = s
					changed = true
				}
			}
		}
	}
	if changed {
		c.Version++
	}
	return changed
}

func floor32(v float32) float32 { return float32(math.Floor(float64(v))) }
func ceil32(v float32) float32  { return float32(math.Ceil(float64(v))) }
