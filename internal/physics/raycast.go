package physics

import (
	"math"

	"voxel-terrain/internal/profiling"
	"voxel-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	MinReachDistance = 0.1
	MaxReachDistance = 64.0
)

const stepSize = float32(0.25)

// RaycastResult stores the result of a raycast against the density field.
type RaycastResult struct {
	// Position is the interpolated surface crossing.
	Position mgl32.Vec3
	// Normal points out of the solid at Position.
	Normal   mgl32.Vec3
	Distance float32
	Hit      bool
}

// DensityAt trilinearly interpolates resident samples around p. It reports
// false when any of the eight samples is not resident.
func DensityAt(store *world.Store, p mgl32.Vec3) (float32, bool) {
	fx, fy, fz := math.Floor(float64(p[0])), math.Floor(float64(p[1])), math.Floor(float64(p[2]))
	x0, y0, z0 := int(fx), int(fy), int(fz)
	tx, ty, tz := p[0]-float32(fx), p[1]-float32(fy), p[2]-float32(fz)

	var c [8]float32
	for i := 0; i < 8; i++ {
		s, ok := store.SampleAt(x0+i&1, y0+(i>>1)&1, z0+(i>>2)&1)
		if !ok {
			return 0, false
		}
		c[i] = s.Density
	}
	x00 := lerp(c[0], c[1], tx)
	x10 := lerp(c[2], c[3], tx)
	x01 := lerp(c[4], c[5], tx)
	x11 := lerp(c[6], c[7], tx)
	return lerp(lerp(x00, x10, ty), lerp(x01, x11, ty), tz), true
}

// Raycast marches from start along direction and returns the first place the
// density turns solid. The march stops at non-resident terrain.
func Raycast(start mgl32.Vec3, direction mgl32.Vec3, minDist, maxDist float32, store *world.Store) RaycastResult {
	defer profiling.Track("physics.Raycast")()
	result := RaycastResult{Hit: false}
	if direction.Len() == 0 {
		return result
	}
	direction = direction.Normalize()
	steps := int(maxDist / stepSize)

	prevDist := minDist
	prev, ok := DensityAt(store, start.Add(direction.Mul(minDist)))
	if !ok || prev < 0 {
		return result
	}
	for i := 1; i <= steps; i++ {
		dist := minDist + float32(i)*stepSize
		if dist > maxDist {
			break
		}
		d, ok := DensityAt(store, start.Add(direction.Mul(dist)))
		if !ok {
			return result
		}
		if d < 0 {
			t := prev / (prev - d)
			hit := prevDist + t*(dist-prevDist)
			result.Position = start.Add(direction.Mul(hit))
			result.Normal = surfaceNormal(store, result.Position)
			result.Distance = hit
			result.Hit = true
			return result
		}
		prev, prevDist = d, dist
	}
	return result
}

// surfaceNormal is the normalised density gradient at p.
func surfaceNormal(store *world.Store, p mgl32.Vec3) mgl32.Vec3 {
	const h = 0.5
	var g mgl32.Vec3
	for axis := 0; axis < 3; axis++ {
		var off mgl32.Vec3
		off[axis] = h
		a, okA := DensityAt(store, p.Add(off))
		b, okB := DensityAt(store, p.Sub(off))
		if okA && okB {
			g[axis] = a - b
		}
	}
	if g.Len() == 0 {
		return mgl32.Vec3{0, 1, 0}
	}
	return g.Normalize()
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }
