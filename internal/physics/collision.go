package physics

import (
	"github.com/go-gl/mathgl/mgl32"
	"voxel-terrain/internal/world"
)

// Collides reports whether a sphere of the given radius at pos overlaps
// solid terrain. Non-resident terrain never collides.
func Collides(pos mgl32.Vec3, radius float32, store *world.Store) bool {
	probes := [...]mgl32.Vec3{
		{0, 0, 0},
		{radius, 0, 0}, {-radius, 0, 0},
		{0, radius, 0}, {0, -radius, 0},
		{0, 0, radius}, {0, 0, -radius},
	}
	for _, off := range probes {
		if d, ok := DensityAt(store, pos.Add(off)); ok && d < 0 {
			return true
		}
	}
	return false
}

// Resolve moves from pos by delta one axis at a time, cancelling the
// components that would enter solid terrain.
func Resolve(pos, delta mgl32.Vec3, radius float32, store *world.Store) mgl32.Vec3 {
	for axis := 0; axis < 3; axis++ {
		if delta[axis] == 0 {
			continue
		}
		next := pos
		next[axis] += delta[axis]
		if !Collides(next, radius, store) {
			pos = next
		}
	}
	return pos
}
