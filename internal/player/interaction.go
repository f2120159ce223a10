package player

import (
	"voxel-terrain/internal/edit"
	"voxel-terrain/internal/physics"

	"github.com/go-gl/mathgl/mgl32"
)

// Terrain is what the player edits.
type Terrain interface {
	Raycast(origin, dir mgl32.Vec3, maxDist float32) physics.RaycastResult
	ApplyEdit(e edit.Edit) (edit.Result, error)
}

// Target returns the surface point under the crosshair.
func (p *Player) Target(t Terrain) physics.RaycastResult {
	return t.Raycast(p.Position, p.GetFrontVector(), physics.MaxReachDistance)
}

// Interact applies the brush at the targeted surface. Building centres the
// brush half a radius outside the surface so material grows towards the
// viewer. It reports false when nothing is targeted.
func (p *Player) Interact(t Terrain, mode edit.Mode) (edit.Result, bool, error) {
	hit := p.Target(t)
	if !hit.Hit {
		return edit.Result{}, false, nil
	}
	center := hit.Position
	if mode == edit.Build {
		center = center.Add(hit.Normal.Mul(p.BrushRadius * 0.5))
	}
	res, err := t.ApplyEdit(edit.Sphere(center, p.BrushRadius, p.BrushStrength, mode))
	return res, true, err
}
