package player

import (
	"math"

	"voxel-terrain/internal/physics"
	"voxel-terrain/internal/profiling"
	"voxel-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// Radius of the collision sphere around the eye.
	Radius = 0.4

	DefaultMoveSpeed = 24.0
	SprintMultiplier = 3.0
	// Responsiveness of velocity towards the wished direction, per second.
	Acceleration = 10.0

	MinBrushRadius = 1.0
	MaxBrushRadius = 16.0
)

// Controls is the movement input of one frame.
type Controls struct {
	Forward, Backward bool
	Left, Right       bool
	Up, Down          bool
	Sprint            bool
}

// Player is a free-flying viewer with an edit brush.
type Player struct {
	Position mgl32.Vec3
	Velocity mgl32.Vec3

	CamYaw     float64
	CamPitch   float64
	LastMouseX float64
	LastMouseY float64
	FirstMouse bool

	MoveSpeed float32
	// Collide keeps the viewer out of solid terrain.
	Collide bool

	BrushRadius   float32
	BrushStrength float32
}

// New places a player at pos looking along +X.
func New(pos mgl32.Vec3, moveSpeed, brushRadius, brushStrength float32) *Player {
	if moveSpeed <= 0 {
		moveSpeed = DefaultMoveSpeed
	}
	return &Player{
		Position:      pos,
		FirstMouse:    true,
		MoveSpeed:     moveSpeed,
		Collide:       true,
		BrushRadius:   clampBrush(brushRadius),
		BrushStrength: brushStrength,
	}
}

// Update integrates one frame of movement. With Collide set, motion into
// resident solid terrain is cancelled per axis.
func (p *Player) Update(dt float64, c Controls, store *world.Store) {
	defer profiling.Track("player.Update")()

	target := p.wishDirection(c).Mul(p.MoveSpeed)
	if c.Sprint {
		target = target.Mul(SprintMultiplier)
	}
	factor := float32(1 - math.Exp(-Acceleration*dt))
	p.Velocity = p.Velocity.Add(target.Sub(p.Velocity).Mul(factor))

	delta := p.Velocity.Mul(float32(dt))
	if p.Collide && store != nil {
		p.Position = physics.Resolve(p.Position, delta, Radius, store)
		return
	}
	p.Position = p.Position.Add(delta)
}

// wishDirection is the normalised movement direction: horizontal relative
// to the yaw, vertical along world Y.
func (p *Player) wishDirection(c Controls) mgl32.Vec3 {
	yaw := mgl32.DegToRad(float32(p.CamYaw))
	forward := mgl32.Vec3{float32(math.Cos(float64(yaw))), 0, float32(math.Sin(float64(yaw)))}
	right := mgl32.Vec3{-forward.Z(), 0, forward.X()}

	var dir mgl32.Vec3
	if c.Forward {
		dir = dir.Add(forward)
	}
	if c.Backward {
		dir = dir.Sub(forward)
	}
	if c.Right {
		dir = dir.Add(right)
	}
	if c.Left {
		dir = dir.Sub(right)
	}
	if c.Up {
		dir[1]++
	}
	if c.Down {
		dir[1]--
	}
	if dir.Len() == 0 {
		return dir
	}
	return dir.Normalize()
}

// AdjustBrush grows or shrinks the edit radius.
func (p *Player) AdjustBrush(delta float32) {
	p.BrushRadius = clampBrush(p.BrushRadius + delta)
}

func clampBrush(r float32) float32 {
	return mgl32.Clamp(r, MinBrushRadius, MaxBrushRadius)
}
