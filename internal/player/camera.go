package player

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const mouseSensitivity = 0.1

// HandleMouseMovement turns the camera from cursor positions.
func (p *Player) HandleMouseMovement(xpos, ypos float64) {
	if p.FirstMouse {
		p.LastMouseX = xpos
		p.LastMouseY = ypos
		p.FirstMouse = false
		return
	}

	xoffset := (xpos - p.LastMouseX) * mouseSensitivity
	yoffset := (p.LastMouseY - ypos) * mouseSensitivity
	p.LastMouseX = xpos
	p.LastMouseY = ypos

	p.CamYaw = math.Mod(p.CamYaw+xoffset, 360)
	p.CamPitch = max(min(p.CamPitch+yoffset, 89), -89)
}

func (p *Player) GetFrontVector() mgl32.Vec3 {
	y := mgl32.DegToRad(float32(p.CamYaw))
	pt := mgl32.DegToRad(float32(p.CamPitch))
	fx := float32(math.Cos(float64(y)) * math.Cos(float64(pt)))
	fy := float32(math.Sin(float64(pt)))
	fz := float32(math.Sin(float64(y)) * math.Cos(float64(pt)))
	return mgl32.Vec3{fx, fy, fz}.Normalize()
}

func (p *Player) GetViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(p.Position, p.Position.Add(p.GetFrontVector()), mgl32.Vec3{0, 1, 0})
}
