package world

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// ChunkSize is the number of samples along each axis of a chunk.
	ChunkSize   = 16
	ChunkVolume = ChunkSize * ChunkSize * ChunkSize
)

// ChunkCoord identifies a chunk in the cubic chunk grid.
type ChunkCoord struct {
	X, Y, Z int
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Add returns c offset by d.
func (c ChunkCoord) Add(d ChunkCoord) ChunkCoord {
	return ChunkCoord{X: c.X + d.X, Y: c.Y + d.Y, Z: c.Z + d.Z}
}

// Origin returns the world-space position of the chunk's sample (0,0,0).
func (c ChunkCoord) Origin() mgl32.Vec3 {
	return mgl32.Vec3{float32(c.X * ChunkSize), float32(c.Y * ChunkSize), float32(c.Z * ChunkSize)}
}

// Center returns the world-space centre of the chunk.
func (c ChunkCoord) Center() mgl32.Vec3 {
	h := float32(ChunkSize) / 2
	return c.Origin().Add(mgl32.Vec3{h, h, h})
}

// DistSq returns the squared chunk-grid distance between c and o.
func (c ChunkCoord) DistSq(o ChunkCoord) int {
	dx, dy, dz := c.X-o.X, c.Y-o.Y, c.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

// ChunkAt returns the coordinate of the chunk containing world position p.
func ChunkAt(p mgl32.Vec3) ChunkCoord {
	return ChunkCoord{
		X: floorDiv(int(math.Floor(float64(p[0]))), ChunkSize),
		Y: floorDiv(int(math.Floor(float64(p[1]))), ChunkSize),
		Z: floorDiv(int(math.Floor(float64(p[2]))), ChunkSize),
	}
}

// ChunkOfSample returns the chunk holding the integer world sample (x,y,z)
// and the local offset of that sample inside it.
func ChunkOfSample(x, y, z int) (ChunkCoord, int, int, int) {
	c := ChunkCoord{X: floorDiv(x, ChunkSize), Y: floorDiv(y, ChunkSize), Z: floorDiv(z, ChunkSize)}
	return c, mod(x, ChunkSize), mod(y, ChunkSize), mod(z, ChunkSize)
}

// Face indexes the six face-adjacent directions.
type Face int

const (
	FaceNegX Face = iota
	FacePosX
	FaceNegY
	FacePosY
	FaceNegZ
	FacePosZ
)

// FaceOffsets lists the unit offset of each face, indexed by Face.
var FaceOffsets = [6]ChunkCoord{
	{X: -1}, {X: 1}, {Y: -1}, {Y: 1}, {Z: -1}, {Z: 1},
}

// NeighborOffsets lists the 26 offsets around a chunk in (dx,dy,dz)
// lexicographic order, skipping (0,0,0).
var NeighborOffsets = func() [26]ChunkCoord {
	var out [26]ChunkCoord
	i := 0
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				out[i] = ChunkCoord{X: dx, Y: dy, Z: dz}
				i++
			}
		}
	}
	return out
}()

// NeighborIndex returns the position of offset d in NeighborOffsets, or -1.
func NeighborIndex(d ChunkCoord) int {
	if d.X < -1 || d.X > 1 || d.Y < -1 || d.Y > 1 || d.Z < -1 || d.Z > 1 {
		return -1
	}
	i := (d.X+1)*9 + (d.Y+1)*3 + (d.Z + 1)
	if i == 13 {
		return -1
	}
	if i > 13 {
		i--
	}
	return i
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
