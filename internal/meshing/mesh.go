package meshing

import (
	"voxel-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// VertexStride is the number of float32 per interleaved vertex
// (pos.xyz + normal.xyz + one weight per material).
const VertexStride = 6 + world.MaterialCount

// Vertex is one extracted surface vertex in world space.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Weights  [world.MaterialCount]float32
}

// Mesh is the triangle surface of one chunk at one LOD.
type Mesh struct {
	Coord    world.ChunkCoord
	LOD      int
	Vertices []Vertex
	Indices  []uint32
	// SkirtStart is the index offset where skirt triangles begin; equal to
	// len(Indices) when the mesh has no skirts.
	SkirtStart int
	// Seams is the seam set the skirts were built for.
	Seams Seams
}

// TriangleCount returns the number of triangles including skirts.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Empty reports whether the mesh has no geometry.
func (m *Mesh) Empty() bool {
	return len(m.Indices) == 0
}

// SurfaceIndices returns the index range without skirts.
func (m *Mesh) SurfaceIndices() []uint32 {
	return m.Indices[:m.SkirtStart]
}

// SkirtIndices returns the index range holding skirt triangles.
func (m *Mesh) SkirtIndices() []uint32 {
	return m.Indices[m.SkirtStart:]
}

// Interleaved packs the vertices for upload: pos, normal, weights.
func (m *Mesh) Interleaved() []float32 {
	out := make([]float32, 0, len(m.Vertices)*VertexStride)
	for _, v := range m.Vertices {
		out = append(out, v.Position[0], v.Position[1], v.Position[2], v.Normal[0], v.Normal[1], v.Normal[2])
		out = append(out, v.Weights[:]...)
	}
	return out
}

// SizeBytes estimates the memory held by the mesh buffers.
func (m *Mesh) SizeBytes() int {
	return len(m.Vertices)*VertexStride*4 + len(m.Indices)*4
}

// Sink is the renderer boundary. Upload receives every committed mesh;
// Remove is called when a mesh is evicted or superseded. Both are called on
// the coordinating goroutine.
type Sink interface {
	Upload(m *Mesh)
	Remove(coord world.ChunkCoord, lod int)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Upload(*Mesh)                 {}
func (NopSink) Remove(world.ChunkCoord, int) {}
