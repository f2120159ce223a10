package graphics

import (
	"voxel-terrain/internal/meshing"
	"voxel-terrain/internal/profiling"
	"voxel-terrain/internal/world"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// MaterialColors are the base colours blended by vertex material weights,
// indexed by world.Material.
var MaterialColors = [world.MaterialCount]mgl32.Vec3{
	world.MaterialAir:   {0.8, 0.8, 0.8},
	world.MaterialRock:  {0.45, 0.43, 0.42},
	world.MaterialDirt:  {0.45, 0.32, 0.2},
	world.MaterialGrass: {0.3, 0.55, 0.22},
}

type gpuMesh struct {
	lod        int
	vao        uint32
	vbo        uint32
	ebo        uint32
	indexCount int32
	lo, hi     mgl32.Vec3
}

// TerrainRenderer owns the GPU buffers of every shown chunk mesh. It is the
// meshing.Sink of the viewer and must be used on the GL thread.
type TerrainRenderer struct {
	shader    *Shader
	meshes    map[world.ChunkCoord]*gpuMesh
	Wireframe bool
	// OnDraw is told which coordinates were drawn this frame.
	OnDraw func(coord world.ChunkCoord)

	drawn, culled int
}

// NewTerrainRenderer compiles the terrain shader.
func NewTerrainRenderer() (*TerrainRenderer, error) {
	shader, err := NewShader("shaders/terrain.vert", "shaders/terrain.frag")
	if err != nil {
		return nil, err
	}
	shader.Use()
	shader.SetVector3Array("materialColors", MaterialColors[:])
	shader.SetVector3("lightDir", mgl32.Vec3{-0.4, -1, -0.3}.Normalize())
	shader.SetFloat("ambient", 0.35)
	return &TerrainRenderer{
		shader: shader,
		meshes: make(map[world.ChunkCoord]*gpuMesh),
	}, nil
}

// Upload replaces the buffers shown for m.Coord.
func (r *TerrainRenderer) Upload(m *meshing.Mesh) {
	defer profiling.Track("renderer.Upload")()
	r.release(m.Coord)
	if m.Empty() {
		return
	}

	g := &gpuMesh{lod: m.LOD, indexCount: int32(len(m.Indices))}
	g.lo, g.hi = bounds(m)
	data := m.Interleaved()

	gl.GenVertexArrays(1, &g.vao)
	gl.GenBuffers(1, &g.vbo)
	gl.GenBuffers(1, &g.ebo)

	gl.BindVertexArray(g.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, g.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(m.Indices)*4, gl.Ptr(m.Indices), gl.STATIC_DRAW)

	stride := int32(meshing.VertexStride * 4)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, world.MaterialCount, gl.FLOAT, false, stride, gl.PtrOffset(6*4))

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	r.meshes[m.Coord] = g
}

// Remove drops the buffers for coord if they still hold lod.
func (r *TerrainRenderer) Remove(coord world.ChunkCoord, lod int) {
	if g, ok := r.meshes[coord]; ok && g.lod == lod {
		r.release(coord)
	}
}

func (r *TerrainRenderer) release(coord world.ChunkCoord) {
	g, ok := r.meshes[coord]
	if !ok {
		return
	}
	gl.DeleteBuffers(1, &g.vbo)
	gl.DeleteBuffers(1, &g.ebo)
	gl.DeleteVertexArrays(1, &g.vao)
	delete(r.meshes, coord)
}

// Render draws every mesh intersecting the view frustum.
func (r *TerrainRenderer) Render(view, proj mgl32.Mat4) {
	defer profiling.Track("renderer.renderTerrain")()
	if r.Wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
		defer gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}

	r.shader.Use()
	r.shader.SetMatrix4("view", view)
	r.shader.SetMatrix4("proj", proj)
	frustum := NewFrustum(proj.Mul4(view))

	r.drawn, r.culled = 0, 0
	for coord, g := range r.meshes {
		if !frustum.IntersectsAABB(g.lo, g.hi) {
			r.culled++
			continue
		}
		gl.BindVertexArray(g.vao)
		gl.DrawElements(gl.TRIANGLES, g.indexCount, gl.UNSIGNED_INT, gl.PtrOffset(0))
		r.drawn++
		if r.OnDraw != nil {
			r.OnDraw(coord)
		}
	}
	gl.BindVertexArray(0)
}

// Counts returns the meshes drawn and culled in the last Render.
func (r *TerrainRenderer) Counts() (drawn, culled, resident int) {
	return r.drawn, r.culled, len(r.meshes)
}

// Dispose releases every GPU resource.
func (r *TerrainRenderer) Dispose() {
	for coord := range r.meshes {
		r.release(coord)
	}
	r.shader.Delete()
}

// bounds is the box of the mesh vertices, skirts included.
func bounds(m *meshing.Mesh) (lo, hi mgl32.Vec3) {
	lo = m.Vertices[0].Position
	hi = lo
	for _, v := range m.Vertices[1:] {
		for i := 0; i < 3; i++ {
			lo[i] = min(lo[i], v.Position[i])
			hi[i] = max(hi[i], v.Position[i])
		}
	}
	return lo, hi
}
