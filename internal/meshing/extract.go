package meshing

import (
	"voxel-terrain/internal/profiling"
	"voxel-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxLOD is the coarsest level of detail. LOD k samples every 2^k voxels.
const MaxLOD = 4

// DefaultSkirtDepth is the skirt length in voxels per unit of stride.
const DefaultSkirtDepth = 1.5

// Options tunes extraction.
type Options struct {
	// SkirtDepth is multiplied by the coarser stride of the two chunks
	// meeting at a seam.
	SkirtDepth float32
}

// DefaultOptions returns the extraction defaults.
func DefaultOptions() Options {
	return Options{SkirtDepth: DefaultSkirtDepth}
}

// NoSeam marks a face that needs no skirt.
const NoSeam int8 = -1

// Seams records, per world.Face, the LOD of the neighbour across that face
// when it differs from the chunk's own LOD, or NoSeam.
type Seams [6]int8

// NoSeams returns a Seams value with every face unset.
func NoSeams() Seams {
	return Seams{NoSeam, NoSeam, NoSeam, NoSeam, NoSeam, NoSeam}
}

// Any reports whether any face needs a skirt.
func (s Seams) Any() bool {
	for _, v := range s {
		if v != NoSeam {
			return true
		}
	}
	return false
}

func (s Seams) mask() uint8 {
	var m uint8
	for f, v := range s {
		if v != NoSeam {
			m |= 1 << f
		}
	}
	return m
}

// Stride returns the sample step for a level of detail.
func Stride(lod int) int {
	return 1 << ClampLOD(lod)
}

// ClampLOD limits lod to [0, MaxLOD].
func ClampLOD(lod int) int {
	return min(max(lod, 0), MaxLOD)
}

const gridPoints = (world.ChunkSize + 1) * (world.ChunkSize + 1) * (world.ChunkSize + 1)

type boundaryEdge struct {
	a, b  uint32
	faces uint8
}

type extractor struct {
	grid   *BoundaryGrid
	step   int
	origin mgl32.Vec3
	mesh   *Mesh

	edgeVerts map[uint32]uint32
	vertFaces []uint8
	seamMask  uint8
	boundary  []boundaryEdge
}

// Extract builds the surface mesh of the grid's chunk at the given level of
// detail. Cells with all corners on one side emit nothing. Mixed cells are
// split into six tetrahedra and triangulated from a fixed case table, with
// vertices shared per grid edge so the surface is closed inside the chunk.
// Triangles wind counter-clockwise seen from the empty side. Skirts are
// appended after SkirtStart for every face set in seams.
func Extract(g *BoundaryGrid, lod int, seams Seams, opts Options) *Mesh {
	defer profiling.Track("meshing.Extract")()

	lod = ClampLOD(lod)
	ex := &extractor{
		grid:      g,
		step:      1 << lod,
		origin:    g.Coord.Origin(),
		mesh:      &Mesh{Coord: g.Coord, LOD: lod, Seams: seams},
		edgeVerts: make(map[uint32]uint32),
		seamMask:  seams.mask(),
	}

	const n = world.ChunkSize
	var corners [8]float32
	for y := 0; y < n; y += ex.step {
		for z := 0; z < n; z += ex.step {
			for x := 0; x < n; x += ex.step {
				mask := 0
				for i, o := range cornerOffsets {
					d := g.Density(x+o[0]*ex.step, y+o[1]*ex.step, z+o[2]*ex.step)
					corners[i] = d
					if d < 0 {
						mask |= 1 << i
					}
				}
				if mask == 0 || mask == 0xff {
					continue
				}
				ex.cell(x, y, z, &corners)
			}
		}
	}

	ex.mesh.SkirtStart = len(ex.mesh.Indices)
	if ex.seamMask != 0 {
		ex.skirts(seams, opts)
	}
	profiling.Add("meshing.triangles", uint64(ex.mesh.TriangleCount()))
	return ex.mesh
}

func (ex *extractor) cell(x, y, z int, corners *[8]float32) {
	var pos [8][3]int
	for i, o := range cornerOffsets {
		pos[i] = [3]int{x + o[0]*ex.step, y + o[1]*ex.step, z + o[2]*ex.step}
	}

	for _, tet := range cubeTetrahedra {
		inside := 0
		var in, out mgl32.Vec3
		nIn, nOut := 0, 0
		for v, c := range tet {
			p := mgl32.Vec3{float32(pos[c][0]), float32(pos[c][1]), float32(pos[c][2])}
			if corners[c] < 0 {
				inside |= 1 << v
				in = in.Add(p)
				nIn++
			} else {
				out = out.Add(p)
				nOut++
			}
		}
		tris := tetTriangles[inside]
		if len(tris) == 0 {
			continue
		}
		// Points from the solid corners toward the empty ones.
		outward := out.Mul(1 / float32(nOut)).Sub(in.Mul(1 / float32(nIn)))

		for _, tri := range tris {
			var idx [3]uint32
			for k, e := range tri {
				edge := tetEdges[e]
				idx[k] = ex.edgeVertex(pos[tet[edge[0]]], pos[tet[edge[1]]])
			}
			verts := ex.mesh.Vertices
			a, b, c := verts[idx[0]].Position, verts[idx[1]].Position, verts[idx[2]].Position
			if b.Sub(a).Cross(c.Sub(a)).Dot(outward) < 0 {
				idx[1], idx[2] = idx[2], idx[1]
			}
			ex.mesh.Indices = append(ex.mesh.Indices, idx[0], idx[1], idx[2])
			if ex.seamMask != 0 {
				ex.recordBoundary(idx)
			}
		}
	}
}

func pointID(p [3]int) uint32 {
	const m = world.ChunkSize + 1
	return uint32((p[0]*m+p[1])*m + p[2])
}

// edgeVertex returns the vertex on the grid edge a-b, creating it on first
// use. Endpoints are ordered canonically so adjacent chunks interpolate the
// same world-space position for a shared edge.
func (ex *extractor) edgeVertex(a, b [3]int) uint32 {
	ia, ib := pointID(a), pointID(b)
	if ia > ib {
		a, b = b, a
		ia, ib = ib, ia
	}
	key := ia*gridPoints + ib
	if v, ok := ex.edgeVerts[key]; ok {
		return v
	}

	g := ex.grid
	sa, sb := g.At(a[0], a[1], a[2]), g.At(b[0], b[1], b[2])
	t := sa.Density / (sa.Density - sb.Density)

	pa := ex.origin.Add(mgl32.Vec3{float32(a[0]), float32(a[1]), float32(a[2])})
	pb := ex.origin.Add(mgl32.Vec3{float32(b[0]), float32(b[1]), float32(b[2])})
	position := pa.Add(pb.Sub(pa).Mul(t))

	ga, gb := ex.gradient(a), ex.gradient(b)
	normal := ga.Add(gb.Sub(ga).Mul(t))
	if normal.Len() < 1e-6 {
		// Flat gradient: fall back to the edge direction toward empty space.
		normal = pb.Sub(pa)
		if sb.Solid() {
			normal = normal.Mul(-1)
		}
	}
	normal = normal.Normalize()

	solid := sa
	if !sa.Solid() {
		solid = sb
	}
	var weights [world.MaterialCount]float32
	weights[solid.Material] = 1

	idx := uint32(len(ex.mesh.Vertices))
	ex.mesh.Vertices = append(ex.mesh.Vertices, Vertex{Position: position, Normal: normal, Weights: weights})
	ex.vertFaces = append(ex.vertFaces, edgeFaces(a, b))
	ex.edgeVerts[key] = idx
	return idx
}

// gradient estimates the density gradient at a grid point by central
// differences; it points from solid toward empty space.
func (ex *extractor) gradient(p [3]int) mgl32.Vec3 {
	g := ex.grid
	x, y, z := p[0], p[1], p[2]
	return mgl32.Vec3{
		(g.Density(x+1, y, z) - g.Density(x-1, y, z)) * 0.5,
		(g.Density(x, y+1, z) - g.Density(x, y-1, z)) * 0.5,
		(g.Density(x, y, z+1) - g.Density(x, y, z-1)) * 0.5,
	}
}

// edgeFaces returns the chunk faces (as a bitmask of world.Face) that fully
// contain the grid edge a-b.
func edgeFaces(a, b [3]int) uint8 {
	var m uint8
	for axis := 0; axis < 3; axis++ {
		if a[axis] != b[axis] {
			continue
		}
		switch a[axis] {
		case 0:
			m |= 1 << (2 * axis)
		case world.ChunkSize:
			m |= 1 << (2*axis + 1)
		}
	}
	return m
}
