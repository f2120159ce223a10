package meshing

import (
	"voxel-terrain/internal/profiling"
	"voxel-terrain/internal/world"
)

func (ex *extractor) recordBoundary(idx [3]uint32) {
	for k := 0; k < 3; k++ {
		a, b := idx[k], idx[(k+1)%3]
		if f := ex.vertFaces[a] & ex.vertFaces[b] & ex.seamMask; f != 0 {
			ex.boundary = append(ex.boundary, boundaryEdge{a: a, b: b, faces: f})
		}
	}
}

// skirts hangs a vertical strip below every surface edge lying on a seam
// face. The strip continues the winding of the triangle that owns the edge
// and reaches down far enough to cover the contour difference against a
// coarser or finer neighbour.
func (ex *extractor) skirts(seams Seams, opts Options) {
	if opts.SkirtDepth <= 0 {
		opts.SkirtDepth = DefaultSkirtDepth
	}
	m := ex.mesh
	seen := make(map[uint64]struct{}, len(ex.boundary))
	bottom := make(map[uint32]uint32, len(ex.boundary))

	lower := func(v uint32, depth float32) uint32 {
		if i, ok := bottom[v]; ok {
			return i
		}
		low := m.Vertices[v]
		low.Position[1] -= depth
		i := uint32(len(m.Vertices))
		m.Vertices = append(m.Vertices, low)
		bottom[v] = i
		return i
	}

	for _, e := range ex.boundary {
		lo, hi := e.a, e.b
		if lo > hi {
			lo, hi = hi, lo
		}
		key := uint64(lo)<<32 | uint64(hi)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		depth := ex.skirtDepth(e.faces, seams, opts)
		la, lb := lower(e.a, depth), lower(e.b, depth)
		m.Indices = append(m.Indices, e.b, e.a, la, e.b, la, lb)
	}
	profiling.Add("meshing.skirtEdges", uint64(len(seen)))
}

// skirtDepth returns the depth for an edge lying on the given faces. The
// deepest requirement wins where two seam faces meet.
func (ex *extractor) skirtDepth(faces uint8, seams Seams, opts Options) float32 {
	stride := ex.step
	for f := world.FaceNegX; f <= world.FacePosZ; f++ {
		if faces&(1<<f) == 0 || seams[f] == NoSeam {
			continue
		}
		stride = max(stride, Stride(int(seams[f])))
	}
	return opts.SkirtDepth * float32(stride)
}
