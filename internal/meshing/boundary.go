package meshing

import (
	"voxel-terrain/internal/density"
	"voxel-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// GridSize is the edge length of a boundary grid: the chunk's samples plus
// one sample before and two after on each axis, covering local -1..N+1.
// Cells need local N; central-difference normals need -1 and N+1.
const GridSize = world.ChunkSize + 3

const gridVolume = GridSize * GridSize * GridSize

// BoundaryGrid is a self-contained copy of a chunk's samples and the
// neighbouring boundary samples its mesh depends on. Meshing workers own
// their grid exclusively.
type BoundaryGrid struct {
	Coord world.ChunkCoord
	// Complete is false when at least one neighbour was missing and its
	// samples were extrapolated from the chunk's own edge.
	Complete bool
	samples  [gridVolume]world.Sample
}

func gridIndex(x, y, z int) int {
	return ((y+1)*GridSize+(z+1))*GridSize + (x + 1)
}

// At returns the sample at local coordinates in [-1, ChunkSize+1].
func (g *BoundaryGrid) At(x, y, z int) world.Sample {
	return g.samples[gridIndex(x, y, z)]
}

// Density returns the density at local coordinates in [-1, ChunkSize+1].
func (g *BoundaryGrid) Density(x, y, z int) float32 {
	return g.samples[gridIndex(x, y, z)].Density
}

// GatherBoundary copies the chunk at coord and the boundary samples of its
// 26 neighbours out of the store. It returns false when the chunk itself is
// not resident with samples.
func GatherBoundary(store *world.Store, coord world.ChunkCoord) (*BoundaryGrid, bool) {
	center, ok := store.Get(coord)
	if !ok || !center.HasSamples() {
		return nil, false
	}
	neighbors := store.Neighbors(coord)

	g := &BoundaryGrid{Coord: coord, Complete: true}
	const n = world.ChunkSize
	for y := -1; y <= n+1; y++ {
		cy, ly := split(y)
		for z := -1; z <= n+1; z++ {
			cz, lz := split(z)
			for x := -1; x <= n+1; x++ {
				cx, lx := split(x)
				src := center
				if cx != 0 || cy != 0 || cz != 0 {
					src = neighbors[world.NeighborIndex(world.ChunkCoord{X: cx, Y: cy, Z: cz})]
				}
				if src == nil || !src.HasSamples() {
					// Missing neighbour: replicate the chunk's own edge.
					g.Complete = false
					g.samples[gridIndex(x, y, z)] = center.At(clampLocal(x), clampLocal(y), clampLocal(z))
					continue
				}
				g.samples[gridIndex(x, y, z)] = src.At(lx, ly, lz)
			}
		}
	}
	return g, true
}

// GridFromSampler builds a complete grid straight from a sampler, as if
// every neighbour were freshly generated. Samples are clamped to the
// sampler range and given band materials like generated chunks.
func GridFromSampler(s density.Sampler, coord world.ChunkCoord) *BoundaryGrid {
	g := &BoundaryGrid{Coord: coord, Complete: true}
	r := s.Range()
	o := coord.Origin()
	const n = world.ChunkSize
	for y := -1; y <= n+1; y++ {
		for z := -1; z <= n+1; z++ {
			for x := -1; x <= n+1; x++ {
				d := r.Clamp(s.Sample(o.Add(mgl32.Vec3{float32(x), float32(y), float32(z)})))
				g.samples[gridIndex(x, y, z)] = world.Sample{Density: d, Material: world.MaterialFor(d)}
			}
		}
	}
	return g
}

// split maps a local coordinate in [-1, N+1] to a neighbour offset and the
// local coordinate inside that neighbour.
func split(v int) (int, int) {
	switch {
	case v < 0:
		return -1, v + world.ChunkSize
	case v >= world.ChunkSize:
		return 1, v - world.ChunkSize
	}
	return 0, v
}

func clampLocal(v int) int {
	return min(max(v, 0), world.ChunkSize-1)
}
