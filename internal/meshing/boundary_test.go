package meshing

import (
	"testing"

	"voxel-terrain/internal/density"
	"voxel-terrain/internal/world"
)

func fillStore(t *testing.T, s density.Sampler, center world.ChunkCoord, withNeighbors bool) *world.Store {
	t.Helper()
	gen := world.NewGenerator(s, quietLogger())
	store := world.NewStore()
	coords := []world.ChunkCoord{center}
	if withNeighbors {
		for _, d := range world.NeighborOffsets {
			coords = append(coords, center.Add(d))
		}
	}
	for _, c := range coords {
		if err := store.Insert(gen.Generate(c, nil)); err != nil {
			t.Fatalf("Insert %v: %v", c, err)
		}
	}
	return store
}

func TestGatherMatchesSampler(t *testing.T) {
	s := rolling()
	center := world.ChunkCoord{X: -1, Y: 0, Z: 2}
	store := fillStore(t, s, center, true)

	got, ok := GatherBoundary(store, center)
	if !ok {
		t.Fatalf("gather failed")
	}
	if !got.Complete {
		t.Fatalf("grid incomplete with all neighbours resident")
	}
	want := GridFromSampler(s, center)
	for y := -1; y <= world.ChunkSize+1; y++ {
		for z := -1; z <= world.ChunkSize+1; z++ {
			for x := -1; x <= world.ChunkSize+1; x++ {
				if got.At(x, y, z) != want.At(x, y, z) {
					t.Fatalf("(%d,%d,%d): got %+v want %+v", x, y, z, got.At(x, y, z), want.At(x, y, z))
				}
			}
		}
	}
}

func TestGatherExtrapolatesMissingNeighbors(t *testing.T) {
	store := fillStore(t, density.Flat{Height: 10}, world.ChunkCoord{}, false)
	g, ok := GatherBoundary(store, world.ChunkCoord{})
	if !ok {
		t.Fatalf("gather failed")
	}
	if g.Complete {
		t.Fatalf("expected incomplete grid")
	}
	if g.Density(world.ChunkSize+1, 3, -1) != g.Density(world.ChunkSize-1, 3, 0) {
		t.Fatalf("edge not replicated")
	}
	if _, ok := GatherBoundary(store, world.ChunkCoord{X: 5}); ok {
		t.Fatalf("gather of a missing chunk succeeded")
	}
}

func TestGatheredMeshIsSeamless(t *testing.T) {
	s := rolling()
	left, right := world.ChunkCoord{}, world.ChunkCoord{X: 1}
	store := fillStore(t, s, left, true)
	gen := world.NewGenerator(s, quietLogger())
	for _, d := range world.NeighborOffsets {
		c := right.Add(d)
		if !store.Has(c) {
			if err := store.Insert(gen.Generate(c, nil)); err != nil {
				t.Fatal(err)
			}
		}
	}
	gl, _ := GatherBoundary(store, left)
	gr, _ := GatherBoundary(store, right)
	ml := Extract(gl, 0, NoSeams(), DefaultOptions())
	mr := Extract(gr, 0, NoSeams(), DefaultOptions())

	onSeam := func(m *Mesh) map[[3]float32]bool {
		out := make(map[[3]float32]bool)
		for _, v := range m.Vertices {
			if v.Position[0] == world.ChunkSize {
				out[[3]float32(v.Position)] = true
			}
		}
		return out
	}
	a, b := onSeam(ml), onSeam(mr)
	if len(a) == 0 || len(a) != len(b) {
		t.Fatalf("seam vertex counts differ: %d vs %d", len(a), len(b))
	}
	for p := range a {
		if !b[p] {
			t.Fatalf("seam vertex %v missing on the other side", p)
		}
	}
}
