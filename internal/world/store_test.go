package world

import (
	"errors"
	"testing"

	"voxel-terrain/internal/assert"
	"voxel-terrain/internal/density"
)

func readyChunk(coord ChunkCoord) *Chunk {
	return NewGenerator(density.Flat{Height: 10}, nil).Generate(coord, nil)
}

func TestStoreInsertGetEvict(t *testing.T) {
	s := NewStore()
	c := readyChunk(ChunkCoord{X: 1})
	if err := s.Insert(c); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, ok := s.Get(ChunkCoord{X: 1})
	if !ok || got != c {
		t.Fatalf("Get returned %v, %v", got, ok)
	}
	if _, ok := s.Get(ChunkCoord{X: 2}); ok {
		t.Fatalf("Get of absent chunk returned ok")
	}
	if !s.Evict(ChunkCoord{X: 1}) {
		t.Fatalf("Evict returned false")
	}
	if s.Evict(ChunkCoord{X: 1}) {
		t.Fatalf("second Evict returned true")
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0", s.Len())
	}
}

func TestStoreInsertOverwrites(t *testing.T) {
	s := NewStore()
	a := readyChunk(ChunkCoord{})
	b := readyChunk(ChunkCoord{})
	b.Set(0, 0, 0, Sample{Density: 3})
	_ = s.Insert(a)
	_ = s.Insert(b)
	got, _ := s.Get(ChunkCoord{})
	if got != b || s.Len() != 1 {
		t.Fatalf("overwrite failed: got %p want %p, len %d", got, b, s.Len())
	}
}

func TestStoreRejectsGeneratingChunk(t *testing.T) {
	if assert.Enabled {
		t.Skip("invariant violations panic in debug builds")
	}
	s := NewStore()
	c := NewChunk(ChunkCoord{})
	c.State = StateGenerating
	if err := s.Insert(c); !errors.Is(err, ErrGeneratingChunk) {
		t.Fatalf("Insert of generating chunk: err = %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("generating chunk became resident")
	}
	if err := s.Insert(nil); !errors.Is(err, ErrNilChunk) {
		t.Fatalf("Insert(nil): err = %v", err)
	}
}

func TestStoreReusesSlots(t *testing.T) {
	s := NewStore()
	for i := 0; i < 4; i++ {
		_ = s.Insert(readyChunk(ChunkCoord{X: i}))
	}
	s.Evict(ChunkCoord{X: 1})
	s.Evict(ChunkCoord{X: 2})
	_ = s.Insert(readyChunk(ChunkCoord{X: 9}))
	if len(s.slots) != 4 {
		t.Fatalf("slots grew to %d, want reuse of freed slot", len(s.slots))
	}
	if len(s.free) != 1 {
		t.Fatalf("free list = %d, want 1", len(s.free))
	}
	if _, ok := s.Get(ChunkCoord{X: 9}); !ok {
		t.Fatalf("chunk in reused slot not found")
	}
}

func TestStoreNeighbors(t *testing.T) {
	s := NewStore()
	center := ChunkCoord{X: 5, Y: 0, Z: 5}
	_ = s.Insert(readyChunk(center))
	_ = s.Insert(readyChunk(center.Add(ChunkCoord{X: 1})))
	_ = s.Insert(readyChunk(center.Add(ChunkCoord{X: -1, Y: -1, Z: -1})))

	faces := s.FaceNeighbors(center)
	if faces[FacePosX] == nil || faces[FaceNegX] != nil {
		t.Fatalf("face neighbours wrong: %+v", faces)
	}

	all := s.Neighbors(center)
	present := 0
	for _, c := range all {
		if c != nil {
			present++
		}
	}
	if present != 2 {
		t.Fatalf("neighbours present = %d, want 2", present)
	}
	if all[0] == nil || all[0].Coord != center.Add(ChunkCoord{X: -1, Y: -1, Z: -1}) {
		t.Fatalf("corner neighbour not at index 0")
	}
}

func TestStoreSampleAtCrossesChunks(t *testing.T) {
	s := NewStore()
	_ = s.Insert(readyChunk(ChunkCoord{X: -1}))
	smp, ok := s.SampleAt(-1, 3, 0)
	if !ok {
		t.Fatalf("SampleAt(-1,3,0) not resident")
	}
	if smp.Density != -7 {
		t.Fatalf("density = %v, want -7", smp.Density)
	}
	if _, ok := s.SampleAt(0, 3, 0); ok {
		t.Fatalf("SampleAt in absent chunk returned ok")
	}
}

func TestStoreChunksInBox(t *testing.T) {
	s := NewStore()
	for x := 0; x < 3; x++ {
		for z := 0; z < 3; z++ {
			_ = s.Insert(readyChunk(ChunkCoord{X: x, Z: z}))
		}
	}
	got := s.ChunksInBox(ChunkCoord{X: 1, Y: -1, Z: 1}, ChunkCoord{X: 5, Y: 1, Z: 5}, nil)
	if len(got) != 4 {
		t.Fatalf("ChunksInBox = %d chunks, want 4", len(got))
	}
}
