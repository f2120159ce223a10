package edit

import (
	"errors"
	"io"
	"log"
	"math"
	"slices"
	"testing"

	"voxel-terrain/internal/density"
	"voxel-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

type recordingRemesher struct {
	dirty []world.ChunkCoord
}

func (r *recordingRemesher) MarkDirty(coord world.ChunkCoord) {
	r.dirty = append(r.dirty, coord)
}

type recordingLog struct {
	seqs []uint64
	err  error
}

func (l *recordingLog) Append(seq uint64, _ world.Edit) error {
	l.seqs = append(l.seqs, seq)
	return l.err
}

// fillStore generates the chunk at the origin and its 26 neighbours.
func fillStore(t *testing.T, gen *world.Generator) *world.Store {
	t.Helper()
	store := world.NewStore()
	coords := append([]world.ChunkCoord{{}}, world.NeighborOffsets[:]...)
	for _, c := range coords {
		if err := store.Insert(gen.Generate(c, nil)); err != nil {
			t.Fatalf("insert %v: %v", c, err)
		}
	}
	return store
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestLargeCarveDirtiesFaceNeighbours(t *testing.T) {
	gen := world.NewGenerator(density.Flat{Height: 8}, quietLogger())
	store := fillStore(t, gen)
	rem := &recordingRemesher{}
	a := NewApplicator(store, &world.Journal{}, gen.Range(), rem, nil, quietLogger())

	res, err := a.Apply(Sphere(mgl32.Vec3{8, 8, 8}, 20, 4, Carve))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Seq != 1 {
		t.Fatalf("seq = %d, want 1", res.Seq)
	}
	if !slices.Contains(res.Mutated, world.ChunkCoord{}) {
		t.Fatalf("centre chunk not mutated: %v", res.Mutated)
	}
	for _, off := range world.FaceOffsets {
		c, ok := store.Get(off)
		if !ok {
			t.Fatalf("missing neighbour %v", off)
		}
		if c.State != world.StateDirty {
			t.Errorf("face neighbour %v state = %s, want dirty", off, c.State)
		}
		if !slices.Contains(res.Dirtied, off) || !slices.Contains(rem.dirty, off) {
			t.Errorf("face neighbour %v not reported dirty", off)
		}
	}
	for _, c := range store.Coords() {
		ch, _ := store.Get(c)
		if ch.EditSeq != 1 && slices.Contains(res.Mutated, c) {
			t.Errorf("mutated chunk %v EditSeq = %d", c, ch.EditSeq)
		}
	}
}

func TestCarveSaturates(t *testing.T) {
	gen := world.NewGenerator(density.Flat{Height: 8}, quietLogger())
	store := fillStore(t, gen)
	a := NewApplicator(store, &world.Journal{}, gen.Range(), nil, nil, quietLogger())
	rng := gen.Range()

	e := Sphere(mgl32.Vec3{8, 4, 8}, 4, 6, Carve)
	for i := 0; i < 10; i++ {
		if _, err := a.Apply(e); err != nil {
			t.Fatal(err)
		}
		c, _ := store.Get(world.ChunkCoord{})
		for _, s := range c.Samples() {
			if s.Density > rng.Max || s.Density < rng.Min {
				t.Fatalf("pass %d: density %v escaped range %+v", i, s.Density, rng)
			}
		}
	}
	c, _ := store.Get(world.ChunkCoord{})
	centre := c.At(8, 4, 8)
	if centre.Density != rng.Max {
		t.Fatalf("centre density = %v, want %v", centre.Density, rng.Max)
	}
	if centre.Material != world.MaterialAir {
		t.Fatalf("centre material = %v, want air", centre.Material)
	}

	// Once saturated nothing changes and nothing is dirtied.
	res, err := a.Apply(Sphere(mgl32.Vec3{8, 4, 8}, 0.5, 6, Carve))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Mutated) != 0 || len(res.Dirtied) != 0 {
		t.Fatalf("saturated carve touched %v / %v", res.Mutated, res.Dirtied)
	}
}

func TestApplyPersistsInOrder(t *testing.T) {
	gen := world.NewGenerator(density.Flat{Height: 8}, quietLogger())
	store := fillStore(t, gen)
	l := &recordingLog{err: errors.New("disk full")}
	j := &world.Journal{}
	a := NewApplicator(store, j, gen.Range(), nil, l, quietLogger())

	for i := 0; i < 3; i++ {
		if _, err := a.Apply(Sphere(mgl32.Vec3{float32(i), 8, 0}, 2, 1, Build)); err != nil {
			t.Fatalf("log failure must not fail the edit: %v", err)
		}
	}
	if !slices.Equal(l.seqs, []uint64{1, 2, 3}) {
		t.Fatalf("logged seqs = %v", l.seqs)
	}
	if j.Len() != 3 {
		t.Fatalf("journal length = %d", j.Len())
	}
}

func TestEditOutsideResidentChunksIsJournaled(t *testing.T) {
	gen := world.NewGenerator(density.Flat{Height: 8}, quietLogger())
	store := fillStore(t, gen)
	j := &world.Journal{}
	a := NewApplicator(store, j, gen.Range(), nil, nil, quietLogger())

	e := Sphere(mgl32.Vec3{200, 8, 200}, 3, 4, Carve)
	res, err := a.Apply(e)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Mutated) != 0 {
		t.Fatalf("mutated %v", res.Mutated)
	}

	// Generating the chunk later replays the journal.
	coord := world.ChunkAt(e.Center)
	c := gen.Generate(coord, j.All())
	fresh := gen.Generate(coord, nil)
	if world.Fingerprint(c) == world.Fingerprint(fresh) {
		t.Fatalf("journaled edit not replayed at generation")
	}
}

func TestValidate(t *testing.T) {
	nan := float32(math.NaN())
	cases := []struct {
		name string
		e    Edit
		ok   bool
	}{
		{"valid", Sphere(mgl32.Vec3{1, 2, 3}, 2, 1, Carve), true},
		{"zero radius", Sphere(mgl32.Vec3{}, 0, 1, Carve), false},
		{"negative strength", Sphere(mgl32.Vec3{}, 1, -1, Build), false},
		{"nan centre", Sphere(mgl32.Vec3{nan, 0, 0}, 1, 1, Carve), false},
		{"unknown mode", Edit{Radius: 1, Strength: 1, Mode: 7}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.e)
			if tc.ok != (err == nil) {
				t.Fatalf("Validate = %v", err)
			}
			if err != nil && !errors.Is(err, ErrInvalidEdit) {
				t.Fatalf("error %v does not wrap ErrInvalidEdit", err)
			}
		})
	}
}
