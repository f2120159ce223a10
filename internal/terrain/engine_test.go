package terrain

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"voxel-terrain/internal/config"
	"voxel-terrain/internal/density"
	"voxel-terrain/internal/edit"
	"voxel-terrain/internal/meshing"
	"voxel-terrain/internal/streaming"
	"voxel-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

type countingSink struct {
	uploads, removes int
}

func (s *countingSink) Upload(*meshing.Mesh)         { s.uploads++ }
func (s *countingSink) Remove(world.ChunkCoord, int) { s.removes++ }

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Streaming = streaming.Config{
		Radius:         1,
		VerticalRadius: 1,
		MinChunkY:      -1,
		MaxChunkY:      1,
		Hysteresis:     4,
		UnloadMargin:   1,
		LODDistances:   []float32{1},
		Workers:        2,
	}
	cfg.Viewer.Start = [3]float32{8, 8, 8}
	return cfg
}

func newEngine(t *testing.T, cfg config.Config, sink meshing.Sink) *Engine {
	t.Helper()
	e, err := NewWithSampler(cfg, density.Flat{Height: 8}, sink, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewWithSampler: %v", err)
	}
	return e
}

func ctxTimeout(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestWarmupMeshesCoverage(t *testing.T) {
	cfg := testConfig(t)
	sink := &countingSink{}
	e := newEngine(t, cfg, sink)
	defer e.Close()

	if err := e.Warmup(ctxTimeout(t), mgl32.Vec3{8, 8, 8}); err != nil {
		t.Fatalf("Warmup: %v", err)
	}
	want := len(cfg.Streaming.Required(world.ChunkCoord{}))
	st := e.Stats()
	if st.Streaming.Meshed != want {
		t.Fatalf("meshed %d, want %d", st.Streaming.Meshed, want)
	}
	if sink.uploads < want {
		t.Fatalf("uploads %d, want at least %d", sink.uploads, want)
	}
	if e.Scheduler().State(world.ChunkCoord{}) != streaming.StateMeshed {
		t.Fatalf("origin chunk not meshed")
	}
}

func TestEditThroughEngine(t *testing.T) {
	e := newEngine(t, testConfig(t), nil)
	defer e.Close()
	ctx := ctxTimeout(t)
	if err := e.Warmup(ctx, mgl32.Vec3{8, 8, 8}); err != nil {
		t.Fatal(err)
	}

	hit := e.Raycast(mgl32.Vec3{8, 14, 8}, mgl32.Vec3{0, -1, 0}, 20)
	if !hit.Hit || hit.Position.Sub(mgl32.Vec3{8, 8, 8}).Len() > 0.01 {
		t.Fatalf("raycast = %+v", hit)
	}

	res, err := e.ApplyEdit(edit.Sphere(hit.Position, 3, 6, edit.Carve))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Mutated) == 0 {
		t.Fatalf("carve mutated nothing")
	}
	if st := e.Scheduler().State(world.ChunkCoord{}); st != streaming.StateMeshing {
		t.Fatalf("edited chunk state %v, want meshing", st)
	}
	if err := e.Settle(ctx); err != nil {
		t.Fatal(err)
	}

	// The carved hole is now open at the old surface.
	again := e.Raycast(mgl32.Vec3{8, 14, 8}, mgl32.Vec3{0, -1, 0}, 20)
	if !again.Hit || again.Distance <= hit.Distance {
		t.Fatalf("raycast after carve = %+v", again)
	}
}

func TestEditLogReplayedOnRestart(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.EditLog = filepath.Join(t.TempDir(), "edits.db")
	ctx := ctxTimeout(t)

	e := newEngine(t, cfg, nil)
	if err := e.Warmup(ctx, mgl32.Vec3{8, 8, 8}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ApplyEdit(edit.Sphere(mgl32.Vec3{8, 8, 8}, 3, 6, edit.Carve)); err != nil {
		t.Fatal(err)
	}
	edited, _ := e.Store().Get(world.ChunkCoord{})
	want := world.Fingerprint(edited)
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	e = newEngine(t, cfg, nil)
	defer e.Close()
	if got := e.Stats().Edits; got != 1 {
		t.Fatalf("replayed %d edits, want 1", got)
	}
	if err := e.Warmup(ctx, mgl32.Vec3{8, 8, 8}); err != nil {
		t.Fatal(err)
	}
	c, _ := e.Store().Get(world.ChunkCoord{})
	if world.Fingerprint(c) != want {
		t.Fatalf("regenerated chunk differs from the edited one")
	}

	other := cfg
	other.Terrain.Seed++
	if _, err := NewWithSampler(other, density.Flat{Height: 8}, nil, log.New(io.Discard, "", 0)); !errors.Is(err, ErrSeedMismatch) {
		t.Fatalf("open with another seed = %v", err)
	}
}

func TestSnapshotExportImport(t *testing.T) {
	ctx := ctxTimeout(t)
	path := filepath.Join(t.TempDir(), "terrain.zst")

	a := newEngine(t, testConfig(t), nil)
	defer a.Close()
	if err := a.Warmup(ctx, mgl32.Vec3{8, 8, 8}); err != nil {
		t.Fatal(err)
	}
	for _, p := range []mgl32.Vec3{{4, 8, 4}, {12, 8, 12}, {8, 6, 8}} {
		if _, err := a.ApplyEdit(edit.Sphere(p, 2.5, 5, edit.Carve)); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.ExportSnapshot(path); err != nil {
		t.Fatalf("ExportSnapshot: %v", err)
	}

	b := newEngine(t, testConfig(t), nil)
	defer b.Close()
	if err := b.Warmup(ctx, mgl32.Vec3{8, 8, 8}); err != nil {
		t.Fatal(err)
	}
	n, err := b.ImportSnapshot(path)
	if err != nil || n != 3 {
		t.Fatalf("ImportSnapshot = %d, %v", n, err)
	}
	if err := b.Settle(ctx); err != nil {
		t.Fatal(err)
	}
	ca, _ := a.Store().Get(world.ChunkCoord{})
	cb, _ := b.Store().Get(world.ChunkCoord{})
	if world.Fingerprint(ca) != world.Fingerprint(cb) {
		t.Fatalf("imported terrain differs")
	}
}
