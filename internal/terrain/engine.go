// Package terrain assembles the sampler, stores, scheduler and edit path
// into the engine a host drives once per frame.
package terrain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"voxel-terrain/internal/config"
	"voxel-terrain/internal/density"
	"voxel-terrain/internal/edit"
	"voxel-terrain/internal/meshing"
	"voxel-terrain/internal/persist"
	"voxel-terrain/internal/physics"
	"voxel-terrain/internal/streaming"
	"voxel-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
)

// ErrSeedMismatch is returned when persisted edits were recorded against a
// different terrain seed.
var ErrSeedMismatch = errors.New("terrain: seed mismatch")

// Stats summarises engine state for overlays and tools.
type Stats struct {
	Streaming streaming.Stats
	Meshes    int
	Edits     uint64
	LogErrors uint64
}

// Engine is driven from a single goroutine: SetViewer, Update and ApplyEdit
// must not be called concurrently.
type Engine struct {
	cfg     config.Config
	sampler density.Sampler
	gen     *world.Generator
	store   *world.Store
	cache   *meshing.Cache
	journal *world.Journal
	sched   *streaming.Scheduler
	edits   *edit.Applicator
	editLog *persist.EditLog
	logger  *log.Logger
	viewer  mgl32.Vec3
}

// New builds an engine over the configured noise sampler.
func New(cfg config.Config, sink meshing.Sink, logger *log.Logger) (*Engine, error) {
	sampler, err := density.New(cfg.Terrain.Config)
	if err != nil {
		return nil, err
	}
	return NewWithSampler(cfg, sampler, sink, logger)
}

// NewWithSampler builds an engine over an arbitrary sampler. When
// cfg.Storage.EditLog is set the log is opened and its edits are replayed
// into the journal before any chunk is generated.
func NewWithSampler(cfg config.Config, sampler density.Sampler, sink meshing.Sink, logger *log.Logger) (*Engine, error) {
	if logger == nil {
		logger = log.Default()
	}
	if sink == nil {
		sink = meshing.NopSink{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		sampler: sampler,
		gen:     world.NewGenerator(sampler, logger),
		store:   world.NewStore(),
		cache:   meshing.NewCache(sink, cfg.Meshing.MaxMeshes, logger),
		journal: &world.Journal{},
		logger:  logger,
	}

	if cfg.Storage.EditLog != "" {
		if err := e.openEditLog(cfg.Storage.EditLog); err != nil {
			return nil, err
		}
	}

	sched, err := streaming.New(cfg.Streaming, e.store, e.cache, e.gen, e.journal, cfg.MeshOptions(), logger)
	if err != nil {
		e.closeLog()
		return nil, err
	}
	e.sched = sched

	var editLog edit.Log
	if e.editLog != nil {
		editLog = e.editLog
	}
	e.edits = edit.NewApplicator(e.store, e.journal, e.gen.Range(), sched, editLog, logger)
	e.SetViewer(mgl32.Vec3(cfg.Viewer.Start))
	return e, nil
}

func (e *Engine) openEditLog(path string) error {
	l, err := persist.OpenEditLog(path)
	if err != nil {
		return fmt.Errorf("open edit log: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seed := strconv.FormatInt(e.cfg.Terrain.Seed, 10)
	stored, ok, err := l.Meta(ctx, "seed")
	if err != nil {
		l.Close()
		return err
	}
	if ok && stored != seed {
		l.Close()
		return fmt.Errorf("%w: edit log %s recorded with seed %s, config has %s", ErrSeedMismatch, path, stored, seed)
	}
	if !ok {
		if err := l.SetMeta(ctx, "seed", seed); err != nil {
			l.Close()
			return err
		}
	}

	edits, err := l.Load(ctx)
	if err != nil {
		l.Close()
		return fmt.Errorf("replay edit log: %w", err)
	}
	for _, ed := range edits {
		e.journal.Append(ed)
	}
	if len(edits) > 0 {
		e.logger.Printf("terrain: replayed %d edits from %s", len(edits), path)
	}
	e.editLog = l
	return nil
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() config.Config { return e.cfg }

// Sampler returns the shared density sampler.
func (e *Engine) Sampler() density.Sampler { return e.sampler }

// Store exposes resident chunks for read-only queries.
func (e *Engine) Store() *world.Store { return e.store }

// Scheduler exposes the streaming scheduler for state queries.
func (e *Engine) Scheduler() *streaming.Scheduler { return e.sched }

// Viewer returns the last position passed to SetViewer.
func (e *Engine) Viewer() mgl32.Vec3 { return e.viewer }

// SetViewer moves the point coverage is centred on.
func (e *Engine) SetViewer(pos mgl32.Vec3) {
	e.viewer = pos
	e.sched.SetViewer(pos)
}

// SetRadius changes the horizontal view radius in chunks.
func (e *Engine) SetRadius(r int) error {
	return e.sched.SetRadius(r)
}

// Update commits finished work and dispatches new work. Call once per frame.
func (e *Engine) Update() {
	e.sched.Update()
}

// Settle blocks until the current coverage is fully meshed.
func (e *Engine) Settle(ctx context.Context) error {
	return e.sched.Settle(ctx)
}

// ApplyEdit carves or builds terrain around a point.
func (e *Engine) ApplyEdit(ed edit.Edit) (edit.Result, error) {
	return e.edits.Apply(ed)
}

// TouchMesh marks the mesh of coord as drawn, keeping it in the cache.
func (e *Engine) TouchMesh(coord world.ChunkCoord) {
	e.cache.Touch(coord)
}

// Raycast finds the first terrain surface along a ray from the viewer.
func (e *Engine) Raycast(origin, dir mgl32.Vec3, maxDist float32) physics.RaycastResult {
	return physics.Raycast(origin, dir, physics.MinReachDistance, maxDist, e.store)
}

// Warmup generates the coverage around pos in parallel, hands the chunks to
// the scheduler and waits until they are meshed.
func (e *Engine) Warmup(ctx context.Context, pos mgl32.Vec3) error {
	e.SetViewer(pos)
	scfg := e.sched.Config()
	coords := scfg.Required(world.ChunkAt(pos))
	edits := e.journal.Prefix(e.journal.Len())
	chunks := make([]*world.Chunk, len(coords))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scfg.Workers)
	for i, coord := range coords {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chunks[i] = e.gen.Generate(coord, edits)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, c := range chunks {
			world.Recycle(c)
		}
		return err
	}

	start := time.Now()
	n := e.sched.Preload(chunks)
	if err := e.sched.Settle(ctx); err != nil {
		return err
	}
	e.logger.Printf("terrain: warmed %d chunks around %v, meshed in %v", n, world.ChunkAt(pos), time.Since(start).Round(time.Millisecond))
	return nil
}

// Stats returns current counts.
func (e *Engine) Stats() Stats {
	st := Stats{
		Streaming: e.sched.Stats(),
		Meshes:    e.cache.Len(),
		Edits:     e.journal.Len(),
	}
	if e.editLog != nil {
		st.LogErrors = e.editLog.Failed()
	}
	return st
}

// ExportSnapshot writes the terrain configuration and edit journal to path.
func (e *Engine) ExportSnapshot(path string) error {
	snap := persist.Snapshot{
		Header:  persist.Header{Created: time.Now().Unix()},
		Terrain: e.cfg.Terrain.Config,
		Edits:   e.journal.All(),
	}
	if err := persist.WriteSnapshot(path, snap); err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	return nil
}

// ImportSnapshot applies the edits of a snapshot on top of the current
// journal. The snapshot must have been taken with the same seed.
func (e *Engine) ImportSnapshot(path string) (int, error) {
	snap, err := persist.ReadSnapshot(path)
	if err != nil {
		return 0, fmt.Errorf("import snapshot: %w", err)
	}
	if snap.Terrain.Seed != e.cfg.Terrain.Seed {
		return 0, fmt.Errorf("%w: snapshot seed %d, config seed %d", ErrSeedMismatch, snap.Terrain.Seed, e.cfg.Terrain.Seed)
	}
	for i, ed := range snap.Edits {
		if _, err := e.edits.Apply(ed); err != nil {
			return i, fmt.Errorf("import snapshot edit %d: %w", i, err)
		}
	}
	return len(snap.Edits), nil
}

// Close stops the workers and flushes the edit log.
func (e *Engine) Close() error {
	e.sched.Close()
	return e.closeLog()
}

func (e *Engine) closeLog() error {
	if e.editLog == nil {
		return nil
	}
	err := e.editLog.Close()
	e.editLog = nil
	return err
}
