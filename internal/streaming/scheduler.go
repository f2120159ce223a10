package streaming

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"

	"voxel-terrain/internal/meshing"
	"voxel-terrain/internal/profiling"
	"voxel-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrStalled is returned by Settle when nothing is queued or in flight but
// the wanted set is not fully meshed.
var ErrStalled = errors.New("streaming: scheduler stalled")

// State is the streaming state of one coordinate.
type State uint8

const (
	StateUnloaded State = iota
	StateGenerating
	StateReady
	StateMeshing
	StateMeshed
	StateDirty
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateGenerating:
		return "generating"
	case StateReady:
		return "ready"
	case StateMeshing:
		return "meshing"
	case StateMeshed:
		return "meshed"
	case StateDirty:
		return "dirty"
	}
	return "unknown"
}

const allNeighbors = 1<<26 - 1

type entry struct {
	coord  world.ChunkCoord
	state  State
	wanted bool
	// parked entries were dropped for budget and are not requested again
	// until the next coverage recompute.
	parked bool
	lod    int
	// latest is the Seq of the newest request; only it may commit.
	latest uint64
	// flight is the Seq of the job running on a worker, 0 if none.
	flight uint64
	// unloading is set while a KindUnload request waits for the job in
	// flight to finish.
	unloading bool

	meshLOD       int
	meshSeams     meshing.Seams
	meshNeighbors uint32
	// pendingLOD and pendingSeams describe the queued or running mesh
	// request while the entry is Meshing.
	pendingLOD   int
	pendingSeams meshing.Seams
}

// Stats is a snapshot of scheduler bookkeeping.
type Stats struct {
	Tracked   int
	Wanted    int
	Resident  int
	Meshed    int
	Queued    int
	InFlight  int
	Committed uint64
	Discarded uint64
	Evicted   uint64
}

// Scheduler decides which chunks to generate, mesh and unload around the
// viewer, runs the work on a WorkerPool and commits results. All methods
// must be called from the coordinating goroutine.
type Scheduler struct {
	cfg     Config
	store   *world.Store
	cache   *meshing.Cache
	gen     *world.Generator
	journal *world.Journal
	pool    *WorkerPool
	logger  *log.Logger

	entries  map[world.ChunkCoord]*entry
	queue    *requestQueue
	seq      uint64
	inFlight int

	viewer        mgl32.Vec3
	center        world.ChunkCoord
	lastRecompute mgl32.Vec3
	recomputed    bool
	needRecompute bool

	committed, discarded, evicted uint64
	budgetWarned                  bool
}

// New validates cfg and starts the worker pool. A nil journal starts empty.
func New(cfg Config, store *world.Store, cache *meshing.Cache, gen *world.Generator, journal *world.Journal, opts meshing.Options, logger *log.Logger) (*Scheduler, error) {
	return newScheduler(cfg, store, cache, gen, journal, opts, logger, nil)
}

func newScheduler(cfg Config, store *world.Store, cache *meshing.Cache, gen *world.Generator, journal *world.Journal, opts meshing.Options, logger *log.Logger, before func(Job)) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("streaming config: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	if journal == nil {
		journal = &world.Journal{}
	}
	s := &Scheduler{
		cfg:     cfg,
		store:   store,
		cache:   cache,
		gen:     gen,
		journal: journal,
		pool:    newWorkerPool(cfg.Workers, gen, opts, before),
		logger:  logger,
		entries: make(map[world.ChunkCoord]*entry),
		queue:   newRequestQueue(),
	}
	cache.OnEvict = s.meshEvicted
	return s, nil
}

// Close stops the workers and recycles any chunk still waiting for commit.
func (s *Scheduler) Close() {
	s.pool.Shutdown()
	for {
		select {
		case r := <-s.pool.Results():
			world.Recycle(r.Chunk)
		default:
			return
		}
	}
}

// Journal returns the edit journal replayed into generated chunks.
func (s *Scheduler) Journal() *world.Journal { return s.journal }

// Config returns the active configuration.
func (s *Scheduler) Config() Config { return s.cfg }

// SetViewer moves the viewer. Coverage is recomputed on the next Update once
// the viewer has travelled further than Hysteresis.
func (s *Scheduler) SetViewer(pos mgl32.Vec3) {
	s.viewer = pos
	if !s.recomputed || pos.Sub(s.lastRecompute).Len() > s.cfg.Hysteresis {
		s.needRecompute = true
	}
}

// SetRadius changes the horizontal view radius and forces a recompute.
func (s *Scheduler) SetRadius(r int) error {
	cfg := s.cfg
	cfg.Radius = r
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg
	s.needRecompute = true
	return nil
}

// Update commits finished work, refreshes coverage if needed, enforces the
// resident budget and hands queued requests to idle workers.
func (s *Scheduler) Update() {
	defer profiling.Track("streaming.Update")()
	s.drain()
	if s.needRecompute {
		s.recompute()
	}
	s.enforceBudget()
	s.dispatch()
}

// Settle runs Update until every wanted chunk is meshed, blocking on worker
// results in between.
func (s *Scheduler) Settle(ctx context.Context) error {
	for {
		s.Update()
		if s.Settled() {
			return nil
		}
		if s.inFlight == 0 && s.queue.Len() == 0 {
			return fmt.Errorf("%w: %+v", ErrStalled, s.Stats())
		}
		select {
		case r := <-s.pool.Results():
			s.commit(r)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Settled reports whether nothing is pending and every wanted chunk is
// meshed.
func (s *Scheduler) Settled() bool {
	if s.needRecompute || s.inFlight > 0 || s.queue.Len() > 0 {
		return false
	}
	for _, e := range s.entries {
		if e.wanted && !e.parked && e.state != StateMeshed {
			return false
		}
	}
	return true
}

// State returns the streaming state of coord.
func (s *Scheduler) State(coord world.ChunkCoord) State {
	if e, ok := s.entries[coord]; ok {
		return e.state
	}
	return StateUnloaded
}

// Wanted reports whether coord is in the current required set.
func (s *Scheduler) Wanted(coord world.ChunkCoord) bool {
	e, ok := s.entries[coord]
	return ok && e.wanted
}

// TargetLOD returns the level of detail chosen for coord.
func (s *Scheduler) TargetLOD(coord world.ChunkCoord) (int, bool) {
	e, ok := s.entries[coord]
	if !ok {
		return 0, false
	}
	return e.lod, true
}

// Stats returns current counts.
func (s *Scheduler) Stats() Stats {
	st := Stats{
		Tracked:   len(s.entries),
		Resident:  s.store.Len(),
		Queued:    s.queue.Len(),
		InFlight:  s.inFlight,
		Committed: s.committed,
		Discarded: s.discarded,
		Evicted:   s.evicted,
	}
	for _, e := range s.entries {
		if e.wanted {
			st.Wanted++
		}
		if e.state == StateMeshed {
			st.Meshed++
		}
	}
	return st
}

// MarkDirty schedules a re-mesh of a resident chunk whose samples, or whose
// neighbours' boundary samples, changed.
func (s *Scheduler) MarkDirty(coord world.ChunkCoord) {
	s.cache.Expire(coord)
	e, ok := s.entries[coord]
	if !ok || !s.store.Has(coord) {
		return
	}
	e.state = StateDirty
	if e.wanted && !e.parked {
		s.tryMesh(e, false)
	}
}

// Preload commits chunks generated outside the worker pool, such as a
// parallel warm-up around the spawn point. Chunks that are not wanted, are
// already resident or have a job in flight are recycled. It returns the
// number of chunks adopted.
func (s *Scheduler) Preload(chunks []*world.Chunk) int {
	if s.needRecompute {
		s.recompute()
	}
	adopted := 0
	for _, c := range chunks {
		if c == nil {
			continue
		}
		e, ok := s.entries[c.Coord]
		if !ok || !e.wanted || e.parked || e.flight != 0 || s.store.Has(c.Coord) {
			world.Recycle(c)
			continue
		}
		s.queue.remove(c.Coord)
		s.seq++
		e.latest = s.seq
		s.commitChunk(e, Result{Req: Request{Coord: c.Coord, Kind: KindGenerate, Seq: e.latest}, Chunk: c})
		adopted++
	}
	return adopted
}

func (s *Scheduler) drain() {
	for {
		select {
		case r := <-s.pool.Results():
			s.commit(r)
		default:
			return
		}
	}
}

func (s *Scheduler) recompute() {
	defer profiling.Track("streaming.recompute")()
	s.needRecompute = false
	s.recomputed = true
	s.lastRecompute = s.viewer
	s.center = world.ChunkAt(s.viewer)

	for coord, e := range s.entries {
		e.parked = false
		e.wanted = s.cfg.Wants(s.center, coord)
		if e.wanted {
			if e.unloading {
				s.queue.remove(coord)
				e.unloading = false
			}
			continue
		}
		if !s.cfg.Retains(s.center, coord) {
			s.requestUnload(e)
			continue
		}
		s.cancel(e)
	}

	required := s.cfg.Required(s.center)
	for _, coord := range required {
		e, ok := s.entries[coord]
		if !ok {
			e = &entry{coord: coord, meshLOD: -1}
			s.entries[coord] = e
		}
		e.wanted = true
		e.lod = s.cfg.LODFor(s.center, coord)
		if e.state == StateUnloaded {
			s.request(e, KindGenerate, 0)
			e.state = StateGenerating
		}
	}
	// LOD bands moved: meshes whose level or seams changed are rebuilt, or
	// reactivated from the cache.
	for _, coord := range required {
		e := s.entries[coord]
		switch e.state {
		case StateReady, StateDirty:
			s.tryMesh(e, true)
		case StateMeshed:
			if e.meshLOD != e.lod || e.meshSeams != s.seams(coord, e.lod) {
				s.tryMesh(e, true)
			}
		case StateMeshing:
			if e.pendingLOD != e.lod || e.pendingSeams != s.seams(coord, e.lod) {
				s.tryMesh(e, true)
			}
		}
	}
	s.queue.reprioritize(s.priority)
}

func (s *Scheduler) priority(coord world.ChunkCoord) int {
	return s.center.DistSq(coord)
}

func (s *Scheduler) request(e *entry, kind Kind, lod int) {
	s.seq++
	e.latest = s.seq
	s.queue.upsert(Request{Coord: e.coord, Kind: kind, LOD: lod, Seq: s.seq, Priority: s.priority(e.coord)})
}

// cancel drops queued work for e and makes in-flight work stale.
func (s *Scheduler) cancel(e *entry) {
	s.queue.remove(e.coord)
	s.seq++
	e.latest = s.seq
	switch e.state {
	case StateGenerating:
		e.state = StateUnloaded
	case StateMeshing:
		if e.meshLOD >= 0 {
			e.state = StateDirty
		} else {
			e.state = StateReady
		}
	}
}

// requestUnload drops e now if no job is running for it. Otherwise the
// running job is made stale and a KindUnload request evicts the chunk once
// the job has been committed.
func (s *Scheduler) requestUnload(e *entry) {
	if e.flight == 0 {
		s.unload(e)
		return
	}
	if e.unloading {
		return
	}
	s.cancel(e)
	s.request(e, KindUnload, 0)
	e.unloading = true
}

func (s *Scheduler) unload(e *entry) {
	s.queue.remove(e.coord)
	s.cache.Invalidate(e.coord)
	s.store.Evict(e.coord)
	delete(s.entries, e.coord)
}

// neighborsReady reports whether every wanted neighbour of coord is
// resident. Unwanted neighbours are extrapolated by the gather.
func (s *Scheduler) neighborsReady(coord world.ChunkCoord) bool {
	for _, d := range world.NeighborOffsets {
		n := coord.Add(d)
		ne, ok := s.entries[n]
		if ok && ne.wanted && !ne.parked && !s.store.Has(n) {
			return false
		}
	}
	return true
}

func (s *Scheduler) neighborMask(coord world.ChunkCoord) uint32 {
	var m uint32
	for i, d := range world.NeighborOffsets {
		if s.store.Has(coord.Add(d)) {
			m |= 1 << i
		}
	}
	return m
}

// seams lists the faces whose wanted neighbour targets a different LOD.
func (s *Scheduler) seams(coord world.ChunkCoord, lod int) meshing.Seams {
	out := meshing.NoSeams()
	for f, off := range world.FaceOffsets {
		n, ok := s.entries[coord.Add(off)]
		if ok && n.wanted && n.lod != lod {
			out[f] = int8(n.lod)
		}
	}
	return out
}

// tryMesh queues a mesh request for e at its target LOD once its
// neighbours allow it. With useCache a matching cached mesh is reactivated
// instead.
func (s *Scheduler) tryMesh(e *entry, useCache bool) {
	chunk, ok := s.store.Get(e.coord)
	if !ok || !s.neighborsReady(e.coord) {
		return
	}
	seams := s.seams(e.coord, e.lod)
	if useCache && e.meshNeighbors == s.neighborMask(e.coord) {
		if m, ok := s.cache.Get(e.coord, e.lod, chunk.Version); ok && m.Seams == seams {
			s.queue.remove(e.coord)
			s.seq++
			e.latest = s.seq
			s.cache.Activate(e.coord, e.lod, chunk.Version)
			e.state = StateMeshed
			e.meshLOD = e.lod
			e.meshSeams = seams
			return
		}
	}
	s.request(e, KindMesh, e.lod)
	e.state = StateMeshing
	e.pendingLOD = e.lod
	e.pendingSeams = seams
}

func (s *Scheduler) dispatch() {
	var deferred []Request
	for s.inFlight < s.pool.Workers() {
		r, ok := s.queue.pop()
		if !ok {
			break
		}
		e, ok := s.entries[r.Coord]
		if !ok || r.Seq != e.latest {
			continue
		}
		if e.flight != 0 {
			// One job per coordinate at a time; the newer request waits.
			deferred = append(deferred, r)
			continue
		}
		if r.Kind == KindUnload {
			s.unload(e)
			continue
		}
		job, ok := s.prepare(e, r)
		if !ok {
			continue
		}
		if !s.pool.SubmitJob(job) {
			deferred = append(deferred, r)
			break
		}
		if r.Kind == KindMesh {
			s.cache.Pin(r.Coord)
		}
		e.flight = r.Seq
		s.inFlight++
	}
	for _, r := range deferred {
		s.queue.upsert(r)
	}
}

func (s *Scheduler) prepare(e *entry, r Request) (Job, bool) {
	job := Job{Req: r}
	switch r.Kind {
	case KindGenerate:
		job.Edits = s.journal.Prefix(s.journal.Len())
	case KindMesh:
		chunk, ok := s.store.Get(r.Coord)
		if !ok {
			return job, false
		}
		grid, ok := meshing.GatherBoundary(s.store, r.Coord)
		if !ok {
			return job, false
		}
		job.Grid = grid
		job.Seams = s.seams(r.Coord, r.LOD)
		job.Version = chunk.Version
		job.Neighbors = s.neighborMask(r.Coord)
	default:
		return job, false
	}
	return job, true
}

func (s *Scheduler) commit(r Result) {
	defer profiling.Track("streaming.commit")()
	s.inFlight--
	e, ok := s.entries[r.Req.Coord]
	if ok && e.flight == r.Req.Seq {
		e.flight = 0
	}
	switch r.Req.Kind {
	case KindGenerate:
		s.commitChunk(e, r)
	case KindMesh:
		s.cache.Unpin(r.Req.Coord)
		s.commitMesh(e, r)
	}
}

func (s *Scheduler) stale(e *entry, r Result) bool {
	return e == nil || !e.wanted || r.Req.Seq != e.latest
}

func (s *Scheduler) discard(r Result) {
	s.discarded++
	profiling.Count("streaming.staleDiscards")
	world.Recycle(r.Chunk)
}

func (s *Scheduler) commitChunk(e *entry, r Result) {
	if s.stale(e, r) {
		s.discard(r)
		return
	}
	c := r.Chunk
	// Edits applied while the chunk was being generated.
	s.journal.CatchUp(c, s.gen.Range())
	if err := s.store.Insert(c); err != nil {
		s.logger.Printf("streaming: insert %v: %v", c.Coord, err)
		world.Recycle(c)
		e.state = StateUnloaded
		return
	}
	s.committed++
	profiling.Count("streaming.commits")
	e.state = StateReady
	s.tryMesh(e, false)

	for _, d := range world.NeighborOffsets {
		n, ok := s.entries[e.coord.Add(d)]
		if !ok || !n.wanted || n.parked {
			continue
		}
		switch n.state {
		case StateReady, StateDirty:
			s.tryMesh(n, false)
		case StateMeshed:
			// The neighbour's mesh extrapolated across this chunk.
			back := world.NeighborIndex(world.ChunkCoord{X: -d.X, Y: -d.Y, Z: -d.Z})
			if n.meshNeighbors&(1<<back) == 0 {
				s.tryMesh(n, false)
			}
		}
	}
}

func (s *Scheduler) commitMesh(e *entry, r Result) {
	if s.stale(e, r) {
		s.discard(r)
		return
	}
	chunk, ok := s.store.Get(r.Req.Coord)
	if !ok || chunk.Version != r.Version {
		s.discard(r)
		return
	}
	s.cache.Put(r.Mesh, r.Version)
	chunk.LOD = r.Mesh.LOD
	chunk.State = world.StateReady
	e.state = StateMeshed
	e.meshLOD = r.Mesh.LOD
	e.meshSeams = r.Mesh.Seams
	e.meshNeighbors = r.Neighbors
	s.committed++
	profiling.Count("streaming.commits")

	// A neighbour arrived while this mesh was being built.
	if s.neighborMask(e.coord)&^r.Neighbors != 0 {
		s.tryMesh(e, false)
	}
}

// meshEvicted is the cache's eviction callback.
func (s *Scheduler) meshEvicted(coord world.ChunkCoord) {
	e, ok := s.entries[coord]
	if !ok || e.state != StateMeshed {
		return
	}
	e.state = StateReady
	e.meshLOD = -1
	if e.wanted {
		e.parked = true
	}
}

// enforceBudget evicts idle chunks past MaxResidentChunks: unwanted ones
// first, then the furthest wanted ones, which are parked.
func (s *Scheduler) enforceBudget() {
	limit := s.cfg.MaxResidentChunks
	if limit <= 0 || s.store.Len() <= limit {
		return
	}
	coords := s.store.Coords()
	slices.SortFunc(coords, func(a, b world.ChunkCoord) int {
		wa, wb := s.Wanted(a), s.Wanted(b)
		if wa != wb {
			if wa {
				return 1
			}
			return -1
		}
		return s.center.DistSq(b) - s.center.DistSq(a)
	})
	for _, coord := range coords {
		if s.store.Len() <= limit {
			break
		}
		e, ok := s.entries[coord]
		if ok && e.flight != 0 {
			continue
		}
		s.evicted++
		profiling.Count("streaming.budgetEvictions")
		if !ok || !e.wanted {
			if ok {
				s.unload(e)
			} else {
				s.cache.Invalidate(coord)
				s.store.Evict(coord)
			}
			continue
		}
		s.queue.remove(coord)
		s.cache.Invalidate(coord)
		s.store.Evict(coord)
		e.state = StateUnloaded
		e.meshLOD = -1
		e.meshNeighbors = 0
		e.parked = true
		if !s.budgetWarned {
			s.budgetWarned = true
			s.logger.Printf("streaming: resident budget %d exceeded, parking wanted chunks", limit)
		}
	}
}
