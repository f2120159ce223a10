// Package edit applies carve and build operations to resident terrain.
package edit

import (
	"errors"
	"fmt"
	"log"
	"math"

	"voxel-terrain/internal/density"
	"voxel-terrain/internal/profiling"
	"voxel-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

type (
	Edit = world.Edit
	Mode = world.EditMode
)

const (
	Carve = world.Carve
	Build = world.Build
)

// ErrInvalidEdit is returned for edits with a non-finite centre or a
// non-positive radius or strength.
var ErrInvalidEdit = errors.New("edit: invalid edit")

// apronPad is how far outside its own box a chunk's mesh reads samples.
const apronPad = 2

// Remesher is notified of chunks whose mesh is out of date.
type Remesher interface {
	MarkDirty(coord world.ChunkCoord)
}

// Log persists journal entries.
type Log interface {
	Append(seq uint64, e world.Edit) error
}

// Result describes what an applied edit touched.
type Result struct {
	// Seq is the journal sequence number assigned to the edit.
	Seq uint64
	// Mutated lists chunks whose samples changed.
	Mutated []world.ChunkCoord
	// Dirtied lists chunks queued for re-meshing, mutated ones included.
	Dirtied []world.ChunkCoord
}

// Applicator owns the write path for edits. It runs on the coordinating
// goroutine, the same one that commits streaming results.
type Applicator struct {
	store    *world.Store
	journal  *world.Journal
	rng      density.Range
	remesher Remesher
	log      Log
	logger   *log.Logger

	scratch []*world.Chunk
}

// NewApplicator wires an applicator. remesher and log may be nil.
func NewApplicator(store *world.Store, journal *world.Journal, rng density.Range, remesher Remesher, log Log, logger *log.Logger) *Applicator {
	if logger == nil {
		logger = defaultLogger()
	}
	return &Applicator{
		store:    store,
		journal:  journal,
		rng:      rng,
		remesher: remesher,
		log:      log,
		logger:   logger,
	}
}

// Validate reports whether e can be applied.
func Validate(e Edit) error {
	for i := 0; i < 3; i++ {
		v := float64(e.Center[i])
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: centre %v", ErrInvalidEdit, e.Center)
		}
	}
	if !(e.Radius > 0) || math.IsInf(float64(e.Radius), 0) {
		return fmt.Errorf("%w: radius %v", ErrInvalidEdit, e.Radius)
	}
	if !(e.Strength > 0) || math.IsInf(float64(e.Strength), 0) {
		return fmt.Errorf("%w: strength %v", ErrInvalidEdit, e.Strength)
	}
	if e.Mode != Carve && e.Mode != Build {
		return fmt.Errorf("%w: mode %d", ErrInvalidEdit, e.Mode)
	}
	return nil
}

// Apply records e in the journal and mutates every resident chunk it reaches.
// Chunks whose meshes sample the touched region, including neighbours whose
// apron overlaps it, are marked dirty. Chunks that are not resident pick the
// edit up from the journal when they are generated.
func (a *Applicator) Apply(e Edit) (Result, error) {
	if err := Validate(e); err != nil {
		return Result{}, err
	}
	defer profiling.Track("edit.Apply")()

	res := Result{Seq: a.journal.Append(e)}
	if a.log != nil {
		if err := a.log.Append(res.Seq, e); err != nil {
			a.logger.Printf("edit: persist #%d: %v", res.Seq, err)
		}
	}

	// One extra chunk on each side covers the apron of face and corner
	// neighbours.
	lo, hi := e.Bounds()
	clo, _, _, _ := world.ChunkOfSample(lo[0], lo[1], lo[2])
	chi, _, _, _ := world.ChunkOfSample(hi[0], hi[1], hi[2])
	clo = clo.Add(world.ChunkCoord{X: -1, Y: -1, Z: -1})
	chi = chi.Add(world.ChunkCoord{X: 1, Y: 1, Z: 1})
	a.scratch = a.store.ChunksInBox(clo, chi, a.scratch[:0])

	for _, c := range a.scratch {
		if !c.HasSamples() || !e.IntersectsChunk(c.Coord, 0) {
			continue
		}
		// CatchUp replays every journal entry the chunk has not seen,
		// this edit included.
		if a.journal.CatchUp(c, a.rng) {
			res.Mutated = append(res.Mutated, c.Coord)
		}
	}
	if len(res.Mutated) == 0 {
		return res, nil
	}

	for _, c := range a.scratch {
		if !c.HasSamples() || !e.IntersectsChunk(c.Coord, apronPad) {
			continue
		}
		c.MarkDirty()
		res.Dirtied = append(res.Dirtied, c.Coord)
		if a.remesher != nil {
			a.remesher.MarkDirty(c.Coord)
		}
	}
	profiling.Add("edit.dirtied", uint64(len(res.Dirtied)))
	return res, nil
}

// Sphere is a convenience constructor.
func Sphere(center mgl32.Vec3, radius, strength float32, mode Mode) Edit {
	return Edit{Center: center, Radius: radius, Strength: strength, Mode: mode}
}

func defaultLogger() *log.Logger { return log.Default() }
