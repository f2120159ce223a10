package world

import (
	"log"

	"voxel-terrain/internal/density"
	"voxel-terrain/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

// Generator fills chunks from a density sampler. It holds no mutable state
// and is shared by every generation worker.
type Generator struct {
	sampler density.Sampler
	rng     density.Range
}

// NewGenerator wraps s so non-finite samples are clamped and logged.
func NewGenerator(s density.Sampler, logger *log.Logger) *Generator {
	if _, ok := s.(*density.Safe); !ok {
		s = density.NewSafe(s, logger)
	}
	return &Generator{sampler: s, rng: s.Range()}
}

// Range returns the density range samples are clamped to.
func (g *Generator) Range() density.Range {
	return g.rng
}

// Generate builds the chunk at coord and replays the journal edits that
// reach it, in order. The result is Ready and depends only on coord, the
// sampler configuration and edits.
func (g *Generator) Generate(coord ChunkCoord, edits []Edit) *Chunk {
	defer profiling.Track("world.Generate")()

	c := NewChunk(coord)
	c.State = StateGenerating

	ox, oy, oz := coord.X*ChunkSize, coord.Y*ChunkSize, coord.Z*ChunkSize
	for y := 0; y < ChunkSize; y++ {
		for z := 0; z < ChunkSize; z++ {
			for x := 0; x < ChunkSize; x++ {
				p := mgl32.Vec3{float32(ox + x), float32(oy + y), float32(oz + z)}
				d := g.rng.Clamp(g.sampler.Sample(p))
				c.samples[index(x, y, z)] = Sample{Density: d, Material: MaterialFor(d)}
			}
		}
	}

	for _, e := range edits {
		ApplyEdit(c, e, g.rng)
	}
	c.EditSeq = uint64(len(edits))
	c.State = StateReady
	return c
}
