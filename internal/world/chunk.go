package world

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sync"
)

// State is the generation state of a chunk.
type State uint8

const (
	StateEmpty State = iota
	StateGenerating
	StateReady
	StateDirty
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateGenerating:
		return "generating"
	case StateReady:
		return "ready"
	case StateDirty:
		return "dirty"
	}
	return "unknown"
}

// Chunk is a ChunkSize³ block of samples. Samples are only meaningful when
// the chunk is Ready or Dirty.
type Chunk struct {
	Coord ChunkCoord
	State State
	// LOD is the level the chunk was last meshed at, -1 if never meshed.
	LOD int
	// Version increases on every sample mutation.
	Version uint64
	// EditSeq is the number of journal edits reflected in the samples.
	EditSeq uint64

	samples [ChunkVolume]Sample
}

var chunkPool = sync.Pool{
	New: func() any { return new(Chunk) },
}

// NewChunk returns an empty chunk at coord. Chunks come from a shared pool so
// evicted sample buffers are reused.
func NewChunk(coord ChunkCoord) *Chunk {
	c := chunkPool.Get().(*Chunk)
	c.Coord = coord
	c.State = StateEmpty
	c.LOD = -1
	c.Version = 0
	c.EditSeq = 0
	return c
}

// release returns c to the pool. The caller must hold the only reference.
func release(c *Chunk) {
	c.State = StateEmpty
	chunkPool.Put(c)
}

// Recycle returns a chunk that never made it into a Store to the pool.
func Recycle(c *Chunk) {
	if c != nil {
		release(c)
	}
}

// index converts local coordinates to the flat sample index.
func index(x, y, z int) int {
	return (y*ChunkSize+z)*ChunkSize + x
}

// InBounds reports whether local coordinates address a sample of the chunk.
func InBounds(x, y, z int) bool {
	return x >= 0 && x < ChunkSize && y >= 0 && y < ChunkSize && z >= 0 && z < ChunkSize
}

// At returns the sample at local coordinates. Out-of-range coordinates
// return the zero Sample.
func (c *Chunk) At(x, y, z int) Sample {
	if !InBounds(x, y, z) {
		return Sample{}
	}
	return c.samples[index(x, y, z)]
}

// Set stores a sample at local coordinates and bumps the version.
func (c *Chunk) Set(x, y, z int, s Sample) {
	if !InBounds(x, y, z) {
		return
	}
	i := index(x, y, z)
	if c.samples[i] != s {
		c.samples[i] = s
		c.Version++
	}
}

// Samples exposes the raw sample array for read-only bulk access.
func (c *Chunk) Samples() *[ChunkVolume]Sample {
	return &c.samples
}

// HasSamples reports whether the samples are defined.
func (c *Chunk) HasSamples() bool {
	return c.State == StateReady || c.State == StateDirty
}

// MarkDirty flags a Ready chunk for re-meshing.
func (c *Chunk) MarkDirty() {
	if c.State == StateReady {
		c.State = StateDirty
	}
}

// Homogeneous reports whether every sample lies on the same side of the
// surface; such chunks produce no triangles on their own.
func (c *Chunk) Homogeneous() bool {
	solid := c.samples[0].Solid()
	for i := 1; i < ChunkVolume; i++ {
		if c.samples[i].Solid() != solid {
			return false
		}
	}
	return true
}

// CopyFrom copies coordinate, state and samples of src into c.
func (c *Chunk) CopyFrom(src *Chunk) {
	c.Coord = src.Coord
	c.State = src.State
	c.LOD = src.LOD
	c.Version = src.Version
	c.EditSeq = src.EditSeq
	c.samples = src.samples
}

// Fingerprint hashes the sample grid. Two chunks with equal fingerprints hold
// byte-identical samples.
func Fingerprint(c *Chunk) [32]byte {
	h := sha256.New()
	var buf [5]byte
	for _, s := range c.samples {
		binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(s.Density))
		buf[4] = byte(s.Material)
		h.Write(buf[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
