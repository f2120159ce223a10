package world

import (
	"errors"
	"fmt"

	"voxel-terrain/internal/assert"
)

var (
	// ErrGeneratingChunk rejects commits of chunks whose generation has not finished.
	ErrGeneratingChunk = errors.New("world: chunk is still generating")
	// ErrNilChunk rejects nil commits.
	ErrNilChunk = errors.New("world: nil chunk")
)

// Store owns every resident chunk. Chunks live in a dense slot arena indexed
// by coordinate; evicted slots are reused. The store is confined to the
// coordinating goroutine and does no locking.
type Store struct {
	slots []*Chunk
	free  []int32
	index map[ChunkCoord]int32
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{index: make(map[ChunkCoord]int32)}
}

// Len returns the number of resident chunks.
func (s *Store) Len() int {
	return len(s.index)
}

// Get returns the resident chunk at coord. The pointer is a borrow valid
// until the next Insert or Evict for that coordinate.
func (s *Store) Get(coord ChunkCoord) (*Chunk, bool) {
	i, ok := s.index[coord]
	if !ok {
		return nil, false
	}
	c := s.slots[i]
	if !assert.That(c.State != StateGenerating, "store holds generating chunk %v", coord) {
		return nil, false
	}
	return c, true
}

// Has reports whether coord is resident.
func (s *Store) Has(coord ChunkCoord) bool {
	_, ok := s.index[coord]
	return ok
}

// Insert commits a generated or edited chunk, replacing any chunk already
// stored at the same coordinate. Chunks that are not Ready or Dirty are
// rejected.
func (s *Store) Insert(c *Chunk) error {
	if c == nil {
		return ErrNilChunk
	}
	if !c.HasSamples() {
		assert.Fail("insert of %s chunk %v", c.State, c.Coord)
		if c.State == StateGenerating {
			return ErrGeneratingChunk
		}
		return fmt.Errorf("world: insert of %s chunk %v", c.State, c.Coord)
	}

	if i, ok := s.index[c.Coord]; ok {
		if old := s.slots[i]; old != c {
			release(old)
		}
		s.slots[i] = c
		return nil
	}

	var i int32
	if n := len(s.free); n > 0 {
		i = s.free[n-1]
		s.free = s.free[:n-1]
		s.slots[i] = c
	} else {
		i = int32(len(s.slots))
		s.slots = append(s.slots, c)
	}
	s.index[c.Coord] = i
	return nil
}

// Evict drops the chunk at coord and recycles its sample buffer. Mesh
// requests hold copies of the samples and are unaffected.
func (s *Store) Evict(coord ChunkCoord) bool {
	i, ok := s.index[coord]
	if !ok {
		return false
	}
	release(s.slots[i])
	s.slots[i] = nil
	s.free = append(s.free, i)
	delete(s.index, coord)
	return true
}

// Neighbors returns the 26 chunks around coord in NeighborOffsets order;
// absent entries are nil.
func (s *Store) Neighbors(coord ChunkCoord) [26]*Chunk {
	var out [26]*Chunk
	for i, d := range NeighborOffsets {
		if c, ok := s.Get(coord.Add(d)); ok {
			out[i] = c
		}
	}
	return out
}

// FaceNeighbors returns the six face-adjacent chunks indexed by Face.
func (s *Store) FaceNeighbors(coord ChunkCoord) [6]*Chunk {
	var out [6]*Chunk
	for f, d := range FaceOffsets {
		if c, ok := s.Get(coord.Add(d)); ok {
			out[f] = c
		}
	}
	return out
}

// SampleAt returns the sample at integer world position (x,y,z), crossing
// chunk boundaries as needed.
func (s *Store) SampleAt(x, y, z int) (Sample, bool) {
	coord, lx, ly, lz := ChunkOfSample(x, y, z)
	c, ok := s.Get(coord)
	if !ok {
		return Sample{}, false
	}
	return c.At(lx, ly, lz), true
}

// ChunksInBox appends every resident chunk with lo <= coord <= hi on all
// axes to dst.
func (s *Store) ChunksInBox(lo, hi ChunkCoord, dst []*Chunk) []*Chunk {
	volume := (hi.X - lo.X + 1) * (hi.Y - lo.Y + 1) * (hi.Z - lo.Z + 1)
	if volume > len(s.index) {
		for coord, i := range s.index {
			if coord.X >= lo.X && coord.X <= hi.X && coord.Y >= lo.Y && coord.Y <= hi.Y && coord.Z >= lo.Z && coord.Z <= hi.Z {
				dst = append(dst, s.slots[i])
			}
		}
		return dst
	}
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				if c, ok := s.Get(ChunkCoord{X: x, Y: y, Z: z}); ok {
					dst = append(dst, c)
				}
			}
		}
	}
	return dst
}

// ForEach calls fn for each resident chunk until fn returns false. fn must
// not insert or evict.
func (s *Store) ForEach(fn func(c *Chunk) bool) {
	for _, i := range s.index {
		if !fn(s.slots[i]) {
			return
		}
	}
}

// Coords returns the coordinates of all resident chunks.
func (s *Store) Coords() []ChunkCoord {
	out := make([]ChunkCoord, 0, len(s.index))
	for coord := range s.index {
		out = append(out, coord)
	}
	return out
}
