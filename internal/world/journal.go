package world

import "voxel-terrain/internal/density"

// Journal is the ordered, append-only list of applied edits. Sequence
// numbers are 1-based positions; a chunk whose EditSeq is n reflects the
// first n entries.
type Journal struct {
	edits []Edit
}

// Append records e and returns its sequence number.
func (j *Journal) Append(e Edit) uint64 {
	j.edits = append(j.edits, e)
	return uint64(len(j.edits))
}

// Len returns the number of recorded edits.
func (j *Journal) Len() uint64 {
	return uint64(len(j.edits))
}

// Prefix returns the first n edits. The result aliases the journal; entries
// before n are never rewritten, so a worker may read it while new edits are
// appended.
func (j *Journal) Prefix(n uint64) []Edit {
	n = min(n, uint64(len(j.edits)))
	return j.edits[:n:n]
}

// Since returns the edits after sequence number seq.
func (j *Journal) Since(seq uint64) []Edit {
	if seq >= uint64(len(j.edits)) {
		return nil
	}
	return j.edits[seq:]
}

// All returns every recorded edit.
func (j *Journal) All() []Edit {
	return j.edits
}

// CatchUp applies the journal entries c has not seen yet. It reports whether
// any sample changed.
func (j *Journal) CatchUp(c *Chunk, r density.Range) bool {
	changed := false
	for _, e := range j.Since(c.EditSeq) {
		if ApplyEdit(c, e, r) {
			changed = true
		}
	}
	c.EditSeq = j.Len()
	return changed
}
