package streaming

import (
	"container/heap"

	"voxel-terrain/internal/world"
)

// Kind is the work a request asks for.
type Kind uint8

const (
	KindGenerate Kind = iota
	KindMesh
	KindUnload
)

func (k Kind) String() string {
	switch k {
	case KindGenerate:
		return "generate"
	case KindMesh:
		return "mesh"
	case KindUnload:
		return "unload"
	}
	return "unknown"
}

// Request is one unit of streaming work for a coordinate. Seq increases
// across all requests; for a coordinate only the latest Seq may commit.
type Request struct {
	Coord    world.ChunkCoord
	Kind     Kind
	LOD      int
	Seq      uint64
	Priority int

	index int
}

// requestQueue is a min-heap on (Priority, Seq) holding at most one request
// per coordinate.
type requestQueue struct {
	items   []*Request
	byCoord map[world.ChunkCoord]*Request
}

func newRequestQueue() *requestQueue {
	return &requestQueue{byCoord: make(map[world.ChunkCoord]*Request)}
}

func (q *requestQueue) Len() int { return len(q.items) }

func (q *requestQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.Seq < b.Seq
}

func (q *requestQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index = i
	q.items[j].index = j
}

func (q *requestQueue) Push(x any) {
	r := x.(*Request)
	r.index = len(q.items)
	q.items = append(q.items, r)
}

func (q *requestQueue) Pop() any {
	old := q.items
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	r.index = -1
	q.items = old[:n-1]
	return r
}

// upsert queues r, replacing any queued request for the same coordinate.
func (q *requestQueue) upsert(r Request) {
	if cur, ok := q.byCoord[r.Coord]; ok {
		idx := cur.index
		*cur = r
		cur.index = idx
		heap.Fix(q, idx)
		return
	}
	nr := r
	q.byCoord[r.Coord] = &nr
	heap.Push(q, &nr)
}

func (q *requestQueue) remove(coord world.ChunkCoord) bool {
	r, ok := q.byCoord[coord]
	if !ok {
		return false
	}
	heap.Remove(q, r.index)
	delete(q.byCoord, coord)
	return true
}

// pop returns the most urgent request.
func (q *requestQueue) pop() (Request, bool) {
	if len(q.items) == 0 {
		return Request{}, false
	}
	r := heap.Pop(q).(*Request)
	delete(q.byCoord, r.Coord)
	return *r, true
}

// reprioritize recomputes every priority and restores heap order.
func (q *requestQueue) reprioritize(priority func(world.ChunkCoord) int) {
	for _, r := range q.items {
		r.Priority = priority(r.Coord)
	}
	heap.Init(q)
}
