package meshing

import (
	"container/list"
	"log"

	"voxel-terrain/internal/profiling"
	"voxel-terrain/internal/world"
)

// DefaultMaxMeshes bounds the cache when no budget is configured.
const DefaultMaxMeshes = 4096

type cachedMesh struct {
	mesh    *Mesh
	version uint64
	// expired meshes stay on screen but never satisfy Get.
	expired bool
}

type cacheEntry struct {
	coord  world.ChunkCoord
	meshes map[int]cachedMesh
	// active is the LOD currently uploaded to the sink, or -1.
	active int
	pins   int
	elem   *list.Element
}

// Cache holds extracted meshes per chunk and LOD and mirrors the active one
// into a Sink. Recency is driven by Touch (last rendered). Not safe for
// concurrent use; it lives on the coordinating goroutine with the Store.
type Cache struct {
	sink    Sink
	max     int
	entries map[world.ChunkCoord]*cacheEntry
	lru     *list.List // front = most recently rendered
	total   int

	// OnEvict is called after a coordinate lost all its meshes to the budget.
	OnEvict func(coord world.ChunkCoord)
	logger  *log.Logger
	warned  bool
}

// NewCache creates a cache bounded to maxMeshes meshes across all LODs.
func NewCache(sink Sink, maxMeshes int, logger *log.Logger) *Cache {
	if sink == nil {
		sink = NopSink{}
	}
	if maxMeshes <= 0 {
		maxMeshes = DefaultMaxMeshes
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Cache{
		sink:    sink,
		max:     maxMeshes,
		entries: make(map[world.ChunkCoord]*cacheEntry),
		lru:     list.New(),
		logger:  logger,
	}
}

// Len returns the number of cached meshes across all LODs.
func (c *Cache) Len() int { return c.total }

// Coords returns the number of coordinates with at least one mesh.
func (c *Cache) Coords() int { return len(c.entries) }

// Get returns the mesh for coord at lod if it was built from the given chunk
// version.
func (c *Cache) Get(coord world.ChunkCoord, lod int, version uint64) (*Mesh, bool) {
	e, ok := c.entries[coord]
	if !ok {
		return nil, false
	}
	cm, ok := e.meshes[lod]
	if !ok || cm.expired || cm.version != version {
		return nil, false
	}
	return cm.mesh, true
}

// Active returns the LOD currently shown for coord.
func (c *Cache) Active(coord world.ChunkCoord) (int, bool) {
	e, ok := c.entries[coord]
	if !ok || e.active < 0 {
		return 0, false
	}
	return e.active, true
}

// Put stores m as built from the chunk version and makes it the active mesh
// for its coordinate, replacing whatever the sink showed before.
func (c *Cache) Put(m *Mesh, version uint64) {
	e := c.entry(m.Coord)
	if _, ok := e.meshes[m.LOD]; !ok {
		c.total++
	}
	e.meshes[m.LOD] = cachedMesh{mesh: m, version: version}
	c.show(e, m.LOD)
	c.lru.MoveToFront(e.elem)
	c.evict(m.Coord)
}

// Activate switches coord to a previously cached LOD. It reports false when
// no mesh for that LOD and version exists.
func (c *Cache) Activate(coord world.ChunkCoord, lod int, version uint64) bool {
	if _, ok := c.Get(coord, lod, version); !ok {
		return false
	}
	e := c.entries[coord]
	c.show(e, lod)
	return true
}

func (c *Cache) show(e *cacheEntry, lod int) {
	if e.active >= 0 && e.active != lod {
		c.sink.Remove(e.coord, e.active)
	}
	e.active = lod
	c.sink.Upload(e.meshes[lod].mesh)
}

// Invalidate drops every mesh for coord and removes it from the sink. A
// pinned entry keeps its pins so the in-flight job still finds them.
func (c *Cache) Invalidate(coord world.ChunkCoord) {
	e, ok := c.entries[coord]
	if !ok {
		return
	}
	if e.pins > 0 {
		if e.active >= 0 {
			c.sink.Remove(e.coord, e.active)
			e.active = -1
		}
		c.total -= len(e.meshes)
		clear(e.meshes)
		return
	}
	c.drop(e)
}

// Expire marks every mesh of coord as out of date after its samples or its
// neighbours' boundary samples changed. Inactive LODs are dropped; the
// active mesh stays in the sink until a rebuilt one replaces it.
func (c *Cache) Expire(coord world.ChunkCoord) {
	e, ok := c.entries[coord]
	if !ok {
		return
	}
	for lod, cm := range e.meshes {
		if lod != e.active {
			delete(e.meshes, lod)
			c.total--
			continue
		}
		cm.expired = true
		e.meshes[lod] = cm
	}
}

// Touch marks coord as rendered this frame.
func (c *Cache) Touch(coord world.ChunkCoord) {
	if e, ok := c.entries[coord]; ok {
		c.lru.MoveToFront(e.elem)
	}
}

// Pin protects coord from eviction while a re-mesh is in flight. Pins nest.
func (c *Cache) Pin(coord world.ChunkCoord) {
	c.entry(coord).pins++
}

// Unpin releases one Pin. Empty unpinned entries are dropped.
func (c *Cache) Unpin(coord world.ChunkCoord) {
	e, ok := c.entries[coord]
	if !ok || e.pins == 0 {
		return
	}
	e.pins--
	if e.pins == 0 && len(e.meshes) == 0 {
		c.drop(e)
	}
}

func (c *Cache) entry(coord world.ChunkCoord) *cacheEntry {
	if e, ok := c.entries[coord]; ok {
		return e
	}
	e := &cacheEntry{coord: coord, meshes: make(map[int]cachedMesh, 1), active: -1}
	e.elem = c.lru.PushFront(e)
	c.entries[coord] = e
	return e
}

func (c *Cache) drop(e *cacheEntry) {
	if e.active >= 0 {
		c.sink.Remove(e.coord, e.active)
	}
	c.total -= len(e.meshes)
	c.lru.Remove(e.elem)
	delete(c.entries, e.coord)
}

// evict restores the budget. Inactive LODs go first, then whole coordinates
// from least recently rendered; pinned coordinates and keep are skipped.
// If nothing is evictable the cache stays over budget.
func (c *Cache) evict(keep world.ChunkCoord) {
	if c.total <= c.max {
		return
	}
	for el := c.lru.Back(); el != nil && c.total > c.max; el = el.Prev() {
		e := el.Value.(*cacheEntry)
		if e.pins > 0 {
			continue
		}
		for lod := range e.meshes {
			if lod != e.active {
				delete(e.meshes, lod)
				c.total--
			}
		}
	}
	for el := c.lru.Back(); el != nil && c.total > c.max; {
		e := el.Value.(*cacheEntry)
		prev := el.Prev()
		if e.pins == 0 && e.coord != keep {
			c.drop(e)
			profiling.Count("meshing.cacheEvictions")
			if c.OnEvict != nil {
				c.OnEvict(e.coord)
			}
		}
		el = prev
	}
	if c.total > c.max && !c.warned {
		c.warned = true
		c.logger.Printf("meshing: cache over budget (%d/%d), all remaining entries pinned", c.total, c.max)
	}
}
