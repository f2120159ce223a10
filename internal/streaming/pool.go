package streaming

import (
	"context"
	"sync"
	"time"

	"voxel-terrain/internal/meshing"
	"voxel-terrain/internal/world"
)

// Job is the self-contained input of one request. Generate jobs carry the
// journal prefix to replay; mesh jobs carry a private copy of the chunk's
// boundary grid and the chunk version it was gathered from.
type Job struct {
	Req     Request
	Edits   []world.Edit
	Grid    *meshing.BoundaryGrid
	Seams   meshing.Seams
	Version uint64
	// Neighbors has bit i set when NeighborOffsets[i] was resident at gather.
	Neighbors uint32
}

// Result is what a worker hands back for commit on the coordinating
// goroutine.
type Result struct {
	Req       Request
	Chunk     *world.Chunk
	Mesh      *meshing.Mesh
	Complete  bool
	Version   uint64
	Neighbors uint32
	Elapsed   time.Duration
}

// WorkerPool runs generate and mesh jobs on a fixed set of goroutines.
// Results are buffered to the pool size; the scheduler never has more jobs
// in flight than workers, so workers never block on send.
type WorkerPool struct {
	jobQueue chan Job
	results  chan Result
	workers  int
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	gen  *world.Generator
	opts meshing.Options

	// before runs ahead of every job; tests use it to hold jobs in flight.
	before func(Job)
}

func newWorkerPool(workers int, gen *world.Generator, opts meshing.Options, before func(Job)) *WorkerPool {
	workers = max(workers, 1)
	ctx, cancel := context.WithCancel(context.Background())
	pool := &WorkerPool{
		jobQueue: make(chan Job, workers),
		results:  make(chan Result, workers),
		workers:  workers,
		ctx:      ctx,
		cancel:   cancel,
		gen:      gen,
		opts:     opts,
		before:   before,
	}
	for i := range workers {
		pool.wg.Add(1)
		go pool.worker(i)
	}
	return pool
}

// Workers returns the pool size.
func (p *WorkerPool) Workers() int { return p.workers }

// SubmitJob queues a job without blocking. It returns false if the queue is
// full or the pool is shut down.
func (p *WorkerPool) SubmitJob(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case p.jobQueue <- job:
		return true
	default:
		return false
	}
}

// Results delivers finished jobs.
func (p *WorkerPool) Results() <-chan Result {
	return p.results
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobQueue:
			if p.before != nil {
				p.before(job)
			}
			result := p.run(job)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *WorkerPool) run(job Job) Result {
	start := time.Now()
	res := Result{Req: job.Req, Version: job.Version, Neighbors: job.Neighbors}
	switch job.Req.Kind {
	case KindGenerate:
		res.Chunk = p.gen.Generate(job.Req.Coord, job.Edits)
	case KindMesh:
		res.Mesh = meshing.Extract(job.Grid, job.Req.LOD, job.Seams, p.opts)
		res.Complete = job.Grid.Complete
	}
	res.Elapsed = time.Since(start)
	return res
}

// Shutdown stops the workers and waits for them. Jobs still queued are
// dropped.
func (p *WorkerPool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}
