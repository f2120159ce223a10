// Command terrain-bake generates and meshes terrain without a window. It
// reports mesh statistics, writes preview images and moves edit journals in
// and out of snapshots.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"time"

	"voxel-terrain/internal/config"
	"voxel-terrain/internal/meshing"
	"voxel-terrain/internal/preview"
	"voxel-terrain/internal/profiling"
	"voxel-terrain/internal/terrain"
	"voxel-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

func main() {
	var (
		configPath  = flag.String("config", "", "YAML config (defaults when empty)")
		x           = flag.Float64("x", 8, "warm-up centre x")
		y           = flag.Float64("y", 32, "warm-up centre y")
		z           = flag.Float64("z", 8, "warm-up centre z")
		radius      = flag.Int("radius", 0, "override streaming.radius")
		previewPath = flag.String("preview", "", "write a top-down PNG here")
		previewMode = flag.String("preview_mode", string(preview.ModeHeight), "height or slice")
		previewSize = flag.Int("preview_size", 256, "preview width in samples")
		exportPath  = flag.String("export", "", "write a snapshot of the edit journal")
		importPath  = flag.String("import", "", "apply the edits of a snapshot before baking")
		timeout     = flag.Duration("timeout", 2*time.Minute, "give up after")
		top         = flag.Int("top", 8, "profiling spans to report")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			os.Exit(2)
		}
	}
	if *radius > 0 {
		cfg.Streaming.Radius = *radius
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	stats := &meshStats{}
	engine, err := terrain.New(cfg, stats, log.Default())
	if err != nil {
		fmt.Fprintln(os.Stderr, "engine:", err)
		os.Exit(1)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Printf("bake: close: %v", err)
		}
	}()

	center := mgl32.Vec3{float32(*x), float32(*y), float32(*z)}
	start := time.Now()
	if err := engine.Warmup(ctx, center); err != nil {
		fmt.Fprintln(os.Stderr, "warmup:", err)
		os.Exit(1)
	}
	warm := time.Since(start)

	if *importPath != "" {
		n, err := engine.ImportSnapshot(*importPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := engine.Settle(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "settle:", err)
			os.Exit(1)
		}
		fmt.Printf("imported %d edits\n", n)
	}

	st := engine.Stats()
	fmt.Printf("warmed %d chunks around %v in %v\n", st.Streaming.Resident, world.ChunkAt(center), warm.Round(time.Millisecond))
	stats.print()
	fmt.Printf("edits=%d committed=%d discarded=%d\n", st.Edits, st.Streaming.Committed, st.Streaming.Discarded)
	fmt.Printf("top spans: %s\n", profiling.TopN(*top))
	printCounters()

	if *previewPath != "" {
		size := *previewSize
		img, err := preview.Render(engine.Sampler(), preview.Options{
			Mode:   preview.Mode(*previewMode),
			X0:     int(center.X()) - size/2,
			Z0:     int(center.Z()) - size/2,
			Size:   size,
			MinY:   cfg.Streaming.MinChunkY * world.ChunkSize,
			MaxY:   (cfg.Streaming.MaxChunkY+1)*world.ChunkSize - 1,
			SliceY: center.Y(),
			Scale:  max(1, 512/size),
			Label:  fmt.Sprintf("%s seed %d", cfg.Terrain.Preset, cfg.Terrain.Seed),
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "preview:", err)
			os.Exit(1)
		}
		if err := preview.WritePNG(*previewPath, img); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("wrote", *previewPath)
	}

	if *exportPath != "" {
		if err := engine.ExportSnapshot(*exportPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("wrote", *exportPath)
	}
}

// meshStats is a meshing.Sink that only counts.
type meshStats struct {
	uploads   int
	removes   int
	triangles map[world.ChunkCoord]int
	skirts    map[world.ChunkCoord]int
	bytes     map[world.ChunkCoord]int
	perLOD    map[int]int
}

func (s *meshStats) Upload(m *meshing.Mesh) {
	if s.triangles == nil {
		s.triangles = make(map[world.ChunkCoord]int)
		s.skirts = make(map[world.ChunkCoord]int)
		s.bytes = make(map[world.ChunkCoord]int)
		s.perLOD = make(map[int]int)
	}
	s.uploads++
	s.triangles[m.Coord] = len(m.SurfaceIndices()) / 3
	s.skirts[m.Coord] = len(m.SkirtIndices()) / 3
	s.bytes[m.Coord] = m.SizeBytes()
	s.perLOD[m.LOD]++
}

func (s *meshStats) Remove(coord world.ChunkCoord, _ int) {
	s.removes++
	delete(s.triangles, coord)
	delete(s.skirts, coord)
	delete(s.bytes, coord)
}

func (s *meshStats) print() {
	var tris, skirts, bytes int
	for c, n := range s.triangles {
		tris += n
		skirts += s.skirts[c]
		bytes += s.bytes[c]
	}
	fmt.Printf("meshes=%d uploads=%d removes=%d triangles=%d skirt_triangles=%d buffers=%.1fMiB\n",
		len(s.triangles), s.uploads, s.removes, tris, skirts, float64(bytes)/(1<<20))
	lods := make([]int, 0, len(s.perLOD))
	for lod := range s.perLOD {
		lods = append(lods, lod)
	}
	sort.Ints(lods)
	for _, lod := range lods {
		fmt.Printf("  lod %d: %d uploads\n", lod, s.perLOD[lod])
	}
}

func printCounters() {
	counters := profiling.Counters()
	names := make([]string, 0, len(counters))
	for name := range counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s=%d\n", name, counters[name])
	}
}
