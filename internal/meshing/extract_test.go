package meshing

import (
	"math"
	"reflect"
	"testing"

	"voxel-terrain/internal/density"
	"voxel-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

func sphere(c mgl32.Vec3, r float32) density.Sampler {
	return density.Func{F: func(p mgl32.Vec3) float32 { return p.Sub(c).Len() - r }}
}

func rolling() density.Sampler {
	return density.Func{F: func(p mgl32.Vec3) float32 {
		x, y, z := float64(p[0]), float64(p[1]), float64(p[2])
		h := 8 + 3*math.Sin(0.3*x)*math.Cos(0.25*z) + 1.5*math.Sin(0.5*x+0.7*y)
		return float32(y - h)
	}}
}

type edgeKey struct{ a, b uint32 }

func countEdges(idx []uint32) map[edgeKey]int {
	counts := make(map[edgeKey]int)
	for i := 0; i+2 < len(idx); i += 3 {
		for k := 0; k < 3; k++ {
			a, b := idx[i+k], idx[i+(k+1)%3]
			if a > b {
				a, b = b, a
			}
			counts[edgeKey{a, b}]++
		}
	}
	return counts
}

func TestExtractFlatPlane(t *testing.T) {
	g := GridFromSampler(density.Flat{Height: 10}, world.ChunkCoord{})
	m := Extract(g, 0, NoSeams(), DefaultOptions())
	if m.Empty() {
		t.Fatalf("expected a surface")
	}
	if m.SkirtStart != len(m.Indices) {
		t.Fatalf("unexpected skirts without seams: start %d len %d", m.SkirtStart, len(m.Indices))
	}
	for i, v := range m.Vertices {
		if v.Position[1] != 10 {
			t.Fatalf("vertex %d at y=%v, want 10", i, v.Position[1])
		}
		if !v.Normal.ApproxEqualThreshold(mgl32.Vec3{0, 1, 0}, 1e-5) {
			t.Fatalf("vertex %d normal %v, want +Y", i, v.Normal)
		}
		if v.Weights[world.MaterialGrass] != 1 {
			t.Fatalf("vertex %d weights %v, want grass", i, v.Weights)
		}
	}

	var area float32
	for i := 0; i < len(m.Indices); i += 3 {
		a := m.Vertices[m.Indices[i]].Position
		b := m.Vertices[m.Indices[i+1]].Position
		c := m.Vertices[m.Indices[i+2]].Position
		n := b.Sub(a).Cross(c.Sub(a))
		if n[1] < 0 {
			t.Fatalf("triangle %d faces down: %v", i/3, n)
		}
		area += n[1] / 2
	}
	if math.Abs(float64(area-256)) > 1e-3 {
		t.Fatalf("covered area %v, want 256", area)
	}
}

func TestExtractDeterministic(t *testing.T) {
	cfg, err := density.PresetConfig(density.PresetCaves)
	if err != nil {
		t.Fatal(err)
	}
	s, err := density.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	coord := world.ChunkCoord{X: 1, Y: 2, Z: -1}
	seams := NoSeams()
	seams[world.FacePosX] = 2
	a := Extract(GridFromSampler(s, coord), 1, seams, DefaultOptions())
	b := Extract(GridFromSampler(s, coord), 1, seams, DefaultOptions())
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("extraction is not deterministic")
	}
}

func TestExtractWatertightSphere(t *testing.T) {
	g := GridFromSampler(sphere(mgl32.Vec3{8.3, 7.7, 8.1}, 6), world.ChunkCoord{})
	for lod := 0; lod <= 1; lod++ {
		m := Extract(g, lod, NoSeams(), DefaultOptions())
		if m.Empty() {
			t.Fatalf("lod %d: empty mesh", lod)
		}
		for e, n := range countEdges(m.Indices) {
			if n != 2 {
				t.Fatalf("lod %d: edge %v shared by %d triangles, want 2", lod, e, n)
			}
		}
	}
}

func TestExtractWatertightInsideChunk(t *testing.T) {
	coord := world.ChunkCoord{X: 2, Y: 0, Z: -3}
	m := Extract(GridFromSampler(rolling(), coord), 0, NoSeams(), DefaultOptions())
	if m.Empty() {
		t.Fatalf("empty mesh")
	}
	lo := coord.Origin()
	hi := lo.Add(mgl32.Vec3{world.ChunkSize, world.ChunkSize, world.ChunkSize})
	onFace := func(a, b mgl32.Vec3) bool {
		for axis := 0; axis < 3; axis++ {
			for _, plane := range []float32{lo[axis], hi[axis]} {
				if a[axis] == plane && b[axis] == plane {
					return true
				}
			}
		}
		return false
	}
	for e, n := range countEdges(m.Indices) {
		if n == 2 {
			continue
		}
		a, b := m.Vertices[e.a].Position, m.Vertices[e.b].Position
		if n != 1 || !onFace(a, b) {
			t.Fatalf("edge %v-%v shared by %d triangles", a, b, n)
		}
	}
}

func TestExtractCoarserLODHasFewerTriangles(t *testing.T) {
	g := GridFromSampler(rolling(), world.ChunkCoord{})
	fine := Extract(g, 0, NoSeams(), DefaultOptions())
	coarse := Extract(g, 2, NoSeams(), DefaultOptions())
	if coarse.TriangleCount() >= fine.TriangleCount() {
		t.Fatalf("lod2 has %d triangles, lod0 %d", coarse.TriangleCount(), fine.TriangleCount())
	}
	if coarse.LOD != 2 {
		t.Fatalf("LOD = %d, want 2", coarse.LOD)
	}
}

// faceContour returns the surface edges lying in the plane x = plane as
// (z, y) segments.
func faceContour(m *Mesh, plane float32) [][2]mgl32.Vec2 {
	var segs [][2]mgl32.Vec2
	idx := m.SurfaceIndices()
	for i := 0; i+2 < len(idx); i += 3 {
		for k := 0; k < 3; k++ {
			a := m.Vertices[idx[i+k]].Position
			b := m.Vertices[idx[i+(k+1)%3]].Position
			if a[0] == plane && b[0] == plane {
				segs = append(segs, [2]mgl32.Vec2{{a[2], a[1]}, {b[2], b[1]}})
			}
		}
	}
	return segs
}

func heightAt(segs [][2]mgl32.Vec2, z float32) (float32, bool) {
	for _, s := range segs {
		z0, z1 := s[0][0], s[1][0]
		if z0 == z1 || z < min(z0, z1) || z > max(z0, z1) {
			continue
		}
		t := (z - z0) / (z1 - z0)
		return s[0][1] + t*(s[1][1]-s[0][1]), true
	}
	return 0, false
}

func TestSeamGapCoveredBySkirts(t *testing.T) {
	wave := density.Func{F: func(p mgl32.Vec3) float32 {
		return p[1] - 8 - 3*float32(math.Sin(0.3*float64(p[2])))
	}}
	left, right := world.ChunkCoord{}, world.ChunkCoord{X: 1}

	ls := NoSeams()
	ls[world.FacePosX] = 1
	rs := NoSeams()
	rs[world.FaceNegX] = 0
	opts := DefaultOptions()
	fine := Extract(GridFromSampler(wave, left), 0, ls, opts)
	coarse := Extract(GridFromSampler(wave, right), 1, rs, opts)

	if len(fine.SkirtIndices()) == 0 || len(coarse.SkirtIndices()) == 0 {
		t.Fatalf("expected skirts on both sides of the seam")
	}

	depth := opts.SkirtDepth * float32(Stride(1))
	fineSegs, coarseSegs := faceContour(fine, world.ChunkSize), faceContour(coarse, world.ChunkSize)
	checked := 0
	for z := float32(0.25); z < world.ChunkSize; z += 0.5 {
		hf, ok1 := heightAt(fineSegs, z)
		hc, ok2 := heightAt(coarseSegs, z)
		if !ok1 || !ok2 {
			continue
		}
		checked++
		if gap := float32(math.Abs(float64(hf - hc))); gap > depth {
			t.Fatalf("z=%v: contour gap %v exceeds skirt depth %v", z, gap, depth)
		}
	}
	if checked < 16 {
		t.Fatalf("only %d seam samples compared", checked)
	}

	for _, i := range fine.SkirtIndices() {
		v := fine.Vertices[i].Position
		if v[0] != world.ChunkSize {
			t.Fatalf("skirt vertex %v off the seam face", v)
		}
	}
}

func TestNoSkirtsWithoutSeams(t *testing.T) {
	m := Extract(GridFromSampler(rolling(), world.ChunkCoord{}), 1, NoSeams(), DefaultOptions())
	if len(m.SkirtIndices()) != 0 {
		t.Fatalf("got %d skirt indices", len(m.SkirtIndices()))
	}
}

func BenchmarkExtract(b *testing.B) {
	g := GridFromSampler(rolling(), world.ChunkCoord{})
	opts := DefaultOptions()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Extract(g, 0, NoSeams(), opts)
	}
}
