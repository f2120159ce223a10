package preview

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"voxel-terrain/internal/density"

	"github.com/go-gl/mathgl/mgl32"
)

func TestHeightFlat(t *testing.T) {
	s := density.Flat{Height: 8}
	if h := Height(s, 3, 3, 0, 32); h != 7 {
		t.Fatalf("Height = %d, want 7", h)
	}
	if h := Height(s, 3, 3, 20, 32); h != 19 {
		t.Fatalf("empty column Height = %d, want 19", h)
	}
}

func TestRenderHeightUniformOnFlatGround(t *testing.T) {
	img, err := Render(density.Flat{Height: 8}, Options{Mode: ModeHeight, Size: 16, MinY: 0, MaxY: 32, Scale: 3})
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 48 || b.Dy() != 48 {
		t.Fatalf("bounds = %v, want 48x48", b)
	}
	first := img.NRGBAAt(0, 0)
	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			if img.NRGBAAt(x, y) != first {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, img.NRGBAAt(x, y), first)
			}
		}
	}
}

func TestRenderSliceShowsBothSides(t *testing.T) {
	// A sphere of radius 6 at the origin.
	s := density.Func{F: func(p mgl32.Vec3) float32 { return p.Len() - 6 }}
	img, err := Render(s, Options{Mode: ModeSlice, X0: -8, Z0: -8, Size: 16, SliceY: 0})
	if err != nil {
		t.Fatal(err)
	}
	inside := img.NRGBAAt(8, 8)
	outside := img.NRGBAAt(0, 0)
	if inside == outside {
		t.Fatalf("solid and empty pixels share colour %v", inside)
	}
	if inside.B >= outside.B {
		t.Fatalf("solid pixel %v should be less blue than empty %v", inside, outside)
	}
}

func TestRenderLabelAndWrite(t *testing.T) {
	plain, err := Render(density.Flat{Height: 8}, Options{Size: 64, MinY: 0, MaxY: 16})
	if err != nil {
		t.Fatal(err)
	}
	labelled, err := Render(density.Flat{Height: 8}, Options{Size: 64, MinY: 0, MaxY: 16, Label: "seed 123"})
	if err != nil {
		t.Fatal(err)
	}
	differs := false
	for i := range plain.Pix {
		if plain.Pix[i] != labelled.Pix[i] {
			differs = true
			break
		}
	}
	if !differs {
		t.Fatalf("label drew nothing")
	}

	path := filepath.Join(t.TempDir(), "out", "preview.png")
	if err := WritePNG(path, labelled); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bounds() != labelled.Bounds() {
		t.Fatalf("decoded bounds %v", decoded.Bounds())
	}
}

func TestRenderRejectsBadOptions(t *testing.T) {
	if _, err := Render(density.Flat{}, Options{Size: 0}); err == nil {
		t.Fatalf("expected size error")
	}
	if _, err := Render(density.Flat{}, Options{Size: 4, MinY: 5, MaxY: 5}); err == nil {
		t.Fatalf("expected height range error")
	}
	if _, err := Render(density.Flat{}, Options{Size: 4, Mode: "bogus"}); err == nil {
		t.Fatalf("expected mode error")
	}
}
