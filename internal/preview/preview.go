// Package preview renders top-down images of the density field for
// inspecting terrain configurations without a GPU.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"voxel-terrain/internal/density"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Mode selects what a pixel shows.
type Mode string

const (
	// ModeHeight colours each column by the height of its top solid sample.
	ModeHeight Mode = "height"
	// ModeSlice colours a horizontal density cut at Options.SliceY.
	ModeSlice Mode = "slice"
)

// Options describes the sampled window.
type Options struct {
	Mode Mode
	// X0 and Z0 are the world coordinates of the top-left pixel.
	X0, Z0 int
	Size   int
	// MinY and MaxY bound the column scan in height mode.
	MinY, MaxY int
	SliceY     float32
	// Scale enlarges the output with nearest-neighbour filtering.
	Scale int
	// Label is drawn in the top-left corner when set.
	Label string
}

var (
	background = color.NRGBA{R: 10, G: 10, B: 18, A: 255}
	labelColor = color.NRGBA{R: 240, G: 240, B: 240, A: 255}
)

// Render samples s over the window described by opts.
func Render(s density.Sampler, opts Options) (*image.NRGBA, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("preview size %d must be positive", opts.Size)
	}
	if opts.Mode == "" {
		opts.Mode = ModeHeight
	}
	if opts.Mode == ModeHeight && opts.MaxY <= opts.MinY {
		return nil, fmt.Errorf("preview height range [%d,%d] is empty", opts.MinY, opts.MaxY)
	}

	img := image.NewNRGBA(image.Rect(0, 0, opts.Size, opts.Size))
	rng := s.Range()
	for pz := 0; pz < opts.Size; pz++ {
		for px := 0; px < opts.Size; px++ {
			x, z := float32(opts.X0+px), float32(opts.Z0+pz)
			switch opts.Mode {
			case ModeHeight:
				img.SetNRGBA(px, pz, heightColor(s, x, z, opts.MinY, opts.MaxY))
			case ModeSlice:
				d := rng.Clamp(s.Sample(mgl32.Vec3{x, opts.SliceY, z}))
				img.SetNRGBA(px, pz, densityColor(d, rng))
			default:
				return nil, fmt.Errorf("unknown preview mode %q", opts.Mode)
			}
		}
	}

	if opts.Scale > 1 {
		n := opts.Size * opts.Scale
		scaled := image.NewNRGBA(image.Rect(0, 0, n, n))
		draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
		img = scaled
	}
	if opts.Label != "" {
		drawLabel(img, opts.Label)
	}
	return img, nil
}

// Height returns the y of the highest solid sample in [minY, maxY] at
// column (x, z), or minY-1 when the column is empty.
func Height(s density.Sampler, x, z float32, minY, maxY int) int {
	for y := maxY; y >= minY; y-- {
		if s.Sample(mgl32.Vec3{x, float32(y), z}) < 0 {
			return y
		}
	}
	return minY - 1
}

func heightColor(s density.Sampler, x, z float32, minY, maxY int) color.NRGBA {
	h := Height(s, x, z, minY, maxY)
	if h < minY {
		return background
	}
	t := float32(h-minY) / float32(maxY-minY)
	// Low ground is green, high ground fades to grey rock.
	return color.NRGBA{
		R: uint8(40 + 160*t),
		G: uint8(110 + 90*t),
		B: uint8(40 + 160*t),
		A: 255,
	}
}

func densityColor(d float32, r density.Range) color.NRGBA {
	if d < 0 {
		t := d / r.Min
		return color.NRGBA{R: uint8(90 + 120*t), G: uint8(70 + 60*t), B: 50, A: 255}
	}
	t := d / r.Max
	return color.NRGBA{R: 30, G: uint8(60 + 80*t), B: uint8(120 + 120*t), A: 255}
}

func drawLabel(img *image.NRGBA, label string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot:  fixed.P(4, 4+face.Ascent),
	}
	d.DrawString(label)
}

// WritePNG encodes img to path, creating parent directories.
func WritePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview: %w", err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}
