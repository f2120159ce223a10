package world

// Material identifies what a solid sample is made of.
type Material uint8

const (
	MaterialAir Material = iota
	MaterialRock
	MaterialDirt
	MaterialGrass

	// MaterialCount is the number of materials; meshes carry one weight per material.
	MaterialCount = 4
)

func (m Material) String() string {
	switch m {
	case MaterialAir:
		return "air"
	case MaterialRock:
		return "rock"
	case MaterialDirt:
		return "dirt"
	case MaterialGrass:
		return "grass"
	}
	return "unknown"
}

// Sample is one voxel of the density grid. Negative density is solid.
type Sample struct {
	Density  float32
	Material Material
}

// Solid reports whether the sample lies inside the surface.
func (s Sample) Solid() bool {
	return s.Density < 0
}

// Material bands, measured in density units below the surface.
const (
	grassBand = 1.5
	dirtBand  = 4
)

// MaterialFor assigns a material from density alone: empty samples are air,
// the thin top band is grass, then dirt, and rock below.
func MaterialFor(density float32) Material {
	switch {
	case density >= 0:
		return MaterialAir
	case density > -grassBand:
		return MaterialGrass
	case density > -dirtBand:
		return MaterialDirt
	}
	return MaterialRock
}
