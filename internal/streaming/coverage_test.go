package streaming

import (
	"strings"
	"testing"

	"voxel-terrain/internal/world"
)

func smallConfig() Config {
	return Config{
		Radius:         1,
		VerticalRadius: 1,
		MinChunkY:      -1,
		MaxChunkY:      1,
		Hysteresis:     4,
		UnloadMargin:   1,
		LODDistances:   []float32{1},
		Workers:        2,
	}
}

func TestConfigWantsAndRetains(t *testing.T) {
	cfg := smallConfig()
	center := world.ChunkCoord{}
	tests := []struct {
		coord   world.ChunkCoord
		wants   bool
		retains bool
	}{
		{world.ChunkCoord{}, true, true},
		{world.ChunkCoord{X: 1}, true, true},
		{world.ChunkCoord{X: 1, Z: 1}, false, true},
		{world.ChunkCoord{X: 2}, false, true},
		{world.ChunkCoord{X: 3}, false, false},
		{world.ChunkCoord{Y: 1}, true, true},
		{world.ChunkCoord{Y: 2}, false, false},
		{world.ChunkCoord{Y: -2}, false, false},
	}
	for _, tt := range tests {
		if got := cfg.Wants(center, tt.coord); got != tt.wants {
			t.Errorf("Wants(%v) = %v, want %v", tt.coord, got, tt.wants)
		}
		if got := cfg.Retains(center, tt.coord); got != tt.retains {
			t.Errorf("Retains(%v) = %v, want %v", tt.coord, got, tt.retains)
		}
	}
}

func TestConfigRequiredNearFirst(t *testing.T) {
	cfg := smallConfig()
	center := world.ChunkCoord{X: 4, Z: -2}
	req := cfg.Required(center)
	if len(req) != 15 {
		t.Fatalf("len = %d, want 15", len(req))
	}
	if req[0] != center {
		t.Fatalf("first = %v, want the viewer chunk", req[0])
	}
	for i := 1; i < len(req); i++ {
		if center.DistSq(req[i]) < center.DistSq(req[i-1]) {
			t.Fatalf("not near-first at %d", i)
		}
	}
	if cfg.CoverageSize() != 15 {
		t.Fatalf("CoverageSize = %d", cfg.CoverageSize())
	}
}

func TestConfigLODBands(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LODDistances = []float32{2, 4}
	center := world.ChunkCoord{}
	for _, tt := range []struct {
		x, lod int
	}{{0, 0}, {2, 0}, {3, 1}, {4, 1}, {5, 2}, {40, 2}} {
		if got := cfg.LODFor(center, world.ChunkCoord{X: tt.x}); got != tt.lod {
			t.Errorf("LODFor(x=%d) = %d, want %d", tt.x, got, tt.lod)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	cfg := smallConfig()
	cfg.Workers = 0
	cfg.LODDistances = []float32{4, 2}
	cfg.MaxResidentChunks = 3
	cfg.MinChunkY = 5
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected errors")
	}
	for _, want := range []string{"workers", "ascending", "min_chunk_y"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
	cfg = smallConfig()
	cfg.MaxResidentChunks = 3
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "max_resident_chunks") {
		t.Fatalf("budget below coverage accepted: %v", err)
	}
}
