package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voxel-terrain/internal/density"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Terrain.Preset != density.PresetHeightmap || cfg.Terrain.Seed != 123 {
		t.Fatalf("unexpected terrain defaults: %+v", cfg.Terrain)
	}
}

func TestLoadOverridesPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terrain.yaml")
	data := `
terrain:
  preset: caves
  seed: 99
streaming:
  radius: 4
  workers: 2
meshing:
  skirt_depth: 2
storage:
  edit_log: edits.db
viewer:
  stats_every: 500ms
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Terrain.Seed != 99 {
		t.Errorf("seed = %d, want 99", cfg.Terrain.Seed)
	}
	if len(cfg.Terrain.Layers) != 2 || cfg.Terrain.Warp.Amplitude == 0 {
		t.Errorf("caves preset layers not kept: %+v", cfg.Terrain.Config)
	}
	if cfg.Streaming.Radius != 4 || cfg.Streaming.Workers != 2 {
		t.Errorf("streaming = %+v", cfg.Streaming)
	}
	if cfg.Streaming.VerticalRadius != 3 {
		t.Errorf("unset field lost its default: %d", cfg.Streaming.VerticalRadius)
	}
	if cfg.MeshOptions().SkirtDepth != 2 {
		t.Errorf("skirt depth = %v", cfg.MeshOptions().SkirtDepth)
	}
	if cfg.Storage.EditLog != "edits.db" {
		t.Errorf("edit log = %q", cfg.Storage.EditLog)
	}
	if cfg.Viewer.StatsEvery.Duration != 500*time.Millisecond {
		t.Errorf("stats_every = %v", cfg.Viewer.StatsEvery)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"preset", "terrain:\n  preset: marble\n", "terrain.preset"},
		{"range", "terrain:\n  range: {min: 1, max: 4}\n", "straddle zero"},
		{"workers", "streaming:\n  workers: 0\n", "workers"},
		{"skirt", "meshing:\n  skirt_depth: 0\n", "skirt_depth"},
		{"duration", "viewer:\n  stats_every: soon\n", "duration"},
		{"syntax", "terrain: [\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestWriteThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Streaming.Radius = 9
	if err := cfg.Write(path); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Streaming.Radius != 9 || got.Viewer.StatsEvery != cfg.Viewer.StatsEvery {
		t.Fatalf("written config not read back: %+v", got.Streaming)
	}
}

func TestViewRadiusClamped(t *testing.T) {
	defer SetViewRadius(GetViewRadius())
	if got := SetViewRadius(0); got != MinViewRadius {
		t.Fatalf("SetViewRadius(0) = %d", got)
	}
	if got := SetViewRadius(100); got != MaxViewRadius || GetViewRadius() != MaxViewRadius {
		t.Fatalf("SetViewRadius(100) = %d", got)
	}
	SetViewRadius(7)
	if GetViewRadius() != 7 {
		t.Fatalf("GetViewRadius = %d", GetViewRadius())
	}
}

func TestFPSLimitNeverNegative(t *testing.T) {
	defer SetFPSLimit(GetFPSLimit())
	SetFPSLimit(-5)
	if got := GetFPSLimit(); got != 0 {
		t.Fatalf("GetFPSLimit = %d, want 0", got)
	}
	SetFPSLimit(60)
	if got := GetFPSLimit(); got != 60 {
		t.Fatalf("GetFPSLimit = %d, want 60", got)
	}
}
