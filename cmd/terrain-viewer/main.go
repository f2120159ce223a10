package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"voxel-terrain/internal/config"
	"voxel-terrain/internal/game"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	var (
		configPath = flag.String("config", "", "YAML config (defaults when empty)")
		preset     = flag.String("preset", "", "terrain preset overriding the config (heightmap, caves)")
		editLog    = flag.String("edits", "", "SQLite edit log overriding storage.edit_log")
		fpsLimit   = flag.Int("fps", config.GetFPSLimit(), "frame cap, 0 for unlimited")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath, *preset)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	if *editLog != "" {
		cfg.Storage.EditLog = *editLog
	}
	config.SetFPSLimit(*fpsLimit)

	if err := glfw.Init(); err != nil {
		log.Fatalf("glfw: %v", err)
	}
	defer glfw.Terminate()

	window, err := game.SetupWindow("voxel terrain")
	if err != nil {
		log.Fatalf("window: %v", err)
	}

	app, err := game.NewApp(window, cfg, log.Default())
	if err != nil {
		log.Fatalf("viewer: %v", err)
	}
	game.SetupInputHandlers(app)
	app.Run()
	if err := app.Close(); err != nil {
		log.Printf("viewer: close: %v", err)
	}
}

func loadConfig(path, preset string) (config.Config, error) {
	switch {
	case path != "" && preset != "":
		return config.Config{}, fmt.Errorf("-preset cannot be combined with -config")
	case path != "":
		return config.Load(path)
	case preset != "":
		return config.Parse([]byte("terrain:\n  preset: " + preset + "\n"))
	}
	return config.Default(), nil
}
