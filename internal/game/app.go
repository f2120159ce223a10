package game

import (
	"context"
	"log"
	"time"

	"voxel-terrain/internal/config"
	"voxel-terrain/internal/edit"
	"voxel-terrain/internal/graphics"
	"voxel-terrain/internal/input"
	"voxel-terrain/internal/player"
	"voxel-terrain/internal/profiling"
	"voxel-terrain/internal/terrain"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

var skyColor = mgl32.Vec3{0.55, 0.7, 0.9}

// App is the interactive terrain viewer: one window, one engine, one
// flying player.
type App struct {
	window       *glfw.Window
	inputManager *input.InputManager
	camera       *graphics.Camera
	renderer     *graphics.TerrainRenderer
	engine       *terrain.Engine
	player       *player.Player
	logger       *log.Logger

	paused     bool
	showStats  bool
	fpsLimiter *FPSLimiter
	lastTime   time.Time
	lastStats  time.Time
	statsEvery time.Duration
	frames     int
}

// NewApp builds the renderer and engine on the window's GL context and
// warms the terrain around the start position.
func NewApp(window *glfw.Window, cfg config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}
	r, err := graphics.NewTerrainRenderer()
	if err != nil {
		return nil, err
	}
	config.SetViewRadius(cfg.Streaming.Radius)

	engine, err := terrain.New(cfg, r, logger)
	if err != nil {
		r.Dispose()
		return nil, err
	}

	start := mgl32.Vec3(cfg.Viewer.Start)
	p := player.New(start, cfg.Viewer.MoveSpeed, cfg.Viewer.EditRadius, cfg.Viewer.EditStrength)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := engine.Warmup(ctx, start); err != nil {
		logger.Printf("viewer: warmup: %v", err)
	}

	width, height := window.GetFramebufferSize()
	app := &App{
		window:       window,
		inputManager: input.NewInputManager(),
		camera:       graphics.NewCamera(width, height),
		renderer:     r,
		engine:       engine,
		player:       p,
		logger:       logger,
		fpsLimiter:   NewFPSLimiter(),
		lastTime:     time.Now(),
		lastStats:    time.Now(),
		statsEvery:   cfg.Viewer.StatsEvery.Duration,
	}
	r.OnDraw = engine.TouchMesh
	return app, nil
}

// Run loops until the window closes.
func (a *App) Run() {
	for !a.window.ShouldClose() {
		a.tick()
	}
}

// Close releases the engine and GPU resources.
func (a *App) Close() error {
	err := a.engine.Close()
	a.renderer.Dispose()
	return err
}

func (a *App) tick() {
	profiling.ResetFrame()
	startTick := time.Now()
	dt := startTick.Sub(a.lastTime).Seconds()
	a.lastTime = startTick

	glfw.PollEvents()
	a.handleToggles()

	if !a.paused {
		a.player.Update(dt, a.controls(), a.engine.Store())
		a.handleEdits()
		a.engine.SetViewer(a.player.Position)
	}
	a.engine.Update()

	gl.ClearColor(skyColor[0], skyColor[1], skyColor[2], 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	a.renderer.Render(a.player.GetViewMatrix(), a.camera.GetProjectionMatrix())

	func() { defer profiling.Track("glfw.SwapBuffers")(); a.window.SwapBuffers() }()
	a.frames++

	if d := time.Since(startTick); d > 16*time.Millisecond {
		a.logger.Printf("viewer: slow frame %v, top: %s", d.Round(time.Microsecond), profiling.TopN(5))
	}
	if a.showStats && a.statsEvery > 0 && time.Since(a.lastStats) >= a.statsEvery {
		a.logStats()
	}

	a.inputManager.PostUpdate()
	a.fpsLimiter.Wait(a.paused)
}

func (a *App) controls() player.Controls {
	im := a.inputManager
	return player.Controls{
		Forward:  im.IsActive(input.ActionMoveForward),
		Backward: im.IsActive(input.ActionMoveBackward),
		Left:     im.IsActive(input.ActionMoveLeft),
		Right:    im.IsActive(input.ActionMoveRight),
		Up:       im.IsActive(input.ActionMoveUp),
		Down:     im.IsActive(input.ActionMoveDown),
		Sprint:   im.IsActive(input.ActionSprint),
	}
}

func (a *App) handleToggles() {
	im := a.inputManager
	if im.JustPressed(input.ActionPause) {
		a.paused = !a.paused
		if a.paused {
			a.window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		} else {
			a.window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			a.player.FirstMouse = true
		}
	}
	if im.JustPressed(input.ActionToggleWireframe) {
		a.renderer.Wireframe = !a.renderer.Wireframe
	}
	if im.JustPressed(input.ActionToggleStats) {
		a.showStats = !a.showStats
	}
	if im.JustPressed(input.ActionToggleCollision) {
		a.player.Collide = !a.player.Collide
	}
	if im.JustPressed(input.ActionBrushUp) {
		a.player.AdjustBrush(1)
	}
	if im.JustPressed(input.ActionBrushDown) {
		a.player.AdjustBrush(-1)
	}

	radius := config.GetViewRadius()
	if im.JustPressed(input.ActionRadiusUp) {
		radius = config.SetViewRadius(radius + 1)
	}
	if im.JustPressed(input.ActionRadiusDown) {
		radius = config.SetViewRadius(radius - 1)
	}
	if radius != a.engine.Scheduler().Config().Radius {
		if err := a.engine.SetRadius(radius); err != nil {
			a.logger.Printf("viewer: view radius %d: %v", radius, err)
			config.SetViewRadius(a.engine.Scheduler().Config().Radius)
		}
	}
}

func (a *App) handleEdits() {
	im := a.inputManager
	var mode edit.Mode
	switch {
	case im.JustPressed(input.ActionCarve):
		mode = edit.Carve
	case im.JustPressed(input.ActionBuild):
		mode = edit.Build
	default:
		return
	}
	res, ok, err := a.player.Interact(a.engine, mode)
	switch {
	case err != nil:
		a.logger.Printf("viewer: %s: %v", mode, err)
	case ok:
		a.logger.Printf("viewer: %s #%d mutated %d chunks, dirtied %d", mode, res.Seq, len(res.Mutated), len(res.Dirtied))
	}
}

func (a *App) logStats() {
	elapsed := time.Since(a.lastStats)
	st := a.engine.Stats()
	drawn, culled, resident := a.renderer.Counts()
	a.logger.Printf("viewer: %.0f fps pos=%.1f radius=%d wanted=%d meshed=%d queued=%d inflight=%d meshes=%d drawn=%d culled=%d gpu=%d edits=%d",
		float64(a.frames)/elapsed.Seconds(), a.player.Position, a.engine.Scheduler().Config().Radius,
		st.Streaming.Wanted, st.Streaming.Meshed, st.Streaming.Queued, st.Streaming.InFlight,
		st.Meshes, drawn, culled, resident, st.Edits)
	a.frames = 0
	a.lastStats = time.Now()
}
