// Package gui is a raylib viewer that steps the simulation once per frame.
package gui

import (
	"errors"
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/san-kum/nbody/internal/body"
	"github.com/san-kum/nbody/internal/compute"
	"github.com/san-kum/nbody/internal/compute/opengl"
	"github.com/san-kum/nbody/internal/sim"
)

const (
	screenWidth  = 1280
	screenHeight = 720
	maxTelemetry = 200
)

// Monochrome palette.
var (
	ColBg      = rl.NewColor(10, 10, 10, 255)
	ColAccent  = rl.NewColor(180, 180, 180, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColGrid    = rl.NewColor(30, 30, 30, 255)
)

type Options struct {
	Backend string
	Layout  compute.Layout
	Dt      float32
}

type App struct {
	Sim       *sim.Simulator
	State     *body.State
	Initial   *body.State
	Dt        float32
	Camera    rl.Camera3D
	Running   bool
	Iteration int
	// Telemetry holds recent throughput samples.
	Telemetry []float64
	Err       error
}

func initWindow() {
	rl.SetConfigFlags(rl.FlagMsaa4xHint)
	rl.InitWindow(screenWidth, screenHeight, "nbody")
	rl.SetTargetFPS(60)
	rl.SetExitKey(0)
}

// newBackend resolves the requested backend. "opengl" needs the window's
// context, so it is created after the window and falls back to the CPU when
// compute shaders are unavailable.
func newBackend(opts Options) (compute.Backend, error) {
	if opts.Backend != "opengl" {
		return compute.NewBackend(opts.Backend, opts.Layout)
	}

	gl := opengl.New(opts.Layout)
	if err := gl.Init(); err != nil {
		if errors.Is(err, compute.ErrLayout) {
			return nil, err
		}
		fmt.Printf("opengl backend unavailable, using cpu: %v\n", err)
		return compute.NewCPUBackend(opts.Layout), nil
	}
	return gl, nil
}

func NewApp(backend compute.Backend, initial *body.State, dt float32) *App {
	return &App{
		Sim:       sim.New(backend),
		State:     initial.Clone(),
		Initial:   initial.Clone(),
		Dt:        dt,
		Camera:    defaultCamera(),
		Running:   true,
		Telemetry: make([]float64, 0, maxTelemetry),
	}
}

func defaultCamera() rl.Camera3D {
	return rl.NewCamera3D(
		rl.NewVector3(0, 1.5, 4),
		rl.NewVector3(0, 0, 0),
		rl.NewVector3(0, 1, 0),
		45.0,
		rl.CameraPerspective,
	)
}

// Run opens the window and blocks until it is closed.
func Run(initial *body.State, opts Options) error {
	initWindow()
	defer rl.CloseWindow()

	backend, err := newBackend(opts)
	if err != nil {
		return err
	}
	defer backend.Cleanup()

	app := NewApp(backend, initial, opts.Dt)
	app.RunLoop()
	return app.Err
}

func (a *App) RunLoop() {
	for !rl.WindowShouldClose() {
		if a.Update() {
			return
		}
		a.Draw()
	}
}

// Update handles input and advances one iteration. It reports whether the
// user asked to quit.
func (a *App) Update() bool {
	if rl.IsKeyPressed(rl.KeyQ) {
		return true
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		a.Running = !a.Running
	}
	if rl.IsKeyPressed(rl.KeyR) {
		a.Reset()
	}

	rl.UpdateCamera(&a.Camera, rl.CameraOrbital)

	if a.Running && a.Err == nil {
		a.Step()
	}
	return false
}

func (a *App) Step() {
	start := time.Now()
	a.Sim.Step(a.State, a.Dt)
	elapsed := time.Since(start)
	a.Iteration++

	if !a.State.IsValid() {
		a.Err = &sim.SimulationError{Iteration: a.Iteration, Wrapped: sim.ErrInvalidState}
		a.Running = false
	}

	a.Telemetry = append(a.Telemetry, sim.Throughput(a.State.Len(), elapsed))
	if len(a.Telemetry) > maxTelemetry {
		a.Telemetry = a.Telemetry[1:]
	}
}

func (a *App) Reset() {
	a.State = a.Initial.Clone()
	a.Iteration = 0
	a.Telemetry = a.Telemetry[:0]
	a.Err = nil
	a.Camera = defaultCamera()
}

func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	rl.BeginMode3D(a.Camera)
	a.CustomGrid(20, 0.25)
	a.RenderBodies()
	rl.EndMode3D()

	a.DrawHUD()
	rl.EndDrawing()
}

func (a *App) DrawHUD() {
	rl.DrawText("nbody", 30, 30, 24, ColSelect)
	rl.DrawText(fmt.Sprintf(":: %d bodies :: %s", a.State.Len(), a.Sim.Backend().Name()), 120, 34, 16, ColText)
	rl.DrawText(fmt.Sprintf("iteration %d", a.Iteration), 30, 64, 16, ColText)

	a.DrawTelemetry()

	status, col := "RUNNING", ColSelect
	if !a.Running {
		status, col = "PAUSED", ColTextDim
	}
	rl.DrawText(status, 1150, 30, 16, col)
	if a.Err != nil {
		rl.DrawText(a.Err.Error(), 30, 96, 16, rl.Red)
	}

	rl.DrawText("[SPACE] PAUSE  [R] RESET  [Q] QUIT", 860, 680, 14, ColTextDim)
	rl.DrawText(fmt.Sprintf("%d FPS", rl.GetFPS()), 30, 680, 14, ColTextDim)
}
