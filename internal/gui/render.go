package gui

import (
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// RenderBodies draws each body as a point shaded by speed.
func (a *App) RenderBodies() {
	for _, b := range a.State.Bodies() {
		speed := math.Sqrt(float64(b.VX*b.VX + b.VY*b.VY + b.VZ*b.VZ))
		val := uint8(math.Min(100+speed*80, 255))
		rl.DrawPoint3D(rl.NewVector3(b.X, b.Y, b.Z), rl.NewColor(val, val, val, 255))
	}
}

func (a *App) CustomGrid(slices int, spacing float32) {
	halfSize := float32(slices) * spacing / 2
	for i := -slices / 2; i <= slices/2; i++ {
		pos := float32(i) * spacing
		rl.DrawLine3D(rl.NewVector3(pos, -1, -halfSize), rl.NewVector3(pos, -1, halfSize), ColGrid)
		rl.DrawLine3D(rl.NewVector3(-halfSize, -1, pos), rl.NewVector3(halfSize, -1, pos), ColGrid)
	}
}

// DrawTelemetry plots recent throughput as a line strip.
func (a *App) DrawTelemetry() {
	if len(a.Telemetry) < 2 {
		return
	}

	rectX, rectY := 30, 600
	width, height := 400, 60

	minVal, maxVal := a.Telemetry[0], a.Telemetry[0]
	for _, v := range a.Telemetry {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	points := make([]rl.Vector2, len(a.Telemetry))
	for i, val := range a.Telemetry {
		px := float32(rectX) + (float32(i)/float32(len(a.Telemetry)))*float32(width)
		norm := (val - minVal) / (maxVal - minVal)
		py := float32(rectY+height) - float32(norm)*float32(height)
		points[i] = rl.NewVector2(px, py)
	}

	rl.DrawLineStrip(points, ColAccent)
	rl.DrawText(fmt.Sprintf("%.3f G/s", a.Telemetry[len(a.Telemetry)-1]), int32(rectX+width+10), int32(rectY+height-10), 14, ColText)
}
