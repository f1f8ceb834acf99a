package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/nbody/internal/body"
)

// Camera projects world coordinates onto the canvas. Bodies start in the
// [-1, 1] cube, so the default view frames a cube a little wider than that.
type Camera struct {
	Distance         float64
	Near             float64
	RotX, RotY, RotZ float64
	Zoom             float64
}

func NewCamera() *Camera {
	return &Camera{Distance: 6, Near: 0.1, RotX: 0.4, RotY: 0.6, Zoom: 1.0}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

func (c *Camera) rotation() mgl64.Mat3 {
	return mgl64.Rotate3DZ(c.RotZ).Mul3(mgl64.Rotate3DY(c.RotY)).Mul3(mgl64.Rotate3DX(c.RotX))
}

// Project maps p to sub-pixel coordinates on a sw x sh surface. It reports
// the depth and whether the point lands on the surface in front of the
// camera.
func (c *Camera) Project(p mgl64.Vec3, sw, sh int) (int, int, float64, bool) {
	return c.project(c.rotation(), p, sw, sh)
}

func (c *Camera) project(rot mgl64.Mat3, p mgl64.Vec3, sw, sh int) (int, int, float64, bool) {
	r := rot.Mul3x1(p).Mul(c.Zoom)
	if r.Z() >= c.Distance-c.Near {
		return 0, 0, 0, false
	}
	scale := c.Distance / (c.Distance - r.Z())
	pScale := math.Min(float64(sw), float64(sh)) / 6.0
	sx := int(r.X()*scale*pScale) + sw/2
	sy := int(-r.Y()*scale*pScale) + sh/2
	return sx, sy, r.Z(), sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

// DrawBodies plots every body position and returns how many landed on the
// canvas.
func DrawBodies(c *Canvas, s *body.State, cam *Camera) int {
	if c == nil || s == nil || cam == nil {
		return 0
	}
	rot := cam.rotation()
	sw, sh := c.PixelWidth(), c.PixelHeight()
	visible := 0
	for _, b := range s.Bodies() {
		p := mgl64.Vec3{float64(b.X), float64(b.Y), float64(b.Z)}
		x, y, _, ok := cam.project(rot, p, sw, sh)
		if ok {
			c.Set(x, y)
			visible++
		}
	}
	return visible
}

// DrawAxes draws the unit axes from the origin.
func DrawAxes(c *Canvas, cam *Camera) {
	rot := cam.rotation()
	sw, sh := c.PixelWidth(), c.PixelHeight()
	ox, oy, _, _ := cam.project(rot, mgl64.Vec3{}, sw, sh)
	for _, axis := range []mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}} {
		x, y, _, ok := cam.project(rot, axis.Mul(0.25), sw, sh)
		if ok {
			c.DrawLine(ox, oy, x, y)
		}
	}
}
