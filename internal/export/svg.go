// Package export renders body states as SVG.
package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/nbody/internal/body"
	"github.com/san-kum/nbody/internal/viz"
)

// Braille dot-to-bit mapping
var pixelMap = [4][2]int{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// CanvasToSVG converts a Braille canvas to SVG format
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.PixelWidth()) * scale
	height := float64(canvas.PixelHeight()) * scale

	var sb strings.Builder
	writeHeader(&sb, width, height)
	sb.WriteString("<g fill=\"#00ff00\">\n")

	dotRadius := scale * 0.4
	for row := 0; row < canvas.Height; row++ {
		for col := 0; col < canvas.Width; col++ {
			r := canvas.Grid[row][col]
			if r < 0x2800 {
				continue
			}
			pattern := int(r - 0x2800)

			baseX := float64(col) * scale * 2
			baseY := float64(row) * scale * 4

			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if pattern&pixelMap[dy][dx] != 0 {
						cx := baseX + float64(dx)*scale + scale/2
						cy := baseY + float64(dy)*scale + scale/2
						fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, dotRadius)
					}
				}
			}
		}
	}

	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

// BodiesSVG plots the x/y projection of every body, scaled to fit with 10%
// padding. Brighter dots move faster.
func BodiesSVG(s *body.State, width, height int) string {
	var sb strings.Builder
	writeHeader(&sb, float64(width), float64(height))
	if s.Len() == 0 {
		sb.WriteString("</svg>\n")
		return sb.String()
	}

	bodies := s.Bodies()
	minX, maxX := bodies[0].X, bodies[0].X
	minY, maxY := bodies[0].Y, bodies[0].Y
	maxSpeed2 := float32(0)
	for _, b := range bodies {
		minX, maxX = min(minX, b.X), max(maxX, b.X)
		minY, maxY = min(minY, b.Y), max(maxY, b.Y)
		maxSpeed2 = max(maxSpeed2, b.VX*b.VX+b.VY*b.VY+b.VZ*b.VZ)
	}

	rangeX := float64(maxX - minX)
	rangeY := float64(maxY - minY)
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	x0 := float64(minX) - rangeX*0.1
	y0 := float64(minY) - rangeY*0.1
	rangeX *= 1.2
	rangeY *= 1.2

	for _, b := range bodies {
		x := (float64(b.X) - x0) / rangeX * float64(width)
		y := float64(height) - (float64(b.Y)-y0)/rangeY*float64(height)

		shade := 120
		if maxSpeed2 > 0 {
			shade += int(135 * (b.VX*b.VX + b.VY*b.VY + b.VZ*b.VZ) / maxSpeed2)
		}
		fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"1.5\" fill=\"rgb(%d,%d,%d)\"/>\n", x, y, shade, shade, shade)
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

func writeHeader(sb *strings.Builder, width, height float64) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
}
