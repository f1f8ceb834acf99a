package export

import (
	"strings"
	"testing"

	"github.com/san-kum/nbody/internal/body"
	"github.com/san-kum/nbody/internal/viz"
)

func TestCanvasToSVG(t *testing.T) {
	c := viz.NewCanvas(4, 2)
	c.Set(0, 0)
	c.Set(7, 7)

	svg := CanvasToSVG(c, 2)
	if !strings.Contains(svg, `width="16" height="16"`) {
		t.Errorf("unexpected size in %q", svg[:120])
	}
	if got := strings.Count(svg, "<circle"); got != 2 {
		t.Errorf("expected 2 dots, got %d", got)
	}
	if CanvasToSVG(nil, 1) != "" {
		t.Error("expected empty output for nil canvas")
	}
}

func TestBodiesSVG(t *testing.T) {
	s := body.New(3)
	s.Set(0, body.Body{X: -1, Y: -1})
	s.Set(1, body.Body{X: 1, Y: 1, VX: 2})
	s.Set(2, body.Body{})

	svg := BodiesSVG(s, 200, 100)
	if got := strings.Count(svg, "<circle"); got != 3 {
		t.Errorf("expected 3 dots, got %d", got)
	}
	if !strings.Contains(svg, "rgb(255,255,255)") {
		t.Error("fastest body should be brightest")
	}
	if !strings.Contains(svg, `cx="100.0" cy="50.0"`) {
		t.Error("origin body should sit at the centre")
	}
	if !strings.HasSuffix(svg, "</svg>\n") {
		t.Error("missing closing tag")
	}
}

func TestBodiesSVGEmpty(t *testing.T) {
	svg := BodiesSVG(body.New(0), 10, 10)
	if strings.Contains(svg, "<circle") || !strings.HasSuffix(svg, "</svg>\n") {
		t.Errorf("unexpected output %q", svg)
	}
}
