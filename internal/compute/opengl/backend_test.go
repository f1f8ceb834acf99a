package opengl

import (
	"testing"

	"github.com/san-kum/nbody/internal/body"
	"github.com/san-kum/nbody/internal/compute"
)

func TestUninitializedRunsOnCPU(t *testing.T) {
	layout := compute.DefaultLayout()
	layout.Workers = 2

	initial := body.New(128)
	body.Randomize(initial, 3)
	want, got := initial.Clone(), initial.Clone()

	cpu := compute.NewCPUBackend(layout)
	cpu.BodyForce(want, 0.01)
	cpu.IntegratePositions(want, 0.01)

	gl := New(layout)
	if gl.Available() {
		t.Fatal("expected backend to be unavailable before Init")
	}
	if gl.Name() == "opengl" {
		t.Errorf("name %q does not report the fallback", gl.Name())
	}
	gl.BodyForce(got, 0.01)
	gl.IntegratePositions(got, 0.01)

	for i := 0; i < want.Len(); i++ {
		if got.At(i) != want.At(i) {
			t.Fatalf("body %d: got %+v, want %+v", i, got.At(i), want.At(i))
		}
	}
	gl.Cleanup()
}
