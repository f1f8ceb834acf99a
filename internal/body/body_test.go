package body

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func TestFromFloats(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5, 6, -1, -2, -3, -4, -5, -6}
	s, err := FromFloats(data)
	if err != nil {
		t.Fatalf("FromFloats failed: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 bodies, got %d", s.Len())
	}

	want := Body{X: -1, Y: -2, Z: -3, VX: -4, VY: -5, VZ: -6}
	if got := s.At(1); got != want {
		t.Errorf("At(1) = %+v, want %+v", got, want)
	}

	flat := s.Floats()
	for i := range data {
		if flat[i] != data[i] {
			t.Fatalf("Floats()[%d] = %v, want %v", i, flat[i], data[i])
		}
	}
}

func TestFromFloats_BadLength(t *testing.T) {
	_, err := FromFloats(make([]float32, 7))
	if !errors.Is(err, ErrLayout) {
		t.Errorf("expected ErrLayout, got %v", err)
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		body  Body
		valid bool
	}{
		{"zeros", Body{}, true},
		{"normal", Body{X: 1, VY: -2}, true},
		{"NaN position", Body{Y: float32(math.NaN())}, false},
		{"Inf velocity", Body{VZ: float32(math.Inf(1))}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(3)
			s.Set(1, tt.body)
			if got := s.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Clone(t *testing.T) {
	s := New(2)
	s.Set(0, Body{X: 1})

	c := s.Clone()
	c.Bodies()[0].X = 99

	if s.At(0).X != 1 {
		t.Error("Clone shares storage with the original")
	}
}

func TestAddVelocity_Concurrent(t *testing.T) {
	s := New(1)
	const workers = 16
	const adds = 1000

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < adds; i++ {
				s.AddVelocity(0, 1, -1, 0.5)
			}
		}()
	}
	wg.Wait()

	b := s.At(0)
	if b.VX != workers*adds {
		t.Errorf("VX = %v, want %v (lost updates)", b.VX, workers*adds)
	}
	if b.VY != -workers*adds {
		t.Errorf("VY = %v, want %v", b.VY, -workers*adds)
	}
	if b.VZ != workers*adds/2 {
		t.Errorf("VZ = %v, want %v", b.VZ, workers*adds/2)
	}
}

func TestRandomize(t *testing.T) {
	a := New(257)
	b := New(257)
	Randomize(a, 7)
	Randomize(b, 7)

	for i, v := range a.Floats() {
		if v < -1 || v > 1 {
			t.Fatalf("value %d out of range: %v", i, v)
		}
	}

	af, bf := a.Floats(), b.Floats()
	for i := range af {
		if af[i] != bf[i] {
			t.Fatalf("same seed produced different value at %d", i)
		}
	}

	c := New(257)
	Randomize(c, 8)
	if c.At(0) == a.At(0) && c.At(1) == a.At(1) {
		t.Error("different seeds produced identical bodies")
	}
}

func TestNew_Empty(t *testing.T) {
	s := New(0)
	if s.Len() != 0 || len(s.Floats()) != 0 {
		t.Error("expected empty state")
	}
	if !s.IsValid() {
		t.Error("empty state should be valid")
	}
}
