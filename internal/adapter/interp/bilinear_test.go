package interp

import (
	"math"
	"testing"
)

func TestBilinearCorners(t *testing.T) {
	cell := Cell{X0: 0, X1: 1, Y0: 0, Y1: 1, V00: 1, V10: 2, V01: 3, V11: 4}

	tests := []struct {
		x, y, expected float64
	}{
		{0, 0, 1},
		{1, 0, 2},
		{0, 1, 3},
		{1, 1, 4},
		{0.5, 0.5, 2.5},
	}
	for _, tc := range tests {
		got, err := Bilinear(cell, tc.x, tc.y)
		if err != nil {
			t.Fatalf("Bilinear(%.1f, %.1f): %v", tc.x, tc.y, err)
		}
		if math.Abs(got-tc.expected) > 1e-12 {
			t.Errorf("Bilinear(%.1f, %.1f): expected %.2f, got %.6f", tc.x, tc.y, tc.expected, got)
		}
	}
}

func TestBilinearOutsideCell(t *testing.T) {
	cell := Cell{X0: 0, X1: 1, Y0: 0, Y1: 1}
	if _, err := Bilinear(cell, 2, 0.5); err == nil {
		t.Error("expected error for x outside cell")
	}
	if _, err := Bilinear(cell, 0.5, -1); err == nil {
		t.Error("expected error for y outside cell")
	}
}

func TestGrid2DInterpolateAt(t *testing.T) {
	g := &Grid2D{
		X: []float64{0, 1, 2, 3},
		Y: []float64{10, 11, 12},
		Values: [][]float64{
			{0, 1, 2, 3},
			{10, 11, 12, 13},
			{20, 21, 22, 23},
		},
	}

	got, err := g.InterpolateAt(1.5, 10.5)
	if err != nil {
		t.Fatalf("InterpolateAt: %v", err)
	}
	if math.Abs(got-6.5) > 1e-12 {
		t.Errorf("expected 6.5, got %.6f", got)
	}

	// Exact node.
	got, err = g.InterpolateAt(2, 12)
	if err != nil {
		t.Fatalf("InterpolateAt: %v", err)
	}
	if math.Abs(got-22) > 1e-12 {
		t.Errorf("expected 22, got %.6f", got)
	}

	if _, err := g.InterpolateAt(5, 11); err == nil {
		t.Error("expected error outside X range")
	}
}

func TestGrid2DValidate(t *testing.T) {
	bad := &Grid2D{
		X:      []float64{0, 0, 1}, // not strictly increasing
		Y:      []float64{0, 1},
		Values: [][]float64{{1, 2, 3}, {4, 5, 6}},
	}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for non-increasing X axis")
	}

	bad = &Grid2D{
		X:      []float64{0, 1},
		Y:      []float64{0, 1},
		Values: [][]float64{{1, 2}},
	}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for row count mismatch")
	}
}

// TestAngleGridWrapAround: interpolating between 350 and 10 degrees must
// pass through north, never through 180.
func TestAngleGridWrapAround(t *testing.T) {
	g, err := NewAngleGrid(
		[]float64{0, 1},
		[]float64{0, 1},
		[][]float64{
			{350, 10},
			{350, 10},
		},
	)
	if err != nil {
		t.Fatalf("NewAngleGrid: %v", err)
	}

	got, err := g.InterpolateAt(0.5, 0.5)
	if err != nil {
		t.Fatalf("InterpolateAt: %v", err)
	}
	diff := math.Min(got, 360-got)
	if diff > 1e-9 {
		t.Errorf("midpoint of 350 and 10: expected 0/360, got %.6f", got)
	}
}

// TestAngleGridZeroAnd360: 0 and 360 degrees are the same point; their
// interpolation is 0/360, not 180.
func TestAngleGridZeroAnd360(t *testing.T) {
	g, err := NewAngleGrid(
		[]float64{0, 1},
		[]float64{0, 1},
		[][]float64{
			{0, 360},
			{0, 360},
		},
	)
	if err != nil {
		t.Fatalf("NewAngleGrid: %v", err)
	}
	got, err := g.InterpolateAt(0.5, 0.5)
	if err != nil {
		t.Fatalf("InterpolateAt: %v", err)
	}
	if math.Min(got, 360-got) > 1e-6 {
		t.Errorf("interpolating 0 and 360: expected 0/360, got %.6f", got)
	}
}

func TestAngleGridUniformField(t *testing.T) {
	g, err := NewAngleGrid(
		[]float64{0, 1, 2},
		[]float64{0, 1, 2},
		[][]float64{
			{45, 45, 45},
			{45, 45, 45},
			{45, 45, 45},
		},
	)
	if err != nil {
		t.Fatalf("NewAngleGrid: %v", err)
	}
	got, err := g.InterpolateAt(1.3, 0.7)
	if err != nil {
		t.Fatalf("InterpolateAt: %v", err)
	}
	if math.Abs(got-45) > 1e-9 {
		t.Errorf("uniform 45-degree field: got %.6f", got)
	}
}

func TestAngleGridNaNPropagates(t *testing.T) {
	g, err := NewAngleGrid(
		[]float64{0, 1},
		[]float64{0, 1},
		[][]float64{
			{math.NaN(), 10},
			{20, 30},
		},
	)
	if err != nil {
		t.Fatalf("NewAngleGrid: %v", err)
	}
	got, err := g.InterpolateAt(0.25, 0.25)
	if err != nil {
		t.Fatalf("InterpolateAt: %v", err)
	}
	if !math.IsNaN(got) {
		t.Errorf("expected NaN near an undefined corner, got %.6f", got)
	}
}
