// Package interp provides bilinear interpolation over regular grids, with a
// variant for angular quantities that interpolates unit-circle components.
package interp

import (
	"fmt"
	"math"
)

// Cell holds the four corner values of one grid cell.
type Cell struct {
	X0, X1 float64 // X boundaries (column or longitude axis)
	Y0, Y1 float64 // Y boundaries (row or latitude axis)

	// Values at the corners: V00 at (X0, Y0), V10 at (X1, Y0),
	// V01 at (X0, Y1), V11 at (X1, Y1).
	V00, V10, V01, V11 float64
}

// Bilinear interpolates within a cell:
//
//	f(x,y) ≈ (1-t)(1-u)V00 + t(1-u)V10 + (1-t)u V01 + tu V11
//
// with t = (x-X0)/(X1-X0), u = (y-Y0)/(Y1-Y0).
func Bilinear(cell Cell, x, y float64) (float64, error) {
	if cell.X1 <= cell.X0 {
		return 0, fmt.Errorf("invalid cell: X1 must be > X0")
	}
	if cell.Y1 <= cell.Y0 {
		return 0, fmt.Errorf("invalid cell: Y1 must be > Y0")
	}

	const epsilon = 1e-9
	if x < cell.X0-epsilon || x > cell.X1+epsilon {
		return 0, fmt.Errorf("x %.6f outside cell [%.6f, %.6f]", x, cell.X0, cell.X1)
	}
	if y < cell.Y0-epsilon || y > cell.Y1+epsilon {
		return 0, fmt.Errorf("y %.6f outside cell [%.6f, %.6f]", y, cell.Y0, cell.Y1)
	}

	t := (x - cell.X0) / (cell.X1 - cell.X0)
	u := (y - cell.Y0) / (cell.Y1 - cell.Y0)
	t = math.Max(0, math.Min(1, t))
	u = math.Max(0, math.Min(1, u))

	return (1-t)*(1-u)*cell.V00 +
		t*(1-u)*cell.V10 +
		(1-t)*u*cell.V01 +
		t*u*cell.V11, nil
}

// Grid2D is a regular grid with strictly increasing axes.
// Values[i][j] corresponds to (X[j], Y[i]).
type Grid2D struct {
	X      []float64
	Y      []float64
	Values [][]float64

	validated bool
}

// Validate checks axis ordering and value shape. InterpolateAt calls it once
// and caches the outcome, so dense per-pixel sampling stays cheap.
func (g *Grid2D) Validate() error {
	if len(g.X) < 2 {
		return fmt.Errorf("grid must have at least 2 X coordinates")
	}
	if len(g.Y) < 2 {
		return fmt.Errorf("grid must have at least 2 Y coordinates")
	}
	if len(g.Values) != len(g.Y) {
		return fmt.Errorf("got %d value rows for %d Y coordinates", len(g.Values), len(g.Y))
	}
	for i, row := range g.Values {
		if len(row) != len(g.X) {
			return fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(g.X))
		}
	}
	for i := 1; i < len(g.X); i++ {
		if g.X[i] <= g.X[i-1] {
			return fmt.Errorf("X coordinates must be strictly increasing")
		}
	}
	for i := 1; i < len(g.Y); i++ {
		if g.Y[i] <= g.Y[i-1] {
			return fmt.Errorf("Y coordinates must be strictly increasing")
		}
	}
	g.validated = true
	return nil
}

// InterpolateAt performs bilinear interpolation at (x, y).
func (g *Grid2D) InterpolateAt(x, y float64) (float64, error) {
	if !g.validated {
		if err := g.Validate(); err != nil {
			return 0, fmt.Errorf("invalid grid: %w", err)
		}
	}

	xIdx, err := cellIndex(g.X, x)
	if err != nil {
		return 0, err
	}
	yIdx, err := cellIndex(g.Y, y)
	if err != nil {
		return 0, err
	}

	return Bilinear(Cell{
		X0:  g.X[xIdx],
		X1:  g.X[xIdx+1],
		Y0:  g.Y[yIdx],
		Y1:  g.Y[yIdx+1],
		V00: g.Values[yIdx][xIdx],
		V10: g.Values[yIdx][xIdx+1],
		V01: g.Values[yIdx+1][xIdx],
		V11: g.Values[yIdx+1][xIdx+1],
	}, x, y)
}

// cellIndex finds i such that axis[i] <= v <= axis[i+1] by binary search.
func cellIndex(axis []float64, v float64) (int, error) {
	n := len(axis)
	if v < axis[0] || v > axis[n-1] {
		return 0, fmt.Errorf("coordinate %.6f outside axis range [%.6f, %.6f]", v, axis[0], axis[n-1])
	}
	lo, hi := 0, n-2
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if axis[mid] <= v {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}

// AngleGrid interpolates a field of directions in degrees. The raw angles
// are decomposed into cosine and sine grids once, interpolated separately
// and recombined, keeping the result correct across the 0/360 wrap.
type AngleGrid struct {
	cosGrid *Grid2D
	sinGrid *Grid2D
}

// NewAngleGrid builds an AngleGrid from direction values in degrees.
// NaN angles propagate into NaN interpolation results.
func NewAngleGrid(x, y []float64, anglesDeg [][]float64) (*AngleGrid, error) {
	cosVals := make([][]float64, len(anglesDeg))
	sinVals := make([][]float64, len(anglesDeg))
	for i, row := range anglesDeg {
		cosVals[i] = make([]float64, len(row))
		sinVals[i] = make([]float64, len(row))
		for j, a := range row {
			r := a * math.Pi / 180.0
			cosVals[i][j] = math.Cos(r)
			sinVals[i][j] = math.Sin(r)
		}
	}
	g := &AngleGrid{
		cosGrid: &Grid2D{X: x, Y: y, Values: cosVals},
		sinGrid: &Grid2D{X: x, Y: y, Values: sinVals},
	}
	if err := g.cosGrid.Validate(); err != nil {
		return nil, fmt.Errorf("invalid angle grid: %w", err)
	}
	if err := g.sinGrid.Validate(); err != nil {
		return nil, fmt.Errorf("invalid angle grid: %w", err)
	}
	return g, nil
}

// InterpolateAt returns the interpolated direction in [0, 360) at (x, y),
// or NaN when the surrounding angles are undefined or cancel out.
func (g *AngleGrid) InterpolateAt(x, y float64) (float64, error) {
	c, err := g.cosGrid.InterpolateAt(x, y)
	if err != nil {
		return 0, err
	}
	s, err := g.sinGrid.InterpolateAt(x, y)
	if err != nil {
		return 0, err
	}
	if math.Hypot(c, s) < 1e-12 {
		return math.NaN(), nil
	}
	deg := math.Atan2(s, c) * 180.0 / math.Pi
	if deg < 0 {
		deg += 360.0
	}
	return deg, nil
}
