package usecase

import (
	"fmt"
	"math"
	"time"

	"github.com/metno/sarwind/internal/adapter/interp"
	"github.com/metno/sarwind/internal/domain"
)

// ColocationConfig controls how the auxiliary wind field is resampled onto
// the SAR grid.
type ColocationConfig struct {
	// Stride samples every n-th SAR pixel before upsampling back to full
	// resolution. 1 means full-resolution colocation.
	Stride int

	// TemporalTolerance is the maximum accepted distance between the SAR
	// acquisition time and the nearest auxiliary timestamp when the
	// acquisition is not bracketed by the time axis.
	TemporalTolerance time.Duration
}

// DefaultColocationConfig matches the operational settings: every fourth
// pixel, three hours of temporal slack (forecast models output hourly to
// three-hourly fields).
func DefaultColocationConfig() ColocationConfig {
	return ColocationConfig{Stride: 4, TemporalTolerance: 3 * time.Hour}
}

// ColocatedWind is an auxiliary wind field resampled onto the SAR grid.
// Pixels without auxiliary coverage are invalid and carry NaN values.
type ColocatedWind struct {
	DirectionFromDeg [][]float64
	SpeedMS          [][]float64 // nil when the auxiliary field has no speed
	Valid            [][]bool
}

// Colocate resamples aux onto the SAR grid. Directions are interpolated on
// their unit-circle components, spatially within the auxiliary grid and
// linearly across the bracketing timestamps. A TemporalMismatchError is
// returned when no auxiliary timestamp is usable at all; coverage gaps for
// individual pixels only mark those pixels invalid.
func Colocate(sar *domain.SARObservation, aux *domain.AuxiliaryWindField, cfg ColocationConfig) (*ColocatedWind, error) {
	if cfg.Stride < 1 {
		return nil, domain.Invalidf("colocation stride %d must be >= 1", cfg.Stride)
	}
	i0, i1, w1, err := timeBracket(aux.Times, sar.AcquisitionTime, cfg.TemporalTolerance)
	if err != nil {
		return nil, err
	}

	rows, cols := sar.Grid.Shape()
	rowPos := samplePositions(rows, cfg.Stride)
	colPos := samplePositions(cols, cfg.Stride)

	hasSpeed := aux.SpeedMS != nil
	sampleDir := domain.NewFloat2D(len(rowPos), len(colPos))
	var sampleSpeed [][]float64
	if hasSpeed {
		sampleSpeed = domain.NewFloat2D(len(rowPos), len(colPos))
	}

	for si, ri := range rowPos {
		for sj, cj := range colPos {
			dir, speed, ok := sampleAux(sar, aux, float64(ri), float64(cj), i0, i1, w1, hasSpeed)
			if !ok {
				dir, speed = math.NaN(), math.NaN()
			}
			sampleDir[si][sj] = dir
			if hasSpeed {
				sampleSpeed[si][sj] = speed
			}
		}
	}

	out := &ColocatedWind{
		DirectionFromDeg: domain.NewFloat2D(rows, cols),
		Valid:            newBool2D(rows, cols),
	}
	if hasSpeed {
		out.SpeedMS = domain.NewFloat2D(rows, cols)
	}

	if cfg.Stride == 1 {
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				d := sampleDir[i][j]
				out.DirectionFromDeg[i][j] = d
				out.Valid[i][j] = !math.IsNaN(d)
				if hasSpeed {
					out.SpeedMS[i][j] = sampleSpeed[i][j]
				}
			}
		}
		return out, nil
	}

	if err := upsample(out, sar, aux, sampleDir, sampleSpeed, rowPos, colPos, rows, cols); err != nil {
		return nil, fmt.Errorf("failed to upsample colocated field: %w", err)
	}
	return out, nil
}

// sampleAux produces the time-interpolated wind at one SAR pixel, or
// ok=false when the pixel has no auxiliary coverage.
func sampleAux(sar *domain.SARObservation, aux *domain.AuxiliaryWindField, row, col float64, i0, i1 int, w1 float64, hasSpeed bool) (dir, speed float64, ok bool) {
	lon, lat, err := sar.Grid.PixelToLonLat(row, col)
	if err != nil {
		return 0, 0, false
	}
	// Any inversion failure here is a coverage gap for this pixel, never
	// fatal for the retrieval.
	ar, ac, err := aux.Grid.LonLatToPixel(lon, lat)
	if err != nil {
		return 0, 0, false
	}

	c0, s0, sp0, err := auxCellValue(aux, i0, ar, ac, hasSpeed)
	if err != nil {
		return 0, 0, false
	}
	c, s, sp := c0, s0, sp0
	if i1 != i0 {
		c1, s1, sp1, err := auxCellValue(aux, i1, ar, ac, hasSpeed)
		if err != nil {
			return 0, 0, false
		}
		c = (1-w1)*c0 + w1*c1
		s = (1-w1)*s0 + w1*s1
		sp = (1-w1)*sp0 + w1*sp1
	}
	dir = domain.DirFromComponents(c, s)
	if math.IsNaN(dir) {
		return 0, 0, false
	}
	return dir, sp, true
}

// auxCellValue bilinearly interpolates the unit-circle direction components
// (and speed) of one time slice at fractional auxiliary pixel (ar, ac).
func auxCellValue(aux *domain.AuxiliaryWindField, t int, ar, ac float64, hasSpeed bool) (cos, sin, speed float64, err error) {
	rows, cols := aux.Grid.Shape()
	r0 := clampBase(ar, rows)
	c0 := clampBase(ac, cols)

	dirs := aux.DirectionFromDeg[t]
	cell := func(vals [4]float64) (float64, error) {
		return interp.Bilinear(interp.Cell{
			X0: float64(c0), X1: float64(c0 + 1),
			Y0: float64(r0), Y1: float64(r0 + 1),
			V00: vals[0], V10: vals[1], V01: vals[2], V11: vals[3],
		}, ac, ar)
	}

	var cosV, sinV [4]float64
	for k, rc := range [4][2]int{{r0, c0}, {r0, c0 + 1}, {r0 + 1, c0}, {r0 + 1, c0 + 1}} {
		cc, ss := domain.DirComponents(dirs[rc[0]][rc[1]])
		cosV[k], sinV[k] = cc, ss
	}
	cos, err = cell(cosV)
	if err != nil {
		return 0, 0, 0, err
	}
	sin, err = cell(sinV)
	if err != nil {
		return 0, 0, 0, err
	}
	if hasSpeed {
		sp := aux.SpeedMS[t]
		speed, err = cell([4]float64{sp[r0][c0], sp[r0][c0+1], sp[r0+1][c0], sp[r0+1][c0+1]})
		if err != nil {
			return 0, 0, 0, err
		}
	}
	return cos, sin, speed, nil
}

// upsample interpolates the strided samples back to full SAR resolution,
// using the same circular discipline for directions. Pixels with an invalid
// sample corner fall back to the nearest valid sample, but only after their
// own auxiliary coverage is confirmed; a coarse sample grid must not hand
// wind to pixels outside the auxiliary extent.
func upsample(out *ColocatedWind, sar *domain.SARObservation, aux *domain.AuxiliaryWindField, sampleDir, sampleSpeed [][]float64, rowPos, colPos []int, rows, cols int) error {
	x := toFloats(colPos)
	y := toFloats(rowPos)

	dirGrid, err := interp.NewAngleGrid(x, y, sampleDir)
	if err != nil {
		return err
	}
	var speedGrid *interp.Grid2D
	if sampleSpeed != nil {
		speedGrid = &interp.Grid2D{X: x, Y: y, Values: sampleSpeed}
		if err := speedGrid.Validate(); err != nil {
			return err
		}
	}

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			d, err := dirGrid.InterpolateAt(float64(j), float64(i))
			if err != nil {
				return err
			}
			var sp float64
			if speedGrid != nil {
				if sp, err = speedGrid.InterpolateAt(float64(j), float64(i)); err != nil {
					return err
				}
			}
			if math.IsNaN(d) || (speedGrid != nil && math.IsNaN(sp)) {
				// An invalid sample corner poisoned the interpolation.
				// Fall back to the nearest sample only for pixels that
				// map into the auxiliary grid themselves.
				if !auxCovers(sar, aux, i, j) {
					continue
				}
				si := nearestPos(rowPos, i)
				sj := nearestPos(colPos, j)
				d = sampleDir[si][sj]
				if speedGrid != nil {
					sp = sampleSpeed[si][sj]
				}
			}
			if math.IsNaN(d) {
				continue
			}
			out.DirectionFromDeg[i][j] = d
			out.Valid[i][j] = true
			if speedGrid != nil {
				out.SpeedMS[i][j] = sp
			}
		}
	}
	return nil
}

// timeBracket finds the time slices surrounding t and the interpolation
// weight of the later slice. Outside the axis, the nearest timestamp is
// used alone when it lies within tol.
func timeBracket(times []time.Time, t time.Time, tol time.Duration) (i0, i1 int, w1 float64, err error) {
	n := len(times)
	if n == 0 {
		return 0, 0, 0, &domain.TemporalMismatchError{Detail: "auxiliary field has no timestamps"}
	}
	if !t.Before(times[0]) && !t.After(times[n-1]) {
		for i := 0; i < n-1; i++ {
			if !t.Before(times[i]) && !t.After(times[i+1]) {
				span := times[i+1].Sub(times[i])
				if span <= 0 {
					return i, i, 0, nil
				}
				return i, i + 1, float64(t.Sub(times[i])) / float64(span), nil
			}
		}
		return n - 1, n - 1, 0, nil
	}

	nearest := 0
	if t.After(times[n-1]) {
		nearest = n - 1
	}
	dt := t.Sub(times[nearest])
	if dt < 0 {
		dt = -dt
	}
	if dt > tol {
		return 0, 0, 0, &domain.TemporalMismatchError{
			Detail: fmt.Sprintf("nearest auxiliary timestamp %s is %s from acquisition %s (tolerance %s)",
				times[nearest].Format(time.RFC3339), dt, t.Format(time.RFC3339), tol),
		}
	}
	return nearest, nearest, 0, nil
}

// samplePositions returns 0, stride, 2*stride, ... always including the
// final index so the sample grid spans the full extent.
func samplePositions(n, stride int) []int {
	pos := make([]int, 0, n/stride+2)
	for p := 0; p < n; p += stride {
		pos = append(pos, p)
	}
	if pos[len(pos)-1] != n-1 {
		pos = append(pos, n-1)
	}
	return pos
}

// auxCovers reports whether SAR pixel (row, col) geolocates into the
// auxiliary grid.
func auxCovers(sar *domain.SARObservation, aux *domain.AuxiliaryWindField, row, col int) bool {
	lon, lat, err := sar.Grid.PixelToLonLat(float64(row), float64(col))
	if err != nil {
		return false
	}
	_, _, err = aux.Grid.LonLatToPixel(lon, lat)
	return err == nil
}

func nearestPos(pos []int, p int) int {
	best, bestDist := 0, math.MaxInt
	for i, v := range pos {
		d := v - p
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func toFloats(a []int) []float64 {
	out := make([]float64, len(a))
	for i, v := range a {
		out[i] = float64(v)
	}
	return out
}

func newBool2D(rows, cols int) [][]bool {
	flat := make([]bool, rows*cols)
	out := make([][]bool, rows)
	for i := range out {
		out[i] = flat[i*cols : (i+1)*cols]
	}
	return out
}

func clampBase(v float64, n int) int {
	b := int(math.Floor(v))
	if b > n-2 {
		b = n - 2
	}
	if b < 0 {
		b = 0
	}
	return b
}
