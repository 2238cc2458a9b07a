// Package windfield reads model wind fields (ERA5, AROME style NetCDF)
// used as the auxiliary direction input of the retrieval.
package windfield

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/metno/sarwind/internal/domain"
)

// Reader loads auxiliary wind fields from NetCDF model output. Fields may
// carry either 10 m wind components (u10/v10) or explicit speed and
// direction variables; components are preferred when both exist.
type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

func (r *Reader) Read(_ context.Context, path string) (*domain.AuxiliaryWindField, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wind field: %w", err)
	}
	defer nc.Close()

	lats, err := axisValues(nc, "latitude", "lat")
	if err != nil {
		return nil, err
	}
	lons, err := axisValues(nc, "longitude", "lon")
	if err != nil {
		return nil, err
	}
	times, err := timeAxis(nc)
	if err != nil {
		return nil, err
	}
	grid, err := uniformGrid(lons, lats)
	if err != nil {
		return nil, err
	}

	field := &domain.AuxiliaryWindField{
		ID:    fieldID(path),
		Times: times,
		Grid:  grid,
	}
	if err := readWind(nc, field, len(times), len(lats), len(lons)); err != nil {
		return nil, err
	}
	if err := field.Validate(); err != nil {
		return nil, err
	}
	return field, nil
}

// readWind fills the direction (and speed) slices from either wind
// components or speed/direction variables.
func readWind(nc api.Group, field *domain.AuxiliaryWindField, nt, nlat, nlon int) error {
	u, uErr := cubeValues(nc, nt, nlat, nlon, "u10", "x_wind_10m")
	v, vErr := cubeValues(nc, nt, nlat, nlon, "v10", "y_wind_10m")
	if uErr == nil && vErr == nil {
		field.DirectionFromDeg = make([][][]float64, nt)
		field.SpeedMS = make([][][]float64, nt)
		for t := 0; t < nt; t++ {
			dir := domain.NewFloat2D(nlat, nlon)
			spd := domain.NewFloat2D(nlat, nlon)
			for i := 0; i < nlat; i++ {
				for j := 0; j < nlon; j++ {
					dir[i][j] = domain.DirectionFromUV(u[t][i][j], v[t][i][j])
					spd[i][j] = math.Hypot(u[t][i][j], v[t][i][j])
				}
			}
			field.DirectionFromDeg[t] = dir
			field.SpeedMS[t] = spd
		}
		return nil
	}

	dir, dirErr := cubeValues(nc, nt, nlat, nlon, "wind_from_direction", "wind_direction", "wdir")
	if dirErr != nil {
		return fmt.Errorf("no wind variables found: components (%v) and direction (%v)", uErr, dirErr)
	}
	field.DirectionFromDeg = dir
	if spd, err := cubeValues(nc, nt, nlat, nlon, "wind_speed", "ws"); err == nil {
		field.SpeedMS = spd
	}
	return nil
}

// uniformGrid builds an affine grid from 1D axes, requiring even spacing.
func uniformGrid(lons, lats []float64) (*domain.AffineGrid, error) {
	dLon, err := axisStep(lons, "longitude")
	if err != nil {
		return nil, err
	}
	dLat, err := axisStep(lats, "latitude")
	if err != nil {
		return nil, err
	}
	return domain.NewLatLonGrid(len(lats), len(lons), lons[0], lats[0], dLon, dLat)
}

func axisStep(axis []float64, name string) (float64, error) {
	if len(axis) < 2 {
		return 0, fmt.Errorf("%s axis needs at least 2 points", name)
	}
	step := axis[1] - axis[0]
	for i := 2; i < len(axis); i++ {
		d := axis[i] - axis[i-1]
		if math.Abs(d-step) > 1e-6*math.Max(1, math.Abs(step)) {
			return 0, fmt.Errorf("%s axis is not evenly spaced (step %g vs %g at index %d)", name, d, step, i)
		}
	}
	return step, nil
}

func axisValues(nc api.Group, names ...string) ([]float64, error) {
	for _, name := range names {
		vg, err := nc.GetVarGetter(name)
		if err != nil {
			continue
		}
		v, err := vg.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read axis %s: %w", name, err)
		}
		out, err := toFloat64s(v)
		if err != nil {
			return nil, fmt.Errorf("axis %s: %w", name, err)
		}
		return applyScaling(vg, out), nil
	}
	return nil, fmt.Errorf("no axis variable found (tried %v)", names)
}

// timeAxis reads the time coordinate together with its CF units attribute,
// e.g. "hours since 1900-01-01 00:00:00.0".
func timeAxis(nc api.Group) ([]time.Time, error) {
	vg, err := nc.GetVarGetter("time")
	if err != nil {
		return nil, fmt.Errorf("wind field has no time variable: %w", err)
	}
	v, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("failed to read time axis: %w", err)
	}
	vals, err := toFloat64s(v)
	if err != nil {
		return nil, fmt.Errorf("time axis: %w", err)
	}

	unit, epoch, err := timeUnits(vg)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(vals))
	for i, val := range vals {
		out[i] = epoch.Add(time.Duration(val * float64(unit)))
	}
	return out, nil
}

func timeUnits(vg api.VarGetter) (time.Duration, time.Time, error) {
	raw, has := vg.Attributes().Get("units")
	if !has {
		return 0, time.Time{}, fmt.Errorf("time variable has no units attribute")
	}
	s, ok := raw.(string)
	if !ok {
		return 0, time.Time{}, fmt.Errorf("time units attribute is %T, want string", raw)
	}
	parts := strings.SplitN(s, " since ", 2)
	if len(parts) != 2 {
		return 0, time.Time{}, fmt.Errorf("unparseable time units %q", s)
	}

	var unit time.Duration
	switch strings.TrimSpace(parts[0]) {
	case "seconds", "second", "s":
		unit = time.Second
	case "minutes", "minute":
		unit = time.Minute
	case "hours", "hour", "h":
		unit = time.Hour
	case "days", "day":
		unit = 24 * time.Hour
	default:
		return 0, time.Time{}, fmt.Errorf("unsupported time unit %q", parts[0])
	}

	ref := strings.TrimSpace(parts[1])
	for _, layout := range []string{"2006-01-02 15:04:05.0", "2006-01-02 15:04:05", "2006-01-02T15:04:05Z", "2006-01-02"} {
		if t, err := time.Parse(layout, ref); err == nil {
			return unit, t.UTC(), nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("unparseable time epoch %q", ref)
}

// cubeValues reads a [time][lat][lon] variable as float64, applying CF
// scale_factor/add_offset packing when present.
func cubeValues(nc api.Group, nt, nlat, nlon int, names ...string) ([][][]float64, error) {
	var vg api.VarGetter
	var name string
	for _, n := range names {
		if g, err := nc.GetVarGetter(n); err == nil {
			vg, name = g, n
			break
		}
	}
	if vg == nil {
		return nil, fmt.Errorf("no variable found (tried %v)", names)
	}
	v, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	cube, err := toCube(v)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", name, err)
	}
	if len(cube) != nt || len(cube[0]) != nlat || len(cube[0][0]) != nlon {
		return nil, fmt.Errorf("variable %s has shape (%d, %d, %d), want (%d, %d, %d)",
			name, len(cube), len(cube[0]), len(cube[0][0]), nt, nlat, nlon)
	}
	scale, offset := packing(vg)
	if scale != 1 || offset != 0 {
		for t := range cube {
			for i := range cube[t] {
				for j := range cube[t][i] {
					cube[t][i][j] = cube[t][i][j]*scale + offset
				}
			}
		}
	}
	return cube, nil
}

func packing(vg api.VarGetter) (scale, offset float64) {
	scale, offset = 1, 0
	if raw, has := vg.Attributes().Get("scale_factor"); has {
		if f, err := attrFloat(raw); err == nil {
			scale = f
		}
	}
	if raw, has := vg.Attributes().Get("add_offset"); has {
		if f, err := attrFloat(raw); err == nil {
			offset = f
		}
	}
	return scale, offset
}

func applyScaling(vg api.VarGetter, vals []float64) []float64 {
	scale, offset := packing(vg)
	if scale == 1 && offset == 0 {
		return vals
	}
	for i := range vals {
		vals[i] = vals[i]*scale + offset
	}
	return vals
}

func attrFloat(raw any) (float64, error) {
	switch x := raw.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case []float64:
		if len(x) > 0 {
			return x[0], nil
		}
	case []float32:
		if len(x) > 0 {
			return float64(x[0]), nil
		}
	}
	return 0, fmt.Errorf("attribute value %T is not numeric", raw)
}

func toFloat64s(v any) ([]float64, error) {
	switch x := v.(type) {
	case []float64:
		return x, nil
	case []float32:
		out := make([]float64, len(x))
		for i, f := range x {
			out[i] = float64(f)
		}
		return out, nil
	case []int64:
		out := make([]float64, len(x))
		for i, n := range x {
			out[i] = float64(n)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(x))
		for i, n := range x {
			out[i] = float64(n)
		}
		return out, nil
	case []int16:
		out := make([]float64, len(x))
		for i, n := range x {
			out[i] = float64(n)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}

func toCube(v any) ([][][]float64, error) {
	switch x := v.(type) {
	case [][][]float64:
		return x, nil
	case [][][]float32:
		return convertCube(x, func(f float32) float64 { return float64(f) }), nil
	case [][][]int32:
		return convertCube(x, func(n int32) float64 { return float64(n) }), nil
	case [][][]int16:
		return convertCube(x, func(n int16) float64 { return float64(n) }), nil
	}
	return nil, fmt.Errorf("unsupported value type %T, want a 3D array", v)
}

func convertCube[T float32 | int32 | int16](in [][][]T, conv func(T) float64) [][][]float64 {
	out := make([][][]float64, len(in))
	for t := range in {
		out[t] = make([][]float64, len(in[t]))
		for i := range in[t] {
			row := make([]float64, len(in[t][i]))
			for j, val := range in[t][i] {
				row[j] = conv(val)
			}
			out[t][i] = row
		}
	}
	return out
}

func fieldID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
