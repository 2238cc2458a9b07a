package windfield

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attrs(t *testing.T, kv map[string]any) api.AttributeMap {
	t.Helper()
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	m, err := util.NewOrderedMap(keys, kv)
	require.NoError(t, err)
	return m
}

// writeField builds a 1-timestep 3x3 model field file. Extra variables win
// over the u10/v10 components when vars carries them.
func writeField(t *testing.T, path string, vars map[string]api.Variable) {
	t.Helper()
	cw, err := cdf.OpenWriter(path)
	require.NoError(t, err)

	require.NoError(t, cw.AddVar("time", api.Variable{
		Values:     []int32{1741932000}, // 2025-03-14T06:00:00Z
		Dimensions: []string{"time"},
		Attributes: attrs(t, map[string]any{"units": "seconds since 1970-01-01 00:00:00"}),
	}))
	require.NoError(t, cw.AddVar("latitude", api.Variable{
		Values:     []float64{60.1, 60.05, 60.0},
		Dimensions: []string{"latitude"},
	}))
	require.NoError(t, cw.AddVar("longitude", api.Variable{
		Values:     []float64{4.9, 4.95, 5.0},
		Dimensions: []string{"longitude"},
	}))
	for name, v := range vars {
		require.NoError(t, cw.AddVar(name, v))
	}
	require.NoError(t, cw.Close())
}

func cube(v float32) [][][]float32 {
	out := make([][][]float32, 1)
	out[0] = make([][]float32, 3)
	for i := range out[0] {
		out[0][i] = []float32{v, v, v}
	}
	return out
}

var windDims = []string{"time", "latitude", "longitude"}

func TestReaderComponents(t *testing.T) {
	// u = v = -10/sqrt(2) is a 10 m/s wind blowing from the northeast.
	comp := float32(-10 / math.Sqrt2)
	path := filepath.Join(t.TempDir(), "nwp.nc")
	writeField(t, path, map[string]api.Variable{
		"u10": {Values: cube(comp), Dimensions: windDims},
		"v10": {Values: cube(comp), Dimensions: windDims},
	})

	field, err := NewReader().Read(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "nwp", field.ID)
	require.Len(t, field.Times, 1)
	assert.Equal(t, time.Date(2025, 3, 14, 6, 0, 0, 0, time.UTC), field.Times[0])

	rows, cols := field.Grid.Shape()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 3, cols)
	lon, lat, err := field.Grid.PixelToLonLat(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 4.9, lon, 1e-9)
	assert.InDelta(t, 60.1, lat, 1e-9)

	assert.InDelta(t, 45, field.DirectionFromDeg[0][1][1], 1e-4)
	require.NotNil(t, field.SpeedMS)
	assert.InDelta(t, 10, field.SpeedMS[0][1][1], 1e-4)
}

func TestReaderDirectionVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nwp_dir.nc")
	writeField(t, path, map[string]api.Variable{
		"wind_from_direction": {Values: cube(210), Dimensions: windDims},
		"wind_speed":          {Values: cube(7.5), Dimensions: windDims},
	})

	field, err := NewReader().Read(context.Background(), path)
	require.NoError(t, err)
	assert.InDelta(t, 210, field.DirectionFromDeg[0][0][2], 1e-4)
	assert.InDelta(t, 7.5, field.SpeedMS[0][2][0], 1e-4)
}

func TestReaderPackedComponents(t *testing.T) {
	// ERA5 ships int16 data with CF packing attributes.
	packed := make([][][]int16, 1)
	packed[0] = make([][]int16, 3)
	for i := range packed[0] {
		packed[0][i] = []int16{-707, -707, -707}
	}
	packing := attrs(t, map[string]any{"scale_factor": 0.01, "add_offset": 0.0})
	path := filepath.Join(t.TempDir(), "era5.nc")
	writeField(t, path, map[string]api.Variable{
		"u10": {Values: packed, Dimensions: windDims, Attributes: packing},
		"v10": {Values: packed, Dimensions: windDims, Attributes: packing},
	})

	field, err := NewReader().Read(context.Background(), path)
	require.NoError(t, err)
	assert.InDelta(t, 45, field.DirectionFromDeg[0][1][1], 0.01)
	assert.InDelta(t, 10, field.SpeedMS[0][1][1], 0.01)
}

func TestReaderMissingWind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.nc")
	writeField(t, path, map[string]api.Variable{})

	_, err := NewReader().Read(context.Background(), path)
	assert.ErrorContains(t, err, "no wind variables")
}
