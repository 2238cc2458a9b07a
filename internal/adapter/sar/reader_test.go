package sar

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fhs/go-netcdf/netcdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metno/sarwind/internal/domain"
)

type sceneSpec struct {
	id        string
	timeAttr  string
	sigmaName string
	omit      []string
}

func writeScene(t *testing.T, path string, spec sceneSpec) {
	t.Helper()
	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rowDim, err := f.AddDim("azimuth", 3)
	require.NoError(t, err)
	colDim, err := f.AddDim("range", 3)
	require.NoError(t, err)
	dims := []netcdf.Dim{rowDim, colDim}

	omitted := map[string]bool{}
	for _, name := range spec.omit {
		omitted[name] = true
	}
	vars := map[string]netcdf.Var{}
	for _, name := range []string{spec.sigmaName, "incidence_angle", "look_direction", "latitude", "longitude"} {
		if omitted[name] {
			continue
		}
		v, err := f.AddVar(name, netcdf.DOUBLE, dims)
		require.NoError(t, err)
		vars[name] = v
	}
	if spec.id != "" {
		require.NoError(t, f.Attr("id").WriteBytes([]byte(spec.id)))
	}
	if spec.timeAttr != "" {
		require.NoError(t, f.Attr("time_coverage_start").WriteBytes([]byte(spec.timeAttr)))
	}
	require.NoError(t, f.EndDef())

	fill := func(name string, base, step float64) {
		v, ok := vars[name]
		if !ok {
			return
		}
		data := make([]float64, 9)
		for i := range data {
			data[i] = base + float64(i)*step
		}
		require.NoError(t, v.WriteFloat64s(data))
	}
	fill(spec.sigmaName, 0.05, 0.001)
	fill("incidence_angle", 30, 0.1)
	fill("look_direction", 90, 0)

	// A slightly skewed swath so the geolocation is genuinely 2D.
	fill2D := func(name string, f func(i, j int) float64) {
		v, ok := vars[name]
		if !ok {
			return
		}
		data := make([]float64, 9)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				data[i*3+j] = f(i, j)
			}
		}
		require.NoError(t, v.WriteFloat64s(data))
	}
	fill2D("latitude", func(i, j int) float64 { return 60 - 0.01*float64(i) + 0.001*float64(j) })
	fill2D("longitude", func(i, j int) float64 { return 5 + 0.01*float64(j) + 0.001*float64(i) })
}

func TestReaderReadsVVScene(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.nc")
	writeScene(t, path, sceneSpec{
		id:        "S1A_IW_GRDH_TEST",
		timeAttr:  "2025-03-14T06:30:00Z",
		sigmaName: "sigma0_VV",
	})

	obs, err := NewReader().Read(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "S1A_IW_GRDH_TEST", obs.ID)
	assert.Equal(t, domain.PolVV, obs.Polarization)
	assert.Equal(t, time.Date(2025, 3, 14, 6, 30, 0, 0, time.UTC), obs.AcquisitionTime)

	rows, cols := obs.Grid.Shape()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 3, cols)
	assert.InDelta(t, 0.05, obs.NRCS[0][0], 1e-12)
	assert.InDelta(t, 30.4, obs.IncidenceDeg[1][1], 1e-12)

	lon, lat, err := obs.Grid.PixelToLonLat(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, lon, 1e-9)
	assert.InDelta(t, 60.0, lat, 1e-9)
}

func TestReaderFallsBackToHH(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene_hh.nc")
	writeScene(t, path, sceneSpec{
		timeAttr:  "2025-03-14T06:30:00Z",
		sigmaName: "sigma0_HH",
	})

	obs, err := NewReader().Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, domain.PolHH, obs.Polarization)
	assert.Equal(t, "scene_hh", obs.ID, "id falls back to the filename")
}

func TestReaderMissingBackscatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.nc")
	writeScene(t, path, sceneSpec{
		timeAttr:  "2025-03-14T06:30:00Z",
		sigmaName: "sigma0_VV",
		omit:      []string{"sigma0_VV"},
	})

	_, err := NewReader().Read(context.Background(), path)
	assert.ErrorContains(t, err, "no backscatter variable")
}

func TestReaderMissingTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notime.nc")
	writeScene(t, path, sceneSpec{sigmaName: "sigma0_VV"})

	_, err := NewReader().Read(context.Background(), path)
	assert.ErrorContains(t, err, "acquisition time")
}
