// Package sar reads calibrated SAR scenes from NetCDF products.
package sar

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fhs/go-netcdf/netcdf"

	"github.com/metno/sarwind/internal/domain"
)

// VarNames lists the variable name candidates tried for each field, in
// order. Products from different processors disagree on naming.
type VarNames struct {
	SigmaVV   []string
	SigmaHH   []string
	Incidence []string
	Look      []string
	Latitude  []string
	Longitude []string
}

// DefaultVarNames covers Sentinel-1 style GRD products.
func DefaultVarNames() VarNames {
	return VarNames{
		SigmaVV:   []string{"sigma0_VV", "Sigma0_VV", "sigma0_vv"},
		SigmaHH:   []string{"sigma0_HH", "Sigma0_HH", "sigma0_hh"},
		Incidence: []string{"incidence_angle", "incidenceangle", "incidence"},
		Look:      []string{"look_direction", "sensor_azimuth", "sar_look_direction"},
		Latitude:  []string{"latitude", "lat"},
		Longitude: []string{"longitude", "lon"},
	}
}

// Reader loads SAR observations from NetCDF scene files.
type Reader struct {
	vars VarNames
}

func NewReader() *Reader {
	return &Reader{vars: DefaultVarNames()}
}

func NewReaderWithVars(vars VarNames) *Reader {
	return &Reader{vars: vars}
}

// Read loads one scene. The backscatter channel decides the polarization:
// VV is preferred when both are present.
func (r *Reader) Read(_ context.Context, path string) (*domain.SARObservation, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open SAR scene: %w", err)
	}
	defer func() { _ = nc.Close() }()

	nrcs, pol, err := readBackscatter(nc, r.vars)
	if err != nil {
		return nil, err
	}
	rows, cols := len(nrcs), len(nrcs[0])

	inc, err := read2D(nc, rows, cols, r.vars.Incidence)
	if err != nil {
		return nil, err
	}
	look, err := read2D(nc, rows, cols, r.vars.Look)
	if err != nil {
		return nil, err
	}
	lats, err := read2D(nc, rows, cols, r.vars.Latitude)
	if err != nil {
		return nil, err
	}
	lons, err := read2D(nc, rows, cols, r.vars.Longitude)
	if err != nil {
		return nil, err
	}
	grid, err := domain.NewCurvilinearGrid(lons, lats)
	if err != nil {
		return nil, fmt.Errorf("building scene geolocation: %w", err)
	}

	acq, err := acquisitionTime(nc)
	if err != nil {
		return nil, err
	}

	obs := &domain.SARObservation{
		ID:               sceneID(nc, path),
		NRCS:             nrcs,
		IncidenceDeg:     inc,
		LookDirectionDeg: look,
		Polarization:     pol,
		AcquisitionTime:  acq,
		Grid:             grid,
	}
	if err := obs.Validate(); err != nil {
		return nil, err
	}
	return obs, nil
}

func readBackscatter(nc netcdf.Dataset, vars VarNames) ([][]float64, domain.Polarization, error) {
	if v, ok := findVar(nc, vars.SigmaVV); ok {
		data, err := readVar2D(v)
		return data, domain.PolVV, err
	}
	if v, ok := findVar(nc, vars.SigmaHH); ok {
		data, err := readVar2D(v)
		return data, domain.PolHH, err
	}
	return nil, "", fmt.Errorf("no backscatter variable found (tried %v and %v)", vars.SigmaVV, vars.SigmaHH)
}

func read2D(nc netcdf.Dataset, rows, cols int, names []string) ([][]float64, error) {
	v, ok := findVar(nc, names)
	if !ok {
		return nil, fmt.Errorf("no variable found (tried %v)", names)
	}
	data, err := readVar2D(v)
	if err != nil {
		return nil, err
	}
	if len(data) != rows || len(data[0]) != cols {
		name, _ := v.Name()
		return nil, fmt.Errorf("variable %s has shape (%d, %d), want (%d, %d)", name, len(data), len(data[0]), rows, cols)
	}
	return data, nil
}

func findVar(nc netcdf.Dataset, names []string) (netcdf.Var, bool) {
	for _, name := range names {
		if v, err := nc.Var(name); err == nil {
			return v, true
		}
	}
	return netcdf.Var{}, false
}

func readVar2D(v netcdf.Var) ([][]float64, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 2 {
		name, _ := v.Name()
		return nil, fmt.Errorf("variable %s is %dD, want 2D", name, len(dims))
	}
	rows, err := dims[0].Len()
	if err != nil {
		return nil, err
	}
	cols, err := dims[1].Len()
	if err != nil {
		return nil, err
	}
	flat := make([]float64, rows*cols)
	if err := v.ReadFloat64s(flat); err != nil {
		name, _ := v.Name()
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	out := make([][]float64, rows)
	for i := uint64(0); i < rows; i++ {
		out[i] = flat[i*cols : (i+1)*cols]
	}
	return out, nil
}

// acquisitionTime parses the ACDD time_coverage_start global attribute.
func acquisitionTime(nc netcdf.Dataset) (time.Time, error) {
	s, err := globalString(nc, "time_coverage_start")
	if err != nil {
		return time.Time{}, fmt.Errorf("scene has no acquisition time: %w", err)
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000000", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time_coverage_start %q", s)
}

func sceneID(nc netcdf.Dataset, path string) string {
	if s, err := globalString(nc, "id"); err == nil && s != "" {
		return s
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func globalString(nc netcdf.Dataset, name string) (string, error) {
	a := nc.Attr(name)
	n, err := a.Len()
	if err != nil {
		return "", fmt.Errorf("attribute %s: %w", name, err)
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		return "", fmt.Errorf("attribute %s: %w", name, err)
	}
	return strings.TrimSpace(string(bytes.TrimRight(buf, "\x00"))), nil
}
