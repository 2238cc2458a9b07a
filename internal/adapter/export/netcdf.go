// Package export writes retrieval results as CF/ACDD style NetCDF products.
package export

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/fhs/go-netcdf/netcdf"

	"github.com/metno/sarwind/internal/domain"
)

// NetCDF writes wind products with the retrieved speed, the direction used,
// derived wind components and the per-pixel quality flag.
type NetCDF struct{}

func NewNetCDF() *NetCDF {
	return &NetCDF{}
}

func (e *NetCDF) Export(_ context.Context, path string, res *domain.RetrievalResult) error {
	rows, cols := res.Grid.Shape()

	nc, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		return fmt.Errorf("failed to create wind product: %w", err)
	}
	defer func() { _ = nc.Close() }()

	yDim, err := nc.AddDim("y", uint64(rows))
	if err != nil {
		return err
	}
	xDim, err := nc.AddDim("x", uint64(cols))
	if err != nil {
		return err
	}
	dims := []netcdf.Dim{yDim, xDim}

	type varSpec struct {
		name     string
		longName string
		units    string
	}
	floatVars := []varSpec{
		{"wind_speed", "retrieved wind speed at 10 m", "m s-1"},
		{"wind_from_direction", "direction the wind is blowing from", "degree"},
		{"eastward_wind", "eastward wind component at 10 m", "m s-1"},
		{"northward_wind", "northward wind component at 10 m", "m s-1"},
		{"latitude", "latitude", "degree_north"},
		{"longitude", "longitude", "degree_east"},
	}
	if res.ModelSpeedMS != nil {
		floatVars = append(floatVars, varSpec{"model_wind_speed", "auxiliary model wind speed at 10 m", "m s-1"})
	}

	vars := make(map[string]netcdf.Var, len(floatVars)+1)
	for _, spec := range floatVars {
		v, err := nc.AddVar(spec.name, netcdf.DOUBLE, dims)
		if err != nil {
			return err
		}
		if err := v.Attr("long_name").WriteBytes([]byte(spec.longName)); err != nil {
			return err
		}
		if err := v.Attr("units").WriteBytes([]byte(spec.units)); err != nil {
			return err
		}
		vars[spec.name] = v
	}

	flagVar, err := nc.AddVar("quality_flag", netcdf.BYTE, dims)
	if err != nil {
		return err
	}
	if err := flagVar.Attr("flag_values").WriteInt8s([]int8{0, 1, 2, 3, 4}); err != nil {
		return err
	}
	meanings := ""
	for i, f := range domain.Flags {
		if i > 0 {
			meanings += " "
		}
		meanings += f.String()
	}
	if err := flagVar.Attr("flag_meanings").WriteBytes([]byte(meanings)); err != nil {
		return err
	}

	if err := writeGlobalAttrs(nc, res.Provenance); err != nil {
		return err
	}
	if err := nc.EndDef(); err != nil {
		return fmt.Errorf("failed to finalize product header: %w", err)
	}

	speed := flatten(res.SpeedMS)
	dir := flatten(res.DirectionFromDeg)
	east := make([]float64, rows*cols)
	north := make([]float64, rows*cols)
	for k := range speed {
		if math.IsNaN(speed[k]) || math.IsNaN(dir[k]) {
			east[k], north[k] = math.NaN(), math.NaN()
			continue
		}
		east[k], north[k] = domain.UVFromSpeedDirection(speed[k], dir[k])
	}
	lats := make([]float64, rows*cols)
	lons := make([]float64, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			lon, lat, err := res.Grid.PixelToLonLat(float64(i), float64(j))
			if err != nil {
				lon, lat = math.NaN(), math.NaN()
			}
			lons[i*cols+j], lats[i*cols+j] = lon, lat
		}
	}

	writes := map[string][]float64{
		"wind_speed":          speed,
		"wind_from_direction": dir,
		"eastward_wind":       east,
		"northward_wind":      north,
		"latitude":            lats,
		"longitude":           lons,
	}
	if res.ModelSpeedMS != nil {
		writes["model_wind_speed"] = flatten(res.ModelSpeedMS)
	}
	for name, data := range writes {
		if err := vars[name].WriteFloat64s(data); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	flags := make([]int8, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			flags[i*cols+j] = int8(res.Flags[i][j])
		}
	}
	if err := flagVar.WriteInt8s(flags); err != nil {
		return fmt.Errorf("failed to write quality_flag: %w", err)
	}
	return nil
}

func writeGlobalAttrs(nc netcdf.Dataset, prov domain.Provenance) error {
	attrs := [][2]string{
		{"title", "SAR wind field retrieval"},
		{"id", prov.SARID + "_wind"},
		{"source_scene", prov.SARID},
		{"source_wind_field", prov.WindID},
		{"gmf", prov.GMFName},
		{"gmf_version", prov.GMFVersion},
		{"time_coverage_start", prov.AcquisitionTime.UTC().Format(time.RFC3339)},
		{"date_created", prov.ProcessedAt.UTC().Format(time.RFC3339)},
		{"temporal_tolerance", prov.TemporalTolerance.String()},
		{"colocation_stride", fmt.Sprintf("%d", prov.Stride)},
	}
	for _, kv := range attrs {
		if err := nc.Attr(kv[0]).WriteBytes([]byte(kv[1])); err != nil {
			return fmt.Errorf("failed to write attribute %s: %w", kv[0], err)
		}
	}
	return nil
}

func flatten(grid [][]float64) []float64 {
	if len(grid) == 0 {
		return nil
	}
	cols := len(grid[0])
	out := make([]float64, len(grid)*cols)
	for i := range grid {
		copy(out[i*cols:], grid[i])
	}
	return out
}
