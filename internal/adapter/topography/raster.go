package topography

import (
	"fmt"

	"github.com/fhs/go-netcdf/netcdf"
)

// Raster classifies coordinates against an elevation raster (GMTED2010 or
// GEBCO style): elevation above zero is land, at or below zero is sea.
// The raster path is a constructor argument; there is no process-wide
// topography configuration.
type Raster struct {
	lats []float64 // strictly increasing
	lons []float64 // strictly increasing
	elev [][]float64
}

// NewRaster loads the full elevation grid from a NetCDF file. The file must
// carry 1D latitude/longitude axes and a 2D elevation variable.
func NewRaster(path string) (*Raster, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open topography file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	lats, err := readAxis(nc, "lat", "latitude", "y")
	if err != nil {
		return nil, err
	}
	lons, err := readAxis(nc, "lon", "longitude", "x")
	if err != nil {
		return nil, err
	}
	elev, err := readElevation(nc, len(lats), len(lons))
	if err != nil {
		return nil, err
	}
	return NewRasterFromGrid(lons, lats, elev)
}

// NewRasterFromGrid builds a Raster from in-memory axes and elevation data.
// Axes in decreasing order are reversed together with the data.
func NewRasterFromGrid(lons, lats []float64, elev [][]float64) (*Raster, error) {
	if len(lats) < 2 || len(lons) < 2 {
		return nil, fmt.Errorf("topography grid needs at least 2x2 points")
	}
	if len(elev) != len(lats) {
		return nil, fmt.Errorf("elevation has %d rows for %d latitudes", len(elev), len(lats))
	}
	for i := range elev {
		if len(elev[i]) != len(lons) {
			return nil, fmt.Errorf("elevation row %d has %d columns for %d longitudes", i, len(elev[i]), len(lons))
		}
	}
	if lats[0] > lats[len(lats)-1] {
		lats = reversed(lats)
		rev := make([][]float64, len(elev))
		for i := range elev {
			rev[i] = elev[len(elev)-1-i]
		}
		elev = rev
	}
	if lons[0] > lons[len(lons)-1] {
		return nil, fmt.Errorf("longitude axis must be increasing")
	}
	return &Raster{lats: lats, lons: lons, elev: elev}, nil
}

// Classify returns one class per coordinate. Points outside the raster's
// coverage come back UNKNOWN. The nearest raster cell decides the class;
// interpolating elevation across a coastline would blur the land boundary.
func (r *Raster) Classify(lons, lats []float64) ([]Class, error) {
	if len(lons) != len(lats) {
		return nil, fmt.Errorf("got %d longitudes and %d latitudes", len(lons), len(lats))
	}
	out := make([]Class, len(lons))
	for k := range lons {
		lat, lon := lats[k], lons[k]
		if lat < r.lats[0] || lat > r.lats[len(r.lats)-1] ||
			lon < r.lons[0] || lon > r.lons[len(r.lons)-1] {
			out[k] = ClassUnknown
			continue
		}
		i := nearestIndex(r.lats, lat)
		j := nearestIndex(r.lons, lon)
		if r.elev[i][j] > 0 {
			out[k] = ClassLand
		} else {
			out[k] = ClassSea
		}
	}
	return out, nil
}

func nearestIndex(axis []float64, v float64) int {
	lo, hi := 0, len(axis)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if axis[mid] < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo > 0 && v-axis[lo-1] < axis[lo]-v {
		return lo - 1
	}
	return lo
}

func reversed(a []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[len(a)-1-i]
	}
	return out
}

func readAxis(nc netcdf.Dataset, names ...string) ([]float64, error) {
	for _, name := range names {
		v, err := nc.Var(name)
		if err != nil {
			continue
		}
		dims, err := v.Dims()
		if err != nil || len(dims) != 1 {
			continue
		}
		n, err := dims[0].Len()
		if err != nil {
			continue
		}
		data := make([]float64, n)
		if err := v.ReadFloat64s(data); err != nil {
			return nil, fmt.Errorf("failed to read axis %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("no axis variable found (tried %v)", names)
}

func readElevation(nc netcdf.Dataset, nLat, nLon int) ([][]float64, error) {
	var v netcdf.Var
	var found bool
	for _, name := range []string{"elevation", "z", "Band1"} {
		if cand, err := nc.Var(name); err == nil {
			v = cand
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("no elevation variable found")
	}
	flat := make([]float64, nLat*nLon)
	if err := v.ReadFloat64s(flat); err != nil {
		return nil, fmt.Errorf("failed to read elevation: %w", err)
	}
	rows := make([][]float64, nLat)
	for i := 0; i < nLat; i++ {
		rows[i] = flat[i*nLon : (i+1)*nLon]
	}
	return rows, nil
}
