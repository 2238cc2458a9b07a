package domain

import (
	"fmt"
	"math"
)

// BoundingBox is a geographic extent in degrees.
type BoundingBox struct {
	MinLon, MaxLon float64
	MinLat, MaxLat float64
}

// Contains reports whether the point lies inside the box.
func (b BoundingBox) Contains(lon, lat float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// Intersects reports whether two boxes overlap.
func (b BoundingBox) Intersects(o BoundingBox) bool {
	return b.MinLon <= o.MaxLon && o.MinLon <= b.MaxLon &&
		b.MinLat <= o.MaxLat && o.MinLat <= b.MaxLat
}

// GeoGrid maps between pixel coordinates and geographic coordinates for a
// raster of shape (rows, cols). Pixel coordinates are fractional: (0, 0) is
// the center of the upper-left pixel. Implementations must be safe for
// concurrent readers.
type GeoGrid interface {
	Shape() (rows, cols int)
	PixelToLonLat(row, col float64) (lon, lat float64, err error)
	LonLatToPixel(lon, lat float64) (row, col float64, err error)
	BoundingBox() BoundingBox
}

// AffineGrid georeferences a regular grid with a six-parameter geotransform,
// GDAL ordering:
//
//	lon = gt[0] + col*gt[1] + row*gt[2]
//	lat = gt[3] + col*gt[4] + row*gt[5]
type AffineGrid struct {
	rows, cols int
	gt         [6]float64
	inv        [6]float64
	bbox       BoundingBox
}

// NewAffineGrid builds an AffineGrid, failing if the transform is singular.
func NewAffineGrid(rows, cols int, gt [6]float64) (*AffineGrid, error) {
	if rows < 1 || cols < 1 {
		return nil, Invalidf("grid shape (%d, %d) must be positive", rows, cols)
	}
	det := gt[1]*gt[5] - gt[2]*gt[4]
	if math.Abs(det) < 1e-15 {
		return nil, Invalidf("singular geotransform %v", gt)
	}
	g := &AffineGrid{rows: rows, cols: cols, gt: gt}
	g.inv = [6]float64{
		-(gt[0]*gt[5] - gt[3]*gt[2]) / det, gt[5] / det, -gt[2] / det,
		(gt[0]*gt[4] - gt[3]*gt[1]) / det, -gt[4] / det, gt[1] / det,
	}
	g.bbox = cornerBounds(g)
	return g, nil
}

// NewLatLonGrid builds an AffineGrid for a north-up regular lat/lon raster
// where (lon0, lat0) is the center of pixel (0, 0).
func NewLatLonGrid(rows, cols int, lon0, lat0, dLon, dLat float64) (*AffineGrid, error) {
	return NewAffineGrid(rows, cols, [6]float64{lon0, dLon, 0, lat0, 0, dLat})
}

func (g *AffineGrid) Shape() (int, int) { return g.rows, g.cols }

func (g *AffineGrid) PixelToLonLat(row, col float64) (float64, float64, error) {
	if row < -0.5 || row > float64(g.rows)-0.5 || col < -0.5 || col > float64(g.cols)-0.5 {
		return 0, 0, fmt.Errorf("pixel (%.2f, %.2f) outside grid of shape (%d, %d)", row, col, g.rows, g.cols)
	}
	lon := g.gt[0] + col*g.gt[1] + row*g.gt[2]
	lat := g.gt[3] + col*g.gt[4] + row*g.gt[5]
	return lon, lat, nil
}

func (g *AffineGrid) LonLatToPixel(lon, lat float64) (float64, float64, error) {
	if !g.bbox.Contains(lon, lat) {
		return 0, 0, &OutOfGridError{Lon: lon, Lat: lat}
	}
	col := g.inv[0] + lon*g.inv[1] + lat*g.inv[2]
	row := g.inv[3] + lon*g.inv[4] + lat*g.inv[5]
	if row < -0.5 || row > float64(g.rows)-0.5 || col < -0.5 || col > float64(g.cols)-0.5 {
		return 0, 0, &OutOfGridError{Lon: lon, Lat: lat}
	}
	return row, col, nil
}

func (g *AffineGrid) BoundingBox() BoundingBox { return g.bbox }

func cornerBounds(g *AffineGrid) BoundingBox {
	b := BoundingBox{MinLon: math.Inf(1), MaxLon: math.Inf(-1), MinLat: math.Inf(1), MaxLat: math.Inf(-1)}
	for _, rc := range [][2]float64{
		{0, 0}, {0, float64(g.cols - 1)}, {float64(g.rows - 1), 0}, {float64(g.rows - 1), float64(g.cols - 1)},
	} {
		lon := g.gt[0] + rc[1]*g.gt[1] + rc[0]*g.gt[2]
		lat := g.gt[3] + rc[1]*g.gt[4] + rc[0]*g.gt[5]
		b.MinLon = math.Min(b.MinLon, lon)
		b.MaxLon = math.Max(b.MaxLon, lon)
		b.MinLat = math.Min(b.MinLat, lat)
		b.MaxLat = math.Max(b.MaxLat, lat)
	}
	return b
}

// CurvilinearGrid georeferences a swath grid through per-pixel geolocation
// arrays, as found in SAR products where no analytic projection exists.
type CurvilinearGrid struct {
	lons, lats [][]float64
	rows, cols int
	bbox       BoundingBox
}

// NewCurvilinearGrid builds a CurvilinearGrid from per-pixel longitude and
// latitude arrays of identical shape.
func NewCurvilinearGrid(lons, lats [][]float64) (*CurvilinearGrid, error) {
	rows := len(lons)
	if rows < 2 || len(lats) != rows {
		return nil, Invalidf("geolocation arrays must have matching shape with at least 2 rows")
	}
	cols := len(lons[0])
	if cols < 2 {
		return nil, Invalidf("geolocation arrays must have at least 2 columns")
	}
	b := BoundingBox{MinLon: math.Inf(1), MaxLon: math.Inf(-1), MinLat: math.Inf(1), MaxLat: math.Inf(-1)}
	for i := 0; i < rows; i++ {
		if len(lons[i]) != cols || len(lats[i]) != cols {
			return nil, Invalidf("geolocation row %d has inconsistent length", i)
		}
		for j := 0; j < cols; j++ {
			b.MinLon = math.Min(b.MinLon, lons[i][j])
			b.MaxLon = math.Max(b.MaxLon, lons[i][j])
			b.MinLat = math.Min(b.MinLat, lats[i][j])
			b.MaxLat = math.Max(b.MaxLat, lats[i][j])
		}
	}
	return &CurvilinearGrid{lons: lons, lats: lats, rows: rows, cols: cols, bbox: b}, nil
}

func (g *CurvilinearGrid) Shape() (int, int) { return g.rows, g.cols }

func (g *CurvilinearGrid) BoundingBox() BoundingBox { return g.bbox }

func (g *CurvilinearGrid) PixelToLonLat(row, col float64) (float64, float64, error) {
	if row < 0 || row > float64(g.rows-1) || col < 0 || col > float64(g.cols-1) {
		return 0, 0, fmt.Errorf("pixel (%.2f, %.2f) outside grid of shape (%d, %d)", row, col, g.rows, g.cols)
	}
	i := int(row)
	j := int(col)
	if i > g.rows-2 {
		i = g.rows - 2
	}
	if j > g.cols-2 {
		j = g.cols - 2
	}
	fr := row - float64(i)
	fc := col - float64(j)
	lon := (1-fr)*(1-fc)*g.lons[i][j] + (1-fr)*fc*g.lons[i][j+1] +
		fr*(1-fc)*g.lons[i+1][j] + fr*fc*g.lons[i+1][j+1]
	lat := (1-fr)*(1-fc)*g.lats[i][j] + (1-fr)*fc*g.lats[i][j+1] +
		fr*(1-fc)*g.lats[i+1][j] + fr*fc*g.lats[i+1][j+1]
	return lon, lat, nil
}

// LonLatToPixel inverts the geolocation arrays numerically: a coarse scan
// seeds a greedy descent to the nearest grid node, then the fractional
// offset is solved from the local linearization of the geolocation field.
func (g *CurvilinearGrid) LonLatToPixel(lon, lat float64) (float64, float64, error) {
	if !g.bbox.Contains(lon, lat) {
		return 0, 0, &OutOfGridError{Lon: lon, Lat: lat}
	}

	// Latitude-compensated squared distance in degrees.
	cosLat := math.Cos(Deg2Rad(lat))
	dist2 := func(i, j int) float64 {
		dLon := (g.lons[i][j] - lon) * cosLat
		dLat := g.lats[i][j] - lat
		return dLon*dLon + dLat*dLat
	}

	// Coarse scan for a descent seed.
	stride := maxInt(1, maxInt(g.rows, g.cols)/16)
	bi, bj := 0, 0
	best := math.Inf(1)
	for i := 0; i < g.rows; i += stride {
		for j := 0; j < g.cols; j += stride {
			if d := dist2(i, j); d < best {
				best, bi, bj = d, i, j
			}
		}
	}

	// Greedy descent on the eight neighbors. Swath geolocation is smooth,
	// so the distance field has a single basin.
	for moved := true; moved; {
		moved = false
		for di := -1; di <= 1; di++ {
			for dj := -1; dj <= 1; dj++ {
				i, j := bi+di, bj+dj
				if i < 0 || i >= g.rows || j < 0 || j >= g.cols {
					continue
				}
				if d := dist2(i, j); d < best {
					best, bi, bj, moved = d, i, j, true
				}
			}
		}
	}

	row, col, ok := g.refine(lon, lat, bi, bj)
	if !ok {
		return 0, 0, &OutOfGridError{Lon: lon, Lat: lat}
	}
	return row, col, nil
}

// refine solves for the fractional pixel offset around node (i, j) using
// finite-difference gradients of the geolocation arrays.
func (g *CurvilinearGrid) refine(lon, lat float64, i, j int) (float64, float64, bool) {
	i = clampInt(i, 0, g.rows-2)
	j = clampInt(j, 0, g.cols-2)

	dLonDr := g.lons[i+1][j] - g.lons[i][j]
	dLatDr := g.lats[i+1][j] - g.lats[i][j]
	dLonDc := g.lons[i][j+1] - g.lons[i][j]
	dLatDc := g.lats[i][j+1] - g.lats[i][j]

	det := dLonDr*dLatDc - dLonDc*dLatDr
	if math.Abs(det) < 1e-18 {
		return 0, 0, false
	}
	eLon := lon - g.lons[i][j]
	eLat := lat - g.lats[i][j]
	fr := (eLon*dLatDc - eLat*dLonDc) / det
	fc := (eLat*dLonDr - eLon*dLatDr) / det

	row := float64(i) + fr
	col := float64(j) + fc

	// A point inside the bounding box can still fall outside the swath.
	const slack = 0.5
	if row < -slack || row > float64(g.rows-1)+slack || col < -slack || col > float64(g.cols-1)+slack {
		return 0, 0, false
	}
	return clampFloat(row, 0, float64(g.rows-1)), clampFloat(col, 0, float64(g.cols-1)), true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
