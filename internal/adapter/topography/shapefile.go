package topography

import (
	"fmt"

	shp "github.com/jonas-p/go-shp"
)

// Shoreline classifies coordinates against land polygons from a shapefile
// (GSHHG-style coastlines). Points inside any polygon are land, all others
// sea; global polygon sets cover every coordinate, so the provider never
// returns UNKNOWN.
type Shoreline struct {
	polys []landPolygon
}

type landPolygon struct {
	box   shp.Box
	rings [][]shp.Point
}

// NewShoreline reads every polygon shape from the file.
func NewShoreline(path string) (*Shoreline, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile: %w", err)
	}
	defer reader.Close()

	var polys []landPolygon
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		polys = append(polys, landPolygon{box: poly.Box, rings: polygonRings(poly)})
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shapefile: %w", err)
	}
	if len(polys) == 0 {
		return nil, fmt.Errorf("shapefile %s contains no polygons", path)
	}
	return &Shoreline{polys: polys}, nil
}

func polygonRings(p *shp.Polygon) [][]shp.Point {
	rings := make([][]shp.Point, 0, len(p.Parts))
	for i, start := range p.Parts {
		end := len(p.Points)
		if i+1 < len(p.Parts) {
			end = int(p.Parts[i+1])
		}
		rings = append(rings, p.Points[start:end])
	}
	return rings
}

// Classify returns LAND for points inside a land polygon, SEA otherwise.
func (s *Shoreline) Classify(lons, lats []float64) ([]Class, error) {
	if len(lons) != len(lats) {
		return nil, fmt.Errorf("got %d longitudes and %d latitudes", len(lons), len(lats))
	}
	out := make([]Class, len(lons))
	for k := range lons {
		if s.contains(lons[k], lats[k]) {
			out[k] = ClassLand
		} else {
			out[k] = ClassSea
		}
	}
	return out, nil
}

func (s *Shoreline) contains(lon, lat float64) bool {
	for _, p := range s.polys {
		if lon < p.box.MinX || lon > p.box.MaxX || lat < p.box.MinY || lat > p.box.MaxY {
			continue
		}
		// Even-odd rule over all rings: holes cancel the outer ring.
		inside := false
		for _, ring := range p.rings {
			if pointInRing(lon, lat, ring) {
				inside = !inside
			}
		}
		if inside {
			return true
		}
	}
	return false
}

// pointInRing is the standard ray-casting test.
func pointInRing(x, y float64, ring []shp.Point) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].X, ring[i].Y
		xj, yj := ring[j].X, ring[j].Y
		if (yi > y) != (yj > y) &&
			x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
