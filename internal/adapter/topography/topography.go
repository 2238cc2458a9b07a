// Package topography classifies geographic coordinates as land or sea for
// masking SAR wind retrievals.
package topography

// Class is the land/sea classification of one coordinate.
type Class uint8

const (
	// ClassUnknown means the coordinate is outside the provider's
	// coverage. Callers must treat it conservatively and exclude the
	// pixel, never assume sea.
	ClassUnknown Class = iota
	ClassLand
	ClassSea
)

func (c Class) String() string {
	switch c {
	case ClassLand:
		return "LAND"
	case ClassSea:
		return "SEA"
	}
	return "UNKNOWN"
}

// Provider classifies a batch of coordinates. Implementations hold read-only
// data and are safe for concurrent use.
type Provider interface {
	Classify(lons, lats []float64) ([]Class, error)
}
