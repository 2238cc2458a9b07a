package domain

import (
	"time"
)

// Flag classifies the retrieval outcome of a single pixel.
type Flag uint8

const (
	FlagValid Flag = iota
	FlagLandMasked
	FlagOutOfRange
	FlagNoAuxiliaryData
	FlagInversionFailed
)

func (f Flag) String() string {
	switch f {
	case FlagValid:
		return "VALID"
	case FlagLandMasked:
		return "LAND_MASKED"
	case FlagOutOfRange:
		return "OUT_OF_RANGE"
	case FlagNoAuxiliaryData:
		return "NO_AUXILIARY_DATA"
	case FlagInversionFailed:
		return "INVERSION_FAILED"
	}
	return "UNKNOWN"
}

// Flags lists all defined quality flags in order.
var Flags = []Flag{FlagValid, FlagLandMasked, FlagOutOfRange, FlagNoAuxiliaryData, FlagInversionFailed}

// Polarization identifies a SAR backscatter channel.
type Polarization string

const (
	PolVV Polarization = "VV"
	PolHH Polarization = "HH"
)

// SARObservation is one SAR scene prepared for wind retrieval. All arrays
// are read-only inputs owned by the caller and share the grid's shape.
type SARObservation struct {
	ID               string
	NRCS             [][]float64 // calibrated backscatter, linear units
	IncidenceDeg     [][]float64
	LookDirectionDeg [][]float64 // sensor azimuth, degrees clockwise from north
	Polarization     Polarization
	AcquisitionTime  time.Time
	Grid             GeoGrid
}

// Validate checks structural consistency. Violations are fatal for the
// whole retrieval.
func (o *SARObservation) Validate() error {
	if o.Grid == nil {
		return Invalidf("SAR observation %q has no georeferencing", o.ID)
	}
	rows, cols := o.Grid.Shape()
	for name, arr := range map[string][][]float64{
		"nrcs":           o.NRCS,
		"incidence":      o.IncidenceDeg,
		"look_direction": o.LookDirectionDeg,
	} {
		if err := checkShape(name, arr, rows, cols); err != nil {
			return err
		}
	}
	if o.Polarization != PolVV && o.Polarization != PolHH {
		return Invalidf("unsupported polarization %q", o.Polarization)
	}
	if o.AcquisitionTime.IsZero() {
		return Invalidf("SAR observation %q has no acquisition time", o.ID)
	}
	for i := range o.IncidenceDeg {
		for j, inc := range o.IncidenceDeg[i] {
			if inc < 0 || inc >= 90 {
				return Invalidf("incidence angle %.2f at (%d, %d) outside [0, 90)", inc, i, j)
			}
			if o.NRCS[i][j] < 0 {
				return Invalidf("negative linear NRCS %.6g at (%d, %d)", o.NRCS[i][j], i, j)
			}
		}
	}
	return nil
}

// AuxiliaryWindField is a model or reanalysis wind field on its own grid,
// with one direction (and optionally speed) slice per timestamp.
type AuxiliaryWindField struct {
	ID               string
	DirectionFromDeg [][][]float64 // [time][row][col], meteorological convention
	SpeedMS          [][][]float64 // optional, nil when the source has none
	Times            []time.Time
	Grid             GeoGrid
}

// Validate checks structural consistency of the auxiliary field.
func (a *AuxiliaryWindField) Validate() error {
	if a.Grid == nil {
		return Invalidf("wind field %q has no georeferencing", a.ID)
	}
	if len(a.Times) == 0 {
		return Invalidf("wind field %q has no time axis", a.ID)
	}
	if len(a.DirectionFromDeg) != len(a.Times) {
		return Invalidf("wind field %q has %d direction slices for %d timestamps",
			a.ID, len(a.DirectionFromDeg), len(a.Times))
	}
	if a.SpeedMS != nil && len(a.SpeedMS) != len(a.Times) {
		return Invalidf("wind field %q has %d speed slices for %d timestamps",
			a.ID, len(a.SpeedMS), len(a.Times))
	}
	rows, cols := a.Grid.Shape()
	// Bilinear sampling needs a full cell in both axes.
	if rows < 2 || cols < 2 {
		return Invalidf("wind field %q grid of shape (%d, %d) must be at least 2x2", a.ID, rows, cols)
	}
	for t := range a.DirectionFromDeg {
		if err := checkShape("direction", a.DirectionFromDeg[t], rows, cols); err != nil {
			return err
		}
		if a.SpeedMS != nil {
			if err := checkShape("speed", a.SpeedMS[t], rows, cols); err != nil {
				return err
			}
		}
	}
	for t := 1; t < len(a.Times); t++ {
		if !a.Times[t].After(a.Times[t-1]) {
			return Invalidf("wind field %q time axis is not strictly increasing", a.ID)
		}
	}
	return nil
}

// Provenance records where a retrieval came from and how it went.
type Provenance struct {
	SARID             string
	WindID            string
	GMFName           string
	GMFVersion        string
	AcquisitionTime   time.Time
	ProcessedAt       time.Time
	TemporalTolerance time.Duration
	Stride            int
	FlagCounts        map[Flag]int
}

// RetrievalResult is the assembled output of one retrieval. All arrays match
// the SAR grid's shape; the result holds no reference back to the inputs.
type RetrievalResult struct {
	SpeedMS          [][]float64
	DirectionFromDeg [][]float64 // the colocated direction actually used
	ModelSpeedMS     [][]float64 // nil when the auxiliary source has no speed
	Flags            [][]Flag
	Grid             GeoGrid
	Provenance       Provenance
}

func checkShape(name string, arr [][]float64, rows, cols int) error {
	if len(arr) != rows {
		return Invalidf("%s array has %d rows, grid has %d", name, len(arr), rows)
	}
	for i := range arr {
		if len(arr[i]) != cols {
			return Invalidf("%s array row %d has %d columns, grid has %d", name, i, len(arr[i]), cols)
		}
	}
	return nil
}

// NewFloat2D allocates a rows x cols array backed by one contiguous buffer.
func NewFloat2D(rows, cols int) [][]float64 {
	flat := make([]float64, rows*cols)
	out := make([][]float64, rows)
	for i := range out {
		out[i] = flat[i*cols : (i+1)*cols]
	}
	return out
}

// NewFlag2D allocates a rows x cols flag array backed by one contiguous buffer.
func NewFlag2D(rows, cols int) [][]Flag {
	flat := make([]Flag, rows*cols)
	out := make([][]Flag, rows)
	for i := range out {
		out[i] = flat[i*cols : (i+1)*cols]
	}
	return out
}
