package domain

import "math"

// Wind directions throughout this package follow the meteorological
// convention: degrees clockwise from north, naming the direction the wind
// blows FROM. Model u/v components are converted at the input boundary and
// never interpolated as raw degree values.

// Deg2Rad converts degrees to radians.
func Deg2Rad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Rad2Deg converts radians to degrees.
func Rad2Deg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// NormalizeDirection wraps an angle in degrees into [0, 360).
func NormalizeDirection(deg float64) float64 {
	d := math.Mod(deg, 360.0)
	if d < 0 {
		d += 360.0
	}
	return d
}

// DirectionFromUV computes the meteorological wind-from direction from
// eastward (u) and northward (v) wind components.
func DirectionFromUV(u, v float64) float64 {
	return NormalizeDirection(180.0 + Rad2Deg(math.Atan2(u, v)))
}

// UVFromSpeedDirection computes eastward and northward components from wind
// speed and the meteorological wind-from direction.
func UVFromSpeedDirection(speed, dirFromDeg float64) (u, v float64) {
	u = -speed * math.Sin(Deg2Rad(dirFromDeg))
	v = -speed * math.Cos(Deg2Rad(dirFromDeg))
	return u, v
}

// RelativeDirection converts a wind-from direction into the direction
// relative to the antenna look direction, in [0, 360).
func RelativeDirection(windFromDeg, lookDeg float64) float64 {
	return NormalizeDirection(windFromDeg - lookDeg)
}

// DirComponents returns the unit-circle components of a direction in degrees.
// Interpolation and averaging of directions must go through components to
// stay correct across the 0/360 wrap.
func DirComponents(deg float64) (cos, sin float64) {
	r := Deg2Rad(deg)
	return math.Cos(r), math.Sin(r)
}

// DirFromComponents recovers a direction in [0, 360) from averaged
// unit-circle components. Returns NaN when the components cancel out
// (no meaningful mean direction).
func DirFromComponents(cos, sin float64) float64 {
	if math.Hypot(cos, sin) < 1e-12 {
		return math.NaN()
	}
	return NormalizeDirection(Rad2Deg(math.Atan2(sin, cos)))
}
