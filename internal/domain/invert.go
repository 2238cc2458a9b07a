package domain

import "math"

// InversionConfig bounds the per-pixel wind speed root finder.
type InversionConfig struct {
	MinSpeedMS float64 // lower bracket, m/s
	MaxSpeedMS float64 // upper bracket, m/s
	NoiseFloor float64 // linear NRCS below which retrieval is refused
	SpeedTolMS float64 // convergence tolerance on the bracket width
	MaxIter    int     // iteration budget
}

// DefaultInversionConfig returns the operational settings: speeds in
// [0, 50] m/s, a -40 dB noise floor and a 1 cm/s bracket tolerance.
func DefaultInversionConfig() InversionConfig {
	return InversionConfig{
		MinSpeedMS: 0,
		MaxSpeedMS: 50,
		NoiseFloor: 1e-4,
		SpeedTolMS: 0.01,
		MaxIter:    40,
	}
}

// InvertWindSpeed solves CMOD5N(v, phi, theta) = nrcs for v by bounded
// bisection. The forward model is monotonic in wind speed over the bracket
// for fixed direction and incidence, so a sign change at the endpoints
// guarantees a single root.
//
// Out-of-domain inputs return an OutOfRangeError; exhausting the iteration
// budget before the bracket converges returns an InversionFailedError. The
// last iterate is never silently returned.
func InvertWindSpeed(nrcs, phiDeg, thetaDeg float64, cfg InversionConfig) (float64, error) {
	if thetaDeg < MinIncidenceDeg || thetaDeg > MaxIncidenceDeg {
		return 0, &OutOfRangeError{Quantity: "incidence angle", Value: thetaDeg}
	}
	if math.IsNaN(nrcs) || nrcs < cfg.NoiseFloor {
		return 0, &OutOfRangeError{Quantity: "nrcs", Value: nrcs}
	}

	lo, hi := cfg.MinSpeedMS, cfg.MaxSpeedMS
	fLo := CMOD5N(lo, phiDeg, thetaDeg) - nrcs
	fHi := CMOD5N(hi, phiDeg, thetaDeg) - nrcs
	if fLo > 0 {
		// Observed backscatter below the model's value at the minimum
		// speed: outside the invertible range, do not extrapolate.
		return 0, &OutOfRangeError{Quantity: "nrcs", Value: nrcs}
	}
	if fHi < 0 {
		// Saturated above the model ceiling.
		return 0, &OutOfRangeError{Quantity: "nrcs", Value: nrcs}
	}

	for iter := 0; iter < cfg.MaxIter; iter++ {
		mid := 0.5 * (lo + hi)
		fMid := CMOD5N(mid, phiDeg, thetaDeg) - nrcs
		if fMid <= 0 {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo <= cfg.SpeedTolMS {
			return 0.5 * (lo + hi), nil
		}
	}
	return 0, &InversionFailedError{Iterations: cfg.MaxIter}
}
