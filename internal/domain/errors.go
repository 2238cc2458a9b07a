package domain

import "fmt"

// InvalidInputError reports malformed or mismatched retrieval inputs.
// It is structural: the whole retrieval is aborted before any per-pixel work.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// Invalidf builds an InvalidInputError with a formatted reason.
func Invalidf(format string, args ...any) error {
	return &InvalidInputError{Reason: fmt.Sprintf(format, args...)}
}

// OutOfGridError reports a geographic coordinate outside a grid's extent.
type OutOfGridError struct {
	Lon, Lat float64
}

func (e *OutOfGridError) Error() string {
	return fmt.Sprintf("coordinate (%.4f, %.4f) is outside the grid extent", e.Lon, e.Lat)
}

// TemporalMismatchError reports auxiliary data too distant in time from the
// SAR acquisition.
type TemporalMismatchError struct {
	Detail string
}

func (e *TemporalMismatchError) Error() string {
	return "temporal mismatch: " + e.Detail
}

// OutOfRangeError reports backscatter or incidence angle outside the GMF's
// calibrated domain. Recovered by flagging the pixel.
type OutOfRangeError struct {
	Quantity string
	Value    float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s %.6g is outside the calibrated GMF domain", e.Quantity, e.Value)
}

// InversionFailedError reports root-finder non-convergence within the
// iteration budget. Recovered by flagging the pixel.
type InversionFailedError struct {
	Iterations int
}

func (e *InversionFailedError) Error() string {
	return fmt.Sprintf("wind speed inversion did not converge within %d iterations", e.Iterations)
}
