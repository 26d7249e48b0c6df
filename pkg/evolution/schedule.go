package evolution

import "math"

const (
	// DefaultThresholdLow is the threshold selector at the most negative slice
	DefaultThresholdLow = 0.35

	// DefaultThresholdHigh is the threshold selector at the most positive slice
	DefaultThresholdHigh = 0.65

	// DefaultCentralTolerance is the instability tolerance near the central slice
	DefaultCentralTolerance = 6

	// DefaultPeripheralTolerance is the instability tolerance away from the centre
	DefaultPeripheralTolerance = 3
)

// ThresholdSchedule maps the signed distance of a slice from the central slice
// to a threshold selector. The curve is a piecewise quadratic S from low at
// -halfRange to high at +halfRange, flat beyond, and passes through the
// midpoint at the central slice.
func ThresholdSchedule(signed, halfRange, low, high float64) float64 {
	t := 0.0
	if halfRange > 0 {
		t = math.Max(-1, math.Min(1, signed/halfRange))
	}
	u := (t + 1) / 2
	var s float64
	if u < 0.5 {
		s = 2 * u * u
	} else {
		s = 1 - 2*(1-u)*(1-u)
	}
	return low + (high-low)*s
}

// centralBand is the number of slices on either side of the centre that get
// the central tolerance
func centralBand(sliceCount int) int {
	return max(1, sliceCount/6)
}

// instabilityTolerance returns the tolerated instability count for a slice
func (s Settings) instabilityTolerance(index, center, sliceCount int) int {
	d := index - center
	if d < 0 {
		d = -d
	}
	if d <= centralBand(sliceCount) {
		return s.CentralTolerance
	}
	return s.PeripheralTolerance
}
