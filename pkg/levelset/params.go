// Package levelset implements the numerical core of the model-based active
// contour: the narrow-band weight, the contrast-driven image force, the
// semi-implicit curvature-regularised update of phi and the redistancing step
// that keeps phi close to a signed distance function.
//
// Every function here is stateless. The caller owns phi and passes the tuning
// knobs in a Params value.
package levelset

import "math"

// Empirically tuned constants of the force model
const (
	// BandWidth is the half-width of the narrow band in grid units
	BandWidth = 1.5

	// FanOffset is the angular offset of the two side rays used when probing
	// intensities along the normal
	FanOffset = math.Pi / 40

	// MaskLevel is the phi value at and above which a cell counts as foreground
	MaskLevel = -0.5

	// minGradient floors gradient magnitudes before they are inverted
	minGradient = 1e-2
)

// Params carries the per-run tuning knobs of the evolution
type Params struct {
	// TimeStep is the evolution step size (dt)
	TimeStep float64

	// GridSpacing is the grid spacing h, normally 1
	GridSpacing float64

	// ForceWeight scales the image force term
	ForceWeight float64

	// SmoothingScale is the user multiplier on the adaptive curvature weight
	SmoothingScale float64

	// ThresholdSelector picks the threshold level between the 2nd percentile
	// and the local maximum, in [0,1]
	ThresholdSelector float64

	// MinSearchDepth bounds the probe used for the local minimum, in pixels
	MinSearchDepth int

	// MaxSearchDepth bounds the probe used for the local maximum, in pixels
	MaxSearchDepth int

	// ReinitTimeStep is the pseudo time step of the redistancing iteration
	ReinitTimeStep float64

	// ReinitMaxPasses caps the redistancing iteration
	ReinitMaxPasses int
}

// DefaultParams returns the parameters used when nothing else is configured
func DefaultParams() Params {
	return Params{
		TimeStep:          1.0,
		GridSpacing:       1.0,
		ForceWeight:       1.0,
		SmoothingScale:    1e-4,
		ThresholdSelector: 0.5,
		MinSearchDepth:    4,
		MaxSearchDepth:    8,
		ReinitTimeStep:    0.5,
		ReinitMaxPasses:   200,
	}
}

// spacing returns h, falling back to 1 for unset or invalid values
func (p Params) spacing() float64 {
	if p.GridSpacing <= 0 {
		return 1
	}
	return p.GridSpacing
}

// reinitPasses never returns an unbounded pass count
func (p Params) reinitPasses() int {
	if p.ReinitMaxPasses <= 0 || p.ReinitMaxPasses > 200 {
		return 200
	}
	return p.ReinitMaxPasses
}
