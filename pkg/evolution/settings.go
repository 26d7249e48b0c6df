package evolution

import (
	"mrilevelset/pkg/holefill"
	"mrilevelset/pkg/levelset"
)

// DefaultMaxIterations is the iteration ceiling of one evolution phase
const DefaultMaxIterations = 1000

// Settings configures a Controller
type Settings struct {
	// Params are the numerical parameters handed to the levelset package.
	// Params.ThresholdSelector is replaced by the schedule when
	// AdaptiveThreshold is set.
	Params levelset.Params

	// AdaptiveThreshold derives the threshold selector from the slice position
	AdaptiveThreshold bool

	// ThresholdLow and ThresholdHigh bound the threshold schedule
	ThresholdLow  float64
	ThresholdHigh float64

	// CentralTolerance and PeripheralTolerance are the tolerated instability
	// counts for slices inside and outside the central band
	CentralTolerance    int
	PeripheralTolerance int

	// CreepTolerance is the largest growth, in pixels, still treated as creep
	CreepTolerance int

	// StallLimit converges after this many zero-growth steps; 0 disables it
	StallLimit int

	// MaxIterations bounds the steps between two manual corrections
	MaxIterations int

	// HoleFill post-processes the final mask; nil uses holefill.New()
	HoleFill *holefill.Filler
}

// DefaultSettings returns the tuned defaults
func DefaultSettings() Settings {
	return Settings{
		Params:              levelset.DefaultParams(),
		AdaptiveThreshold:   true,
		ThresholdLow:        DefaultThresholdLow,
		ThresholdHigh:       DefaultThresholdHigh,
		CentralTolerance:    DefaultCentralTolerance,
		PeripheralTolerance: DefaultPeripheralTolerance,
		CreepTolerance:      1,
		StallLimit:          5,
		MaxIterations:       DefaultMaxIterations,
	}
}

func (s Settings) maxIterations() int {
	if s.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return s.MaxIterations
}
