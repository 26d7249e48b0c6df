package segmentation

import (
	"runtime"

	"mrilevelset/internal/models"
	"mrilevelset/pkg/denoise"
	"mrilevelset/pkg/evolution"
	"mrilevelset/pkg/initializer"
)

// Params holds the pipeline configuration
type Params struct {
	// SeedIndex is the slice segmented from the Initializer circle when warm
	// starting. A negative value selects the central slice.
	SeedIndex int

	// WarmStart propagates each converged field to the next slice. Slices are
	// then processed strictly in order outward from the seed.
	WarmStart bool

	// NumWorkers is the number of slices evolved concurrently when WarmStart
	// is off
	NumWorkers int

	// Orientation is the plane the slices were acquired in
	Orientation models.Orientation

	// Denoise smooths every slice with a Gaussian of DenoiseSigma pixels first
	Denoise      bool
	DenoiseSigma float64

	// PerSliceStats computes percentiles per slice instead of over the volume
	PerSliceStats bool

	// Evolution configures the per-slice controllers. The search depths are
	// derived from the volume metadata at run time.
	Evolution evolution.Settings

	// Initializer proposes the seed circles; nil uses initializer.New()
	Initializer *initializer.Initializer

	// OutputDir receives overlays and masks when set
	OutputDir string

	// SavePlots writes the convergence plot to OutputDir
	SavePlots bool

	// SaveReslices writes x and y reslices of the mask stack to OutputDir
	SaveReslices bool
}

// DefaultParams returns the default pipeline configuration
func DefaultParams() *Params {
	return &Params{
		SeedIndex:    -1,
		WarmStart:    true,
		NumWorkers:   runtime.NumCPU(),
		Orientation:  models.Axial,
		DenoiseSigma: denoise.DefaultSigma,
		Evolution:    evolution.DefaultSettings(),
	}
}
