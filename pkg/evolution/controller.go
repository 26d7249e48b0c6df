// Package evolution drives the level-set evolution of one slice: it seeds phi,
// iterates the force model until the contour area settles, accepts manual
// corrections and produces the final mask.
package evolution

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"mrilevelset/internal/models"
	"mrilevelset/pkg/grid"
	"mrilevelset/pkg/holefill"
	"mrilevelset/pkg/initializer"
	"mrilevelset/pkg/levelset"
)

var (
	// ErrNotInitialized is returned by operations that need a seeded field
	ErrNotInitialized = errors.New("controller not initialized")

	// ErrNoInitialField is returned when Initialize gets neither a seed circle nor a warm start
	ErrNoInitialField = errors.New("no seed circle or warm start field")

	// ErrIterationLimit is returned once the iteration ceiling is hit without convergence
	ErrIterationLimit = errors.New("iteration limit reached")

	// ErrEmptySlice is returned for a slice without cells
	ErrEmptySlice = errors.New("empty slice")
)

// State of a Controller
type State int

const (
	Uninitialized State = iota
	Initialized
	Evolving
	Converged
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Evolving:
		return "evolving"
	case Converged:
		return "converged"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Input describes the slice handed to Initialize
type Input struct {
	Slice *grid.Intensity

	// Index is the slice position, CenterIndex the central slice of the volume
	// and SliceCount the number of slices
	Index       int
	CenterIndex int
	SliceCount  int

	Stats models.Percentiles

	// Seed is the Initializer circle used for the seed slice
	Seed *models.Circle

	// WarmStart is the converged field of a neighbouring slice. It is copied
	// and takes precedence over Seed.
	WarmStart *grid.Field
}

// Result summarises an evolution run
type Result struct {
	Iterations        int
	Converged         bool
	Area              int
	ThresholdSelector float64
}

// Controller owns the level-set field of one slice
type Controller struct {
	settings Settings
	params   levelset.Params
	filler   *holefill.Filler

	state      State
	phi        *grid.Field
	slice      *grid.Intensity
	stats      models.Percentiles
	means      levelset.Means
	minI, maxI float64

	tracker    *convergenceTracker
	tolerance  int
	iterations int
	phaseStart int
}

// New creates a controller in the Uninitialized state
func New(settings Settings) *Controller {
	filler := settings.HoleFill
	if filler == nil {
		filler = holefill.New()
	}
	return &Controller{
		settings: settings,
		params:   settings.Params,
		filler:   filler,
	}
}

// Initialize loads a slice, derives the position-dependent tolerance and
// threshold selector, and builds the initial field.
func (c *Controller) Initialize(in Input) error {
	if in.Slice == nil || len(in.Slice.Data) == 0 {
		return ErrEmptySlice
	}

	var phi *grid.Field
	switch {
	case in.WarmStart != nil:
		if err := grid.SameSize(in.WarmStart, in.Slice); err != nil {
			return fmt.Errorf("warm start: %w", err)
		}
		phi = in.WarmStart.Clone()
	case in.Seed != nil:
		phi = initializer.FieldFromCircle(in.Slice.Width, in.Slice.Height, *in.Seed)
	default:
		return ErrNoInitialField
	}

	c.params = c.settings.Params
	if c.settings.AdaptiveThreshold {
		signed := float64(in.Index - in.CenterIndex)
		halfRange := float64(max(in.CenterIndex, in.SliceCount-1-in.CenterIndex))
		c.params.ThresholdSelector = ThresholdSchedule(signed, halfRange, c.settings.ThresholdLow, c.settings.ThresholdHigh)
	}
	c.tolerance = c.settings.instabilityTolerance(in.Index, in.CenterIndex, in.SliceCount)
	c.tracker = newConvergenceTracker(c.tolerance, c.settings.CreepTolerance, c.settings.StallLimit)

	samples := grid.Samples(in.Slice)
	c.minI, c.maxI = floats.Min(samples), floats.Max(samples)
	c.slice = in.Slice
	c.stats = in.Stats
	c.phi = phi
	c.means = levelset.Means{}
	c.iterations = 0
	c.phaseStart = 0
	c.state = Initialized
	return nil
}

// Step performs one evolution iteration and reports whether the contour has
// converged. A converged controller returns true without further work.
func (c *Controller) Step() (bool, error) {
	switch c.state {
	case Uninitialized:
		return false, ErrNotInitialized
	case Converged:
		return true, nil
	}
	if c.iterations-c.phaseStart >= c.settings.maxIterations() {
		return false, fmt.Errorf("%w: %d iterations", ErrIterationLimit, c.iterations-c.phaseStart)
	}

	delta := levelset.NarrowBandWeight(c.phi, c.params.GridSpacing)
	if levelset.BandSize(delta) == 0 {
		// no zero level left to move
		c.state = Converged
		return true, nil
	}
	means, err := levelset.RegionMeans(c.phi, c.slice, c.means)
	if err != nil {
		return false, err
	}
	force, err := levelset.ImageForce(c.phi, delta, c.slice, c.stats, c.params)
	if err != nil {
		return false, err
	}
	next, err := levelset.Step(c.phi, delta, force, c.slice, means, c.minI, c.maxI, c.params)
	if err != nil {
		return false, err
	}
	c.phi, _ = levelset.Reinitialize(next, c.params)
	c.means = means
	c.iterations++
	c.state = Evolving

	if c.tracker.observe(levelset.Area(c.phi)) {
		c.state = Converged
		return true, nil
	}
	return false, nil
}

// Run steps until convergence, the iteration ceiling or cancellation of ctx
func (c *Controller) Run(ctx context.Context) (Result, error) {
	for {
		select {
		case <-ctx.Done():
			return c.result(), ctx.Err()
		default:
		}

		done, err := c.Step()
		if err != nil {
			return c.result(), err
		}
		if done {
			return c.result(), nil
		}
	}
}

func (c *Controller) result() Result {
	r := Result{
		Iterations:        c.iterations,
		Converged:         c.state == Converged,
		ThresholdSelector: c.params.ThresholdSelector,
	}
	if c.phi != nil {
		r.Area = levelset.Area(c.phi)
	}
	return r
}

// AdjustSmoothing scales the smoothing multiplier and resumes evolution
func (c *Controller) AdjustSmoothing(factor float64) error {
	if c.state == Uninitialized {
		return ErrNotInitialized
	}
	if factor <= 0 {
		return fmt.Errorf("smoothing factor must be positive, got %g", factor)
	}
	c.params.SmoothingScale *= factor
	c.resume()
	return nil
}

// AdjustThreshold shifts the threshold selector, clamped to [0,1], and resumes evolution
func (c *Controller) AdjustThreshold(delta float64) error {
	if c.state == Uninitialized {
		return ErrNotInitialized
	}
	c.params.ThresholdSelector = min(1, max(0, c.params.ThresholdSelector+delta))
	c.resume()
	return nil
}

func (c *Controller) resume() {
	c.tracker.reset()
	c.phaseStart = c.iterations
	c.state = Evolving
}

// RawMask thresholds phi without hole filling
func (c *Controller) RawMask() (*grid.Mask, error) {
	if c.phi == nil {
		return nil, ErrNotInitialized
	}
	return levelset.Threshold(c.phi), nil
}

// Mask returns the segmentation result: the thresholded field with holes closed.
// A contour that collapsed, or left no run long enough to count as a region,
// yields grid.ErrNoRegion.
func (c *Controller) Mask() (*grid.Mask, holefill.Report, error) {
	raw, err := c.RawMask()
	if err != nil {
		return nil, holefill.Report{}, err
	}
	filled, report, err := c.filler.Fill(raw)
	if errors.Is(err, grid.ErrEmptyMask) {
		return nil, report, fmt.Errorf("contour collapsed after %d iterations: %w", c.iterations, grid.ErrNoRegion)
	}
	if errors.Is(err, grid.ErrNoRegion) {
		return nil, report, fmt.Errorf("contour after %d iterations: %w", c.iterations, err)
	}
	if err != nil {
		return nil, report, fmt.Errorf("hole filling: %w", err)
	}
	return filled, report, nil
}

// Contour returns the one-cell boundary of the raw mask
func (c *Controller) Contour() (*grid.Mask, error) {
	raw, err := c.RawMask()
	if err != nil {
		return nil, err
	}
	return levelset.Contour(raw), nil
}

// Field returns a copy of phi, suitable as the warm start of a neighbouring slice
func (c *Controller) Field() (*grid.Field, error) {
	if c.phi == nil {
		return nil, ErrNotInitialized
	}
	return c.phi.Clone(), nil
}

func (c *Controller) State() State { return c.state }

func (c *Controller) Iterations() int { return c.iterations }

// Tolerance is the instability count tolerated for the current slice
func (c *Controller) Tolerance() int { return c.tolerance }

func (c *Controller) ThresholdSelector() float64 { return c.params.ThresholdSelector }

func (c *Controller) SmoothingScale() float64 { return c.params.SmoothingScale }

// AreaHistory returns the mask area after every iteration
func (c *Controller) AreaHistory() []int {
	if c.tracker == nil {
		return nil
	}
	return append([]int(nil), c.tracker.history...)
}
