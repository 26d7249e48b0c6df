// Package segmentation runs the level-set segmenter over a whole slice stack.
package segmentation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"mrilevelset/internal/models"
	"mrilevelset/internal/monitoring"
	"mrilevelset/pkg/denoise"
	"mrilevelset/pkg/evolution"
	"mrilevelset/pkg/grid"
	"mrilevelset/pkg/holefill"
	"mrilevelset/pkg/initializer"
	"mrilevelset/pkg/levelset"
	"mrilevelset/pkg/visualization"
	"mrilevelset/pkg/volume"
)

// Result is the outcome for one slice
type Result struct {
	Index int

	// Mask is the hole-filled segmentation, Contour its one-cell boundary
	Mask    *grid.Mask
	Contour *grid.Mask

	Iterations        int
	Converged         bool
	Area              int
	AreaHistory       []int
	ThresholdSelector float64
	WarmStarted       bool
	HoleFill          holefill.Report

	// Skipped is set when no region was found, either to seed the slice or
	// left after evolution
	Skipped bool

	// Err holds the reason a slice was skipped or failed
	Err error
}

// Summary aggregates a run
type Summary struct {
	RunID          string
	Segmented      int
	Skipped        int
	Failed         int
	MeanArea       float64
	StdDevArea     float64
	MeanIterations float64
	Duration       time.Duration
}

// Segmenter runs the per-slice controllers over a volume.
//
// The pipeline consists of:
// 1. Reading and optionally denoising the slices
// 2. Computing the percentile statistics
// 3. Deriving the probing depths from the acquisition metadata
// 4. Evolving every slice, warm started outward from the seed or in parallel
// 5. Summarising the run and writing debug output
type Segmenter struct {
	params *Params
	vol    volume.Volume

	runID  string
	slices []*grid.Intensity
	stats  []models.Percentiles

	results []Result
	summary Summary
}

// NewSegmenter creates a segmenter for vol
func NewSegmenter(vol volume.Volume, params *Params) *Segmenter {
	if params == nil {
		params = DefaultParams()
	}
	return &Segmenter{
		params: params,
		vol:    vol,
		runID:  uuid.NewString(),
	}
}

// RunID identifies this run in logs and output names
func (s *Segmenter) RunID() string { return s.runID }

// Results returns the per-slice results in slice order
func (s *Segmenter) Results() []Result { return s.results }

// Summary returns the aggregate metrics of the last Process call
func (s *Segmenter) Summary() Summary { return s.summary }

// Process runs the complete pipeline
func (s *Segmenter) Process(ctx context.Context) error {
	start := time.Now()
	monitoring.Logf("Run %s: segmenting %d slices", s.runID, s.vol.Depth())

	monitoring.Logf("Step 1: Loading slices...")
	if err := s.loadSlices(); err != nil {
		return fmt.Errorf("failed to load slices: %w", err)
	}

	monitoring.Logf("Step 2: Computing intensity statistics...")
	if err := s.computeStats(); err != nil {
		return fmt.Errorf("failed to compute statistics: %w", err)
	}

	monitoring.Logf("Step 3: Deriving probing distances...")
	settings := s.params.Evolution
	minDepth, maxDepth := levelset.ProbingDistances(s.vol.PixelSpacingXY(), s.vol.SubjectAge())
	settings.Params.MinSearchDepth = minDepth
	settings.Params.MaxSearchDepth = maxDepth
	monitoring.Logf("Search depths: min %d px, max %d px", minDepth, maxDepth)

	s.results = make([]Result, len(s.slices))
	var err error
	if s.params.WarmStart {
		monitoring.Logf("Step 4: Evolving slices with warm start...")
		err = s.processWarmStart(ctx, settings)
	} else {
		monitoring.Logf("Step 4: Evolving slices in parallel...")
		err = s.processParallel(ctx, settings)
	}
	if err != nil {
		return err
	}

	monitoring.Logf("Step 5: Summarising results...")
	s.summarize(time.Since(start))
	if s.params.OutputDir != "" {
		if err := s.saveOutputs(); err != nil {
			return fmt.Errorf("failed to save outputs: %w", err)
		}
	}

	monitoring.Logf("Segmented %d slices, skipped %d, failed %d, mean area %.1f px",
		s.summary.Segmented, s.summary.Skipped, s.summary.Failed, s.summary.MeanArea)
	return nil
}

func (s *Segmenter) loadSlices() error {
	depth := s.vol.Depth()
	if depth == 0 {
		return volume.ErrNoSlices
	}

	var filter *denoise.Gaussian
	if s.params.Denoise {
		filter = denoise.NewGaussian(s.params.DenoiseSigma)
	}

	s.slices = make([]*grid.Intensity, depth)
	for z := 0; z < depth; z++ {
		slice, err := s.vol.Slice(z)
		if err != nil {
			return err
		}
		if filter != nil {
			slice = filter.Apply(slice)
		}
		s.slices[z] = slice
	}
	return nil
}

func (s *Segmenter) computeStats() error {
	s.stats = make([]models.Percentiles, len(s.slices))
	if s.params.PerSliceStats {
		for z, slice := range s.slices {
			p, err := volume.SlicePercentiles(slice)
			if err != nil {
				return fmt.Errorf("slice %d: %w", z, err)
			}
			s.stats[z] = p
		}
		return nil
	}

	p, err := volume.StackPercentiles(s.slices)
	if err != nil {
		return err
	}
	for z := range s.stats {
		s.stats[z] = p
	}
	monitoring.Logf("Percentiles: p2=%.0f p10=%.0f p40=%.0f p98=%.0f", p.P2, p.P10, p.P40, p.P98)
	return nil
}

func (s *Segmenter) seedIndex() int {
	if s.params.SeedIndex < 0 || s.params.SeedIndex >= len(s.slices) {
		return len(s.slices) / 2
	}
	return s.params.SeedIndex
}

func (s *Segmenter) initializer() *initializer.Initializer {
	if s.params.Initializer != nil {
		return s.params.Initializer
	}
	return initializer.New()
}

// propose computes the Initializer circle of slice z
func (s *Segmenter) propose(z int) (*models.Circle, error) {
	c, err := s.initializer().Propose(s.slices[z], s.stats[z], initializer.Metadata{
		PixelSpacing: s.vol.PixelSpacingXY(),
		Orientation:  s.params.Orientation,
		Heading:      s.vol.Heading(s.params.Orientation),
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// processWarmStart segments the seed slice from its circle and then walks
// up and down the stack, seeding each slice with its neighbour's field
func (s *Segmenter) processWarmStart(ctx context.Context, settings evolution.Settings) error {
	seed := s.seedIndex()
	circle, err := s.propose(seed)
	if err != nil {
		return fmt.Errorf("seed slice %d: %w", seed, err)
	}

	res, seedField := s.segmentSlice(ctx, settings, seed, circle, nil)
	s.results[seed] = res
	if err := ctx.Err(); err != nil {
		return err
	}
	if seedField == nil {
		return fmt.Errorf("seed slice %d: %w", seed, res.Err)
	}

	total := len(s.slices)
	completed := 1
	for _, dir := range []int{1, -1} {
		field := seedField
		for z := seed + dir; z >= 0 && z < total; z += dir {
			res, next := s.segmentSlice(ctx, settings, z, nil, field)
			s.results[z] = res
			if err := ctx.Err(); err != nil {
				return err
			}
			if next != nil {
				field = next
			}
			completed++
			monitoring.Logf("Segmenting slices: %.1f%% complete", float64(completed)/float64(total)*100)
		}
	}
	return nil
}

// processParallel segments every slice from its own circle on a worker pool
func (s *Segmenter) processParallel(ctx context.Context, settings evolution.Settings) error {
	total := len(s.slices)
	workers := s.params.NumWorkers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	resultChan := make(chan Result)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for z := range jobs {
				circle, err := s.propose(z)
				if err != nil {
					resultChan <- Result{Index: z, Skipped: true, Err: err}
					continue
				}
				res, _ := s.segmentSlice(ctx, settings, z, circle, nil)
				resultChan <- res
			}
		}()
	}

	go func() {
		defer close(jobs)
		for z := 0; z < total; z++ {
			select {
			case jobs <- z:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	completed := 0
	for res := range resultChan {
		s.results[res.Index] = res
		completed++
		monitoring.Logf("Segmenting slices: %.1f%% complete", float64(completed)/float64(total)*100)
	}
	return ctx.Err()
}

// segmentSlice evolves slice z from either a seed circle or a warm start field.
// It returns the converged field, or nil when the slice produced no region,
// so a collapsed field is never passed on as a warm start.
func (s *Segmenter) segmentSlice(ctx context.Context, settings evolution.Settings, z int, seed *models.Circle, warm *grid.Field) (Result, *grid.Field) {
	res := Result{Index: z, WarmStarted: warm != nil}

	c := evolution.New(settings)
	err := c.Initialize(evolution.Input{
		Slice:       s.slices[z],
		Index:       z,
		CenterIndex: len(s.slices) / 2,
		SliceCount:  len(s.slices),
		Stats:       s.stats[z],
		Seed:        seed,
		WarmStart:   warm,
	})
	if err != nil {
		res.Err = err
		return res, nil
	}

	run, err := c.Run(ctx)
	res.Iterations = run.Iterations
	res.Converged = run.Converged
	res.ThresholdSelector = run.ThresholdSelector
	res.AreaHistory = c.AreaHistory()
	if err != nil && !errors.Is(err, evolution.ErrIterationLimit) {
		res.Err = err
		return res, nil
	}
	if err != nil {
		monitoring.Logf("Slice %d: %v", z, err)
	}

	mask, report, err := c.Mask()
	if errors.Is(err, grid.ErrNoRegion) {
		monitoring.Logf("Slice %d: %v", z, err)
		res.Skipped = true
		res.Err = err
		return res, nil
	}
	if err != nil {
		res.Err = err
		return res, nil
	}
	res.Mask = mask
	res.Contour = levelset.Contour(mask)
	res.Area = grid.Area(mask)
	res.HoleFill = report

	field, err := c.Field()
	if err != nil {
		res.Err = err
		return res, nil
	}
	return res, field
}

func (s *Segmenter) summarize(elapsed time.Duration) {
	sum := Summary{RunID: s.runID, Duration: elapsed}
	var areas, iterations []float64
	for _, r := range s.results {
		switch {
		case r.Skipped:
			sum.Skipped++
		case r.Mask == nil:
			sum.Failed++
		default:
			sum.Segmented++
			areas = append(areas, float64(r.Area))
			iterations = append(iterations, float64(r.Iterations))
		}
	}
	if len(areas) > 0 {
		sum.MeanArea = stat.Mean(areas, nil)
		sum.MeanIterations = stat.Mean(iterations, nil)
	}
	if len(areas) > 1 {
		sum.StdDevArea = stat.StdDev(areas, nil)
	}
	s.summary = sum
}

func (s *Segmenter) saveOutputs() error {
	dir := filepath.Join(s.params.OutputDir, s.runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	masks := make([]*grid.Mask, len(s.results))
	histories := make(map[int][]int)
	for z, r := range s.results {
		masks[z] = r.Mask
		if len(r.AreaHistory) > 0 {
			histories[z] = r.AreaHistory
		}
	}

	viewer, err := visualization.NewViewer(s.slices, masks)
	if err != nil {
		return err
	}
	if err := viewer.SaveOverlays(filepath.Join(dir, "overlays")); err != nil {
		return err
	}
	if s.params.SaveReslices {
		for _, axis := range []string{"x", "y"} {
			if err := viewer.SaveSliceSequence(axis, filepath.Join(dir, "reslices")); err != nil {
				return fmt.Errorf("reslices along %s: %w", axis, err)
			}
		}
	}
	if s.params.SavePlots && len(histories) > 0 {
		if err := visualization.PlotConvergence(histories, filepath.Join(dir, "convergence.png")); err != nil {
			return err
		}
	}
	monitoring.Logf("Saved outputs to %s", dir)
	return nil
}
