package segmentation

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mrilevelset/internal/models"
	"mrilevelset/internal/monitoring"
	"mrilevelset/pkg/grid"
	"mrilevelset/pkg/levelset"
	"mrilevelset/pkg/volume"
)

func init() {
	monitoring.SetLogger(nil)
}

const (
	size   = 52
	radius = 23.5
)

// discSlice creates a slice with a bright disc on a dark background
func discSlice(cx, cy, r float64) *grid.Intensity {
	s := grid.New[int](size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := 20
			if math.Hypot(float64(x)-cx, float64(y)-cy) <= r {
				v = 200
			}
			s.Set(x, y, v)
		}
	}
	return s
}

// speckleSlice has bright pixels too isolated to seed a region
func speckleSlice() *grid.Intensity {
	s := grid.New[int](size, size)
	s.Fill(20)
	for y := 1; y < size; y += 4 {
		for x := 1; x < size; x += 4 {
			s.Set(x, y, 200)
		}
	}
	return s
}

func discStack(t *testing.T, extra ...*grid.Intensity) *volume.Stack {
	t.Helper()
	slices := []*grid.Intensity{
		discSlice(26, 26, radius),
		discSlice(26, 25.5, radius),
		discSlice(25.5, 26, radius),
		discSlice(26, 26.5, radius),
		discSlice(26.5, 26, radius),
	}
	stack, err := volume.NewStack(append(slices, extra...), volume.Metadata{
		PixelSpacing:  1,
		SliceDistance: 3,
		Orientation:   models.Axial,
	})
	require.NoError(t, err)
	return stack
}

// thresholdedDiscArea counts the cells a converged field keeps: phi is a
// distance, so thresholding at levelset.MaskLevel adds half a cell of rim
func thresholdedDiscArea() float64 {
	n := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if math.Hypot(float64(x)-26, float64(y)-26) <= radius-levelset.MaskLevel {
				n++
			}
		}
	}
	return float64(n)
}

func assertDiscArea(t *testing.T, r Result) {
	t.Helper()
	require.NoError(t, r.Err, "slice %d", r.Index)
	require.NotNil(t, r.Mask, "slice %d", r.Index)
	assert.InEpsilon(t, thresholdedDiscArea(), float64(r.Area), 0.04, "slice %d", r.Index)
	assert.Equal(t, r.Area, grid.Area(r.Mask))
	assert.Positive(t, grid.Area(r.Contour))
}

func TestProcessWarmStart(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping full pipeline in short mode")
	}

	params := DefaultParams()
	params.Evolution.MaxIterations = 400
	seg := NewSegmenter(discStack(t), params)

	require.NoError(t, seg.Process(context.Background()))
	results := seg.Results()
	require.Len(t, results, 5)

	for z, r := range results {
		assert.Equal(t, z, r.Index)
		assert.Equal(t, z != 2, r.WarmStarted, "slice %d", z)
		assert.False(t, r.Skipped)
		assert.Len(t, r.AreaHistory, r.Iterations)
		assertDiscArea(t, r)
	}

	sum := seg.Summary()
	assert.Equal(t, seg.RunID(), sum.RunID)
	assert.Equal(t, 5, sum.Segmented)
	assert.Zero(t, sum.Skipped)
	assert.Zero(t, sum.Failed)
	assert.InEpsilon(t, thresholdedDiscArea(), sum.MeanArea, 0.04)
	assert.Positive(t, sum.MeanIterations)
}

func TestProcessParallelSkipsEmptySlices(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping full pipeline in short mode")
	}

	params := DefaultParams()
	params.WarmStart = false
	params.NumWorkers = 3
	params.PerSliceStats = true
	params.Evolution.MaxIterations = 400
	seg := NewSegmenter(discStack(t, speckleSlice()), params)

	require.NoError(t, seg.Process(context.Background()))
	results := seg.Results()
	require.Len(t, results, 6)

	for _, r := range results[:5] {
		assert.False(t, r.WarmStarted)
		assertDiscArea(t, r)
	}
	assert.True(t, results[5].Skipped)
	assert.ErrorIs(t, results[5].Err, grid.ErrNoRegion)
	assert.Nil(t, results[5].Mask)

	sum := seg.Summary()
	assert.Equal(t, 5, sum.Segmented)
	assert.Equal(t, 1, sum.Skipped)
}

func TestProcessWritesOutputs(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping full pipeline in short mode")
	}

	stack, err := volume.NewStack([]*grid.Intensity{discSlice(26, 26, radius)}, volume.Metadata{PixelSpacing: 1})
	require.NoError(t, err)

	params := DefaultParams()
	params.OutputDir = t.TempDir()
	params.SavePlots = true
	params.SaveReslices = true
	params.Denoise = true
	seg := NewSegmenter(stack, params)
	require.NoError(t, seg.Process(context.Background()))

	_, err = uuid.Parse(seg.RunID())
	require.NoError(t, err)
	dir := filepath.Join(params.OutputDir, seg.RunID())
	for _, name := range []string{
		"overlays/overlay_000.png",
		"overlays/mask_000.png",
		"convergence.png",
		"reslices/slice_x_000.png",
		"reslices/slice_x_026.png",
		"reslices/slice_y_051.png",
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestSegmentSliceCollapsedContourIsSkipped(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping full evolution in short mode")
	}

	// a small disc leaves the 40th percentile at the background level, so
	// the contour shrinks away
	const n = 100
	slice := grid.New[int](n, n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			v := 20
			if math.Hypot(float64(x)-50, float64(y)-50) <= 30 {
				v = 200
			}
			slice.Set(x, y, v)
		}
	}
	stack, err := volume.NewStack([]*grid.Intensity{slice}, volume.Metadata{PixelSpacing: 1})
	require.NoError(t, err)

	params := DefaultParams()
	params.PerSliceStats = true
	params.Evolution.MaxIterations = 500
	seg := NewSegmenter(stack, params)
	require.NoError(t, seg.loadSlices())
	require.NoError(t, seg.computeStats())
	require.Equal(t, 20.0, seg.stats[0].Mid())

	settings := params.Evolution
	settings.Params.MinSearchDepth, settings.Params.MaxSearchDepth = levelset.ProbingDistances(1, 0)
	res, field := seg.segmentSlice(context.Background(), settings, 0, &models.Circle{CenterX: 50, CenterY: 50, Radius: 20}, nil)

	assert.Nil(t, field, "a collapsed field must not become a warm start")
	assert.True(t, res.Skipped)
	assert.ErrorIs(t, res.Err, grid.ErrNoRegion)
	assert.Nil(t, res.Mask)
	assert.Zero(t, res.Area)

	seg.results = []Result{res}
	seg.summarize(0)
	assert.Zero(t, seg.Summary().Segmented)
	assert.Equal(t, 1, seg.Summary().Skipped)
}

func TestProcessSeedWithoutRegion(t *testing.T) {
	stack, err := volume.NewStack([]*grid.Intensity{speckleSlice()}, volume.Metadata{PixelSpacing: 1})
	require.NoError(t, err)

	params := DefaultParams()
	params.PerSliceStats = true
	err = NewSegmenter(stack, params).Process(context.Background())
	assert.ErrorIs(t, err, grid.ErrNoRegion)
}

func TestProcessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, warm := range []bool{true, false} {
		params := DefaultParams()
		params.WarmStart = warm
		params.NumWorkers = 2
		err := NewSegmenter(discStack(t), params).Process(ctx)
		assert.ErrorIs(t, err, context.Canceled, "warm start %v", warm)
	}
}

func TestSeedIndex(t *testing.T) {
	seg := NewSegmenter(discStack(t), &Params{SeedIndex: -1})
	seg.slices = make([]*grid.Intensity, 5)
	assert.Equal(t, 2, seg.seedIndex())

	seg.params.SeedIndex = 4
	assert.Equal(t, 4, seg.seedIndex())
	seg.params.SeedIndex = 9
	assert.Equal(t, 2, seg.seedIndex())
}
