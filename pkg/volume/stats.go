package volume

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"mrilevelset/internal/models"
	"mrilevelset/pkg/grid"
)

// Percentile cut points of the intensity histogram
const (
	lowCut    = 0.02
	noiseCut  = 0.10
	midCut    = 0.40
	robustCut = 0.98
)

// ComputePercentiles returns the 2nd, 10th, 40th and 98th percentiles of samples
func ComputePercentiles(samples []float64) (models.Percentiles, error) {
	if len(samples) == 0 {
		return models.Percentiles{}, ErrNoSamples
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	q := func(p float64) float64 {
		return stat.Quantile(p, stat.Empirical, sorted, nil)
	}
	return models.Percentiles{
		P2:  q(lowCut),
		P10: q(noiseCut),
		P40: q(midCut),
		P98: q(robustCut),
	}, nil
}

// SlicePercentiles computes the statistics of a single slice
func SlicePercentiles(slice *grid.Intensity) (models.Percentiles, error) {
	return ComputePercentiles(grid.Samples(slice))
}

// StackPercentiles computes the statistics over every sample of slices
func StackPercentiles(slices []*grid.Intensity) (models.Percentiles, error) {
	var samples []float64
	for _, sl := range slices {
		samples = append(samples, grid.Samples(sl)...)
	}
	return ComputePercentiles(samples)
}
