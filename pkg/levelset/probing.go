package levelset

import "math"

const (
	// maxSearchMM is the physical length of the maximum-intensity probe
	maxSearchMM = 10.0

	// minSearchMM is the physical length of the minimum-intensity probe at birth.
	// It shrinks linearly with age and reaches zero at minSearchAgeLimit years.
	minSearchMM       = 5.0
	minSearchAgeLimit = 100.0
)

// ProbingDistances converts the physical probe lengths into pixel counts.
// A pixel step is taken as the mean of the orthogonal and diagonal pixel
// lengths, since probes run in arbitrary directions.
func ProbingDistances(pixelSizeMM, subjectAge float64) (minDepth, maxDepth int) {
	if pixelSizeMM <= 0 {
		pixelSizeMM = 1
	}
	step := pixelSizeMM * (1 + math.Sqrt2) / 2

	minMM := 0.0
	if subjectAge < minSearchAgeLimit {
		minMM = minSearchMM * (1 - math.Max(subjectAge, 0)/minSearchAgeLimit)
	}

	minDepth = int(math.Round(minMM / step))
	maxDepth = int(math.Round(maxSearchMM / step))
	if maxDepth < 1 {
		maxDepth = 1
	}
	if minDepth > maxDepth {
		minDepth = maxDepth
	}
	return minDepth, maxDepth
}
