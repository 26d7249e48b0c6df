package levelset

import (
	"math"

	"mrilevelset/pkg/grid"
)

// NarrowBandWeight evaluates the smoothed Dirac delta of phi.
// The weight is (1 + cos(pi*phi/(1.5h))) / (3h) inside |phi| < 1.5h and zero
// elsewhere, so it doubles as the active-region mask of the update.
func NarrowBandWeight(phi *grid.Field, h float64) *grid.Field {
	if h <= 0 {
		h = 1
	}
	eps := BandWidth * h
	delta := grid.New[float64](phi.Width, phi.Height)
	for i, v := range phi.Data {
		if math.Abs(v) < eps {
			delta.Data[i] = (1 + math.Cos(math.Pi*v/eps)) / (2 * eps)
		}
	}
	return delta
}

// BandSize counts the cells with a positive narrow-band weight
func BandSize(delta *grid.Field) int {
	n := 0
	for _, v := range delta.Data {
		if v > 0 {
			n++
		}
	}
	return n
}
