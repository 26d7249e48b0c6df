package levelset

import (
	"fmt"
	"math"

	"mrilevelset/internal/models"
	"mrilevelset/pkg/grid"
)

// ImageForce computes the contrast-driven force inside the narrow band.
//
// For every cell with a positive band weight the direction of steepest ascent
// of phi is estimated with central differences. Intensities are sampled along
// that direction and along two side rays offset by FanOffset. The minimum over
// the first MinSearchDepth samples is clamped into [P2, P40] and the maximum
// over MaxSearchDepth samples is raised to at least P40. The threshold level
// tL lies at ThresholdSelector between P2 and the local maximum, and the force
// is 2*(min - tL) / (max - P2). Samples that fall outside the slice are skipped.
func ImageForce(phi, delta *grid.Field, slice *grid.Intensity, stats models.Percentiles, p Params) (*grid.Field, error) {
	if err := grid.SameSize(phi, delta); err != nil {
		return nil, fmt.Errorf("narrow band: %w", err)
	}
	if err := grid.SameSize(phi, slice); err != nil {
		return nil, fmt.Errorf("intensity slice: %w", err)
	}

	force := grid.New[float64](phi.Width, phi.Height)
	mid := stats.Mid()
	for y := 0; y < phi.Height; y++ {
		for x := 0; x < phi.Width; x++ {
			idx := y*phi.Width + x
			if delta.Data[idx] <= 0 {
				continue
			}

			gx, gy := centralGradient(phi, x, y)
			if math.Hypot(gx, gy) < minGradient {
				continue
			}
			theta := math.Atan2(gy, gx)

			lo, hi, ok := probeExtrema(slice, x, y, theta, p.MinSearchDepth, p.MaxSearchDepth)
			if !ok {
				continue
			}
			lo = math.Max(stats.P2, math.Min(lo, mid))
			hi = math.Max(hi, mid)

			span := hi - stats.P2
			if span <= 0 {
				continue
			}
			tL := stats.P2 + p.ThresholdSelector*span
			force.Data[idx] = 2 * (lo - tL) / span
		}
	}
	return force, nil
}

// probeExtrema samples the slice along a small fan of rays starting at (x, y).
// It returns the minimum over the first minDepth steps and the maximum over
// the first maxDepth steps.
func probeExtrema(slice *grid.Intensity, x, y int, theta float64, minDepth, maxDepth int) (float64, float64, bool) {
	if minDepth < 0 {
		minDepth = 0
	}
	if maxDepth < minDepth {
		maxDepth = minDepth
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	found := false
	for _, a := range [3]float64{theta, theta - FanOffset, theta + FanOffset} {
		cos, sin := math.Cos(a), math.Sin(a)
		for k := 0; k <= maxDepth; k++ {
			sx := int(math.Round(float64(x) + float64(k)*cos))
			sy := int(math.Round(float64(y) + float64(k)*sin))
			v, ok := slice.Lookup(sx, sy)
			if !ok {
				continue
			}
			iv := float64(v)
			if k <= minDepth && iv < lo {
				lo = iv
				found = true
			}
			if iv > hi {
				hi = iv
			}
		}
	}
	return lo, hi, found
}

// centralGradient estimates grad(phi) with central differences, falling back
// to one-sided differences on the border
func centralGradient(phi *grid.Field, x, y int) (float64, float64) {
	x0, x1 := max(x-1, 0), min(x+1, phi.Width-1)
	y0, y1 := max(y-1, 0), min(y+1, phi.Height-1)
	var gx, gy float64
	if x1 > x0 {
		gx = (phi.At(x1, y) - phi.At(x0, y)) / float64(x1-x0)
	}
	if y1 > y0 {
		gy = (phi.At(x, y1) - phi.At(x, y0)) / float64(y1-y0)
	}
	return gx, gy
}

// Means holds the region means on either side of the zero level.
// C1 averages cells with phi < 0 and C2 cells with phi >= 0.
type Means struct {
	C1 float64
	C2 float64
}

// RegionMeans averages the intensity on each side of the zero level. A side
// without cells keeps the value from prev.
func RegionMeans(phi *grid.Field, slice *grid.Intensity, prev Means) (Means, error) {
	if err := grid.SameSize(phi, slice); err != nil {
		return prev, fmt.Errorf("region means: %w", err)
	}
	var s1, s2 float64
	var n1, n2 int
	for i, v := range phi.Data {
		if v < 0 {
			s1 += float64(slice.Data[i])
			n1++
		} else {
			s2 += float64(slice.Data[i])
			n2++
		}
	}
	out := prev
	if n1 > 0 {
		out.C1 = s1 / float64(n1)
	}
	if n2 > 0 {
		out.C2 = s2 / float64(n2)
	}
	return out, nil
}

// SmoothingWeight returns the spatially adaptive curvature weight of a cell:
// |((I - c1) + (I - c2)) / (maxI - minI) * width * height * scale|.
// A flat slice yields no smoothing.
func SmoothingWeight(intensity float64, m Means, minI, maxI float64, width, height int, scale float64) float64 {
	span := maxI - minI
	if span <= 0 {
		return 0
	}
	return math.Abs(((intensity - m.C1) + (intensity - m.C2)) / span * float64(width) * float64(height) * scale)
}
