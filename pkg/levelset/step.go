package levelset

import (
	"fmt"
	"math"

	"mrilevelset/pkg/grid"
)

// Step advances phi by one semi-implicit time step.
//
// The curvature term is discretised with four edge weights d1..d4, the
// reciprocals of the gradient magnitude across the right, left, lower and
// upper cell faces. With m = dt*delta*mu/h^2 and u = dt*delta*w*f the update is
//
//	phi' = (phi + m*(d1*phi_r + d2*phi_l + d3*phi_d + d4*phi_u) + u) / (1 + m*(d1+d2+d3+d4))
//
// Neighbour values are read from the old field only. Cells closer than two
// cells to the border keep their value. minI and maxI bound the slice
// intensities for the adaptive smoothing weight.
func Step(phi, delta, force *grid.Field, slice *grid.Intensity, means Means, minI, maxI float64, p Params) (*grid.Field, error) {
	if err := grid.SameSize(phi, delta); err != nil {
		return nil, fmt.Errorf("narrow band: %w", err)
	}
	if err := grid.SameSize(phi, force); err != nil {
		return nil, fmt.Errorf("force: %w", err)
	}
	if err := grid.SameSize(phi, slice); err != nil {
		return nil, fmt.Errorf("intensity slice: %w", err)
	}

	h := p.spacing()
	w, ht := phi.Width, phi.Height
	next := phi.Clone()
	old := phi.Data

	for y := 2; y < ht-2; y++ {
		for x := 2; x < w-2; x++ {
			idx := y*w + x
			dl := delta.Data[idx]
			if dl <= 0 {
				continue
			}

			c := old[idx]
			r, l := old[idx+1], old[idx-1]
			dn, up := old[idx+w], old[idx-w]

			d1 := edgeWeight((r-c)/h, (dn-up)/(2*h))
			d2 := edgeWeight((c-l)/h, (old[idx-1+w]-old[idx-1-w])/(2*h))
			d3 := edgeWeight((r-l)/(2*h), (dn-c)/h)
			d4 := edgeWeight((old[idx+1-w]-old[idx-1-w])/(2*h), (c-up)/h)

			mu := SmoothingWeight(float64(slice.Data[idx]), means, minI, maxI, w, ht, p.SmoothingScale)
			m := p.TimeStep * dl * mu / (h * h)
			d := 1 + m*(d1+d2+d3+d4)
			u := p.TimeStep * dl * p.ForceWeight * force.Data[idx]

			next.Data[idx] = (c + m*(d1*r+d2*l+d3*dn+d4*up) + u) / d
		}
	}
	return next, nil
}

// edgeWeight is the reciprocal gradient magnitude with a floor on the magnitude
func edgeWeight(gx, gy float64) float64 {
	return 1 / math.Max(math.Sqrt(gx*gx+gy*gy), minGradient)
}
