package levelset

import (
	"math"

	"mrilevelset/pkg/grid"
)

// Reinitialize pulls phi back towards a signed distance function without
// moving its zero level.
//
// Each pass solves phi_t + S(phi)(|grad phi| - 1) = 0 with Godunov upwinding and
// the smoothed sign S = phi/sqrt(phi^2 + h^2). Border cells copy their inner
// neighbour. The iteration stops once the mean absolute change over cells with
// |phi| > BandWidth falls below ReinitTimeStep*h^2, and never runs more than
// ReinitMaxPasses passes. The number of passes is returned with the result.
func Reinitialize(phi *grid.Field, p Params) (*grid.Field, int) {
	cur := phi.Clone()
	if phi.Width < 3 || phi.Height < 3 {
		return cur, 0
	}

	h := p.spacing()
	dt := p.ReinitTimeStep
	if dt <= 0 {
		dt = 0.5 * h
	}
	limit := dt * h * h
	next := cur.Clone()

	passes := 0
	for passes < p.reinitPasses() {
		passes++
		redistancePass(cur, next, dt, h)
		copyBorders(next)

		if meanFarChange(cur, next) < limit {
			return next, passes
		}
		cur, next = next, cur
	}
	return cur, passes
}

// redistancePass writes one upwind update of src into dst for interior cells
func redistancePass(src, dst *grid.Field, dt, h float64) {
	w := src.Width
	s := src.Data
	for y := 1; y < src.Height-1; y++ {
		for x := 1; x < w-1; x++ {
			idx := y*w + x
			v := s[idx]
			if v == 0 {
				dst.Data[idx] = 0
				continue
			}

			a := (v - s[idx-1]) / h // backward x
			b := (s[idx+1] - v) / h // forward x
			c := (v - s[idx-w]) / h // backward y
			d := (s[idx+w] - v) / h // forward y

			var dis float64
			if v > 0 {
				dis = math.Sqrt(math.Max(sq(math.Max(a, 0)), sq(math.Min(b, 0))) +
					math.Max(sq(math.Max(c, 0)), sq(math.Min(d, 0))))
			} else {
				dis = math.Sqrt(math.Max(sq(math.Min(a, 0)), sq(math.Max(b, 0))) +
					math.Max(sq(math.Min(c, 0)), sq(math.Max(d, 0))))
			}

			sign := v / math.Sqrt(v*v+h*h)
			dst.Data[idx] = v - dt*sign*(dis-1)
		}
	}
}

// copyBorders applies zero-gradient boundary conditions on all four edges
func copyBorders(g *grid.Field) {
	w, h := g.Width, g.Height
	for y := 0; y < h; y++ {
		g.Data[y*w] = g.Data[y*w+1]
		g.Data[y*w+w-1] = g.Data[y*w+w-2]
	}
	for x := 0; x < w; x++ {
		g.Data[x] = g.Data[w+x]
		g.Data[(h-1)*w+x] = g.Data[(h-2)*w+x]
	}
}

// meanFarChange is the mean absolute change over cells outside the narrow
// band. With no such cells the change counts as zero.
func meanFarChange(before, after *grid.Field) float64 {
	var sum float64
	n := 0
	for i, v := range before.Data {
		if math.Abs(v) > BandWidth {
			sum += math.Abs(after.Data[i] - v)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func sq(v float64) float64 { return v * v }
