// Package holefill closes topological holes in a segmentation mask by casting
// rays from the mask centroid.
//
// Rays are probed inwards from just outside the mask. A ray that enters the
// mask and then leaves it again before reaching the centroid crosses a hole.
// Consecutive hole rays form an angular span. A span is only filled when the
// mask closes around it, which is decided by comparing the outer edge points
// on either side of each span boundary. Wide concavities open to the outside
// are left alone.
package holefill

import (
	"image"
	"math"

	"mrilevelset/pkg/grid"
)

const (
	// DefaultGapThreshold is the largest edge jump, in pixels, that still
	// counts as a closed boundary
	DefaultGapThreshold = 5.0

	// DefaultProbeMargin is how far beyond the mask radius probes start
	DefaultProbeMargin = 5.0
)

// Filler holds the tuning of the hole closing pass
type Filler struct {
	GapThreshold float64
	ProbeMargin  float64

	// MinRun is the shortest foreground run used to find the mask extremes
	MinRun int
}

// New returns a Filler with the default constants
func New() *Filler {
	return &Filler{
		GapThreshold: DefaultGapThreshold,
		ProbeMargin:  DefaultProbeMargin,
		MinRun:       1,
	}
}

// Span is a contiguous run of hole rays
type Span struct {
	Begin float64
	End   float64
	Rays  int

	// Hole is true when the gap test classified the span as a closed hole
	Hole bool
}

// Width returns the angular extent of the span
func (s Span) Width(step float64) float64 {
	return float64(s.Rays) * step
}

// Report describes what a Fill call did
type Report struct {
	CenterX, CenterY float64
	Radius           float64
	StepAngle        float64
	CenterPatched    bool
	Spans            []Span
	Filled           int

	// Skipped is set when no solid ray could seed the scan
	Skipped bool
}

// ray is the outcome of one inward probe
type ray struct {
	angle   float64
	touched bool
	edge    image.Point
	hole    bool
}

// IsHole applies the gap rule to a span. dBegin and dEnd are the edge jumps at
// the two span boundaries. Both below the gap threshold means a hole, both at or
// above means a concavity, and a mixed result counts as a hole only when the
// span is wider than a quarter turn.
func IsHole(dBegin, dEnd, span, gap float64) bool {
	beginClosed := dBegin < gap
	endClosed := dEnd < gap
	switch {
	case beginClosed && endClosed:
		return true
	case !beginClosed && !endClosed:
		return false
	default:
		return span > math.Pi/2
	}
}

// Fill returns a copy of mask with interior holes closed.
// An empty mask yields grid.ErrEmptyMask and a mask without a qualifying
// foreground run yields grid.ErrNoRegion.
func (f *Filler) Fill(mask *grid.Mask) (*grid.Mask, Report, error) {
	out := mask.Clone()
	var rep Report

	cx, cy, err := grid.Centroid(out)
	if err != nil {
		return out, rep, err
	}
	ext, err := grid.FindExtremes(out, max(f.MinRun, 1))
	if err != nil {
		return out, rep, err
	}
	rep.CenterX, rep.CenterY = cx, cy
	rep.Radius = ext.MaxDistance(cx, cy)
	if rep.Radius < 1 {
		return out, rep, nil
	}

	n := int(math.Ceil(2 * math.Pi * rep.Radius))
	step := 2 * math.Pi / float64(n)
	rep.StepAngle = step
	p := prober{mask: out, cx: cx, cy: cy, outer: rep.Radius + f.margin()}

	if !grid.IsForeground(out, int(math.Round(cx)), int(math.Round(cy))) {
		rep.CenterPatched = f.patchCenter(&p, n, step)
		if rep.CenterPatched {
			rep.Filled += p.filled
			p.filled = 0
		}
	}

	seed := -1
	for k := 0; k < n; k++ {
		if r := p.probe(float64(k) * step); r.touched && !r.hole {
			seed = k
			break
		}
	}
	if seed < 0 {
		rep.Skipped = true
		return out, rep, nil
	}

	rays := make([]ray, n)
	for j := range rays {
		rays[j] = p.probe(float64((seed+j)%n) * step)
	}

	for j := 0; j < n; {
		if !rays[j].hole {
			j++
			continue
		}
		begin := j
		for j < n && rays[j].hole {
			j++
		}
		end := j - 1

		span := Span{Begin: rays[begin].angle, End: rays[end].angle, Rays: end - begin + 1}
		dBegin := edgeDistance(rays[begin-1], rays[begin])
		dEnd := edgeDistance(rays[end], rays[(end+1)%n])
		span.Hole = IsHole(dBegin, dEnd, span.Width(step), f.gap())
		if span.Hole {
			for _, r := range rays[begin : end+1] {
				p.fillInward(r.angle)
			}
		}
		rep.Spans = append(rep.Spans, span)
	}
	rep.Filled += p.filled
	return out, rep, nil
}

// patchCenter handles a centroid that lies in background. Rays are cast
// outwards; rays that meet no foreground at all are breaches. Without a breach
// the centroid sits in an enclosed cavity. A single breach span is treated as
// a mouth and the cavity is closed when the mouth is narrower than the gap
// threshold.
func (f *Filler) patchCenter(p *prober, n int, step float64) bool {
	first := make([]float64, n)
	breach := make([]bool, n)
	anyBreach := false
	for k := 0; k < n; k++ {
		r, ok := p.firstOutward(float64(k) * step)
		first[k], breach[k] = r, !ok
		anyBreach = anyBreach || breach[k]
	}

	if !anyBreach {
		for k := 0; k < n; k++ {
			p.fillOutward(float64(k)*step, first[k])
		}
		return true
	}

	// rotate so that index 0 is a non-breach ray, then collect breach spans
	start := -1
	for k := 0; k < n; k++ {
		if !breach[k] {
			start = k
			break
		}
	}
	if start < 0 {
		return false
	}
	var spans [][2]int
	for j := 0; j < n; {
		if !breach[(start+j)%n] {
			j++
			continue
		}
		b := j
		for j < n && breach[(start+j)%n] {
			j++
		}
		spans = append(spans, [2]int{b, j - 1})
	}
	if len(spans) != 1 {
		return false
	}

	before := (start + spans[0][0] - 1 + n) % n
	after := (start + spans[0][1] + 1) % n
	pb := p.pointAt(float64(before)*step, first[before])
	pa := p.pointAt(float64(after)*step, first[after])
	if math.Hypot(float64(pa.X-pb.X), float64(pa.Y-pb.Y)) >= f.gap() {
		return false
	}

	width := spans[0][1] - spans[0][0] + 2
	for j := 0; j < n; j++ {
		k := (start + j) % n
		limit := first[k]
		if breach[k] {
			// interpolate the mouth between the two bounding edge radii
			t := float64(j-spans[0][0]+1) / float64(width)
			limit = first[before] + t*(first[after]-first[before])
		}
		p.fillOutward(float64(k)*step, limit)
	}
	return true
}

func (f *Filler) gap() float64 {
	if f.GapThreshold <= 0 {
		return DefaultGapThreshold
	}
	return f.GapThreshold
}

func (f *Filler) margin() float64 {
	if f.ProbeMargin < 0 {
		return DefaultProbeMargin
	}
	return f.ProbeMargin
}

// edgeDistance is the distance between the outer edge points of two rays.
// A ray that never meets the mask has no edge and yields +Inf.
func edgeDistance(a, b ray) float64 {
	if !a.touched || !b.touched {
		return math.Inf(1)
	}
	return math.Hypot(float64(a.edge.X-b.edge.X), float64(a.edge.Y-b.edge.Y))
}

// prober samples the mask along rays from a fixed centre at unit radial steps
type prober struct {
	mask   *grid.Mask
	cx, cy float64
	outer  float64
	filled int
}

func (p *prober) pointAt(angle, r float64) image.Point {
	return image.Pt(
		int(math.Round(p.cx+r*math.Cos(angle))),
		int(math.Round(p.cy+r*math.Sin(angle))),
	)
}

// steps returns the number of unit steps from the outer radius to the centre
func (p *prober) steps() int {
	return int(math.Ceil(p.outer))
}

// probe walks inwards from the outer radius to the centre
func (p *prober) probe(angle float64) ray {
	r := ray{angle: angle}
	for k := p.steps(); k >= 0; k-- {
		pt := p.pointAt(angle, float64(k))
		fg := grid.IsForeground(p.mask, pt.X, pt.Y)
		if !r.touched {
			if fg {
				r.touched = true
				r.edge = pt
			}
			continue
		}
		if !fg {
			r.hole = true
			break
		}
	}
	return r
}

// fillInward sets every background sample after the first foreground sample
func (p *prober) fillInward(angle float64) {
	touched := false
	for k := p.steps(); k >= 0; k-- {
		pt := p.pointAt(angle, float64(k))
		if !p.mask.InBounds(pt.X, pt.Y) {
			continue
		}
		if grid.IsForeground(p.mask, pt.X, pt.Y) {
			touched = true
			continue
		}
		if touched {
			p.mask.Set(pt.X, pt.Y, grid.Foreground)
			p.filled++
		}
	}
}

// firstOutward returns the radius of the first foreground sample going outwards
func (p *prober) firstOutward(angle float64) (float64, bool) {
	for k := 0; k <= p.steps(); k++ {
		pt := p.pointAt(angle, float64(k))
		if grid.IsForeground(p.mask, pt.X, pt.Y) {
			return float64(k), true
		}
	}
	return 0, false
}

// fillOutward sets background samples from the centre up to, but excluding,
// the given radius
func (p *prober) fillOutward(angle, limit float64) {
	for k := 0; float64(k) < limit; k++ {
		pt := p.pointAt(angle, float64(k))
		if !p.mask.InBounds(pt.X, pt.Y) || grid.IsForeground(p.mask, pt.X, pt.Y) {
			continue
		}
		p.mask.Set(pt.X, pt.Y, grid.Foreground)
		p.filled++
	}
}
