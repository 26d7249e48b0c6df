package grid

import (
	"image"
	"math"
)

// IsForeground reports whether the mask cell at (x, y) is set.
// Cells outside the mask are background.
func IsForeground(m *Mask, x, y int) bool {
	return m.At(x, y) != Background
}

// Area counts foreground cells
func Area(m *Mask) int {
	n := 0
	for _, v := range m.Data {
		if v != Background {
			n++
		}
	}
	return n
}

// Centroid returns the mean coordinate of all foreground cells
func Centroid(m *Mask) (float64, float64, error) {
	var sx, sy float64
	n := 0
	for y := 0; y < m.Height; y++ {
		row := m.Data[y*m.Width : (y+1)*m.Width]
		for x, v := range row {
			if v != Background {
				sx += float64(x)
				sy += float64(y)
				n++
			}
		}
	}
	if n == 0 {
		return 0, 0, ErrEmptyMask
	}
	return sx / float64(n), sy / float64(n), nil
}

// Extremes are the outermost foreground points of a mask in each direction
type Extremes struct {
	North image.Point
	South image.Point
	West  image.Point
	East  image.Point
}

// Width is the horizontal distance between the west and east points
func (e Extremes) Width() float64 {
	return float64(e.East.X - e.West.X)
}

// Height is the vertical distance between the north and south points
func (e Extremes) Height() float64 {
	return float64(e.South.Y - e.North.Y)
}

// MaxDistance returns the largest distance from (cx, cy) to any extreme point
func (e Extremes) MaxDistance(cx, cy float64) float64 {
	best := 0.0
	for _, p := range []image.Point{e.North, e.South, e.West, e.East} {
		d := math.Hypot(float64(p.X)-cx, float64(p.Y)-cy)
		if d > best {
			best = d
		}
	}
	return best
}

// FindExtremes locates the first row from the top and bottom, and the first
// column from the left and right, that contain at least minRun contiguous
// foreground cells. Requiring a run suppresses isolated noise pixels.
// The returned point sits in the middle of the qualifying run.
func FindExtremes(m *Mask, minRun int) (Extremes, error) {
	if minRun < 1 {
		minRun = 1
	}
	var e Extremes
	var ok bool

	rowRun := func(y int) (int, bool) {
		return firstRun(m.Width, minRun, func(i int) bool { return IsForeground(m, i, y) })
	}
	colRun := func(x int) (int, bool) {
		return firstRun(m.Height, minRun, func(i int) bool { return IsForeground(m, x, i) })
	}

	if e.North, ok = scanLines(0, m.Height, 1, rowRun, false); !ok {
		return Extremes{}, ErrNoRegion
	}
	e.South, _ = scanLines(m.Height-1, -1, -1, rowRun, false)
	e.West, _ = scanLines(0, m.Width, 1, colRun, true)
	e.East, _ = scanLines(m.Width-1, -1, -1, colRun, true)
	return e, nil
}

// scanLines walks lines from start towards stop and returns the first line that
// holds a qualifying run
func scanLines(start, stop, step int, run func(int) (int, bool), columns bool) (image.Point, bool) {
	for line := start; line != stop; line += step {
		if mid, ok := run(line); ok {
			if columns {
				return image.Pt(line, mid), true
			}
			return image.Pt(mid, line), true
		}
	}
	return image.Point{}, false
}

// firstRun finds the first run of at least minRun set cells among n and returns
// its midpoint
func firstRun(n, minRun int, set func(int) bool) (int, bool) {
	start := -1
	for i := 0; i <= n; i++ {
		if i < n && set(i) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if i-start >= minRun {
				return (start + i - 1) / 2, true
			}
			start = -1
		}
	}
	return 0, false
}
