package visualization

import (
	"fmt"
	"image/color"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotConvergence draws the mask area after every iteration, one line per
// slice, and saves the plot to filename. The format follows the extension.
func PlotConvergence(histories map[int][]int, filename string) error {
	if len(histories) == 0 {
		return fmt.Errorf("no area histories to plot")
	}

	p := plot.New()
	p.Title.Text = "Contour area per iteration"
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Area (pixels)"

	var indices []int
	for z := range histories {
		indices = append(indices, z)
	}
	sort.Ints(indices)
	colors := generateColors(len(indices))

	for i, z := range indices {
		areas := histories[z]
		if len(areas) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(areas))
		for k, a := range areas {
			pts[k] = plotter.XY{X: float64(k + 1), Y: float64(a)}
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("slice %d", z), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 6*vg.Inch, filename); err != nil {
		return fmt.Errorf("save convergence plot: %w", err)
	}
	return nil
}

// generateColors spreads n line colours around the hue circle
func generateColors(n int) []color.Color {
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(max(n, 1)), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}
