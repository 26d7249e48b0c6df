// Package denoise smooths intensity slices before segmentation.
package denoise

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"mrilevelset/pkg/grid"
)

// DefaultSigma is the Gaussian width used when none is configured, in pixels
const DefaultSigma = 1.0

// Gaussian is a frequency-domain Gaussian low-pass filter
type Gaussian struct {
	// Sigma is the standard deviation of the kernel in pixels
	Sigma float64
}

// NewGaussian creates a filter with the given width
func NewGaussian(sigma float64) *Gaussian {
	return &Gaussian{Sigma: sigma}
}

// Apply returns a smoothed copy of slice. The slice is padded by replicating
// its border so that the periodic transform does not wrap opposite edges
// into each other. A non-positive Sigma returns an unmodified copy.
func (g *Gaussian) Apply(slice *grid.Intensity) *grid.Intensity {
	if g.Sigma <= 0 || len(slice.Data) == 0 {
		return slice.Clone()
	}

	pad := int(math.Ceil(3 * g.Sigma))
	w, h := slice.Width+2*pad, slice.Height+2*pad
	data := make([]float64, w*h)
	for y := 0; y < h; y++ {
		sy := min(max(y-pad, 0), slice.Height-1)
		for x := 0; x < w; x++ {
			sx := min(max(x-pad, 0), slice.Width-1)
			data[y*w+x] = float64(slice.At(sx, sy))
		}
	}

	smoothed := g.lowPass(data, w, h)

	out := grid.New[int](slice.Width, slice.Height)
	for y := 0; y < slice.Height; y++ {
		for x := 0; x < slice.Width; x++ {
			out.Set(x, y, int(math.Round(smoothed[(y+pad)*w+x+pad])))
		}
	}
	return out
}

// lowPass filters a w*h row-major buffer. Rows use the real transform, so only
// the w/2+1 non-negative horizontal frequencies are kept; columns of that half
// spectrum use the complex transform.
func (g *Gaussian) lowPass(data []float64, w, h int) []float64 {
	rowFFT := fourier.NewFFT(w)
	colFFT := fourier.NewCmplxFFT(h)
	half := w/2 + 1

	spectrum := make([]complex128, h*half)
	row := make([]float64, w)
	for y := 0; y < h; y++ {
		copy(row, data[y*w:(y+1)*w])
		rowFFT.Coefficients(spectrum[y*half:(y+1)*half], row)
	}

	col := make([]complex128, h)
	freq := make([]complex128, h)
	s2 := 2 * math.Pi * math.Pi * g.Sigma * g.Sigma
	for u := 0; u < half; u++ {
		for y := 0; y < h; y++ {
			col[y] = spectrum[y*half+u]
		}
		colFFT.Coefficients(freq, col)

		fu := float64(u) / float64(w)
		for v := 0; v < h; v++ {
			k := v
			if k > h/2 {
				k -= h
			}
			fv := float64(k) / float64(h)
			freq[v] *= complex(math.Exp(-s2*(fu*fu+fv*fv)), 0)
		}

		colFFT.Sequence(col, freq)
		for y := 0; y < h; y++ {
			spectrum[y*half+u] = col[y] / complex(float64(h), 0)
		}
	}

	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		rowFFT.Sequence(out[y*w:(y+1)*w], spectrum[y*half:(y+1)*half])
		for x := 0; x < w; x++ {
			out[y*w+x] /= float64(w)
		}
	}
	return out
}
