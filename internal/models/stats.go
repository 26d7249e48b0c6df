package models

// Percentiles holds the reference intensities used by the force model.
// Values are the intensities below which 2, 10, 40 and 98 percent of the
// reference histogram lies.
type Percentiles struct {
	P2  float64 `yaml:"p2"`
	P10 float64 `yaml:"p10"`
	P40 float64 `yaml:"p40"`
	P98 float64 `yaml:"p98"`
}

// Mid returns the intensity used as the clamp pivot for local minima and maxima
func (p Percentiles) Mid() float64 {
	return p.P40
}

// Robust interpolates between the 2nd and 98th percentile
func (p Percentiles) Robust(frac float64) float64 {
	return p.P2 + frac*(p.P98-p.P2)
}

// Circle is a seed contour in pixel coordinates
type Circle struct {
	CenterX float64
	CenterY float64
	Radius  float64
}
