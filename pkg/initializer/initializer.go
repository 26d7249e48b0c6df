// Package initializer proposes the seed contour for the first slice of a run.
//
// The heuristic thresholds the slice at a robust fraction of its intensity
// range, finds the outermost foreground rows and columns and places a circle
// on the anterior-posterior axis of the head. No user interaction is needed.
package initializer

import (
	"fmt"
	"math"

	"mrilevelset/internal/models"
	"mrilevelset/pkg/grid"
)

const (
	// DefaultThresholdFraction places the foreground threshold at 80% of the
	// way from the 2nd to the 98th percentile
	DefaultThresholdFraction = 0.8

	// DefaultMinThicknessMM is the shortest foreground run, in mm, that counts
	// as anatomy rather than noise
	DefaultMinThicknessMM = 3.0
)

// Metadata is the slice geometry the heuristic needs
type Metadata struct {
	// PixelSpacing is the in-plane pixel size in mm
	PixelSpacing float64

	// Orientation is the acquisition plane
	Orientation models.Orientation

	// Heading is the image side facing anterior
	Heading models.Heading
}

// Initializer proposes a seed circle for a slice
type Initializer struct {
	ThresholdFraction float64
	MinThicknessMM    float64
}

// New returns an Initializer with the default constants
func New() *Initializer {
	return &Initializer{
		ThresholdFraction: DefaultThresholdFraction,
		MinThicknessMM:    DefaultMinThicknessMM,
	}
}

// MinRun converts the minimum thickness into a pixel count of at least one
func (in *Initializer) MinRun(pixelSpacing float64) int {
	if pixelSpacing <= 0 {
		pixelSpacing = 1
	}
	n := int(math.Ceil(in.MinThicknessMM / pixelSpacing))
	if n < 1 {
		n = 1
	}
	return n
}

// RoughMask thresholds the slice at the configured fraction of the robust range
func (in *Initializer) RoughMask(slice *grid.Intensity, stats models.Percentiles) *grid.Mask {
	level := stats.Robust(in.ThresholdFraction)
	m := grid.New[uint8](slice.Width, slice.Height)
	for i, v := range slice.Data {
		if float64(v) >= level {
			m.Data[i] = grid.Foreground
		}
	}
	return m
}

// Propose returns the seed circle for a slice.
//
// The head diameter is the distance between the two extremal points across the
// anterior-posterior axis. Sagittal slices get a circle of a sixth of the
// diameter placed a third of the diameter behind the anterior extreme; axial
// and coronal slices get a quarter of the diameter placed half a diameter in.
func (in *Initializer) Propose(slice *grid.Intensity, stats models.Percentiles, meta Metadata) (models.Circle, error) {
	mask := in.RoughMask(slice, stats)
	ext, err := grid.FindExtremes(mask, in.MinRun(meta.PixelSpacing))
	if err != nil {
		return models.Circle{}, fmt.Errorf("locating head extremes: %w", err)
	}

	radiusDiv, offsetDiv := 4.0, 2.0
	if meta.Orientation == models.Sagittal {
		radiusDiv, offsetDiv = 6.0, 3.0
	}

	var c models.Circle
	var diameter float64
	if meta.Heading.Vertical() {
		diameter = ext.Width()
		c.CenterX = float64(ext.West.X+ext.East.X) / 2
		if meta.Heading == models.North {
			c.CenterY = float64(ext.North.Y) + diameter/offsetDiv
		} else {
			c.CenterY = float64(ext.South.Y) - diameter/offsetDiv
		}
	} else {
		diameter = ext.Height()
		c.CenterY = float64(ext.North.Y+ext.South.Y) / 2
		if meta.Heading == models.West {
			c.CenterX = float64(ext.West.X) + diameter/offsetDiv
		} else {
			c.CenterX = float64(ext.East.X) - diameter/offsetDiv
		}
	}
	if diameter <= 0 {
		return models.Circle{}, fmt.Errorf("degenerate head diameter %.1f: %w", diameter, grid.ErrNoRegion)
	}
	c.Radius = diameter / radiusDiv
	return c, nil
}

// FieldFromCircle builds the initial level set of a circle: the radius minus
// the distance to the centre, positive inside
func FieldFromCircle(width, height int, c models.Circle) *grid.Field {
	phi := grid.New[float64](width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			phi.Data[y*width+x] = c.Radius - math.Hypot(float64(x)-c.CenterX, float64(y)-c.CenterY)
		}
	}
	return phi
}
