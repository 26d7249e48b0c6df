// Package visualization renders segmentation results as debug images: contour
// overlays on the source slices, binary masks, resliced mask stacks and
// convergence plots.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"mrilevelset/pkg/grid"
	"mrilevelset/pkg/levelset"
)

// ContourColor is the colour used to draw contours on overlays
var ContourColor = color.RGBA{R: 255, G: 40, B: 40, A: 255}

// Viewer renders a stack of slices together with their segmentation masks
type Viewer struct {
	// slices holds the intensity slices in stack order
	slices []*grid.Intensity

	// masks holds one mask per slice, nil where no segmentation exists
	masks []*grid.Mask

	// dimensions of the stack
	width  int
	height int
	depth  int

	// maxIntensity scales intensities to 8-bit gray
	maxIntensity int
}

// NewViewer creates a viewer. masks may be shorter than slices; missing
// entries are treated as empty masks.
func NewViewer(slices []*grid.Intensity, masks []*grid.Mask) (*Viewer, error) {
	if len(slices) == 0 {
		return nil, fmt.Errorf("no slices to view")
	}
	if len(masks) > len(slices) {
		return nil, fmt.Errorf("%d masks for %d slices", len(masks), len(slices))
	}

	v := &Viewer{
		slices: slices,
		masks:  make([]*grid.Mask, len(slices)),
		width:  slices[0].Width,
		height: slices[0].Height,
		depth:  len(slices),
	}
	copy(v.masks, masks)

	for z, s := range slices {
		if err := grid.SameSize(slices[0], s); err != nil {
			return nil, fmt.Errorf("slice %d: %w", z, err)
		}
		if v.masks[z] != nil {
			if err := grid.SameSize(s, v.masks[z]); err != nil {
				return nil, fmt.Errorf("mask %d: %w", z, err)
			}
		}
		for _, val := range s.Data {
			v.maxIntensity = max(v.maxIntensity, val)
		}
	}
	return v, nil
}

// gray scales an intensity to 8 bits
func (v *Viewer) gray(val int) uint8 {
	if v.maxIntensity <= 0 {
		return 0
	}
	return uint8(math.Max(0, math.Min(255, float64(val)*255/float64(v.maxIntensity))))
}

// Overlay draws the contour of slice z's mask over the slice
func (v *Viewer) Overlay(z int) (*image.RGBA, error) {
	if z < 0 || z >= v.depth {
		return nil, fmt.Errorf("slice %d outside [0,%d)", z, v.depth)
	}

	img := image.NewRGBA(image.Rect(0, 0, v.width, v.height))
	s := v.slices[z]
	for y := 0; y < v.height; y++ {
		for x := 0; x < v.width; x++ {
			g := v.gray(s.At(x, y))
			img.SetRGBA(x, y, color.RGBA{R: g, G: g, B: g, A: 255})
		}
	}

	if m := v.masks[z]; m != nil {
		contour := levelset.Contour(m)
		for y := 0; y < v.height; y++ {
			for x := 0; x < v.width; x++ {
				if grid.IsForeground(contour, x, y) {
					img.SetRGBA(x, y, ContourColor)
				}
			}
		}
	}
	return img, nil
}

// MaskImage renders a mask as a grayscale image
func MaskImage(m *grid.Mask) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	copy(img.Pix, m.Data)
	return img
}

// maskAt reads the mask stack, treating missing masks as background
func (v *Viewer) maskAt(x, y, z int) uint8 {
	if m := v.masks[z]; m != nil {
		return m.At(x, y)
	}
	return grid.Background
}

// ExtractSlice reslices the mask stack along the given axis. Slicing along z
// returns a stored mask, x and y give sagittal-style and coronal-style views
// of the segmented stack.
func (v *Viewer) ExtractSlice(axis string, position int) (*image.Gray, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	var img *image.Gray
	switch axis {
	case "x", "X":
		if position >= v.width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, v.width)
		}
		img = image.NewGray(image.Rect(0, 0, v.depth, v.height))
		for y := 0; y < v.height; y++ {
			for z := 0; z < v.depth; z++ {
				img.SetGray(z, y, color.Gray{Y: v.maskAt(position, y, z)})
			}
		}

	case "y", "Y":
		if position >= v.height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, v.height)
		}
		img = image.NewGray(image.Rect(0, 0, v.width, v.depth))
		for z := 0; z < v.depth; z++ {
			for x := 0; x < v.width; x++ {
				img.SetGray(x, z, color.Gray{Y: v.maskAt(x, position, z)})
			}
		}

	case "z", "Z":
		if position >= v.depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, v.depth)
		}
		img = image.NewGray(image.Rect(0, 0, v.width, v.height))
		for y := 0; y < v.height; y++ {
			for x := 0; x < v.width; x++ {
				img.SetGray(x, y, color.Gray{Y: v.maskAt(x, y, position)})
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SaveImage writes img as JPEG for .jpg/.jpeg names and as PNG otherwise
func SaveImage(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		return png.Encode(file, img)
	}
}

// SaveOverlays writes one contour overlay and one mask image per segmented slice
func (v *Viewer) SaveOverlays(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for z := 0; z < v.depth; z++ {
		img, err := v.Overlay(z)
		if err != nil {
			return err
		}
		if err := SaveImage(img, filepath.Join(outputDir, fmt.Sprintf("overlay_%03d.png", z))); err != nil {
			return fmt.Errorf("overlay %d: %w", z, err)
		}

		if m := v.masks[z]; m != nil {
			if err := SaveImage(MaskImage(m), filepath.Join(outputDir, fmt.Sprintf("mask_%03d.png", z))); err != nil {
				return fmt.Errorf("mask %d: %w", z, err)
			}
		}
	}
	return nil
}

// SaveSliceSequence reslices the mask stack along axis and saves every slice
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.width
	case "y", "Y":
		maxPos = v.height
	case "z", "Z":
		maxPos = v.depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := SaveImage(img, filename); err != nil {
			return err
		}
	}

	return nil
}
