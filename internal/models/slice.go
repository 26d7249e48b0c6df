package models

import (
	"fmt"
	"strings"
)

// SliceInfo describes where a single MRI slice came from
type SliceInfo struct {
	// Index is the position of this slice in the sequence
	Index int

	// Filename is the original filename of the slice
	Filename string

	// Thickness is the physical thickness of the slice in mm
	Thickness float64

	// Position is the physical position of the slice along the axis
	Position float64
}

// Orientation is the anatomical plane the slices were acquired in
type Orientation int

const (
	Axial Orientation = iota
	Coronal
	Sagittal
)

// String returns the lower-case plane name
func (o Orientation) String() string {
	switch o {
	case Axial:
		return "axial"
	case Coronal:
		return "coronal"
	case Sagittal:
		return "sagittal"
	default:
		return fmt.Sprintf("orientation(%d)", int(o))
	}
}

// ParseOrientation accepts the plane names produced by String
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "axial", "transverse":
		return Axial, nil
	case "coronal":
		return Coronal, nil
	case "sagittal":
		return Sagittal, nil
	}
	return Axial, fmt.Errorf("unknown orientation %q", s)
}

// Heading names the image side that faces anterior.
// North is row 0, West is column 0.
type Heading int

const (
	North Heading = iota
	South
	West
	East
)

// String returns the compass name of the heading
func (h Heading) String() string {
	switch h {
	case North:
		return "north"
	case South:
		return "south"
	case West:
		return "west"
	case East:
		return "east"
	default:
		return fmt.Sprintf("heading(%d)", int(h))
	}
}

// Vertical reports whether the anterior-posterior axis runs along the rows
func (h Heading) Vertical() bool {
	return h == North || h == South
}
