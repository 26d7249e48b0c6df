// Package volume provides the slice stack the segmenter works on: slice
// access, acquisition metadata, heading classification and the percentile
// statistics the force model is tuned with.
package volume

import (
	"errors"
	"fmt"

	"mrilevelset/internal/models"
	"mrilevelset/pkg/grid"
)

var (
	// ErrNoSlices is returned when a stack would be empty
	ErrNoSlices = errors.New("no slices")

	// ErrSliceIndex is returned for a slice index outside the stack
	ErrSliceIndex = errors.New("slice index out of range")

	// ErrNoSamples is returned when percentiles are requested for no data
	ErrNoSamples = errors.New("no samples")
)

// Volume is the read-only view the segmentation pipeline needs
type Volume interface {
	// Slice returns the intensity grid at index z along the slice axis
	Slice(z int) (*grid.Intensity, error)

	// Depth is the number of slices
	Depth() int

	// PixelSpacingXY is the in-plane pixel size in mm
	PixelSpacingXY() float64

	// InterSliceDistance is the distance between slice centres in mm
	InterSliceDistance() float64

	// SubjectAge is the age of the subject in years
	SubjectAge() float64

	// Heading reports which image side is anterior for the given plane
	Heading(orientation models.Orientation) models.Heading
}

// Metadata carries the acquisition parameters of a stack
type Metadata struct {
	PixelSpacing  float64
	SliceDistance float64
	SubjectAge    float64
	Orientation   models.Orientation
	Convention    Convention
}

var _ Volume = (*Stack)(nil)

// Stack is an in-memory Volume
type Stack struct {
	meta   Metadata
	slices []*grid.Intensity
	info   []models.SliceInfo
}

// NewStack builds a stack from slices that must all share one extent
func NewStack(slices []*grid.Intensity, meta Metadata) (*Stack, error) {
	if len(slices) == 0 {
		return nil, ErrNoSlices
	}
	info := make([]models.SliceInfo, len(slices))
	for i, s := range slices {
		if err := grid.SameSize(slices[0], s); err != nil {
			return nil, fmt.Errorf("slice %d: %w", i, err)
		}
		info[i] = models.SliceInfo{
			Index:     i,
			Thickness: meta.SliceDistance,
			Position:  float64(i) * meta.SliceDistance,
		}
	}
	return &Stack{meta: meta, slices: slices, info: info}, nil
}

func (s *Stack) Slice(z int) (*grid.Intensity, error) {
	if z < 0 || z >= len(s.slices) {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrSliceIndex, z, len(s.slices))
	}
	return s.slices[z], nil
}

// Info returns where slice z came from
func (s *Stack) Info(z int) (models.SliceInfo, error) {
	if z < 0 || z >= len(s.info) {
		return models.SliceInfo{}, fmt.Errorf("%w: %d not in [0,%d)", ErrSliceIndex, z, len(s.info))
	}
	return s.info[z], nil
}

func (s *Stack) Depth() int { return len(s.slices) }

func (s *Stack) PixelSpacingXY() float64 { return s.meta.PixelSpacing }

func (s *Stack) InterSliceDistance() float64 { return s.meta.SliceDistance }

func (s *Stack) SubjectAge() float64 { return s.meta.SubjectAge }

// Orientation is the plane the stack was acquired in
func (s *Stack) Orientation() models.Orientation { return s.meta.Orientation }

func (s *Stack) Heading(orientation models.Orientation) models.Heading {
	return HeadingFor(s.meta.Convention, orientation)
}

// Dimensions returns the in-plane extent shared by all slices
func (s *Stack) Dimensions() (int, int) {
	return s.slices[0].Width, s.slices[0].Height
}
