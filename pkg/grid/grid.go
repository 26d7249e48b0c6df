// Package grid provides dense 2D grids stored as flat row-major buffers.
//
// A single generic type backs every raster the segmenter touches: the level
// set field, the narrow-band weight, the force, the intensity slice and the
// binary mask. Cells are addressed as idx = y*Width + x.
package grid

import (
	"errors"
	"fmt"
)

var (
	// ErrSizeMismatch is returned when two grids that must share an extent do not
	ErrSizeMismatch = errors.New("grid size mismatch")

	// ErrNoRegion is returned when no foreground run is long enough to count
	ErrNoRegion = errors.New("no region found")

	// ErrEmptyMask is returned when a mask has no foreground cells at all
	ErrEmptyMask = errors.New("mask is empty")
)

// Grid is a dense 2D raster
type Grid[T any] struct {
	Width  int
	Height int
	Data   []T
}

// Field holds signed floating-point values (phi, force, narrow-band weight)
type Field = Grid[float64]

// Intensity holds the integer samples of one image slice
type Intensity = Grid[int]

// Mask holds binary Foreground/Background cells
type Mask = Grid[uint8]

const (
	Background uint8 = 0
	Foreground uint8 = 255
)

// New allocates a zeroed grid
func New[T any](width, height int) *Grid[T] {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Grid[T]{
		Width:  width,
		Height: height,
		Data:   make([]T, width*height),
	}
}

// FromSlice wraps an existing row-major buffer
func FromSlice[T any](width, height int, data []T) (*Grid[T], error) {
	if width < 0 || height < 0 || len(data) != width*height {
		return nil, fmt.Errorf("%w: %dx%d grid needs %d cells, got %d",
			ErrSizeMismatch, width, height, width*height, len(data))
	}
	return &Grid[T]{Width: width, Height: height, Data: data}, nil
}

// InBounds reports whether (x, y) addresses a cell
func (g *Grid[T]) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

// Index returns the flat offset of (x, y). The caller must check bounds.
func (g *Grid[T]) Index(x, y int) int {
	return y*g.Width + x
}

// At returns the value at (x, y), or the zero value outside the grid
func (g *Grid[T]) At(x, y int) T {
	v, _ := g.Lookup(x, y)
	return v
}

// Lookup returns the value at (x, y) and whether the cell exists
func (g *Grid[T]) Lookup(x, y int) (T, bool) {
	if !g.InBounds(x, y) {
		var zero T
		return zero, false
	}
	return g.Data[y*g.Width+x], true
}

// Set stores v at (x, y). Writes outside the grid are ignored.
func (g *Grid[T]) Set(x, y int, v T) {
	if g.InBounds(x, y) {
		g.Data[y*g.Width+x] = v
	}
}

// Clone returns a deep copy
func (g *Grid[T]) Clone() *Grid[T] {
	out := &Grid[T]{Width: g.Width, Height: g.Height, Data: make([]T, len(g.Data))}
	copy(out.Data, g.Data)
	return out
}

// Fill sets every cell to v
func (g *Grid[T]) Fill(v T) {
	for i := range g.Data {
		g.Data[i] = v
	}
}

// Len returns the number of cells
func (g *Grid[T]) Len() int {
	return len(g.Data)
}

// SameSize returns ErrSizeMismatch unless a and b share an extent
func SameSize[A, B any](a *Grid[A], b *Grid[B]) error {
	if a == nil || b == nil {
		return fmt.Errorf("%w: nil grid", ErrSizeMismatch)
	}
	if a.Width != b.Width || a.Height != b.Height {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrSizeMismatch, a.Width, a.Height, b.Width, b.Height)
	}
	return nil
}

// Samples converts an intensity slice to float64 for statistics
func Samples(s *Intensity) []float64 {
	out := make([]float64, len(s.Data))
	for i, v := range s.Data {
		out[i] = float64(v)
	}
	return out
}
