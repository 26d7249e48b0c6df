package grid

import (
	"errors"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rectMask creates a mask with the half-open rectangle [x0,x1)x[y0,y1) set
func rectMask(w, h, x0, y0, x1, y1 int) *Mask {
	m := New[uint8](w, h)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			m.Set(x, y, Foreground)
		}
	}
	return m
}

func TestGridAccessors(t *testing.T) {
	g := New[float64](4, 3)
	g.Set(3, 2, 1.5)
	g.Set(4, 2, 9) // ignored

	assert.Equal(t, 1.5, g.At(3, 2))
	assert.Equal(t, 1.5, g.Data[g.Index(3, 2)])
	assert.Equal(t, 0.0, g.At(-1, 0))

	_, ok := g.Lookup(0, 3)
	assert.False(t, ok)

	c := g.Clone()
	c.Set(0, 0, 7)
	assert.Equal(t, 0.0, g.At(0, 0), "clone must not alias the source")
	assert.Equal(t, 12, c.Len())
}

func TestFromSlice(t *testing.T) {
	g, err := FromSlice(2, 2, []int{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 3, g.At(0, 1))

	_, err = FromSlice(3, 2, []int{1, 2})
	assert.True(t, errors.Is(err, ErrSizeMismatch))
}

func TestSameSize(t *testing.T) {
	assert.NoError(t, SameSize(New[float64](5, 4), New[uint8](5, 4)))
	assert.ErrorIs(t, SameSize(New[float64](5, 4), New[int](4, 5)), ErrSizeMismatch)
	assert.ErrorIs(t, SameSize[float64, int](nil, New[int](1, 1)), ErrSizeMismatch)
}

func TestAreaAndCentroid(t *testing.T) {
	m := rectMask(20, 20, 4, 6, 10, 10)
	assert.Equal(t, 24, Area(m))

	cx, cy, err := Centroid(m)
	require.NoError(t, err)
	assert.InDelta(t, 6.5, cx, 1e-9)
	assert.InDelta(t, 7.5, cy, 1e-9)

	_, _, err = Centroid(New[uint8](3, 3))
	assert.ErrorIs(t, err, ErrEmptyMask)
}

func TestFindExtremes(t *testing.T) {
	m := rectMask(40, 40, 10, 12, 30, 28)
	// isolated noise outside the square must be ignored with minRun 3
	m.Set(2, 2, Foreground)
	m.Set(38, 20, Foreground)
	m.Set(20, 39, Foreground)

	e, err := FindExtremes(m, 3)
	require.NoError(t, err)

	want := Extremes{
		North: image.Pt(19, 12),
		South: image.Pt(19, 27),
		West:  image.Pt(10, 19),
		East:  image.Pt(29, 19),
	}
	if diff := cmp.Diff(want, e); diff != "" {
		t.Errorf("FindExtremes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 19.0, e.Width())
	assert.Equal(t, 15.0, e.Height())
	assert.InDelta(t, 9.5, e.MaxDistance(19.5, 19.5), 0.75)
}

func TestFindExtremesNoRegion(t *testing.T) {
	m := New[uint8](10, 10)
	m.Set(5, 5, Foreground)

	_, err := FindExtremes(m, 2)
	assert.ErrorIs(t, err, ErrNoRegion)

	_, err = FindExtremes(m, 1)
	assert.NoError(t, err)
}
