package denoise

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat"

	"mrilevelset/pkg/grid"
)

func TestGaussianConstantSlice(t *testing.T) {
	s := grid.New[int](17, 12)
	s.Fill(120)

	out := NewGaussian(1.5).Apply(s)
	if diff := cmp.Diff(s, out); diff != "" {
		t.Errorf("constant slice changed (-want +got):\n%s", diff)
	}
}

func TestGaussianReducesNoise(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	s := grid.New[int](32, 32)
	for i := range s.Data {
		s.Data[i] = 100 + rng.Intn(41) - 20
	}

	out := NewGaussian(DefaultSigma).Apply(s)
	before := stat.StdDev(grid.Samples(s), nil)
	after := stat.StdDev(grid.Samples(out), nil)
	assert.Less(t, after, before/2)
	assert.InDelta(t, stat.Mean(grid.Samples(s), nil), stat.Mean(grid.Samples(out), nil), 1)
}

func TestGaussianKeepsEdgeOrder(t *testing.T) {
	s := grid.New[int](24, 8)
	for y := 0; y < s.Height; y++ {
		for x := 12; x < s.Width; x++ {
			s.Set(x, y, 200)
		}
	}

	out := NewGaussian(1).Apply(s)
	for x := 1; x < out.Width; x++ {
		assert.GreaterOrEqual(t, out.At(x, 4), out.At(x-1, 4), "x=%d", x)
	}
	assert.Equal(t, 0, out.At(0, 4))
	assert.Equal(t, 200, out.At(23, 4))
}

func TestGaussianDisabled(t *testing.T) {
	s := grid.New[int](4, 4)
	s.Set(1, 1, 50)
	out := NewGaussian(0).Apply(s)
	assert.Equal(t, s.Data, out.Data)

	out.Set(1, 1, 0)
	assert.Equal(t, 50, s.At(1, 1))
}
