package levelset

import "mrilevelset/pkg/grid"

// Threshold converts phi into a binary mask: foreground where phi >= MaskLevel
func Threshold(phi *grid.Field) *grid.Mask {
	m := grid.New[uint8](phi.Width, phi.Height)
	for i, v := range phi.Data {
		if v >= MaskLevel {
			m.Data[i] = grid.Foreground
		}
	}
	return m
}

// Contour marks the single-cell boundary of a mask. A foreground cell is an
// edge when 4*m(c) minus the sum of its 4-neighbours is non-zero, with cells
// outside the grid counted as background.
func Contour(mask *grid.Mask) *grid.Mask {
	out := grid.New[uint8](mask.Width, mask.Height)
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if !grid.IsForeground(mask, x, y) {
				continue
			}
			sum := 4 - bit(mask, x+1, y) - bit(mask, x-1, y) - bit(mask, x, y+1) - bit(mask, x, y-1)
			if sum != 0 {
				out.Set(x, y, grid.Foreground)
			}
		}
	}
	return out
}

// Area counts the cells that Threshold would mark as foreground
func Area(phi *grid.Field) int {
	n := 0
	for _, v := range phi.Data {
		if v >= MaskLevel {
			n++
		}
	}
	return n
}

func bit(m *grid.Mask, x, y int) int {
	if grid.IsForeground(m, x, y) {
		return 1
	}
	return 0
}
