package volume

import (
	"fmt"
	"strings"

	"mrilevelset/internal/models"
)

// Convention is the sign of the in-plane axis that points anterior.
// For axial and coronal slices that is the row (y) axis, for sagittal slices
// the column (x) axis. Coronal slices use the superior direction instead.
type Convention int

const (
	// NegativeAxis means anterior lies toward decreasing coordinates
	NegativeAxis Convention = iota

	// PositiveAxis means anterior lies toward increasing coordinates
	PositiveAxis
)

func (c Convention) String() string {
	if c == PositiveAxis {
		return "+"
	}
	return "-"
}

// ParseConvention accepts "+", "-", "positive" and "negative"
func ParseConvention(s string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "+", "positive", "pos":
		return PositiveAxis, nil
	case "-", "negative", "neg", "":
		return NegativeAxis, nil
	default:
		return NegativeAxis, fmt.Errorf("unknown axis convention %q", s)
	}
}

// HeadingFor classifies which image side is anterior
func HeadingFor(c Convention, o models.Orientation) models.Heading {
	if o == models.Sagittal {
		if c == PositiveAxis {
			return models.East
		}
		return models.West
	}
	if c == PositiveAxis {
		return models.South
	}
	return models.North
}
