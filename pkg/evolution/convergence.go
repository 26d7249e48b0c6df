package evolution

// convergenceTracker decides when the evolving area has settled.
//
// Each observation compares the growth between the last two areas with the
// growth before that. A reversal of the trend, or two identical-sign growths
// no larger than the creep tolerance, counts as one instability. The contour
// is stationary once the instability count exceeds the tolerance. Flat growth
// is tracked separately by the stall counter.
type convergenceTracker struct {
	tolerance  int
	creep      int
	stallLimit int

	prev, prevPrev int
	recorded       int
	instability    int
	stall          int
	history        []int
}

func newConvergenceTracker(tolerance, creep, stallLimit int) *convergenceTracker {
	return &convergenceTracker{
		tolerance:  tolerance,
		creep:      creep,
		stallLimit: stallLimit,
	}
}

// observe records a new area and reports whether the contour is stationary
func (t *convergenceTracker) observe(area int) bool {
	t.history = append(t.history, area)
	if t.recorded < 2 {
		t.prevPrev, t.prev = t.prev, area
		t.recorded++
		return false
	}

	last := area - t.prev
	before := t.prev - t.prevPrev
	switch {
	case last > 0 && before < 0, last < 0 && before > 0:
		t.instability++
	case last != 0 && before != 0 && (last > 0) == (before > 0) &&
		abs(last) <= t.creep && abs(before) <= t.creep:
		t.instability++
	}

	if last == 0 {
		t.stall++
	} else {
		t.stall = 0
	}

	t.prevPrev, t.prev = t.prev, area
	return t.stationary()
}

func (t *convergenceTracker) stationary() bool {
	if t.instability > t.tolerance {
		return true
	}
	return t.stallLimit > 0 && t.stall >= t.stallLimit
}

// reset clears the counters so that evolution resumes. The area history is kept.
func (t *convergenceTracker) reset() {
	t.instability = 0
	t.stall = 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
