package noise

import "fmt"

// MapLevel maps an integer intensity level in [1, maxLevel] onto the
// model's parameter range by linear interpolation:
//
//	parameter = lo + (hi-lo) * (level-1) / (maxLevel-1)
//
// For an Inverse descriptor the interpolation runs from Range[1] down
// to Range[0], so level 1 is always the mildest degradation and
// maxLevel the strongest. When maxLevel is 1 the single level maps to
// the mild end of the range. The mapping is deterministic.
func MapLevel(d Descriptor, level, maxLevel int) (float64, error) {
	if maxLevel < 1 {
		return 0, fmt.Errorf("%w: max level %d", ErrInvalidLevel, maxLevel)
	}
	if level < 1 || level > maxLevel {
		return 0, fmt.Errorf("%w: level %d not in [1, %d]", ErrInvalidLevel, level, maxLevel)
	}

	start, end := d.Range[0], d.Range[1]
	if d.Inverse {
		start, end = end, start
	}
	if maxLevel == 1 {
		return start, nil
	}
	return start + (end-start)*float64(level-1)/float64(maxLevel-1), nil
}
