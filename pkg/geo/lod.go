package geo

import "fmt"

// LodRange is an inclusive level-of-detail band [Min, Max].
type LodRange struct {
	Min int
	Max int
}

// NewLodRange builds a range, swapping the ends if given out of order so
// the Min <= Max invariant always holds.
func NewLodRange(min, max int) LodRange {
	if min > max {
		min, max = max, min
	}
	return LodRange{Min: min, Max: max}
}

// IsValid reports whether the range is a usable band.
func (r LodRange) IsValid() bool {
	return r.Min >= 0 && r.Min <= r.Max
}

// Contains reports whether the level of detail falls inside the band.
func (r LodRange) Contains(levelOfDetail int) bool {
	return levelOfDetail >= r.Min && levelOfDetail <= r.Max
}

// String returns the band as "min:max".
func (r LodRange) String() string {
	return fmt.Sprintf("%d:%d", r.Min, r.Max)
}
