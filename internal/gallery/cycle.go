package gallery

import (
	"math/rand"
	"time"
)

// Carousel auto-cycle timing. Each photo is shown for PhotoCycleDuration,
// split between the people highlighted in it; the first and last highlight
// get extra padding so the transitions between photos are readable.
const (
	PhotoCycleDuration        = 15 * time.Second
	MaxPeoplePerPhotoCycle    = 8
	FirstLastHighlightPadding = time.Second
)

// EffectivePeopleCount caps the number of people highlighted in one photo
// to [1, MaxPeoplePerPhotoCycle].
func EffectivePeopleCount(actual int) int {
	if actual < 1 {
		return 1
	}
	if actual > MaxPeoplePerPhotoCycle {
		return MaxPeoplePerPhotoCycle
	}
	return actual
}

// BaseHighlightInterval is the share of the cycle given to each person.
func BaseHighlightInterval(effective int) time.Duration {
	if effective < 1 {
		effective = 1
	}
	return PhotoCycleDuration / time.Duration(effective)
}

// HighlightDuration returns how long the person at index stays
// highlighted.
func HighlightDuration(index, effective int) time.Duration {
	d := BaseHighlightInterval(effective)
	if index == 0 || index == effective-1 {
		d += FirstLastHighlightPadding
	}
	return d
}

// IsLastPersonInCycle reports whether index is the final highlight before
// the carousel moves to the next photo.
func IsLastPersonInCycle(index, effective int) bool {
	return index >= effective-1
}

// Shuffle returns a shuffled copy of people.
func Shuffle(people []Person, rnd *rand.Rand) []Person {
	out := append([]Person(nil), people...)
	rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
