package rewards

import (
	"math/rand"
	"time"
)

// Clock abstracts time so calendar-day comparisons are deterministic in
// tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

type systemRand struct{}

func (systemRand) Intn(n int) int { return rand.Intn(n) }

// SystemRand returns the process-wide seeded random source.
func SystemRand() Rand { return systemRand{} }

// civilDate normalizes an instant to midnight UTC of its civil date in loc.
// Day arithmetic on these values is immune to DST shifts.
func civilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns whole calendar days from a to b in loc.
func daysBetween(a, b time.Time, loc *time.Location) int {
	return int(civilDate(b, loc).Sub(civilDate(a, loc)) / (24 * time.Hour))
}

// sameCalendarDay reports whether two instants fall on the same civil date in
// loc.
func sameCalendarDay(a, b time.Time, loc *time.Location) bool {
	return civilDate(a, loc).Equal(civilDate(b, loc))
}

// startOfNextDay returns midnight of the civil day after t, in loc.
func startOfNextDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}
