package booking

import (
	"time"

	"github.com/campuslink/resources-backend/internal/models"
)

// Interval is a half-open time range [Start, End). The end instant is
// excluded, so back-to-back bookings never conflict.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the interval has positive length.
func (iv Interval) Valid() bool {
	return iv.End.After(iv.Start)
}

// Overlaps reports whether two half-open intervals intersect:
// [s1,e1) and [s2,e2) overlap iff s1 < e2 and s2 < e1.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether other lies entirely within iv.
func (iv Interval) Contains(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

// Hours returns the interval length in hours.
func (iv Interval) Hours() float64 {
	return iv.End.Sub(iv.Start).Hours()
}

// FindConflicts returns the rentals whose intervals overlap the candidate.
// Callers choose which statuses count as blocking by what they pass in;
// the scan itself has no side effects.
func FindConflicts(rentals []models.RoomRental, candidate Interval) []models.RoomRental {
	var conflicts []models.RoomRental
	for _, r := range rentals {
		if candidate.Overlaps(Interval{Start: r.StartTime, End: r.EndTime}) {
			conflicts = append(conflicts, r)
		}
	}
	return conflicts
}
