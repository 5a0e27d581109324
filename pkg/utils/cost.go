package utils

import (
	"math"
	"time"
)

// RentalCost computes the total cost of a rental interval at an hourly
// rate, rounded to 2 decimal places. Partial hours are billed pro rata.
func RentalCost(start, end time.Time, hourlyRate float64) float64 {
	hours := end.Sub(start).Hours()
	if hours < 0 {
		hours = 0
	}
	return math.Round(hours*hourlyRate*100) / 100
}
