package utils

import (
	"testing"
	"time"
)

func TestRentalCost(t *testing.T) {
	base := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		duration time.Duration
		rate     float64
		want     float64
	}{
		{"two hours at 25", 2 * time.Hour, 25.0, 50.0},
		{"half hour pro rata", 30 * time.Minute, 10.0, 5.0},
		{"rounding to cents", 100 * time.Minute, 9.99, 16.65},
		{"zero rate", 3 * time.Hour, 0, 0},
		{"zero duration", 0, 25.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RentalCost(base, base.Add(tt.duration), tt.rate)
			if got != tt.want {
				t.Errorf("RentalCost = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRentalCostNegativeDuration(t *testing.T) {
	base := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	if got := RentalCost(base, base.Add(-time.Hour), 25.0); got != 0 {
		t.Errorf("RentalCost = %v, want 0 for a reversed interval", got)
	}
}
