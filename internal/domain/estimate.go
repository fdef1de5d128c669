package domain

import (
	"fmt"
	"math"
)

// EstimateSource tells whether an estimate came from a live provider or
// was synthesized after the provider failed.
type EstimateSource string

const (
	SourceLive      EstimateSource = "live"
	SourceSynthetic EstimateSource = "synthetic"
)

// DurationEstimate is the travel time for one origin/destination pair.
// It is recomputed every refresh cycle.
type DurationEstimate struct {
	DurationSeconds          int            `json:"durationSeconds"`
	DurationText             string         `json:"durationText"`
	DurationInTrafficSeconds int            `json:"durationInTrafficSeconds"`
	DurationInTrafficText    string         `json:"durationInTrafficText"`
	DistanceMeters           int            `json:"distanceMeters"`
	DistanceText             string         `json:"distanceText"`
	StartAddress             string         `json:"startAddress"`
	EndAddress               string         `json:"endAddress"`
	Source                   EstimateSource `json:"source"`
}

func (e DurationEstimate) Synthetic() bool { return e.Source == SourceSynthetic }

// TravelMinutes is the traffic-adjusted duration in fractional minutes.
func (e DurationEstimate) TravelMinutes() float64 {
	return float64(e.DurationInTrafficSeconds) / 60
}

const (
	milesPerMeter = 0.000621371
	feetPerMeter  = 3.28084
)

// FormatDuration renders seconds as "1 hr 5 min" or "45 min".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60

	if hours > 0 {
		return fmt.Sprintf("%d hr %d min", hours, minutes)
	}
	return fmt.Sprintf("%d min", minutes)
}

// FormatDistance renders meters as miles with one decimal, or whole feet
// under a mile.
func FormatDistance(meters int) string {
	miles := float64(meters) * milesPerMeter
	if miles >= 1 {
		return fmt.Sprintf("%.1f mi", miles)
	}
	return fmt.Sprintf("%d ft", int(math.Round(float64(meters)*feetPerMeter)))
}
