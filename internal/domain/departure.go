package domain

import (
	"math"
	"time"
)

// ClockLayout renders departure and arrival instants. It round-trips
// through ParseTimeOfDay.
const ClockLayout = "15:04"

// LeaveSoonMinutes is the countdown at or below which a route is flagged
// as needing to leave soon.
const LeaveSoonMinutes = 15

type DepartureStatus string

const (
	StatusOnTrack   DepartureStatus = "on_track"
	StatusLeaveSoon DepartureStatus = "leave_soon"
	StatusDeparted  DepartureStatus = "departed"
)

// DepartureInfo is the recommended departure for a route at one instant.
type DepartureInfo struct {
	DepartureAt           time.Time       `json:"departureAt"`
	DepartureTimeText     string          `json:"departureTimeText"`
	ArrivalAt             time.Time       `json:"arrivalAt"`
	ArrivalTimeText       string          `json:"arrivalTimeText"`
	MinutesUntilDeparture int             `json:"minutesUntilDeparture"`
	Status                DepartureStatus `json:"status"`
}

// ComputeDeparture derives the departure for target given a travel time in
// fractional minutes. The arrival is the next occurrence of target at or
// after now, in now's location.
func ComputeDeparture(target TimeOfDay, travelMinutes float64, now time.Time) (DepartureInfo, error) {
	if !target.Valid() {
		ve := NewValidationError()
		ve.Add("targetArrivalTime", "Target arrival time must be a valid HH:MM time")
		return DepartureInfo{}, ve
	}
	if math.IsNaN(travelMinutes) || math.IsInf(travelMinutes, 0) || travelMinutes < 0 {
		ve := NewValidationError()
		ve.Add("travelMinutes", "Travel time must be a non-negative number of minutes")
		return DepartureInfo{}, ve
	}

	arrival := target.On(now)
	if arrival.Before(now) {
		// time.Date normalizes day overflow and keeps the wall clock across DST.
		y, mo, d := now.Date()
		arrival = time.Date(y, mo, d+1, target.Hour, target.Minute, 0, 0, now.Location())
	}

	travel := time.Duration(math.Round(travelMinutes * float64(time.Minute)))
	departure := arrival.Add(-travel)

	return DepartureInfo{
		DepartureAt:           departure,
		DepartureTimeText:     departure.Format(ClockLayout),
		ArrivalAt:             arrival,
		ArrivalTimeText:       arrival.Format(ClockLayout),
		MinutesUntilDeparture: MinutesUntil(departure, now),
		Status:                StatusAt(departure, now),
	}, nil
}

// MinutesUntil is the whole minutes from now until t, clamped at zero.
func MinutesUntil(t, now time.Time) int {
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// StatusAt classifies a departure instant relative to now.
func StatusAt(departure, now time.Time) DepartureStatus {
	if !departure.After(now) {
		return StatusDeparted
	}
	if MinutesUntil(departure, now) <= LeaveSoonMinutes {
		return StatusLeaveSoon
	}
	return StatusOnTrack
}

// At recomputes the time-dependent fields for a later instant without
// moving the departure itself.
func (d DepartureInfo) At(now time.Time) DepartureInfo {
	d.MinutesUntilDeparture = MinutesUntil(d.DepartureAt, now)
	d.Status = StatusAt(d.DepartureAt, now)
	return d
}
