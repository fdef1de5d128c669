package dto

import (
	"commute-eta-service/internal/domain"
	"commute-eta-service/internal/services"
	"time"
)

// DepartureView is one route's card: the route, its latest estimate and
// departure, and the last failure if the most recent attempt failed.
type DepartureView struct {
	Route     domain.Route             `json:"route"`
	Estimate  *domain.DurationEstimate `json:"estimate,omitempty"`
	Departure *domain.DepartureInfo    `json:"departure,omitempty"`
	UpdatedAt *time.Time               `json:"updatedAt,omitempty"`

	// NotifyAt is when the departure alert fires; NotifyIn counts down to it.
	NotifyAt *time.Time `json:"notifyAt,omitempty"`
	NotifyIn string     `json:"notifyIn,omitempty"`

	// Stale is set when the shown estimate predates a later failure.
	Stale   bool                   `json:"stale"`
	Pending bool                   `json:"pending"`
	Failure *services.RouteFailure `json:"failure,omitempty"`
}

type DeparturesResponse struct {
	Departures []DepartureView       `json:"departures"`
	LastCycle  *services.CycleReport `json:"lastCycle,omitempty"`
	Running    bool                  `json:"running"`
	Now        time.Time             `json:"now"`
}

// NewDepartureView joins a route with the orchestrator's snapshot and
// re-derives the countdown at now.
func NewDepartureView(
	r *domain.Route,
	snap services.Snapshot,
	policy services.NotificationPolicy,
	now time.Time,
) DepartureView {
	v := DepartureView{Route: *r}

	res, hasResult := snap.Results[r.ID]
	fail, hasFailure := snap.Failures[r.ID]

	if hasFailure {
		f := fail
		v.Failure = &f
	}
	if !hasResult {
		v.Pending = !hasFailure
		return v
	}

	est := res.Estimate
	dep := res.Departure.At(now)
	updated := res.UpdatedAt
	v.Estimate = &est
	v.Departure = &dep
	v.UpdatedAt = &updated
	v.Stale = hasFailure && fail.At.After(res.UpdatedAt)

	if r.NotificationsEnabled {
		at := policy.NotifyAt(dep.DepartureAt)
		v.NotifyAt = &at
		v.NotifyIn = services.FormatCountdown(services.TimeUntilNotification(dep.DepartureAt, policy.Lead, now))
	}
	return v
}
