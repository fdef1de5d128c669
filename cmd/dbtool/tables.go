package main

import (
	"commute-eta-service/internal/domain"
	"commute-eta-service/internal/services"
	"time"

	"github.com/gosuri/uitable"
)

func routesTable(routes []*domain.Route) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("ID", "NAME", "FROM", "TO", "ARRIVE", "ALERTS")
	for _, r := range routes {
		table.AddRow(r.ID, r.Name, r.FromLocation, r.ToLocation, r.TargetArrivalTime, onOff(r.NotificationsEnabled))
	}
	return table
}

func departuresTable(
	routes []*domain.Route,
	snap services.Snapshot,
	policy services.NotificationPolicy,
	now time.Time,
) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("NAME", "LEAVE AT", "ARRIVE", "TRAVEL", "DISTANCE", "IN", "STATUS", "SOURCE")

	for _, r := range routes {
		res, ok := snap.Results[r.ID]
		if !ok {
			status := "pending"
			if f, failed := snap.Failures[r.ID]; failed {
				status = "failed: " + f.Error
			}
			table.AddRow(r.Name, "-", r.TargetArrivalTime, "-", "-", "-", status, "-")
			continue
		}

		dep := res.Departure.At(now)
		in := services.FormatCountdown(dep.DepartureAt.Sub(now))
		if r.NotificationsEnabled {
			in += " (alert " + services.FormatCountdown(services.TimeUntilNotification(dep.DepartureAt, policy.Lead, now)) + ")"
		}
		table.AddRow(
			r.Name,
			dep.DepartureTimeText,
			dep.ArrivalTimeText,
			res.Estimate.DurationInTrafficText,
			res.Estimate.DistanceText,
			in,
			string(dep.Status),
			string(res.Estimate.Source),
		)
	}
	return table
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
